// Package prompt builds the text sent to the generative backend from the
// persona preamble, the author's earlier messages and the current message.
// Assembly is pure: the same inputs always produce the same prompt.
package prompt

import (
	"strconv"
	"strings"

	"github.com/comigor/bad-employee-go/internal/chat"
	"github.com/comigor/bad-employee-go/internal/history"
)

// Persona is the character every reply is written in.
const Persona = `
Your are often called bad employee, bad employee bot or
something similar.

You are a bad employee at a software company. You are
skilled at what you do, but annoying to talk to. You
know how to write good Perl code, but would rather
everyone used Python instead.
`

// lineBreaks flattens stored text so each prior message stays on one line.
var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// unknown stands in for an author identity that cannot be resolved.
const unknown = "unknown"

// Context is everything a single prompt is built from.
type Context struct {
	Preamble      string
	AuthorName    string
	AuthorMention string
	Prior         []history.ChatMessage // oldest first
	Current       string
}

// NewContext resolves author labels and the current text from msg.
func NewContext(preamble string, msg chat.Inbound, prior []history.ChatMessage) Context {
	name := msg.AuthorName
	if name == "" {
		name = unknown
	}
	mention := msg.Mention()
	if mention == "" {
		mention = unknown
	}
	return Context{
		Preamble:      preamble,
		AuthorName:    name,
		AuthorMention: mention,
		Prior:         prior,
		Current:       msg.Text(),
	}
}

// Assemble builds the prompt for msg.
func Assemble(preamble string, msg chat.Inbound, prior []history.ChatMessage) string {
	return NewContext(preamble, msg, prior).String()
}

func (c Context) String() string {
	var b strings.Builder
	b.WriteString(c.Preamble)

	if len(c.Prior) > 0 {
		b.WriteString("\n\nThis user is named @")
		b.WriteString(c.AuthorName)
		b.WriteString(" and is mentioned as ")
		b.WriteString(c.AuthorMention)
		b.WriteString("\n\nPrevious messages from this user, starting with the UTC epoch they sent it, the channel sent and the message:\n")
		for _, m := range c.Prior {
			b.WriteString(" * ")
			b.WriteString(strconv.FormatInt(m.Timestamp.Unix(), 10))
			b.WriteByte(',')
			b.WriteString(lineBreaks.Replace(m.ChannelName))
			b.WriteByte(',')
			b.WriteString(lineBreaks.Replace(m.Content))
			b.WriteByte('\n')
		}
	}

	b.WriteString("\n\nUser's current message:\n")
	b.WriteString(c.Current)
	b.WriteString("\n")
	return b.String()
}
