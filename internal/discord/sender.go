package discord

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// maxMessageLen is Discord's per-message character limit.
const maxMessageLen = 2000

// Sender posts text to a channel, splitting it to fit Discord's limit.
type Sender struct {
	session *discordgo.Session
}

func (s *Sender) Send(ctx context.Context, channelID, text string) error {
	for _, chunk := range splitMessage(text, maxMessageLen) {
		if _, err := s.session.ChannelMessageSend(channelID, chunk, discordgo.WithContext(ctx)); err != nil {
			return err
		}
	}
	return nil
}

// splitMessage cuts text into chunks of at most limit runes, preferring to
// break after a newline, then after a space.
func splitMessage(text string, limit int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var chunks []string
	r := []rune(text)
	for len(r) > limit {
		cut := lastIndex(r[:limit], '\n')
		if cut <= 0 {
			cut = lastIndex(r[:limit], ' ')
		}
		if cut <= 0 {
			cut = limit
		} else {
			cut++
		}
		chunks = append(chunks, string(r[:cut]))
		r = r[cut:]
	}
	if len(r) > 0 {
		chunks = append(chunks, string(r))
	}
	return chunks
}

func lastIndex(r []rune, c rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] == c {
			return i
		}
	}
	return -1
}
