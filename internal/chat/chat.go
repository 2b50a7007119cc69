// Package chat holds the platform-neutral view of an inbound chat message and
// the outbound send contract used by the message pipeline.
package chat

import (
	"context"
	"strconv"
	"time"
)

// Inbound is a single message observed on the chat platform.
// The pipeline treats it as read-only.
type Inbound struct {
	ID          string
	AuthorID    int64
	AuthorName  string // display name, may be empty
	ChannelID   string
	ChannelName string
	Content     string // sanitized text, markup and raw mentions replaced
	Raw         string
	CreatedAt   time.Time
}

// Text returns the sanitized content, falling back to the raw string form.
func (m Inbound) Text() string {
	if m.Content != "" {
		return m.Content
	}
	return m.Raw
}

func (m Inbound) String() string {
	return m.Raw
}

// Mention returns the platform mention token for the author, or "" when the
// author id is unknown.
func (m Inbound) Mention() string {
	return MentionFor(m.AuthorID)
}

// MentionFor formats the mention token for a user id.
func MentionFor(userID int64) string {
	if userID == 0 {
		return ""
	}
	return "<@" + strconv.FormatInt(userID, 10) + ">"
}

// Sender delivers text to the channel a message came from.
type Sender interface {
	Send(ctx context.Context, channelID, text string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, channelID, text string) error

func (f SenderFunc) Send(ctx context.Context, channelID, text string) error {
	return f(ctx, channelID, text)
}
