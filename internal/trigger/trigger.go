// Package trigger decides which messages get an AI reply.
package trigger

import (
	"context"
	"strings"

	"github.com/comigor/bad-employee-go/internal/chat"
)

// DefaultKeywords is used when none are configured.
var DefaultKeywords = []string{"perl"}

// Policy decides from the message text alone.
type Policy interface {
	ShouldRespond(text string) bool
}

// Keywords matches any keyword as a case-insensitive substring.
type Keywords struct {
	words []string
}

func NewKeywords(words ...string) *Keywords {
	if len(words) == 0 {
		words = DefaultKeywords
	}
	k := &Keywords{}
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			k.words = append(k.words, w)
		}
	}
	return k
}

func (k *Keywords) ShouldRespond(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range k.words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// Limiter rations replies per author.
type Limiter interface {
	Allow(ctx context.Context, authorID int64) bool
}

// Gate combines a text policy with an optional per-author limiter.
// The limiter is consulted only for messages the policy accepts.
type Gate struct {
	Policy  Policy
	Limiter Limiter
}

func (g Gate) Allow(ctx context.Context, msg chat.Inbound) bool {
	if !g.Policy.ShouldRespond(msg.Text()) {
		return false
	}
	if g.Limiter == nil {
		return true
	}
	return g.Limiter.Allow(ctx, msg.AuthorID)
}
