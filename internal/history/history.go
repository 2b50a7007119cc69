// Package history persists every observed chat message and answers
// per-author recency queries for prompt building.
//
// Writes are insert-only. Read failures degrade to an empty result so the
// caller can carry on without history; write failures are returned so the
// caller can log them, but they are never meant to stop message handling.
package history

import (
	"context"
	"fmt"
	"time"
)

// TableName is the single table holding the chat log.
const TableName = "chat_history"

// maxChannelLen mirrors the VARCHAR(50) channel column.
const maxChannelLen = 50

// Store is the durable chat log.
type Store interface {
	// Append inserts one row. The store assigns the timestamp.
	Append(ctx context.Context, msg ChatMessage) error
	// Query returns the author's rows oldest first. A positive since keeps
	// only rows younger than since; zero or negative means everything.
	// Errors are logged and yield an empty result.
	Query(ctx context.Context, authorID int64, since time.Duration) []ChatMessage
	// EnsureSchema creates the table if needed. Safe to call on every start.
	EnsureSchema(ctx context.Context) error
	TableExists(ctx context.Context) (bool, error)
	// Purge drops and recreates the table, deleting all history.
	Purge(ctx context.Context) error
	Close()
}

// StoreError wraps a failed store operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("history %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func opError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

func clampChannel(name string) string {
	r := []rune(name)
	if len(r) <= maxChannelLen {
		return name
	}
	return string(r[:maxChannelLen])
}
