// Package responder turns prompts into reply text using a generative backend.
// It never fails: timeouts, unexpected response shapes and backend errors
// all become a plain-language fallback sentence.
package responder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/comigor/bad-employee-go/internal/llm"
	"github.com/comigor/bad-employee-go/internal/logger"
)

// DefaultTimeout bounds a single backend call.
const DefaultTimeout = 15 * time.Second

// Fallback replies.
const (
	SlowFallback      = "Sorry, the AI service is taking too long to respond. Please try again later."
	ShapeFallback     = "Sorry, I couldn't get a valid response from the AI service. The response structure might have changed."
	ChatShapeFallback = "Sorry, I couldn't get a valid chat response from the AI service."

	errorFallback     = "Sorry, I encountered an error while trying to talk to the AI service: %s"
	chatErrorFallback = "Sorry, I encountered an error during our chat: %s"
)

const maxErrorDescription = 200

var (
	ErrBackendTimeout = errors.New("ai backend timed out")
	ErrBackendShape   = errors.New("ai backend response has no recognizable text")
)

// TransportError is any other failure reported by the backend.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// Session is a multi-turn conversation with the backend.
type Session struct {
	ID    uuid.UUID
	turns []llm.Turn
}

// Responder sends prompts to a backend under a fixed timeout.
type Responder struct {
	backend llm.Backend
	timeout time.Duration

	mu      sync.Mutex
	session *Session
}

func New(backend llm.Backend, timeout time.Duration) *Responder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Responder{backend: backend, timeout: timeout}
}

// Respond returns the backend's reply to prompt or a fallback sentence.
func (r *Responder) Respond(ctx context.Context, prompt string) string {
	text, err := r.Generate(ctx, prompt)
	if err != nil {
		logger.L.Error("error generating response", "error", err)
		return fallback(err, false)
	}
	return text
}

// Generate is Respond with the failure exposed: ErrBackendTimeout,
// ErrBackendShape or a *TransportError.
func (r *Responder) Generate(ctx context.Context, prompt string) (string, error) {
	return r.call(ctx, []llm.Turn{{Role: llm.RoleUser, Text: prompt}})
}

// StartChat replaces the current session with a new one seeded with history.
func (r *Responder) StartChat(history []llm.Turn) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startLocked(history).ID
}

func (r *Responder) startLocked(history []llm.Turn) *Session {
	s := &Session{ID: uuid.New(), turns: append([]llm.Turn(nil), history...)}
	r.session = s
	logger.L.Info("chat session started", "session", s.ID, "turns", len(s.turns))
	return s
}

// SendChatMessage continues the current session, starting one if needed.
// Only successful exchanges are added to the session history.
func (r *Responder) SendChatMessage(ctx context.Context, text string) string {
	r.mu.Lock()
	s := r.session
	if s == nil {
		s = r.startLocked(nil)
	}
	turns := append(append([]llm.Turn(nil), s.turns...), llm.Turn{Role: llm.RoleUser, Text: text})
	r.mu.Unlock()

	reply, err := r.call(ctx, turns)
	if err != nil {
		logger.L.Error("error sending chat message", "session", s.ID, "error", err)
		return fallback(err, true)
	}

	r.mu.Lock()
	if r.session == s {
		s.turns = append(turns, llm.Turn{Role: llm.RoleModel, Text: reply})
	}
	r.mu.Unlock()
	return reply
}

// ChatHistory returns a copy of the current session's turns.
func (r *Responder) ChatHistory() []llm.Turn {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil
	}
	return append([]llm.Turn(nil), r.session.turns...)
}

// call runs the backend in its own goroutine. When the deadline passes the
// call is abandoned; its eventual result is dropped.
func (r *Responder) call(ctx context.Context, turns []llm.Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type result struct {
		resp *llm.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := r.backend.Generate(ctx, turns)
		done <- result{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrBackendTimeout
		}
		return "", &TransportError{Err: ctx.Err()}
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() != nil {
				return "", ErrBackendTimeout
			}
			return "", &TransportError{Err: res.err}
		}
		text, ok := extract(res.resp)
		if !ok {
			logger.L.Error("unexpected response shape", "response", fmt.Sprintf("%+v", res.resp))
			return "", ErrBackendShape
		}
		return text, nil
	}
}

func fallback(err error, chat bool) string {
	switch {
	case errors.Is(err, ErrBackendTimeout):
		return SlowFallback
	case errors.Is(err, ErrBackendShape):
		if chat {
			return ChatShapeFallback
		}
		return ShapeFallback
	}
	format := errorFallback
	if chat {
		format = chatErrorFallback
	}
	return fmt.Sprintf(format, describe(err))
}

func describe(err error) string {
	r := []rune(err.Error())
	if len(r) <= maxErrorDescription {
		return string(r)
	}
	return string(r[:maxErrorDescription]) + "..."
}
