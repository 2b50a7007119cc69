package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/qmuntal/stateless" // FSM library

	"github.com/comigor/bad-employee-go/internal/chat"
	"github.com/comigor/bad-employee-go/internal/history"
	"github.com/comigor/bad-employee-go/internal/logger"
	"github.com/comigor/bad-employee-go/internal/prompt"
)

// FSM States
type State string

const (
	StateReceived   State = "Received"
	StatePersisted  State = "Persisted"  // row written (or the write failed and was logged)
	StateEnriching  State = "Enriching"  // loading history and building the prompt
	StateResponding State = "Responding" // waiting on the AI backend, then delivering
	StateDone       State = "Done"       // Terminal: reply delivered
	StateSkipped    State = "Skipped"    // Terminal: no reply warranted
)

// FSM Triggers
type Trigger string

const (
	TriggerPersist   Trigger = "Persist"
	TriggerRespond   Trigger = "Respond"
	TriggerSkip      Trigger = "Skip"
	TriggerEnriched  Trigger = "Enriched"
	TriggerDelivered Trigger = "Delivered"
)

// Decider gates the AI path for a message.
type Decider interface {
	Allow(ctx context.Context, msg chat.Inbound) bool
}

// Responder turns a prompt into reply text; it never fails.
type Responder interface {
	Respond(ctx context.Context, prompt string) string
}

// Options tune the prompt built for each triggered message.
type Options struct {
	// Preamble defaults to prompt.Persona.
	Preamble string
	// HistoryWindow limits prior messages by age; zero means all of them.
	HistoryWindow time.Duration
}

// Agent runs the per-message pipeline: persist every message, and for the
// ones the decider accepts, reply using the author's history.
type Agent struct {
	store     history.Store
	decider   Decider
	responder Responder
	preamble  string
	window    time.Duration
}

func New(store history.Store, decider Decider, responder Responder, opts Options) *Agent {
	if opts.Preamble == "" {
		opts.Preamble = prompt.Persona
	}
	return &Agent{
		store:     store,
		decider:   decider,
		responder: responder,
		preamble:  opts.Preamble,
		window:    opts.HistoryWindow,
	}
}

// Process handles one inbound message and returns the reply that was sent,
// or "" when the message did not warrant one. Store and delivery failures
// are logged and never returned; an error means the pipeline itself broke.
func (a *Agent) Process(ctx context.Context, msg chat.Inbound, out chat.Sender) (string, error) {
	// FSM context data
	type fsmContext struct {
		log    *slog.Logger
		prompt string
		reply  string
	}
	fsmCtx := &fsmContext{
		log: logger.L.With("correlation", uuid.NewString(), "author", msg.AuthorID, "channel", msg.ChannelName),
	}

	fsm := stateless.NewStateMachineWithMode(StateReceived, stateless.FiringQueued)

	fsm.Configure(StateReceived).
		Permit(TriggerPersist, StatePersisted)

	// State: Persisted
	// Action: append the message, then decide whether it gets a reply.
	fsm.Configure(StatePersisted).
		OnEntry(func(ctx context.Context, args ...any) error {
			err := a.store.Append(ctx, history.ChatMessage{
				AuthorID:    msg.AuthorID,
				ChannelName: msg.ChannelName,
				Content:     msg.Text(),
			})
			if err != nil {
				fsmCtx.log.Warn("message not persisted; continuing", "error", err)
			}
			if a.decider.Allow(ctx, msg) {
				return fsm.FireCtx(ctx, TriggerRespond)
			}
			return fsm.FireCtx(ctx, TriggerSkip)
		}).
		Permit(TriggerRespond, StateEnriching).
		Permit(TriggerSkip, StateSkipped)

	// State: Enriching
	// Action: load the author's history and assemble the prompt.
	fsm.Configure(StateEnriching).
		OnEntry(func(ctx context.Context, args ...any) error {
			prior := a.store.Query(ctx, msg.AuthorID, a.window)
			fsmCtx.prompt = prompt.Assemble(a.preamble, msg, prior)
			fsmCtx.log.Debug("prompt assembled", "prior", len(prior), "prompt", fsmCtx.prompt)
			return fsm.FireCtx(ctx, TriggerEnriched)
		}).
		Permit(TriggerEnriched, StateResponding)

	// State: Responding
	// Action: ask the backend and deliver whatever comes back.
	fsm.Configure(StateResponding).
		OnEntry(func(ctx context.Context, args ...any) error {
			fsmCtx.reply = a.responder.Respond(ctx, fsmCtx.prompt)
			if err := out.Send(ctx, msg.ChannelID, fsmCtx.reply); err != nil {
				fsmCtx.log.Error("failed to deliver reply", "error", err)
			}
			return fsm.FireCtx(ctx, TriggerDelivered)
		}).
		Permit(TriggerDelivered, StateDone)

	fsm.Configure(StateDone)
	fsm.Configure(StateSkipped)

	if err := fsm.FireCtx(ctx, TriggerPersist); err != nil {
		fsmCtx.log.Error("message pipeline failed", "error", err)
		return "", fmt.Errorf("message pipeline: %w", err)
	}

	currentState, err := fsm.State(ctx)
	if err != nil {
		return "", fmt.Errorf("FSM internal error: %w", err)
	}
	switch currentState {
	case StateDone:
		fsmCtx.log.Info("replied to message", "reply_len", len(fsmCtx.reply))
		return fsmCtx.reply, nil
	case StateSkipped:
		return "", nil
	}
	return "", fmt.Errorf("FSM ended in an unexpected state: %v", currentState)
}
