package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/comigor/bad-employee-go/internal/chat"
)

// Command is the interface for all prefix commands
type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv Invocation) (string, error)
}

// Invocation is one use of a command.
type Invocation struct {
	Message chat.Inbound
	Args    []string
}

// HelloCommand greets the author.
type HelloCommand struct{}

func (HelloCommand) Name() string        { return "hello" }
func (HelloCommand) Description() string { return "Replies with hello!" }

func (HelloCommand) Run(_ context.Context, inv Invocation) (string, error) {
	mention := inv.Message.Mention()
	if mention == "" {
		mention = inv.Message.AuthorName
	}
	return fmt.Sprintf("Hello %s!", mention), nil
}

// PingCommand reports the gateway latency.
type PingCommand struct {
	Latency func() time.Duration
}

func (PingCommand) Name() string        { return "ping" }
func (PingCommand) Description() string { return "Shows the bot's latency." }

func (c PingCommand) Run(context.Context, Invocation) (string, error) {
	ms := float64(c.Latency()) / float64(time.Millisecond)
	return fmt.Sprintf("Pong! Latency: %.2fms", ms), nil
}

// HelpCommand lists the registered commands.
type HelpCommand struct {
	Registry *Registry
}

func (HelpCommand) Name() string        { return "help" }
func (HelpCommand) Description() string { return "Shows this message." }

func (c HelpCommand) Run(context.Context, Invocation) (string, error) {
	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, cmd := range c.Registry.List() {
		fmt.Fprintf(&b, "  %s%s - %s\n", c.Registry.Prefix(), cmd.Name(), cmd.Description())
	}
	return b.String(), nil
}
