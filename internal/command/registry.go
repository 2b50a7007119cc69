package command

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/comigor/bad-employee-go/internal/chat"
	"github.com/comigor/bad-employee-go/internal/logger"
)

// ErrorReply is what the channel sees when a command fails.
const ErrorReply = "An error occurred while executing that command."

// Registry manages the available commands
type Registry struct {
	prefix   string
	commands map[string]Command
}

// NewRegistry creates a new Registry for commands starting with prefix
func NewRegistry(prefix string) *Registry {
	if prefix == "" {
		prefix = "!"
	}
	return &Registry{
		prefix:   prefix,
		commands: make(map[string]Command),
	}
}

func (r *Registry) Prefix() string { return r.prefix }

// Register registers a new command
func (r *Registry) Register(cmd Command) {
	r.commands[strings.ToLower(cmd.Name())] = cmd
}

// Get retrieves a command by name
func (r *Registry) Get(name string) (Command, error) {
	cmd, ok := r.commands[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("command not found: %s", name)
	}
	return cmd, nil
}

// List returns all registered commands sorted by name
func (r *Registry) List() []Command {
	cs := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		cs = append(cs, c)
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].Name() < cs[j].Name() })
	return cs
}

// Dispatch runs the command msg invokes, if any. handled is false for
// messages that are not commands and for unknown commands.
func (r *Registry) Dispatch(ctx context.Context, msg chat.Inbound) (reply string, handled bool) {
	fields := strings.Fields(msg.Raw)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], r.prefix) {
		return "", false
	}
	name := strings.TrimPrefix(fields[0], r.prefix)
	cmd, err := r.Get(name)
	if err != nil {
		return "", false
	}

	logger.L.Info("command invoked", "command", cmd.Name(), "author", msg.AuthorName, "channel", msg.ChannelName)
	out, err := cmd.Run(ctx, Invocation{Message: msg, Args: fields[1:]})
	if err != nil {
		logger.L.Error("error in command", "command", cmd.Name(), "error", err)
		return ErrorReply, true
	}
	return out, true
}
