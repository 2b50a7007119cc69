package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

var levelVar = new(slog.LevelVar)

var (
	mu      sync.Mutex // guards out and format
	out     io.Writer = os.Stdout
	format            = "json"
	current atomic.Pointer[slog.Handler]
)

// L never changes; SetFormat and SetOutput swap the handler underneath it,
// so loggers derived with L.With follow the swap too.
var L = slog.New(&swapHandler{})

func init() {
	store(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: levelVar}))
}

func store(h slog.Handler) { current.Store(&h) }

// SetLevel configures the global log level (debug, info, warn, error).
func SetLevel(lvl string) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn", "warning":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
}

// SetFormat switches the global logger between text and json, keeping the
// level and output.
func SetFormat(f string) error {
	mu.Lock()
	defer mu.Unlock()
	h, err := newHandler(out, f)
	if err != nil {
		return err
	}
	format = f
	store(h)
	return nil
}

// SetOutput redirects the global logger to w. Mostly useful in tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	h, err := newHandler(w, format)
	if err != nil {
		// format was validated when it was set
		panic(err)
	}
	out = w
	store(h)
}

func newHandler(w io.Writer, format string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: levelVar}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return slog.NewJSONHandler(w, opts), nil
	case "text":
		return slog.NewTextHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("unknown log format: %s", format)
	}
}

// swapHandler forwards to the current handler, replaying any attrs and
// groups added through With/WithGroup.
type swapHandler struct {
	derive func(slog.Handler) slog.Handler
}

func (h *swapHandler) target() slog.Handler {
	base := *current.Load()
	if h.derive != nil {
		return h.derive(base)
	}
	return base
}

func (h *swapHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return (*current.Load()).Enabled(ctx, l)
}

func (h *swapHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.target().Handle(ctx, r)
}

func (h *swapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(func(b slog.Handler) slog.Handler { return b.WithAttrs(attrs) })
}

func (h *swapHandler) WithGroup(name string) slog.Handler {
	return h.with(func(b slog.Handler) slog.Handler { return b.WithGroup(name) })
}

func (h *swapHandler) with(f func(slog.Handler) slog.Handler) slog.Handler {
	prev := h.derive
	return &swapHandler{derive: func(b slog.Handler) slog.Handler {
		if prev != nil {
			b = prev(b)
		}
		return f(b)
	}}
}
