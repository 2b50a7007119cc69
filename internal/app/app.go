// Package app wires the bot together. Everything the process needs is built
// once here and passed down explicitly.
package app

import (
	"context"
	"fmt"

	"github.com/comigor/bad-employee-go/internal/agent"
	"github.com/comigor/bad-employee-go/internal/command"
	"github.com/comigor/bad-employee-go/internal/config"
	"github.com/comigor/bad-employee-go/internal/discord"
	"github.com/comigor/bad-employee-go/internal/history"
	"github.com/comigor/bad-employee-go/internal/llm"
	"github.com/comigor/bad-employee-go/internal/logger"
	"github.com/comigor/bad-employee-go/internal/responder"
	"github.com/comigor/bad-employee-go/internal/trigger"
)

// App is the application context.
type App struct {
	Config    *config.Config
	Store     history.Store
	Responder *responder.Responder
	Gate      trigger.Gate
	Agent     *agent.Agent
	Bot       *discord.Bot

	closers []func()
}

// OpenStore opens the configured history store. The schema is not touched.
func OpenStore(ctx context.Context, cfg *config.Config) (history.Store, error) {
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, err
	}
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		return history.OpenSQLite(cfg.Database.Path, cfg.Database.Timeout)
	default:
		pool, err := history.NewPool(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return history.NewPostgresStore(pool, cfg.Database.Timeout), nil
	}
}

// NewResponder builds the AI responder for the configured backend.
func NewResponder(cfg *config.Config) *responder.Responder {
	backend := llm.NewOpenAIBackend(llm.NewClient(cfg.LLM), llm.ModelFor(cfg.LLM))
	return responder.New(backend, cfg.LLM.Timeout)
}

// New validates cfg and builds the whole bot. Missing credentials are fatal.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.ValidateBot(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	a.Gate, err = a.buildGate(ctx)
	if err != nil {
		return nil, err
	}

	a.Responder = NewResponder(cfg)
	a.Agent = agent.New(store, a.Gate, a.Responder, agent.Options{
		Preamble:      cfg.Persona,
		HistoryWindow: cfg.History.Window,
	})

	a.Bot, err = discord.NewBot(cfg.Discord.Token, a.Agent, command.NewRegistry(cfg.Discord.CommandPrefix))
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	ok = true
	return a, nil
}

func (a *App) buildGate(ctx context.Context) (trigger.Gate, error) {
	gate := trigger.Gate{Policy: trigger.NewKeywords(a.Config.Trigger.Keywords...)}
	period := a.Config.Trigger.Cooldown
	if period <= 0 {
		return gate, nil
	}

	if addr := a.Config.Redis.Addr; addr != "" {
		client, err := trigger.NewRedisClient(ctx, addr, a.Config.Redis.Password, a.Config.Redis.DB)
		if err != nil {
			return gate, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		gate.Limiter = trigger.NewRedisCooldown(client, period)
		return gate, nil
	}
	gate.Limiter = trigger.NewMemoryCooldown(period)
	return gate, nil
}

// Run connects the bot and blocks until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if err := a.Bot.Start(ctx); err != nil {
		return fmt.Errorf("start bot: %w", err)
	}
	<-ctx.Done()
	logger.L.Info("shutting down")
	a.Bot.Stop()
	return nil
}

// Close releases everything New acquired, newest first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
