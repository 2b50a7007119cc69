package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/comigor/bad-employee-go/internal/app"
	"github.com/comigor/bad-employee-go/internal/config"
	"github.com/comigor/bad-employee-go/internal/logger"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "bademployee",
		Short:         "Discord bot that remembers what you said and has opinions about Perl",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd)
		},
	}

	cmd.PersistentFlags().String("config", "", "Config file path (optional; defaults to CONFIG_PATH or ./config.yaml).")
	cmd.PersistentFlags().String("log-level", "", "Logging level: debug|info|warn|error.")
	cmd.PersistentFlags().String("log-format", "", "Logging format: text|json.")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newSchemaCmd())
	cmd.AddCommand(newPurgeCmd())
	cmd.AddCommand(newChatCmd())
	return cmd
}

// loadConfig reads the config, with command-line flags bound over it, and
// applies the logging settings.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		return nil, err
	}

	if err := logger.SetFormat(cfg.Log.Format); err != nil {
		return nil, err
	}
	logger.SetLevel(cfg.Log.Level)
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and start answering (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd)
		},
	}
}

func runBot(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.L.Error("failed to start bot", "error", err)
		return err
	}
	defer a.Close()

	return a.Run(ctx)
}
