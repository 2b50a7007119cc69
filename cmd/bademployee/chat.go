package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/comigor/bad-employee-go/internal/app"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the AI backend from the terminal. Type 'quit' to end.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateLLM(); err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			r := app.NewResponder(cfg)
			r.StartChat(nil)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Chat started. Type 'quit' to end.")
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "You: ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if strings.EqualFold(line, "quit") {
					return nil
				}
				if line == "" {
					continue
				}
				fmt.Fprintf(out, "Bot: %s\n", r.SendChatMessage(ctx, line))
				if ctx.Err() != nil {
					return nil
				}
			}
		},
	}
}
