package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/comigor/bad-employee-go/internal/app"
	"github.com/comigor/bad-employee-go/internal/history"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the chat history table if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			store, err := app.OpenStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			existed, err := store.TableExists(ctx)
			if err != nil {
				return err
			}
			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}
			if existed {
				fmt.Fprintf(cmd.OutOrStdout(), "Table '%s' exists.\n", history.TableName)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Table '%s' created.\n", history.TableName)
			}
			return nil
		},
	}
}

func newPurgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Drop and recreate the chat history table, deleting all history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return errors.New("refusing to purge history without --yes")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			store, err := app.OpenStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Purge(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Table '%s' purged.\n", history.TableName)
			return nil
		},
	}
	cmd.Flags().Bool("yes", false, "Confirm that all chat history should be deleted.")
	return cmd
}
