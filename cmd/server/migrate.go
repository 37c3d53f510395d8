package main

import (
	"cloud-doc/internal/config"
	"log/slog"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the share registry schema",
	Long:  `Create the shared_access table and its indexes. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.FromContext(cmd.Context())
		if err != nil {
			return err
		}

		store, err := openStore(cmd.Context(), cfg.DB, true)
		if err != nil {
			return err
		}
		defer store.Close()

		slog.Info("share registry is ready", "driver", cfg.DB.Driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
