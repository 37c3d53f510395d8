// @title           Cloud Doc API
// @version         1.0
// @description     Personal file storage backed by a cloud bucket, with Google sign-in and folder sharing.
// @BasePath        /
// @schemes         http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"cloud-doc/internal/config"
	"context"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "cloud-doc",
	Short:   "Personal file storage relay for a cloud bucket",
	Long: `cloud-doc keeps each Google account's files in its own folder of a
storage bucket, hands out signed URLs for reading them and lets users share
their folder with each other.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")

		cfg, err := config.Load(configFile, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg.Log)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./configs/settings.yml or /configs/settings.yml)")
	rootCmd.PersistentFlags().String("db-driver", "", "share registry driver: sqlite, postgres (env: DB_DRIVER)")
	rootCmd.PersistentFlags().String("db-source", "", "share registry connection string (env: DB_SOURCE)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: LOG_LEVEL)")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text, json (env: LOG_FORMAT)")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
