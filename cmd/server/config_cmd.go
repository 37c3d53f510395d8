package main

import (
	"cloud-doc/internal/config"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long:  `Print the configuration after merging defaults, settings file, environment and flags. Secrets are redacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.FromContext(cmd.Context())
		if err != nil {
			return err
		}

		out, err := yaml.Marshal(cfg.Redacted())
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}

		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
