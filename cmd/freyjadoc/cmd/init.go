/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/freyjadoc/pkg/config"
)

func newInitCmd() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a config file and data directory",
		Long: `Create a config file with a generated API key, and the data directory.

Examples:
  freyjadoc init
  freyjadoc init --config ./freyjadoc.yaml --data-dir ./data --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			force, _ := cmd.Flags().GetBool("force")

			if config.ConfigExists(path) && !force {
				cmd.Printf("Config already exists at %s. Use --force to overwrite.\n", path)
				return nil
			}

			cfg, err := config.BootstrapConfig(path, dataDir)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}

			cmd.Printf("Config written to %s\n", path)
			cmd.Printf("Data directory: %s\n", cfg.DataDir)
			cmd.Printf("API key: %s\n", cfg.Security.APIKey)
			return nil
		},
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	return initCmd
}
