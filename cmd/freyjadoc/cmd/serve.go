/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/freyjadoc/pkg/api"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long: `Start the freyjadoc REST API server. Settings come from the config file;
flags override them.

Examples:
  freyjadoc serve
  freyjadoc serve --port 9000 --api-key mysecretkey`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}

			config := api.ServerConfig{
				Port:   e.cfg.Port,
				Bind:   e.cfg.Bind,
				APIKey: e.cfg.Security.APIKey,
			}
			if f := cmd.Flags().Lookup("port"); f.Changed {
				config.Port, _ = cmd.Flags().GetInt("port")
			}
			if f := cmd.Flags().Lookup("bind"); f.Changed {
				config.Bind, _ = cmd.Flags().GetString("bind")
			}
			if f := cmd.Flags().Lookup("api-key"); f.Changed {
				config.APIKey, _ = cmd.Flags().GetString("api-key")
			}
			if config.APIKey == "auto" {
				e.logger.Warn().Msg("api key is unset, run 'freyjadoc init' to generate one")
				config.APIKey = ""
			}
			if config.APIKey == "" {
				e.logger.Warn().Msg("authentication disabled")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return api.StartServer(ctx, e.db, e.schema, config, e.logger)
		},
	}
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind")
	serveCmd.Flags().String("api-key", "", "API key for authentication")
	return serveCmd
}
