/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ssargent/freyjadoc/internal/lore"
	"github.com/ssargent/freyjadoc/pkg/config"
	"github.com/ssargent/freyjadoc/pkg/model"
	"github.com/ssargent/freyjadoc/pkg/storage"
)

type envKey struct{}

// env is what a subcommand runs against, built once per invocation
type env struct {
	cfg    *config.Config
	logger zerolog.Logger
	schema *lore.Schema
	db     *storage.DB
}

func envFrom(cmd *cobra.Command) (*env, error) {
	e, ok := cmd.Context().Value(envKey{}).(*env)
	if !ok {
		return nil, fmt.Errorf("command environment not initialized")
	}
	return e, nil
}

// collection opens the collection of the named record type
func (e *env) collection(name string) (*storage.Collection, error) {
	m, err := e.schema.Model(name)
	if err != nil {
		return nil, err
	}
	return e.db.Collection(m)
}

// loadConfig reads the config file when there is one and applies flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg := config.DefaultConfig()
	if config.ConfigExists(path) {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if f := cmd.Flags().Lookup("data-dir"); f != nil && f.Changed {
		cfg.DataDir = f.Value.String()
	}
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		cfg.Logging.Level = f.Value.String()
	}
	if f := cmd.Flags().Lookup("namespace"); f != nil && f.Changed {
		cfg.Schema.Namespace = f.Value.String()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (zerolog.Logger, error) {
	level, err := cfg.Logging.ZerologLevel()
	if err != nil {
		return zerolog.Nop(), err
	}
	out := cmd.ErrOrStderr()
	var logger zerolog.Logger
	if cfg.Logging.Format == "json" {
		logger = zerolog.New(out)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"})
	}
	return logger.Level(level).With().Timestamp().Logger(), nil
}

// openEnv prepares config, logger, schema and storage for commands that need them
func openEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}

	schema, err := lore.New(cfg.Schema.Namespace, model.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to define schema: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	db, err := storage.Open(cfg.DataDir, storage.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return &env{cfg: cfg, logger: logger, schema: schema, db: db}, nil
}

// storageCommand runs c with an open environment, closing storage afterwards
func storageCommand(c *cobra.Command) *cobra.Command {
	run := c.RunE
	c.RunE = func(cmd *cobra.Command, args []string) (err error) {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := e.db.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cmd.SetContext(context.WithValue(ctx, envKey{}, e))
		return run(cmd, args)
	}
	return c
}

// NewRootCmd builds the freyjadoc command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "freyjadoc",
		Short: "freyjadoc - typed records over a document store",
		Long: `freyjadoc stores typed lore records (characters, places, groups) as
documents in an embedded Pebble database, with lists, dicts and embedded
records encoded field by field.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", config.GetDefaultConfigPath(), "Path to the config file")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "./data", "Data directory for the store")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("namespace", "lore", "Namespace the record types are defined in")

	rootCmd.AddCommand(
		newInitCmd(),
		storageCommand(newPutCmd()),
		storageCommand(newGetCmd()),
		storageCommand(newDeleteCmd()),
		storageCommand(newListCmd()),
		storageCommand(newServeCmd()),
	)
	return rootCmd
}

// Execute runs the command tree. This is called by main.main().
func Execute() error {
	return NewRootCmd().Execute()
}
