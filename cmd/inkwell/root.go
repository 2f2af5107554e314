// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Inkwell CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inkwell",
		Short: "Inkwell - console authentication server",
		Long: `Inkwell authenticates operators of the Inkwell console: password login,
rotating refresh sessions with reuse detection, and emailed password resets.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/inkwell/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewUserCmd())
	cmd.AddCommand(NewSweepCmd())

	return cmd
}

// loadConfig reads the config file named by --config, or the XDG default
// when it exists, layered under the flags of cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configFile
	if path == "" {
		found, err := xdg.ExistingConfigFile()
		if err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "locate config file").Wrap(err)
		}
		path = found
	}
	return config.Load(path, cmd.Flags())
}

// requireDatabaseURL returns the configured database URL, which commands
// that only touch the database need even when the rest of the config is
// incomplete.
func requireDatabaseURL(cfg *config.Config) (string, error) {
	if cfg.DatabaseURL == "" {
		return "", oops.Code("CONFIG_INVALID").
			With("key", "database-url").
			Errorf("database url is required (--database-url, config file or $%s)", config.EnvDatabaseURL)
	}
	return cfg.DatabaseURL, nil
}
