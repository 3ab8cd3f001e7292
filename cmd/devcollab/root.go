// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/devcollab/devcollab/internal/config"
	"github.com/devcollab/devcollab/internal/logging"
	"github.com/devcollab/devcollab/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the DevCollab CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devcollab",
		Short: "DevCollab - project collaboration API",
		Long: `DevCollab serves the account, password recovery and project
collaboration API backed by PostgreSQL.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")
	config.Flags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd(nil))
	cmd.AddCommand(NewMigrateCmd(nil))
	cmd.AddCommand(NewSweepCmd(nil))

	return cmd
}

// loadConfig reads configuration for cmd from the --config file, flags and
// environment. Without --config, the XDG config file is used if present.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configFile
	if path == "" {
		var err error
		if path, err = xdg.DefaultConfigFile(); err != nil {
			return nil, err
		}
	}
	return config.Load(path, cmd.Flags())
}

// requireDatabaseURL returns the configured database URL.
func requireDatabaseURL(cfg *config.Config) (string, error) {
	if cfg.Database.URL == "" {
		return "", oops.Code("CONFIG_INVALID").
			Errorf("database.url is required (set %s)", config.EnvDatabaseURL)
	}
	return cfg.Database.URL, nil
}

// setupLogging installs the process-wide logger described by cfg.
func setupLogging(cfg *config.Config) *slog.Logger {
	return logging.SetDefault(logging.Options{
		Service: "devcollab",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	})
}
