// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/holomush/identityd/internal/config"
	"github.com/holomush/identityd/internal/logging"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	confFiles []string
	envFile   string
}

// NewRootCmd creates the root command for the identityd CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "identityd",
		Short: "identityd - session-based identity service",
		Long: `identityd registers users, verifies credentials and issues
opaque session tokens that authorize subsequent requests.`,
		Version:      versionString(),
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringArrayVar(&opts.confFiles, "conf", nil, "YAML config file (repeatable, later files win)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env", "", "dotenv file with config overrides")

	cmd.AddCommand(NewServeCmd(opts))
	cmd.AddCommand(NewMigrateCmd(opts))
	cmd.AddCommand(NewUserCmd(opts))
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// NewVersionCmd creates the version subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("identityd " + versionString())
		},
	}
}

func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

// loadConfig loads configuration for cmd. flagKeys maps the command's own
// flags to config keys; only flags the user set take effect.
func loadConfig(cmd *cobra.Command, opts *rootOptions, flagKeys map[string]string) (*config.Config, error) {
	return config.Load(config.Sources{
		Files:    opts.confFiles,
		EnvFile:  opts.envFile,
		Flags:    cmd.Flags(),
		FlagKeys: flagKeys,
	})
}

// newLogger builds the process logger from cfg, writing to the command's stderr.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	return logging.Setup(logging.Options{
		Service: "identityd",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
		Writer:  cmd.ErrOrStderr(),
	})
}
