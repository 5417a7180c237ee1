// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/identityd/internal/store"
)

// migrator wraps the store.Migrator methods used by the CLI.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	AppliedMigrations() ([]uint, error)
	Close() error
}

// newMigrator is replaced in tests.
var newMigrator = func(databaseURL string) (migrator, error) {
	return store.NewMigrator(databaseURL)
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  `Apply, roll back or inspect the PostgreSQL schema migrations.`,
	}

	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection URL (overrides database.url)")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, opts, func(m migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				return printVersion(cmd, m)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [N]",
		Short: "Roll back N migrations, or all when N is omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, opts, func(m migrator) error {
				if len(args) == 0 {
					if err := m.Down(); err != nil {
						return err
					}
					return printVersion(cmd, m)
				}
				n, err := parseSteps(args[0])
				if err != nil {
					return err
				}
				if err := m.Steps(-n); err != nil {
					return err
				}
				return printVersion(cmd, m)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current schema version with applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, opts, func(m migrator) error {
				if err := printVersion(cmd, m); err != nil {
					return err
				}
				applied, err := m.AppliedMigrations()
				if err != nil {
					return err
				}
				printMigrations(cmd, "applied", applied)
				pending, err := m.PendingMigrations()
				if err != nil {
					return err
				}
				printMigrations(cmd, "pending", pending)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations (clears dirty state)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(cmd, opts, func(m migrator) error {
				if err := m.Force(version); err != nil {
					return err
				}
				return printVersion(cmd, m)
			})
		},
	})

	return cmd
}

// withMigrator loads config, opens a migrator and runs fn with it.
func withMigrator(cmd *cobra.Command, opts *rootOptions, fn func(m migrator) error) error {
	cfg, err := loadConfig(cmd, opts, map[string]string{"database-url": "database.url"})
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required for migrations")
	}

	m, err := newMigrator(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer func() {
		//nolint:errcheck // best-effort close after the command ran
		m.Close()
	}()
	return fn(m)
}

func printVersion(cmd *cobra.Command, m migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	state := ""
	if dirty {
		state = " (dirty)"
	}
	cmd.Printf("schema version: %d%s\n", version, state)
	return nil
}

func printMigrations(cmd *cobra.Command, state string, versions []uint) {
	for _, v := range versions {
		name, err := store.MigrationName(v)
		if err != nil {
			name = fmt.Sprintf("%06d_unknown", v)
		}
		cmd.Printf("%s: %s\n", state, name)
	}
}

// parseForceVersion parses a target version for migrate force. -1 means no version.
func parseForceVersion(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < -1 {
		return 0, oops.Code("INVALID_VERSION").
			With("input", s).
			Errorf("version must be an integer >= -1")
	}
	return v, nil
}

func parseSteps(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, oops.Code("INVALID_STEPS").
			With("input", s).
			Errorf("steps must be a positive integer")
	}
	return n, nil
}
