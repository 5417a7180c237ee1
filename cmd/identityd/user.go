// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/identityd/internal/config"
	"github.com/holomush/identityd/internal/identity"
)

// NewUserCmd creates the user subcommand.
func NewUserCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(newUserCreateCmd(opts))
	return cmd
}

func newUserCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		email         string
		pw            string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a user in persistent storage",
		Long: `Register a user through the identity service, applying the same
normalization and uniqueness rules as the HTTP API.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if passwordStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return oops.Code("PASSWORD_READ_FAILED").Wrap(err)
				}
				pw = strings.TrimRight(line, "\r\n")
			}
			return runUserCreate(cmd, opts, identity.CreateUserCmd{Email: email, Password: pw})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&pw, "password", "", "password (prefer --password-stdin)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL (overrides database.url)")
	_ = cmd.MarkFlagRequired("email") //nolint:errcheck // flag is defined above
	cmd.MarkFlagsMutuallyExclusive("password", "password-stdin")

	return cmd
}

func runUserCreate(cmd *cobra.Command, opts *rootOptions, create identity.CreateUserCmd) error {
	cfg, err := loadConfig(cmd, opts, map[string]string{"database-url": "database.url"})
	if err != nil {
		return err
	}
	if cfg.Storage.Users == config.BackendMemory {
		return oops.Code("CONFIG_INVALID").
			Errorf("user create needs storage.users=postgres; memory users vanish on exit")
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, logger, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.service.CreateUser(cmd.Context(), create)
	if err != nil {
		return err
	}
	cmd.Printf("created user %s <%s>\n", user.UserID, user.Email)
	return nil
}
