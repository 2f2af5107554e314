// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package main

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/auth/postgres"
)

// Default timeout for user commands.
const defaultUserTimeout = 30 * time.Second

// userAddOptions holds the flags of user add.
type userAddOptions struct {
	email      string
	password   string
	registered bool
	timeout    time.Duration
}

// NewUserCmd creates the user subcommand.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage console accounts",
	}
	cmd.AddCommand(newUserAddCmd(openPool))
	return cmd
}

func newUserAddCmd(poolFactory func(ctx context.Context, url string) (Pool, error)) *cobra.Command {
	opts := &userAddOptions{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an account",
		Long: `Creates an account. Without --password a temporary password is generated
and printed once. Accounts created without --registered must finish
registration through generate-password before they can reset a password.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			url, err := requireDatabaseURL(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			pool, err := poolFactory(ctx, url)
			if err != nil {
				return err
			}
			defer pool.Close()

			return runUserAdd(ctx, cmd, postgres.NewUserRepository(pool), auth.NewArgon2idHasher(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&opts.password, "password", "", "account password (default: generated)")
	cmd.Flags().BoolVar(&opts.registered, "registered", false, "mark the account as fully registered")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", defaultUserTimeout, "timeout for database operations")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runUserAdd(ctx context.Context, cmd *cobra.Command, users auth.UserRepository, hasher auth.PasswordHasher, opts *userAddOptions) error {
	if verr, ok := auth.ValidateEmail(opts.email); !ok {
		return oops.Code("USER_INVALID_EMAIL").With("email", opts.email).Errorf("%s", verr.EmailError)
	}

	password := opts.password
	generated := password == ""
	if generated {
		var err error
		if password, err = auth.RandomPassword(auth.GeneratedPasswordLength); err != nil {
			return err
		}
	} else if len(password) < auth.MinPasswordLength {
		return oops.Code("USER_INVALID_PASSWORD").Errorf("password must be at least %d characters", auth.MinPasswordLength)
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").With("operation", "hash password").Wrap(err)
	}
	user, err := auth.NewUser(opts.email, hash, opts.registered)
	if err != nil {
		return err
	}
	if err := users.Create(ctx, user); err != nil {
		if errors.Is(err, auth.ErrConflict) {
			return oops.Code("USER_EXISTS").With("email", user.Email).Errorf("an account with this email already exists")
		}
		return err
	}

	cmd.Printf("Created user %s (%s)\n", user.Email, user.ID)
	if generated {
		cmd.Printf("Temporary password: %s\n", password)
	}
	return nil
}
