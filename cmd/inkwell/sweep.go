// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/internal/logging"
	"github.com/inkwell/inkwell/internal/mail"
	"github.com/inkwell/inkwell/pkg/errutil"
)

// Default timeout for the sweep command.
const defaultSweepTimeout = 30 * time.Second

type resetSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

type idlePruner interface {
	PruneIdle(ctx context.Context) (int64, error)
}

// sweepResult counts what one housekeeping pass removed.
type sweepResult struct {
	resetTokens int64
	sessions    int64
}

// sweepOnce clears expired reset tokens and prunes idle sessions. Both run
// even if the first fails; the first error is returned.
func sweepOnce(ctx context.Context, resets resetSweeper, sessions idlePruner) (sweepResult, error) {
	var res sweepResult
	var firstErr error

	n, err := resets.SweepExpired(ctx)
	if err != nil {
		firstErr = err
	}
	res.resetTokens = n

	n, err = sessions.PruneIdle(ctx)
	if err != nil && firstErr == nil {
		firstErr = err
	}
	res.sessions = n
	return res, firstErr
}

// runSweeper runs sweepOnce every interval until ctx is cancelled.
func runSweeper(ctx context.Context, interval time.Duration, resets resetSweeper, sessions idlePruner, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sweepOnce(ctx, resets, sessions); err != nil && ctx.Err() == nil {
				errutil.LogError(ctx, logger, "housekeeping sweep failed", err)
			}
		}
	}
}

// NewSweepCmd creates the sweep subcommand.
func NewSweepCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Clear expired reset tokens and idle sessions",
		Long: `Runs one housekeeping pass: reset tokens past their deadline are cleared
and sessions idle for longer than sessions.idle-timeout are deleted. The
server does this on its own every reset.sweep-interval.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd, timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", defaultSweepTimeout, "timeout for database operations")

	return cmd
}

// sweepLogger writes to stderr so stdout carries only the counts.
func sweepLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.Setup("inkwell", version, cfg.LogFormat, level, cmd.ErrOrStderr()), nil
}

func runSweep(cmd *cobra.Command, timeout time.Duration) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := sweepLogger(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	pool, err := openPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc, err := buildServices(cfg, pool, mail.NewLogMailer(logger), nil, logger)
	if err != nil {
		return err
	}
	defer svc.scheduler.Stop()

	res, err := sweepOnce(ctx, svc.resets, svc.sessions)
	if err != nil {
		return err
	}
	cmd.Printf("Cleared %d expired reset tokens and %d idle sessions\n", res.resetTokens, res.sessions)
	return nil
}
