// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// PoolConfig controls how Open connects.
type PoolConfig struct {
	// Attempts is the number of connection attempts before giving up.
	Attempts uint64
	// Backoff is the first retry delay; it doubles on every attempt.
	Backoff time.Duration
	// MaxBackoff caps a single retry delay.
	MaxBackoff time.Duration
}

// DefaultPoolConfig returns the connection policy used by the server.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{Attempts: 8, Backoff: 250 * time.Millisecond, MaxBackoff: 5 * time.Second}
}

func (c PoolConfig) backoff() retry.Backoff {
	b := retry.NewExponential(c.Backoff)
	b = retry.WithCappedDuration(c.MaxBackoff, b)
	retries := uint64(0)
	if c.Attempts > 1 {
		retries = c.Attempts - 1
	}
	return retry.WithMaxRetries(retries, b)
}

// Open creates a pgx pool and waits until the database answers a ping.
// A malformed URL fails immediately; connection errors are retried.
func Open(ctx context.Context, databaseURL string, cfg PoolConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}

	var pool *pgxpool.Pool
	attempt := 0
	err = retry.Do(ctx, cfg.backoff(), func(ctx context.Context) error {
		attempt++
		p, err := pgxpool.NewWithConfig(ctx, pcfg)
		if err != nil {
			return retry.RetryableError(err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			slog.WarnContext(ctx, "database not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("host", pcfg.ConnConfig.Host).
			With("attempts", attempt).
			Wrap(err)
	}
	return pool, nil
}
