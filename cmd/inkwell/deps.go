// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/internal/mail"
	"github.com/inkwell/inkwell/internal/observability"
	"github.com/inkwell/inkwell/internal/store"
	"github.com/inkwell/inkwell/internal/xdg"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// PoolFactory opens the database pool.
	// Default: store.Open with store.DefaultPoolConfig
	PoolFactory func(ctx context.Context, url string) (Pool, error)

	// MigratorFactory creates the migrator used before serving.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (AutoMigrator, error)

	// ObservabilityServerFactory creates the metrics and health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// ListenerFactory creates the HTTP API listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)

	// CertsDirGetter returns where dev certificates are kept.
	// Default: xdg.CertsDir
	CertsDirGetter func() string

	// MailerFactory builds the outbound mailer.
	// Default: newMailer
	MailerFactory func(cfg *config.Config, logger *slog.Logger) (auth.Mailer, error)
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.PoolFactory == nil {
		out.PoolFactory = openPool
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(url string) (AutoMigrator, error) {
			m, err := store.NewMigrator(url)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, ready)
		}
	}
	if out.ListenerFactory == nil {
		out.ListenerFactory = net.Listen
	}
	if out.CertsDirGetter == nil {
		out.CertsDirGetter = xdg.CertsDir
	}
	if out.MailerFactory == nil {
		out.MailerFactory = newMailer
	}
	return &out
}

// Pool wraps the pgxpool methods used by the repositories and commands.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

func openPool(ctx context.Context, url string) (Pool, error) {
	pool, err := store.Open(ctx, url, store.DefaultPoolConfig())
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// AutoMigrator wraps the migrator methods used at startup.
type AutoMigrator interface {
	Up() error
	Close() error
}

// Migrator wraps the migrator methods used by the migrate command.
type Migrator interface {
	AutoMigrator
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	AppliedMigrations() ([]uint, error)
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.AuthMetrics
}

// newMailer picks the mail driver named in cfg.
func newMailer(cfg *config.Config, logger *slog.Logger) (auth.Mailer, error) {
	if cfg.Mail.Driver == config.MailDriverLog {
		return mail.NewLogMailer(logger), nil
	}
	m, err := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		Attempts: cfg.Mail.Attempts,
		Backoff:  cfg.Mail.Backoff,
		Timeout:  cfg.Mail.Timeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	return m, nil
}
