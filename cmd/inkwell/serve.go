// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package main

import (
	"context"
	cryptotls "crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/internal/logging"
	inktls "github.com/inkwell/inkwell/internal/tls"
	"github.com/inkwell/inkwell/internal/web"
	"github.com/inkwell/inkwell/pkg/errutil"
)

const shutdownTimeout = 10 * time.Second

// serveOptions holds flags local to the serve command.
type serveOptions struct {
	autoMigrate bool
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the auth HTTP API",
		Long: `Start the auth HTTP API. Pending migrations are applied first unless
--auto-migrate=false. Expired reset tokens and idle sessions are swept at
startup and every reset.sweep-interval.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, opts, cmd, nil)
		},
	}

	cmd.Flags().BoolVar(&opts.autoMigrate, "auto-migrate", true, "apply pending migrations before serving")

	return cmd
}

// runServeWithDeps starts the server with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, opts *serveOptions, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()

	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.SetDefault("inkwell", version, cfg.LogFormat, level)

	logger.Info("starting inkwell",
		"http_addr", cfg.HTTPAddr,
		"metrics_addr", cfg.MetricsAddr,
		"mail_driver", cfg.Mail.Driver,
	)

	if opts.autoMigrate {
		if err := applyMigrations(deps, cfg.DatabaseURL); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	pool, err := deps.PoolFactory(ctx, cfg.DatabaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "open pool").Wrap(err)
	}
	defer pool.Close()

	mailer, err := deps.MailerFactory(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ready atomic.Bool
	var obsServer ObservabilityServer
	var recorder auth.Recorder
	var failures web.FailureRecorder
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, ready.Load)
		recorder = obsServer.Metrics()
		failures = obsServer.Metrics()
	}

	svc, err := buildServices(cfg, pool, mailer, recorder, logger)
	if err != nil {
		return err
	}
	defer svc.scheduler.Stop()

	cookies, err := cookieSettings(cfg)
	if err != nil {
		return err
	}
	handler, err := web.NewHandler(svc.sessions, svc.resets, svc.codec, cookies,
		web.WithLogger(logger), web.WithFailureRecorder(failures),
		web.WithRequestTimeout(cfg.RequestTimeout))
	if err != nil {
		return err
	}

	if _, err := sweepOnce(ctx, svc.resets, svc.sessions); err != nil {
		errutil.LogError(ctx, logger, "startup sweep failed", err)
	}

	if obsServer != nil {
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.MetricsAddr).Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability", logger)
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	listener, err := deps.ListenerFactory("tcp", cfg.HTTPAddr)
	if err != nil {
		stopObservability(obsServer, logger)
		return oops.Code("LISTEN_FAILED").With("addr", cfg.HTTPAddr).Wrap(err)
	}
	tlsConfig, err := serverTLS(cfg, deps.CertsDirGetter)
	if err != nil {
		_ = listener.Close()
		stopObservability(obsServer, logger)
		return err
	}
	if tlsConfig != nil {
		listener = cryptotls.NewListener(listener, tlsConfig)
	}
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runSweeper(ctx, cfg.Reset.SweepInterval, svc.resets, svc.sessions, logger)
	}()

	ready.Store(true)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Inkwell started")
	logger.Info("inkwell ready", "http_addr", listener.Addr().String(), "tls", tlsConfig != nil)

	var serveErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case serveErr = <-errChan:
		serveErr = oops.Code("HTTP_SERVE_FAILED").With("addr", cfg.HTTPAddr).Wrap(serveErr)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	ready.Store(false)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping http server", "error", err)
	}
	stopObservability(obsServer, logger)
	wg.Wait()

	logger.Info("shutdown complete")
	return serveErr
}

// serverTLS returns nil when the API should serve plain HTTP.
func serverTLS(cfg *config.Config, certsDir func() string) (*cryptotls.Config, error) {
	switch {
	case cfg.TLS.CertFile != "":
		return inktls.LoadServerConfig(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	case cfg.TLS.SelfSigned:
		certFile, keyFile, err := inktls.EnsureDevCertificate(certsDir(), certificateHosts(cfg))
		if err != nil {
			return nil, err
		}
		slog.Warn("serving with a self-signed development certificate", "cert_file", certFile)
		return inktls.LoadServerConfig(certFile, keyFile)
	}
	return nil, nil
}

// certificateHosts lists the names a dev certificate should cover.
func certificateHosts(cfg *config.Config) []string {
	var hosts []string
	if host, _, err := net.SplitHostPort(cfg.HTTPAddr); err == nil && host != "" {
		hosts = append(hosts, host)
	}
	if u, err := url.Parse(cfg.ConsoleURL); err == nil && u.Hostname() != "" {
		hosts = append(hosts, u.Hostname())
	}
	return hosts
}

func applyMigrations(deps *ServeDeps, databaseURL string) error {
	migrator, err := deps.MigratorFactory(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	upErr := migrator.Up()
	closeErr := migrator.Close()
	if upErr != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "apply migrations").Wrap(upErr)
	}
	if closeErr != nil {
		slog.Warn("closing migrator failed", "error", closeErr)
	}
	return nil
}

func stopObservability(s ObservabilityServer, logger *slog.Logger) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors cancels ctx when the server reports an error. It exits
// when an error arrives, the channel closes, or ctx is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
