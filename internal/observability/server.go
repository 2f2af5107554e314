// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package observability serves Prometheus metrics and health checks.
package observability

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"

	"github.com/inkwell/inkwell/internal/auth"
)

// ReadinessChecker returns whether the service is ready to accept requests.
type ReadinessChecker func() bool

// mailAttempts counts SMTP delivery attempts by result. It is package level
// so the mail dispatcher can record without holding a Server.
var mailAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "inkwell_mail_attempts_total",
		Help: "SMTP delivery attempts by result",
	},
	[]string{"result"},
)

// RecordMailAttempt increments the delivery attempt counter. result is
// "sent", "retry" or "failed".
func RecordMailAttempt(result string) {
	mailAttempts.WithLabelValues(result).Inc()
}

// AuthMetrics counts auth outcomes and security events. It implements
// auth.Recorder.
type AuthMetrics struct {
	OutcomesTotal *prometheus.CounterVec
	EventsTotal   *prometheus.CounterVec
	FailuresTotal *prometheus.CounterVec
}

// NewAuthMetrics creates and registers the auth metrics.
func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		OutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_auth_outcomes_total",
				Help: "Auth operation outcomes by operation, kind and status",
			},
			[]string{"operation", "kind", "status"},
		),
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_auth_events_total",
				Help: "Security events raised by the session and reset flows",
			},
			[]string{"event"},
		),
		FailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_auth_failures_total",
				Help: "Auth operations that failed with an infrastructure error",
			},
			[]string{"operation"},
		),
	}

	reg.MustRegister(m.OutcomesTotal)
	reg.MustRegister(m.EventsTotal)
	reg.MustRegister(m.FailuresTotal)
	reg.MustRegister(mailAttempts)

	return m
}

// RecordOutcome implements auth.Recorder.
func (m *AuthMetrics) RecordOutcome(operation string, out auth.Outcome) {
	m.OutcomesTotal.WithLabelValues(operation, string(out.Kind()), string(out.Status())).Inc()
}

// RecordEvent implements auth.Recorder.
func (m *AuthMetrics) RecordEvent(event auth.SecurityEvent) {
	m.EventsTotal.WithLabelValues(string(event)).Inc()
}

// RecordFailure counts an operation that returned an infrastructure error.
func (m *AuthMetrics) RecordFailure(operation string) {
	m.FailuresTotal.WithLabelValues(operation).Inc()
}

var _ auth.Recorder = (*AuthMetrics)(nil)

// Server provides HTTP endpoints for observability (metrics and health checks).
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
	registry   *prometheus.Registry
	metrics    *AuthMetrics
	isReady    ReadinessChecker
	running    atomic.Bool
}

// NewServer creates an observability server listening on addr (host:port).
func NewServer(addr string, readinessChecker ReadinessChecker) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := NewAuthMetrics(registry)

	s := &Server{
		addr:     addr,
		registry: registry,
		metrics:  metrics,
		isReady:  readinessChecker,
	}

	return s
}

// Metrics returns the recorder the auth services report to.
func (s *Server) Metrics() *AuthMetrics {
	return s.metrics
}

// Start serves /metrics and the health checks. Serve errors arrive on the
// returned channel, which is closed on graceful shutdown.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	mux.HandleFunc("/healthz/liveness", s.handleLiveness)
	mux.HandleFunc("/healthz/readiness", s.handleReadiness)

	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("observability server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("observability server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the observability server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown observability server").Wrap(err)
		}
	}

	slog.Info("observability server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// handleLiveness answers 200 while the process is up.
func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("ok\n"))
}

// handleReadiness answers 200 when ready and 503 otherwise.
func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if s.isReady == nil || s.isReady() {
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // health check write error is acceptable, client may disconnect
		w.Write([]byte("ok\n"))
		return
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("not ready\n"))
}
