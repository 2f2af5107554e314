// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// Option configures a SessionService or ResetService.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	recorder    Recorder
	now         func() time.Time
	resetTTL    time.Duration
	resetURL    string
	idleTimeout time.Duration
}

func defaultOptions() options {
	return options{
		logger:      slog.Default(),
		recorder:    noopRecorder{},
		now:         time.Now,
		resetTTL:    ResetTokenExpiry,
		resetURL:    "http://localhost:3000/reset-password",
		idleTimeout: SessionIdleTimeout,
	}
}

func buildOptions(opts []Option) (options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		return o, oops.Code("AUTH_INVALID_OPTION").Errorf("logger is required")
	}
	if o.recorder == nil {
		o.recorder = noopRecorder{}
	}
	if o.resetTTL <= 0 {
		return o, oops.Code("AUTH_INVALID_OPTION").Errorf("reset token ttl must be positive")
	}
	if o.idleTimeout <= 0 {
		return o, oops.Code("AUTH_INVALID_OPTION").Errorf("session idle timeout must be positive")
	}
	return o, nil
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithResetTTL sets how long a reset token stays valid.
func WithResetTTL(ttl time.Duration) Option {
	return func(o *options) { o.resetTTL = ttl }
}

// WithResetURL sets the console page that reset links point at.
func WithResetURL(u string) Option {
	return func(o *options) { o.resetURL = u }
}

// WithIdleTimeout sets how long an unrotated session survives PruneIdle.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *options) { o.idleTimeout = d }
}
