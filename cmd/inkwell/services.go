// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/auth/postgres"
	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/internal/web"
)

// services is the wired auth core shared by serve and sweep.
type services struct {
	sessions  *auth.SessionService
	resets    *auth.ResetService
	codec     *auth.TokenCodec
	scheduler *auth.TimerScheduler
}

// buildServices wires the postgres repositories into the auth services.
// recorder may be nil. The caller must Stop the scheduler.
func buildServices(cfg *config.Config, pool Pool, mailer auth.Mailer, recorder auth.Recorder, logger *slog.Logger) (*services, error) {
	codec, err := auth.NewTokenCodec(auth.TokenConfig{
		AccessSecret:  []byte(cfg.Tokens.AccessSecret),
		RefreshSecret: []byte(cfg.Tokens.RefreshSecret),
		Issuer:        cfg.Tokens.Issuer,
		AccessTTL:     cfg.Tokens.AccessTTL,
		RefreshTTL:    cfg.Tokens.RefreshTTL,
	})
	if err != nil {
		return nil, oops.Code("SERVICE_INIT_FAILED").With("component", "token codec").Wrap(err)
	}

	opts := []auth.Option{
		auth.WithLogger(logger),
		auth.WithResetTTL(cfg.Reset.TokenTTL),
		auth.WithResetURL(cfg.ResetURL()),
		auth.WithIdleTimeout(cfg.Sessions.IdleTimeout),
	}
	if recorder != nil {
		opts = append(opts, auth.WithRecorder(recorder))
	}

	users := postgres.NewUserRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	hasher := auth.NewArgon2idHasher()
	scheduler := auth.NewTimerScheduler()

	sessions, err := auth.NewSessionService(users, sessionRepo, hasher, codec, mailer, opts...)
	if err != nil {
		return nil, oops.Code("SERVICE_INIT_FAILED").With("component", "session service").Wrap(err)
	}
	resets, err := auth.NewResetService(users, sessionRepo, hasher, mailer, scheduler, opts...)
	if err != nil {
		return nil, oops.Code("SERVICE_INIT_FAILED").With("component", "reset service").Wrap(err)
	}
	return &services{sessions: sessions, resets: resets, codec: codec, scheduler: scheduler}, nil
}

// cookieSettings maps the cookie config onto the HTTP layer.
func cookieSettings(cfg *config.Config) (web.CookieSettings, error) {
	sameSite, err := cfg.Cookies.SameSiteMode()
	if err != nil {
		return web.CookieSettings{}, err
	}
	return web.CookieSettings{
		PartA:    cfg.Cookies.PartA,
		PartB:    cfg.Cookies.PartB,
		PartC:    cfg.Cookies.PartC,
		Domain:   cfg.Cookies.Domain,
		Path:     cfg.Cookies.Path,
		Secure:   cfg.Cookies.Secure,
		SameSite: sameSite,
	}, nil
}
