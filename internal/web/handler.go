// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package web exposes the auth operations as JSON over HTTP.
//
// Every operation is a POST whose response body is
//
//	{"__typename": "<outcome kind>", "status": "SUCCESS|WARN|ERROR", "data": {...}}
//
// Business outcomes, including refusals, are answered with 200. Only
// malformed bodies (400) and infrastructure failures (500) use other codes.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/pkg/errutil"
)

const (
	maxBodyBytes = 16 << 10
	tracerName   = "github.com/inkwell/inkwell/internal/web"

	// DefaultRequestTimeout bounds one API call when WithRequestTimeout is
	// not given.
	DefaultRequestTimeout = 30 * time.Second
)

// Routes.
const (
	PathLogin            = "/auth/login"
	PathVerifySession    = "/auth/verify-session"
	PathRefreshToken     = "/auth/refresh-token"
	PathLogout           = "/auth/logout"
	PathForgotPassword   = "/auth/forgot-password"
	PathVerifyResetToken = "/auth/verify-reset-token"
	PathResetPassword    = "/auth/reset-password"
	PathGeneratePassword = "/auth/generate-password"
)

// FailureRecorder counts operations that ended in an infrastructure error.
type FailureRecorder interface {
	RecordFailure(operation string)
}

type noopFailures struct{}

func (noopFailures) RecordFailure(string) {}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithFailureRecorder sets where infrastructure failures are counted.
func WithFailureRecorder(r FailureRecorder) Option {
	return func(h *Handler) {
		if r != nil {
			h.failures = r
		}
	}
}

// WithRequestTimeout sets the deadline every operation runs under,
// including the mail it waits on.
func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(h *Handler) {
		if tp != nil {
			h.tracer = tp.Tracer(tracerName)
		}
	}
}

// Handler routes auth requests to the services.
type Handler struct {
	sessions *auth.SessionService
	resets   *auth.ResetService
	codec    *auth.TokenCodec
	cookies  CookieSettings
	logger   *slog.Logger
	failures FailureRecorder
	tracer   trace.Tracer
	timeout  time.Duration
	mux      *http.ServeMux

	validators map[string]*validator
}

// NewHandler builds the auth API.
func NewHandler(sessions *auth.SessionService, resets *auth.ResetService, codec *auth.TokenCodec, cookies CookieSettings, opts ...Option) (*Handler, error) {
	switch {
	case sessions == nil:
		return nil, oops.Code("WEB_INVALID_HANDLER").Errorf("session service is required")
	case resets == nil:
		return nil, oops.Code("WEB_INVALID_HANDLER").Errorf("reset service is required")
	case codec == nil:
		return nil, oops.Code("WEB_INVALID_HANDLER").Errorf("token codec is required")
	case cookies.PartA == "" || cookies.PartB == "" || cookies.PartC == "":
		return nil, oops.Code("WEB_INVALID_HANDLER").Errorf("cookie names are required")
	}

	h := &Handler{
		sessions:   sessions,
		resets:     resets,
		codec:      codec,
		cookies:    cookies,
		logger:     slog.Default(),
		failures:   noopFailures{},
		tracer:     otel.Tracer(tracerName),
		timeout:    DefaultRequestTimeout,
		mux:        http.NewServeMux(),
		validators: make(map[string]*validator, len(requestTypes)),
	}
	for name := range requestTypes {
		h.validators[name] = newValidator(name)
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.cookies.MaxAge <= 0 {
		h.cookies.MaxAge = codec.RefreshTTL()
	}

	h.mux.HandleFunc("POST "+PathLogin, h.login)
	h.mux.HandleFunc("POST "+PathVerifySession, h.verifySession)
	h.mux.HandleFunc("POST "+PathRefreshToken, h.refreshToken)
	h.mux.HandleFunc("POST "+PathLogout, h.logout)
	h.mux.HandleFunc("POST "+PathForgotPassword, h.forgotPassword)
	h.mux.HandleFunc("POST "+PathVerifyResetToken, h.verifyResetToken)
	h.mux.HandleFunc("POST "+PathResetPassword, h.resetPassword)
	h.mux.HandleFunc("POST "+PathGeneratePassword, h.generatePassword)
	return h, nil
}

// ServeHTTP dispatches to the operation registered for the request path.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// request is the per-call state shared by every endpoint.
type request struct {
	ctx       context.Context
	cancel    context.CancelFunc
	span      trace.Span
	jar       *requestJar
	operation string
}

func (r *request) end() {
	r.span.End()
	r.cancel()
}

// begin starts the span and the request deadline, validates the body
// against schema and decodes it into dst. It writes the 400 itself and
// returns false on a bad body.
func (h *Handler) begin(w http.ResponseWriter, r *http.Request, operation, schema string, dst any) (*request, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	ctx, span := h.tracer.Start(ctx, "auth."+operation,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("auth.operation", operation)))
	req := &request{ctx: ctx, cancel: cancel, span: span, jar: newRequestJar(r, h.cookies), operation: operation}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.badRequest(w, req, "request body too large or unreadable")
		return nil, false
	}
	ok, err := h.validators[schema].Validate(body)
	if err != nil {
		h.fail(w, req, err)
		return nil, false
	}
	if !ok || json.Unmarshal(body, dst) != nil {
		h.badRequest(w, req, "request body does not match the "+schema+" schema")
		return nil, false
	}
	return req, true
}

type envelope struct {
	Typename string      `json:"__typename"`
	Status   auth.Status `json:"status"`
	Data     any         `json:"data"`
}

// respond writes out (or the 500 for err) and ends the span.
func (h *Handler) respond(w http.ResponseWriter, req *request, out auth.Outcome, err error) {
	if err != nil {
		h.fail(w, req, err)
		return
	}
	req.span.SetAttributes(
		attribute.String("auth.outcome", string(out.Kind())),
		attribute.String("auth.status", string(out.Status())),
	)
	req.end()
	h.write(w, req.jar, http.StatusOK, envelope{Typename: string(out.Kind()), Status: out.Status(), Data: out})
}

func (h *Handler) badRequest(w http.ResponseWriter, req *request, msg string) {
	req.span.SetStatus(codes.Error, "bad request")
	req.end()
	h.write(w, req.jar, http.StatusBadRequest, envelope{
		Typename: "BadRequestError",
		Status:   auth.StatusError,
		Data:     map[string]string{"message": msg},
	})
}

// fail answers 500 without leaking err to the caller.
func (h *Handler) fail(w http.ResponseWriter, req *request, err error) {
	req.span.RecordError(err)
	req.span.SetStatus(codes.Error, errutil.Code(err))
	h.failures.RecordFailure(req.operation)
	errutil.LogError(req.ctx, h.logger, "auth request failed", err,
		"operation", req.operation,
		"timed_out", errors.Is(req.ctx.Err(), context.DeadlineExceeded))
	req.end()
	h.write(w, req.jar, http.StatusInternalServerError, envelope{
		Typename: "InternalError",
		Status:   auth.StatusError,
		Data:     map[string]string{"message": "Internal server error"},
	})
}

func (h *Handler) write(w http.ResponseWriter, jar *requestJar, status int, body envelope) {
	jar.flush(w)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("writing response failed", "error", err)
	}
}

// identity returns the caller proven by a valid Bearer access token, or nil.
func (h *Handler) identity(r *http.Request) *auth.Identity {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return nil
	}
	claims, err := h.codec.VerifyAccess(token)
	if err != nil {
		return nil
	}
	id, err := claims.UserID()
	if err != nil {
		return nil
	}
	return &auth.Identity{UserID: id}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var body LoginRequest
	req, ok := h.begin(w, r, "login", "login", &body)
	if !ok {
		return
	}
	out, err := h.sessions.Login(req.ctx, req.jar, body.Email, body.Password)
	h.respond(w, req, out, err)
}

func (h *Handler) verifySession(w http.ResponseWriter, r *http.Request) {
	var body SessionRequest
	req, ok := h.begin(w, r, "verifySession", "session", &body)
	if !ok {
		return
	}
	out, err := h.sessions.VerifySession(req.ctx, req.jar, body.SessionID)
	h.respond(w, req, out, err)
}

func (h *Handler) refreshToken(w http.ResponseWriter, r *http.Request) {
	var body SessionRequest
	req, ok := h.begin(w, r, "refreshToken", "session", &body)
	if !ok {
		return
	}
	out, err := h.sessions.RefreshToken(req.ctx, req.jar, body.SessionID)
	h.respond(w, req, out, err)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var body SessionRequest
	req, ok := h.begin(w, r, "logout", "session", &body)
	if !ok {
		return
	}
	out, err := h.sessions.Logout(req.ctx, req.jar, h.identity(r), body.SessionID)
	h.respond(w, req, out, err)
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var body EmailRequest
	req, ok := h.begin(w, r, "forgotPassword", "email", &body)
	if !ok {
		return
	}
	out, err := h.resets.ForgotPassword(req.ctx, body.Email)
	h.respond(w, req, out, err)
}

func (h *Handler) verifyResetToken(w http.ResponseWriter, r *http.Request) {
	var body ResetTokenRequest
	req, ok := h.begin(w, r, "verifyResetToken", "reset-token", &body)
	if !ok {
		return
	}
	out, err := h.resets.VerifyResetToken(req.ctx, body.Token)
	h.respond(w, req, out, err)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var body ResetPasswordRequest
	req, ok := h.begin(w, r, "resetPassword", "reset-password", &body)
	if !ok {
		return
	}
	out, err := h.resets.ResetPassword(req.ctx, body.Token, body.Password, body.ConfirmPassword)
	h.respond(w, req, out, err)
}

func (h *Handler) generatePassword(w http.ResponseWriter, r *http.Request) {
	var body EmailRequest
	req, ok := h.begin(w, r, "generatePassword", "email", &body)
	if !ok {
		return
	}
	out, err := h.resets.GeneratePassword(req.ctx, body.Email)
	h.respond(w, req, out, err)
}
