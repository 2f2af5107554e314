// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// Outcome messages shared by the session flows.
const (
	msgInvalidCredentials = "Invalid email or password"
	msgIncompleteCookie   = "Session credential is missing or incomplete"
	msgInvalidCookie      = "Session credential is invalid"
	msgUnknownSession     = "Session not found"
	msgForeignSession     = "Session belongs to another user"
	msgSessionRevoked     = "Session was revoked"
	msgNotAuthenticated   = "Not authenticated"
	msgLoggedOut          = "Logged out"
	msgLoggedOutPartial   = "Logged out, but some session cookies were already missing"
)

// dummyPasswordHash is verified against when the email is unknown so the
// missing-user path costs the same as a wrong password.
//
//nolint:gosec // not a credential
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// SessionService issues, rotates, and terminates console sessions.
type SessionService struct {
	users    UserRepository
	sessions SessionRepository
	hasher   PasswordHasher
	codec    *TokenCodec
	mailer   Mailer
	logger   *slog.Logger
	recorder Recorder
	opts     options
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	users UserRepository,
	sessions SessionRepository,
	hasher PasswordHasher,
	codec *TokenCodec,
	mailer Mailer,
	opts ...Option,
) (*SessionService, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("password hasher is required")
	}
	if codec == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("token codec is required")
	}
	if mailer == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("mailer is required")
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return &SessionService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		codec:    codec,
		mailer:   mailer,
		logger:   o.logger,
		recorder: o.recorder,
		opts:     o,
	}, nil
}

// discardPresented deletes the session the caller's cookies point at, if the
// cookies still hold that session's current refresh token. Failures are logged
// and swallowed.
func (s *SessionService) discardPresented(ctx context.Context, jar CookieJar) {
	token, ok := jar.Credential().Complete()
	if !ok {
		return
	}
	claims, err := s.codec.VerifyRefresh(token)
	if err != nil && !errors.Is(err, ErrTokenExpired) {
		return
	}
	if claims.SessionID == "" {
		return
	}
	deleted, err := s.sessions.DeleteIfToken(ctx, claims.SessionID, HashToken(token))
	if err != nil {
		s.logger.WarnContext(ctx, "discard presented session failed",
			"session_id", claims.SessionID, "error", err)
		return
	}
	if deleted {
		s.recorder.RecordEvent(EventSessionRevoked)
		s.logger.DebugContext(ctx, "discarded presented session", "session_id", claims.SessionID)
	}
}

// revokeCompromised handles a refresh token that no longer matches its
// session: the row is deleted, cookies cleared, and the owner notified.
// Notification failure does not undo the revocation.
func (s *SessionService) revokeCompromised(ctx context.Context, jar CookieJar, rec *SessionRecord, reason string) error {
	s.recorder.RecordEvent(EventHijackDetected)
	s.logger.WarnContext(ctx, "refresh token reuse detected",
		"session_id", rec.Session.ID,
		"user_id", rec.Session.UserID.String(),
		"reason", reason)

	jar.ClearCredential()
	if err := s.sessions.Delete(ctx, rec.Session.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("SESSION_REVOKE_FAILED").
			With("session_id", rec.Session.ID).
			Wrap(err)
	}
	s.recorder.RecordEvent(EventSessionRevoked)

	if rec.User == nil {
		return nil
	}
	if err := s.mailer.Send(ctx, hijackNotice(rec.User)); err != nil {
		s.recorder.RecordEvent(EventMailFailed)
		s.logger.WarnContext(ctx, "hijack notice not delivered",
			"user_id", rec.User.ID.String(), "error", err, "failure", mailFailure(err))
	}
	return nil
}

// PruneIdle deletes sessions that have not rotated within the idle timeout.
func (s *SessionService) PruneIdle(ctx context.Context) (int64, error) {
	before := s.opts.now().Add(-s.opts.idleTimeout)
	n, err := s.sessions.DeleteIdle(ctx, before)
	if err != nil {
		return 0, oops.Code("SESSION_PRUNE_FAILED").With("before", before).Wrap(err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "pruned idle sessions", "count", n)
	}
	return n, nil
}

func (s *SessionService) record(operation string, out Outcome, err error) {
	if err == nil && out != nil {
		s.recorder.RecordOutcome(operation, out)
	}
}
