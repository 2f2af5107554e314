// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// rotationRefusal is a terminal outcome shared by VerifySession and
// RefreshToken.
type rotationRefusal interface {
	VerifySessionOutcome
	RefreshTokenOutcome
}

type rotated struct {
	user   *User
	access string
}

// VerifySession validates the caller's session, rotates its refresh token,
// and returns the user profile with a fresh access token.
func (s *SessionService) VerifySession(ctx context.Context, jar CookieJar, sessionID string) (VerifySessionOutcome, error) {
	out, err := s.verifySession(ctx, jar, sessionID)
	s.record("verifySession", out, err)
	return out, err
}

func (s *SessionService) verifySession(ctx context.Context, jar CookieJar, sessionID string) (VerifySessionOutcome, error) {
	r, refusal, err := s.rotate(ctx, jar, sessionID)
	if err != nil {
		return nil, err
	}
	if refusal != nil {
		return refusal, nil
	}
	return VerifiedSession{User: r.user.Profile(), AccessToken: r.access}, nil
}

// RefreshToken rotates the caller's refresh token and returns a fresh access
// token.
func (s *SessionService) RefreshToken(ctx context.Context, jar CookieJar, sessionID string) (RefreshTokenOutcome, error) {
	out, err := s.refreshToken(ctx, jar, sessionID)
	s.record("refreshToken", out, err)
	return out, err
}

func (s *SessionService) refreshToken(ctx context.Context, jar CookieJar, sessionID string) (RefreshTokenOutcome, error) {
	r, refusal, err := s.rotate(ctx, jar, sessionID)
	if err != nil {
		return nil, err
	}
	if refusal != nil {
		return refusal, nil
	}
	return AccessToken{AccessToken: r.access}, nil
}

// rotate walks the verification states in order. Exactly one of the three
// results is non-nil.
func (s *SessionService) rotate(ctx context.Context, jar CookieJar, sessionID string) (*rotated, rotationRefusal, error) {
	if verr, ok := ValidateSessionID(sessionID); !ok {
		return nil, verr, nil
	}

	token, ok := jar.Credential().Complete()
	if !ok {
		return nil, ForbiddenError{Message: msgIncompleteCookie}, nil
	}

	claims, err := s.codec.VerifyRefresh(token)
	expired := errors.Is(err, ErrTokenExpired)
	if err != nil && !expired {
		s.logger.InfoContext(ctx, "refresh token rejected", "session_id", sessionID, "error", err)
		return nil, ForbiddenError{Message: msgInvalidCookie}, nil
	}
	subject, err := claims.UserID()
	if err != nil {
		return nil, ForbiddenError{Message: msgInvalidCookie}, nil
	}

	rec, err := s.sessions.GetWithUser(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil, UnknownError{Message: msgUnknownSession}, nil
	}
	if err != nil {
		return nil, nil, oops.Code("SESSION_LOOKUP_FAILED").With("session_id", sessionID).Wrap(err)
	}

	if rec.Session.UserID != subject {
		s.logger.WarnContext(ctx, "session presented by another user",
			"session_id", sessionID,
			"owner_id", rec.Session.UserID.String(),
			"subject", subject.String())
		return nil, UserSessionError{Message: msgForeignSession}, nil
	}

	if !rec.Session.HoldsRefreshToken(token) {
		if err := s.revokeCompromised(ctx, jar, rec, "token_mismatch"); err != nil {
			return nil, nil, err
		}
		return nil, NotAllowedError{Message: msgSessionRevoked}, nil
	}

	if expired {
		s.recorder.RecordEvent(EventExpiredRecovery)
		s.logger.DebugContext(ctx, "rotating expired refresh token", "session_id", sessionID)
	}

	pair, err := s.codec.IssuePair(subject, sessionID)
	if err != nil {
		return nil, nil, oops.Code("SESSION_ROTATE_FAILED").With("session_id", sessionID).Wrap(err)
	}
	err = s.sessions.Rotate(ctx, sessionID, rec.Session.RefreshTokenHash, HashToken(pair.Refresh))
	if errors.Is(err, ErrNotFound) {
		// Another request rotated or deleted the row after the lookup: the
		// same token was presented twice.
		if err := s.revokeCompromised(ctx, jar, rec, "concurrent_rotation"); err != nil {
			return nil, nil, err
		}
		return nil, NotAllowedError{Message: msgSessionRevoked}, nil
	}
	if err != nil {
		return nil, nil, oops.Code("SESSION_ROTATE_FAILED").With("session_id", sessionID).Wrap(err)
	}

	jar.SetCredential(SplitCredential(pair.Refresh))
	s.recorder.RecordEvent(EventSessionRotated)
	s.logger.DebugContext(ctx, "session rotated", "session_id", sessionID, "user_id", subject.String())

	return &rotated{user: rec.User, access: pair.Access}, nil, nil
}
