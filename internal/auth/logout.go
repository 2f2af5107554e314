// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// Logout terminates a session. who is nil when the request carried no valid
// access token; leftover cookies are then purged and AuthenticationError is
// returned.
func (s *SessionService) Logout(ctx context.Context, jar CookieJar, who *Identity, sessionID string) (LogoutOutcome, error) {
	out, err := s.logout(ctx, jar, who, sessionID)
	s.record("logout", out, err)
	return out, err
}

func (s *SessionService) logout(ctx context.Context, jar CookieJar, who *Identity, sessionID string) (LogoutOutcome, error) {
	if who == nil {
		if !jar.Credential().IsEmpty() {
			s.discardPresented(ctx, jar)
			jar.ClearCredential()
		}
		return AuthenticationError{Message: msgNotAuthenticated}, nil
	}

	if verr, ok := ValidateSessionID(sessionID); !ok {
		return verr, nil
	}

	rec, err := s.sessions.GetWithUser(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return UnknownError{Message: msgUnknownSession}, nil
	}
	if err != nil {
		return nil, oops.Code("SESSION_LOOKUP_FAILED").With("session_id", sessionID).Wrap(err)
	}
	if rec.Session.UserID != who.UserID {
		s.logger.WarnContext(ctx, "logout of another user's session refused",
			"session_id", sessionID, "user_id", who.UserID.String())
		return NotAllowedError{Message: msgForeignSession}, nil
	}

	token, complete := jar.Credential().Complete()
	if !complete {
		// Forget-this-device: ownership was proven by the access token.
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return UnknownError{Message: msgUnknownSession}, nil
			}
			return nil, oops.Code("SESSION_DELETE_FAILED").With("session_id", sessionID).Wrap(err)
		}
		jar.ClearCredential()
		s.recorder.RecordEvent(EventSessionRevoked)
		s.logger.InfoContext(ctx, "session closed with partial credential", "session_id", sessionID)
		return Response{Message: msgLoggedOutPartial, Level: StatusWarn}, nil
	}

	if _, err := s.codec.VerifyRefresh(token); err != nil && !errors.Is(err, ErrTokenExpired) {
		return NotAllowedError{Message: msgInvalidCookie}, nil
	}
	if !rec.Session.HoldsRefreshToken(token) {
		return NotAllowedError{Message: msgInvalidCookie}, nil
	}

	deleted, err := s.sessions.DeleteIfToken(ctx, sessionID, HashToken(token))
	if err != nil {
		return nil, oops.Code("SESSION_DELETE_FAILED").With("session_id", sessionID).Wrap(err)
	}
	if !deleted {
		return UnknownError{Message: msgUnknownSession}, nil
	}

	jar.ClearCredential()
	s.recorder.RecordEvent(EventSessionRevoked)
	s.logger.InfoContext(ctx, "session closed", "session_id", sessionID, "user_id", who.UserID.String())
	return Response{Message: msgLoggedOut}, nil
}
