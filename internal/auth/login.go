// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/oops"
)

// Login authenticates by email and password and opens a new session.
// Any session the caller's cookies already point at is discarded first.
func (s *SessionService) Login(ctx context.Context, jar CookieJar, email, password string) (LoginOutcome, error) {
	out, err := s.login(ctx, jar, email, password)
	s.record("login", out, err)
	return out, err
}

func (s *SessionService) login(ctx context.Context, jar CookieJar, email, password string) (LoginOutcome, error) {
	if !jar.Credential().IsEmpty() {
		s.discardPresented(ctx, jar)
		jar.ClearCredential()
	}

	email = strings.TrimSpace(email)
	if verr, ok := ValidateLogin(email, password); !ok {
		return verr, nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	found := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "get user by email").Wrap(err)
	}

	hash := dummyPasswordHash
	if found {
		hash = user.PasswordHash
	}
	valid, err := s.hasher.Verify(password, hash)
	if err != nil && found {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	if !found || !valid {
		s.logger.InfoContext(ctx, "login rejected", "user_found", found)
		return NotAllowedError{Message: msgInvalidCredentials}, nil
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}

	sessionID, err := RandomString(SessionIDBytes)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "generate session id").Wrap(err)
	}
	pair, err := s.codec.IssuePair(user.ID, sessionID)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "issue tokens").Wrap(err)
	}
	session, err := NewSession(sessionID, user.ID, pair.Refresh)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "build session").Wrap(err)
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "create session").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	jar.SetCredential(SplitCredential(pair.Refresh))
	s.recorder.RecordEvent(EventSessionIssued)
	s.logger.InfoContext(ctx, "session issued",
		"user_id", user.ID.String(), "session_id", sessionID)

	return LoggedInUser{
		User:        user.Profile(),
		AccessToken: pair.Access,
		SessionID:   sessionID,
	}, nil
}

// upgradeHash re-hashes a legacy password with argon2id. Failures are logged
// and do not affect the login.
func (s *SessionService) upgradeHash(ctx context.Context, user *User, password string) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "password rehash failed", "user_id", user.ID.String(), "error", err)
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		s.logger.WarnContext(ctx, "password rehash not saved", "user_id", user.ID.String(), "error", err)
		return
	}
	user.PasswordHash = hash
	s.logger.InfoContext(ctx, "password hash upgraded", "user_id", user.ID.String())
}
