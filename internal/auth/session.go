// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session configuration.
const (
	SessionIDBytes     = 32                  // 32 bytes = 43 base64url chars
	SessionIdleTimeout = 30 * 24 * time.Hour // sessions not rotated for this long are pruned
)

// Session binds an opaque session id to a user and the single refresh token
// currently valid for it.
type Session struct {
	ID               string
	UserID           ulid.ULID
	RefreshTokenHash string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewSession creates a validated Session.
func NewSession(id string, userID ulid.ULID, refreshToken string) (*Session, error) {
	if id == "" {
		return nil, oops.Code("SESSION_INVALID_ID").Errorf("session id cannot be empty")
	}
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if refreshToken == "" {
		return nil, oops.Code("SESSION_INVALID_TOKEN").Errorf("refresh token cannot be empty")
	}
	now := time.Now()
	return &Session{
		ID:               id,
		UserID:           userID,
		RefreshTokenHash: HashToken(refreshToken),
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// HoldsRefreshToken reports whether token is the refresh token currently
// stored for the session.
func (s *Session) HoldsRefreshToken(token string) bool {
	return TokenMatches(token, s.RefreshTokenHash)
}

// SessionRecord is a session row joined with its owning user.
type SessionRecord struct {
	Session *Session
	User    *User
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session. Returns ErrConflict if the id is taken.
	Create(ctx context.Context, session *Session) error

	// GetWithUser retrieves a session joined with its owning user.
	GetWithUser(ctx context.Context, id string) (*SessionRecord, error)

	// Rotate replaces the stored refresh token digest only if it still equals
	// oldHash. Returns ErrNotFound when the row is gone or the digest moved.
	Rotate(ctx context.Context, id, oldHash, newHash string) error

	// Delete removes a session by ID.
	Delete(ctx context.Context, id string) error

	// DeleteIfToken removes a session only if it holds the given refresh token
	// digest. Returns false when nothing matched.
	DeleteIfToken(ctx context.Context, id, tokenHash string) (bool, error)

	// DeleteByUser removes all sessions for a user.
	DeleteByUser(ctx context.Context, userID ulid.ULID) error

	// DeleteIdle removes sessions not rotated since before and returns the count.
	DeleteIdle(ctx context.Context, before time.Time) (int64, error)
}
