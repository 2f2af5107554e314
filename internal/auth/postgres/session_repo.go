// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/inkwell/inkwell/internal/auth"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool poolIface
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool poolIface) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, refresh_token_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, session.ID, session.UserID.String(), session.RefreshTokenHash, session.CreatedAt, session.UpdatedAt)
	switch {
	case isUniqueViolation(err):
		return oops.Code("SESSION_ID_TAKEN").With("session_id", session.ID).Wrap(auth.ErrConflict)
	case isForeignKeyViolation(err):
		return oops.Code("USER_NOT_FOUND").With("id", session.UserID.String()).Wrap(auth.ErrNotFound)
	case err != nil:
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("session_id", session.ID).
			Wrap(err)
	}
	return nil
}

// GetWithUser retrieves a session joined with its owner.
func (r *SessionRepository) GetWithUser(ctx context.Context, id string) (*auth.SessionRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT s.id, s.user_id, s.refresh_token_hash, s.created_at, s.updated_at,
		       u.email, u.password_hash, u.registered, u.first_name, u.last_name,
		       u.reset_token_hash, u.reset_handle, u.reset_expires_at, u.created_at, u.updated_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1
	`, id)

	rec, err := scanSessionRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").With("session_id", id).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").With("operation", "get session").With("session_id", id).Wrap(err)
	}
	return rec, nil
}

// Rotate swaps the refresh token digest if it still equals oldHash.
func (r *SessionRepository) Rotate(ctx context.Context, id, oldHash, newHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sessions SET refresh_token_hash = $3, updated_at = now()
		WHERE id = $1 AND refresh_token_hash = $2
	`, id, oldHash, newHash)
	if err != nil {
		return oops.Code("SESSION_UPDATE_FAILED").With("operation", "rotate refresh token").With("session_id", id).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").With("session_id", id).Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes a session by ID.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").With("session_id", id).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").With("session_id", id).Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteIfToken removes a session only while it holds tokenHash.
func (r *SessionRepository) DeleteIfToken(ctx context.Context, id, tokenHash string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE id = $1 AND refresh_token_hash = $2
	`, id, tokenHash)
	if err != nil {
		return false, oops.Code("SESSION_DELETE_FAILED").With("session_id", id).Wrap(err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteByUser removes every session owned by userID.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID.String()); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return nil
}

// DeleteIdle removes sessions last rotated before the cutoff.
func (r *SessionRepository) DeleteIdle(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE updated_at < $1`, before)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_FAILED").With("operation", "delete idle sessions").Wrap(err)
	}
	return tag.RowsAffected(), nil
}

func scanSessionRecord(row pgx.Row) (*auth.SessionRecord, error) {
	var (
		session   auth.Session
		user      auth.User
		ownerStr  string
		tokenHash *string
		handle    *string
		expiresAt *time.Time
	)
	if err := row.Scan(
		&session.ID, &ownerStr, &session.RefreshTokenHash, &session.CreatedAt, &session.UpdatedAt,
		&user.Email, &user.PasswordHash, &user.Registered, &user.FirstName, &user.LastName,
		&tokenHash, &handle, &expiresAt, &user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck // callers map ErrNoRows
	}

	ownerID, err := ulid.Parse(ownerStr)
	if err != nil {
		return nil, oops.With("operation", "parse session owner").With("user_id", ownerStr).Wrap(err)
	}
	session.UserID = ownerID
	user.ID = ownerID

	if tokenHash != nil && expiresAt != nil {
		user.Reset = &auth.ResetToken{TokenHash: *tokenHash, ExpiresAt: *expiresAt}
		if handle != nil {
			user.Reset.Handle = *handle
		}
	}
	return &auth.SessionRecord{Session: &session, User: &user}, nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
