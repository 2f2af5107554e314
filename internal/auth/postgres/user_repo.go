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

const userColumns = `id, email, password_hash, registered, first_name, last_name,
       reset_token_hash, reset_handle, reset_expires_at, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool poolIface
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	var tokenHash, handle *string
	var expiresAt *time.Time
	if user.Reset != nil {
		tokenHash, handle, expiresAt = &user.Reset.TokenHash, &user.Reset.Handle, &user.Reset.ExpiresAt
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		user.ID.String(),
		user.Email,
		user.PasswordHash,
		user.Registered,
		user.FirstName,
		user.LastName,
		tokenHash,
		handle,
		expiresAt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return oops.Code("USER_EMAIL_TAKEN").With("email", user.Email).Wrap(auth.ErrConflict)
	}
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("email", user.Email).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id.String())
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").With("operation", "get user by id").With("id", id.String()).Wrap(err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email, ignoring case.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").With("operation", "get user by email").With("email", email).Wrap(err)
	}
	return user, nil
}

// GetByResetTokenHash retrieves the user holding a reset token digest.
func (r *UserRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE reset_token_hash = $1`, tokenHash)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RESET_TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").With("operation", "get user by reset token").Wrap(err)
	}
	return user, nil
}

// UpdatePassword replaces the password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1
	`, id.String(), passwordHash)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").With("operation", "update password").With("id", id.String()).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// SetResetToken stores a pending reset token, replacing any previous one.
func (r *UserRepository) SetResetToken(ctx context.Context, id ulid.ULID, reset auth.ResetToken) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET reset_token_hash = $2, reset_handle = $3, reset_expires_at = $4, updated_at = now()
		WHERE id = $1
	`, id.String(), reset.TokenHash, reset.Handle, reset.ExpiresAt)
	if err != nil {
		return oops.Code("RESET_STORE_FAILED").With("operation", "set reset token").With("id", id.String()).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// ConsumeResetToken swaps in a new password hash and clears the reset token
// in one statement, guarded by the token digest.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, id ulid.ULID, tokenHash, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET password_hash = $3,
		    reset_token_hash = NULL, reset_handle = NULL, reset_expires_at = NULL,
		    updated_at = now()
		WHERE id = $1 AND reset_token_hash = $2
	`, id.String(), tokenHash, passwordHash)
	if err != nil {
		return oops.Code("RESET_STORE_FAILED").With("operation", "consume reset token").With("id", id.String()).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("RESET_TOKEN_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// ClearResetToken clears the reset token if it still matches tokenHash.
func (r *UserRepository) ClearResetToken(ctx context.Context, id ulid.ULID, tokenHash string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET reset_token_hash = NULL, reset_handle = NULL, reset_expires_at = NULL, updated_at = now()
		WHERE id = $1 AND reset_token_hash = $2
	`, id.String(), tokenHash)
	if err != nil {
		return false, oops.Code("RESET_STORE_FAILED").With("operation", "clear reset token").With("id", id.String()).Wrap(err)
	}
	return tag.RowsAffected() > 0, nil
}

// ClearExpiredResetTokens clears reset tokens whose expiry is not after now.
func (r *UserRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET reset_token_hash = NULL, reset_handle = NULL, reset_expires_at = NULL, updated_at = now()
		WHERE reset_expires_at IS NOT NULL AND reset_expires_at <= $1
	`, now)
	if err != nil {
		return 0, oops.Code("RESET_STORE_FAILED").With("operation", "clear expired reset tokens").Wrap(err)
	}
	return tag.RowsAffected(), nil
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		user      auth.User
		idStr     string
		tokenHash *string
		handle    *string
		expiresAt *time.Time
	)
	if err := row.Scan(
		&idStr,
		&user.Email,
		&user.PasswordHash,
		&user.Registered,
		&user.FirstName,
		&user.LastName,
		&tokenHash,
		&handle,
		&expiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck // callers map ErrNoRows
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("operation", "parse user id").With("id", idStr).Wrap(err)
	}
	user.ID = id

	if tokenHash != nil && expiresAt != nil {
		user.Reset = &auth.ResetToken{TokenHash: *tokenHash, ExpiresAt: *expiresAt}
		if handle != nil {
			user.Reset.Handle = *handle
		}
	}
	return &user, nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
