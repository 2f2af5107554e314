// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/pkg/errutil"
)

var userColumnNames = []string{
	"id", "email", "password_hash", "registered", "first_name", "last_name",
	"reset_token_hash", "reset_handle", "reset_expires_at", "created_at", "updated_at",
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		mock.Close()
	})
	return mock
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestUserRepository_GetByEmail(t *testing.T) {
	id := ulid.Make()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expires := created.Add(5 * time.Minute)

	tests := []struct {
		name      string
		setup     func(mock pgxmock.PgxPoolIface)
		wantErr   error
		wantCode  string
		wantReset bool
	}{
		{
			name: "user without pending reset",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users WHERE lower\(email\) = lower\(\$1\)`).
					WithArgs("ada@example.com").
					WillReturnRows(pgxmock.NewRows(userColumnNames).AddRow(
						id.String(), "Ada@Example.com", "hash", true, "Ada", "Lovelace",
						(*string)(nil), (*string)(nil), (*time.Time)(nil), created, created))
			},
		},
		{
			name: "user with pending reset",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users WHERE lower\(email\)`).
					WithArgs("ada@example.com").
					WillReturnRows(pgxmock.NewRows(userColumnNames).AddRow(
						id.String(), "Ada@Example.com", "hash", true, "Ada", "Lovelace",
						strPtr("digest"), strPtr("timer-1"), timePtr(expires), created, created))
			},
			wantReset: true,
		},
		{
			name: "unknown email",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users WHERE lower\(email\)`).
					WithArgs("ada@example.com").
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr:  auth.ErrNotFound,
			wantCode: "USER_NOT_FOUND",
		},
		{
			name: "query failure",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users WHERE lower\(email\)`).
					WithArgs("ada@example.com").
					WillReturnError(errors.New("connection refused"))
			},
			wantCode: "USER_GET_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			tt.setup(mock)

			user, err := NewUserRepository(mock).GetByEmail(t.Context(), "ada@example.com")
			if tt.wantCode != "" {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, tt.wantCode)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, id, user.ID)
			assert.Equal(t, "Ada@Example.com", user.Email)
			assert.True(t, user.Registered)
			if tt.wantReset {
				require.NotNil(t, user.Reset)
				assert.Equal(t, "digest", user.Reset.TokenHash)
				assert.Equal(t, "timer-1", user.Reset.Handle)
				assert.Equal(t, expires, user.Reset.ExpiresAt)
			} else {
				assert.Nil(t, user.Reset)
			}
		})
	}
}

func TestUserRepository_GetByID_CorruptID(t *testing.T) {
	mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(userColumnNames).AddRow(
			"not-a-ulid", "ada@example.com", "hash", true, "", "",
			(*string)(nil), (*string)(nil), (*time.Time)(nil), now, now))

	_, err := NewUserRepository(mock).GetByID(t.Context(), ulid.Make())
	errutil.AssertErrorCode(t, err, "USER_GET_FAILED")
}

func TestUserRepository_Create(t *testing.T) {
	user, err := auth.NewUser("ada@example.com", "hash", true)
	require.NoError(t, err)

	t.Run("inserts", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(user.ID.String(), "ada@example.com", "hash", true, "", "",
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, NewUserRepository(mock).Create(t.Context(), user))
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_lower_idx"})

		err := NewUserRepository(mock).Create(t.Context(), user)
		require.ErrorIs(t, err, auth.ErrConflict)
		errutil.AssertErrorCode(t, err, "USER_EMAIL_TAKEN")
	})
}

func TestUserRepository_ConsumeResetToken(t *testing.T) {
	id := ulid.Make()

	t.Run("swaps password", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`WHERE id = \$1 AND reset_token_hash = \$2`).
			WithArgs(id.String(), "digest", "new-hash").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, NewUserRepository(mock).ConsumeResetToken(t.Context(), id, "digest", "new-hash"))
	})

	t.Run("token already gone", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`WHERE id = \$1 AND reset_token_hash = \$2`).
			WithArgs(id.String(), "digest", "new-hash").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := NewUserRepository(mock).ConsumeResetToken(t.Context(), id, "digest", "new-hash")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestUserRepository_ClearResetToken(t *testing.T) {
	id := ulid.Make()
	for _, rows := range []int64{0, 1} {
		mock := newMock(t)
		mock.ExpectExec(`SET reset_token_hash = NULL`).
			WithArgs(id.String(), "digest").
			WillReturnResult(pgxmock.NewResult("UPDATE", rows))

		cleared, err := NewUserRepository(mock).ClearResetToken(t.Context(), id, "digest")
		require.NoError(t, err)
		assert.Equal(t, rows == 1, cleared)
	}
}

func TestUserRepository_ClearExpiredResetTokens(t *testing.T) {
	mock := newMock(t)
	now := time.Now()
	mock.ExpectExec(`reset_expires_at <= \$1`).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	n, err := NewUserRepository(mock).ClearExpiredResetTokens(t.Context(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestUserRepository_UpdatePassword_Missing(t *testing.T) {
	mock := newMock(t)
	id := ulid.Make()
	mock.ExpectExec(`UPDATE users SET password_hash`).
		WithArgs(id.String(), "hash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := NewUserRepository(mock).UpdatePassword(t.Context(), id, "hash")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestUserRepository_SetResetToken(t *testing.T) {
	mock := newMock(t)
	id := ulid.Make()
	expires := time.Now().Add(5 * time.Minute)
	mock.ExpectExec(`SET reset_token_hash = \$2, reset_handle = \$3`).
		WithArgs(id.String(), "digest", "timer-1", expires).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := NewUserRepository(mock).SetResetToken(t.Context(), id, auth.ResetToken{
		TokenHash: "digest", Handle: "timer-1", ExpiresAt: expires,
	})
	require.NoError(t, err)
}
