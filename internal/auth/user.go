// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// User is a console account.
type User struct {
	ID           ulid.ULID
	Email        string
	PasswordHash string
	Registered   bool
	FirstName    string
	LastName     string
	Reset        *ResetToken // nil when no reset is pending
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a validated User. The email is stored trimmed; lookups
// are case-insensitive.
func NewUser(email, passwordHash string, registered bool) (*User, error) {
	email = strings.TrimSpace(email)
	if fe := validateEmail(email); fe != "" {
		return nil, oops.Code("USER_INVALID_EMAIL").With("email", email).Errorf("%s", fe)
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	now := time.Now()
	return &User{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: passwordHash,
		Registered:   registered,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Profile returns the public projection of the user.
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:         u.ID.String(),
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Registered: u.Registered,
	}
}

// UserProfile is the user shape returned to callers. It never carries
// credentials.
type UserProfile struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Registered bool   `json:"registered"`
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. Returns ErrConflict if the email is taken.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByResetTokenHash retrieves the user holding the given reset token digest.
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*User, error)

	// UpdatePassword replaces the password hash.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// SetResetToken stores a pending reset token, replacing any previous one.
	SetResetToken(ctx context.Context, id ulid.ULID, reset ResetToken) error

	// ConsumeResetToken sets a new password hash and clears the reset token in one
	// write, only if the stored digest still equals tokenHash. Returns ErrNotFound
	// when the token was already consumed or cleared.
	ConsumeResetToken(ctx context.Context, id ulid.ULID, tokenHash, passwordHash string) error

	// ClearResetToken clears the reset token only if the stored digest equals
	// tokenHash. Returns false when nothing matched.
	ClearResetToken(ctx context.Context, id ulid.ULID, tokenHash string) (bool, error)

	// ClearExpiredResetTokens clears every reset token that expired before now and
	// returns the number of users touched.
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}
