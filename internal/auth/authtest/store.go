// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package authtest provides in-memory fakes for exercising the auth services.
package authtest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/inkwell/inkwell/internal/auth"
)

// Users is an in-memory UserRepository. Returned users are copies.
type Users struct {
	mu    sync.Mutex
	byID  map[ulid.ULID]*auth.User
	Err   error // returned by every method when set
	Calls []string
}

// NewUsers creates an empty Users store.
func NewUsers() *Users {
	return &Users{byID: make(map[ulid.ULID]*auth.User)}
}

func clone(u *auth.User) *auth.User {
	c := *u
	if u.Reset != nil {
		r := *u.Reset
		c.Reset = &r
	}
	return &c
}

func (r *Users) call(name string) error {
	r.Calls = append(r.Calls, name)
	return r.Err
}

// Put stores u as-is, replacing any user with the same ID.
func (r *Users) Put(u *auth.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[u.ID] = clone(u)
}

// Get returns a copy of the stored user, or nil.
func (r *Users) Get(id ulid.ULID) *auth.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil
	}
	return clone(u)
}

// Create implements auth.UserRepository.
func (r *Users) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("Create"); err != nil {
		return err
	}
	for _, u := range r.byID {
		if strings.EqualFold(u.Email, user.Email) {
			return auth.ErrConflict
		}
	}
	r.byID[user.ID] = clone(user)
	return nil
}

// GetByID implements auth.UserRepository.
func (r *Users) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("GetByID"); err != nil {
		return nil, err
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return clone(u), nil
}

// GetByEmail implements auth.UserRepository.
func (r *Users) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("GetByEmail"); err != nil {
		return nil, err
	}
	for _, u := range r.byID {
		if strings.EqualFold(u.Email, email) {
			return clone(u), nil
		}
	}
	return nil, auth.ErrNotFound
}

// GetByResetTokenHash implements auth.UserRepository.
func (r *Users) GetByResetTokenHash(_ context.Context, tokenHash string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("GetByResetTokenHash"); err != nil {
		return nil, err
	}
	for _, u := range r.byID {
		if u.Reset != nil && u.Reset.TokenHash == tokenHash {
			return clone(u), nil
		}
	}
	return nil, auth.ErrNotFound
}

// UpdatePassword implements auth.UserRepository.
func (r *Users) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("UpdatePassword"); err != nil {
		return err
	}
	u, ok := r.byID[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

// SetResetToken implements auth.UserRepository.
func (r *Users) SetResetToken(_ context.Context, id ulid.ULID, reset auth.ResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("SetResetToken"); err != nil {
		return err
	}
	u, ok := r.byID[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.Reset = &reset
	return nil
}

// ConsumeResetToken implements auth.UserRepository.
func (r *Users) ConsumeResetToken(_ context.Context, id ulid.ULID, tokenHash, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("ConsumeResetToken"); err != nil {
		return err
	}
	u, ok := r.byID[id]
	if !ok || u.Reset == nil || u.Reset.TokenHash != tokenHash {
		return auth.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.Reset = nil
	return nil
}

// ClearResetToken implements auth.UserRepository.
func (r *Users) ClearResetToken(_ context.Context, id ulid.ULID, tokenHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("ClearResetToken"); err != nil {
		return false, err
	}
	u, ok := r.byID[id]
	if !ok || u.Reset == nil || u.Reset.TokenHash != tokenHash {
		return false, nil
	}
	u.Reset = nil
	return true, nil
}

// ClearExpiredResetTokens implements auth.UserRepository.
func (r *Users) ClearExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("ClearExpiredResetTokens"); err != nil {
		return 0, err
	}
	var n int64
	for _, u := range r.byID {
		if u.Reset != nil && u.Reset.IsExpiredAt(now) {
			u.Reset = nil
			n++
		}
	}
	return n, nil
}

// Sessions is an in-memory SessionRepository backed by a Users store for
// the owner join.
type Sessions struct {
	mu    sync.Mutex
	rows  map[string]*auth.Session
	users *Users
	Err   error // returned by every method when set
}

// NewSessions creates an empty Sessions store joined to users.
func NewSessions(users *Users) *Sessions {
	return &Sessions{rows: make(map[string]*auth.Session), users: users}
}

// Get returns a copy of the stored session, or nil.
func (r *Sessions) Get(id string) *auth.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return nil
	}
	c := *s
	return &c
}

// Len returns the number of stored sessions.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// Create implements auth.SessionRepository.
func (r *Sessions) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.rows[session.ID]; ok {
		return auth.ErrConflict
	}
	c := *session
	r.rows[session.ID] = &c
	return nil
}

// GetWithUser implements auth.SessionRepository.
func (r *Sessions) GetWithUser(_ context.Context, id string) (*auth.SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	s, ok := r.rows[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	u := r.users.Get(s.UserID)
	if u == nil {
		return nil, auth.ErrNotFound
	}
	c := *s
	return &auth.SessionRecord{Session: &c, User: u}, nil
}

// Rotate implements auth.SessionRepository.
func (r *Sessions) Rotate(_ context.Context, id, oldHash, newHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	s, ok := r.rows[id]
	if !ok || s.RefreshTokenHash != oldHash {
		return auth.ErrNotFound
	}
	s.RefreshTokenHash = newHash
	s.UpdatedAt = time.Now()
	return nil
}

// Delete implements auth.SessionRepository.
func (r *Sessions) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.rows[id]; !ok {
		return auth.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

// DeleteIfToken implements auth.SessionRepository.
func (r *Sessions) DeleteIfToken(_ context.Context, id, tokenHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return false, r.Err
	}
	s, ok := r.rows[id]
	if !ok || s.RefreshTokenHash != tokenHash {
		return false, nil
	}
	delete(r.rows, id)
	return true, nil
}

// DeleteByUser implements auth.SessionRepository.
func (r *Sessions) DeleteByUser(_ context.Context, userID ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	for id, s := range r.rows {
		if s.UserID == userID {
			delete(r.rows, id)
		}
	}
	return nil
}

// DeleteIdle implements auth.SessionRepository.
func (r *Sessions) DeleteIdle(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}
	var n int64
	for id, s := range r.rows {
		if s.UpdatedAt.Before(before) {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

var (
	_ auth.UserRepository    = (*Users)(nil)
	_ auth.SessionRepository = (*Sessions)(nil)
)
