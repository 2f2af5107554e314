// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package authtest

import (
	"sync"

	"github.com/inkwell/inkwell/internal/auth"
)

// Jar is an in-memory CookieJar. Writes replace what the next read returns,
// like a browser applying Set-Cookie headers.
type Jar struct {
	mu      sync.Mutex
	cred    auth.Credential
	Sets    int
	Clears  int
	History []auth.Credential
}

// NewJar creates a Jar presenting c.
func NewJar(c auth.Credential) *Jar {
	return &Jar{cred: c}
}

// Credential implements auth.CookieJar.
func (j *Jar) Credential() auth.Credential {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cred
}

// SetCredential implements auth.CookieJar.
func (j *Jar) SetCredential(c auth.Credential) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cred = c
	j.Sets++
	j.History = append(j.History, c)
}

// ClearCredential implements auth.CookieJar.
func (j *Jar) ClearCredential() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cred = auth.Credential{}
	j.Clears++
}

// Snapshot returns a new Jar presenting the same credential, for replaying a
// captured cookie set from another client.
func (j *Jar) Snapshot() *Jar {
	return NewJar(j.Credential())
}

var _ auth.CookieJar = (*Jar)(nil)
