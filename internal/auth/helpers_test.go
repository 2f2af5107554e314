// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/auth/authtest"
)

var (
	testAccessSecret  = []byte("access-secret-for-tests-0123456789abcdef")
	testRefreshSecret = []byte("refresh-secret-for-tests-0123456789abcdef")
)

// plainHasher keeps service tests fast. Verify treats anything without the
// prefix as a mismatch, including the login dummy hash.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", auth.ErrEmptyPassword
	}
	return "plain$" + password, nil
}

func (plainHasher) Verify(password, hash string) (bool, error) {
	return hash == "plain$"+password, nil
}

func (plainHasher) NeedsUpgrade(hash string) bool {
	return !strings.HasPrefix(hash, "plain$")
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordedOutcome struct {
	operation string
	kind      auth.Kind
}

type captureRecorder struct {
	mu       sync.Mutex
	outcomes []recordedOutcome
	events   []auth.SecurityEvent
}

func (r *captureRecorder) RecordOutcome(operation string, out auth.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, recordedOutcome{operation: operation, kind: out.Kind()})
}

func (r *captureRecorder) RecordEvent(ev auth.SecurityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *captureRecorder) count(ev auth.SecurityEvent) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == ev {
			n++
		}
	}
	return n
}

type fixture struct {
	clock     *fakeClock
	users     *authtest.Users
	sessions  *authtest.Sessions
	mailer    *authtest.Mailer
	scheduler *authtest.Scheduler
	recorder  *captureRecorder
	codec     *auth.TokenCodec
	svc       *auth.SessionService
	resets    *auth.ResetService
}

func newFixture(t *testing.T, opts ...auth.Option) *fixture {
	t.Helper()
	f := &fixture{
		clock:     newFakeClock(),
		users:     authtest.NewUsers(),
		mailer:    &authtest.Mailer{},
		scheduler: authtest.NewScheduler(),
		recorder:  &captureRecorder{},
	}
	f.sessions = authtest.NewSessions(f.users)
	f.scheduler.Now = f.clock.Now

	codec, err := auth.NewTokenCodec(auth.TokenConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
		Now:           f.clock.Now,
	})
	require.NoError(t, err)
	f.codec = codec

	opts = append([]auth.Option{
		auth.WithClock(f.clock.Now),
		auth.WithRecorder(f.recorder),
		auth.WithResetURL("https://console.test/reset"),
	}, opts...)

	f.svc, err = auth.NewSessionService(f.users, f.sessions, plainHasher{}, codec, f.mailer, opts...)
	require.NoError(t, err)
	f.resets, err = auth.NewResetService(f.users, f.sessions, plainHasher{}, f.mailer, f.scheduler, opts...)
	require.NoError(t, err)
	return f
}

func (f *fixture) addUser(t *testing.T, email, password string, registered bool) *auth.User {
	t.Helper()
	u, err := auth.NewUser(email, "plain$"+password, registered)
	require.NoError(t, err)
	u.FirstName = "Ada"
	f.users.Put(u)
	return u
}

// login signs in and returns the session id plus the browser's cookie jar.
func (f *fixture) login(t *testing.T, email, password string) (string, *authtest.Jar) {
	t.Helper()
	jar := authtest.NewJar(auth.Credential{})
	out, err := f.svc.Login(t.Context(), jar, email, password)
	require.NoError(t, err)
	logged, ok := out.(auth.LoggedInUser)
	require.True(t, ok, "expected LoggedInUser, got %T", out)
	return logged.SessionID, jar
}
