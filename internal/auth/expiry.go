// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// PendingExpiry describes a scheduled reset-token expiry. Only Handle is
// persisted; it is enough to cancel the timer from a later request.
type PendingExpiry struct {
	Handle      string
	Token       string
	ScheduledAt time.Time
	ExpiresAt   time.Time
}

// ExpiryScheduler runs a callback once a reset token's window elapses.
type ExpiryScheduler interface {
	// Schedule arranges for onExpire to run after ttl.
	Schedule(token string, ttl time.Duration, onExpire func()) PendingExpiry

	// Cancel stops a pending expiry. Cancelling an unknown, already fired, or
	// already cancelled handle is a no-op that returns false.
	Cancel(handle string) bool
}

// TimerScheduler implements ExpiryScheduler with time.AfterFunc. Timers are
// process-local; the persisted ExpiresAt covers timers lost on restart.
type TimerScheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
	now    func() time.Time
}

// NewTimerScheduler creates a TimerScheduler.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{
		timers: make(map[string]*time.Timer),
		now:    time.Now,
	}
}

// Schedule arranges for onExpire to run after ttl.
func (s *TimerScheduler) Schedule(token string, ttl time.Duration, onExpire func()) PendingExpiry {
	now := s.now()
	pending := PendingExpiry{
		Handle:      ulid.Make().String(),
		Token:       token,
		ScheduledAt: now,
		ExpiresAt:   now.Add(ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.wg.Add(1)
	s.timers[pending.Handle] = time.AfterFunc(ttl, func() {
		defer s.wg.Done()
		s.mu.Lock()
		_, live := s.timers[pending.Handle]
		delete(s.timers, pending.Handle)
		s.mu.Unlock()
		if live {
			onExpire()
		}
	})
	return pending
}

// Cancel stops a pending expiry.
func (s *TimerScheduler) Cancel(handle string) bool {
	s.mu.Lock()
	t, ok := s.timers[handle]
	delete(s.timers, handle)
	s.mu.Unlock()
	if !ok {
		return false
	}
	if t.Stop() {
		s.wg.Done()
	}
	return true
}

// Pending returns the number of timers that have neither fired nor been
// cancelled.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every pending timer and waits for callbacks already running.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	handles := make([]string, 0, len(s.timers))
	for h := range s.timers {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		s.Cancel(h)
	}
	s.wg.Wait()
}
