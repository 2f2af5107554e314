// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package authtest

import (
	"strconv"
	"sync"
	"time"

	"github.com/inkwell/inkwell/internal/auth"
)

// Scheduler is an ExpiryScheduler whose timers fire only when told to.
type Scheduler struct {
	mu      sync.Mutex
	next    int
	pending map[string]func()
	Now     func() time.Time
}

// NewScheduler creates an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{pending: make(map[string]func()), Now: time.Now}
}

// Schedule implements auth.ExpiryScheduler.
func (s *Scheduler) Schedule(token string, ttl time.Duration, onExpire func()) auth.PendingExpiry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	handle := "timer-" + strconv.Itoa(s.next)
	s.pending[handle] = onExpire
	now := s.Now()
	return auth.PendingExpiry{Handle: handle, Token: token, ScheduledAt: now, ExpiresAt: now.Add(ttl)}
}

// Cancel implements auth.ExpiryScheduler.
func (s *Scheduler) Cancel(handle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[handle]; !ok {
		return false
	}
	delete(s.pending, handle)
	return true
}

// Fire runs the callback for handle as if its timer elapsed. It returns false
// if the handle is not pending.
func (s *Scheduler) Fire(handle string) bool {
	s.mu.Lock()
	cb, ok := s.pending[handle]
	delete(s.pending, handle)
	s.mu.Unlock()
	if ok {
		cb()
	}
	return ok
}

// FireAll runs every pending callback.
func (s *Scheduler) FireAll() int {
	s.mu.Lock()
	cbs := make([]func(), 0, len(s.pending))
	for h, cb := range s.pending {
		cbs = append(cbs, cb)
		delete(s.pending, h)
	}
	s.mu.Unlock()
	for _, cb := range cbs {
		cb()
	}
	return len(cbs)
}

// Pending returns the handles that have neither fired nor been cancelled.
func (s *Scheduler) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.pending))
	for h := range s.pending {
		out = append(out, h)
	}
	return out
}

var _ auth.ExpiryScheduler = (*Scheduler)(nil)
