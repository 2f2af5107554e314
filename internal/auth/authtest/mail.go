// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package authtest

import (
	"context"
	"regexp"
	"sync"

	"github.com/inkwell/inkwell/internal/auth"
)

var tokenParam = regexp.MustCompile(`token=([A-Za-z0-9_%-]+)`)

// Mailer records sent messages. When Err is set, Send records nothing and
// returns a MailDeliveryError wrapping it. When Stall is set, Send waits for
// ctx to end, like a mail server that never answers.
type Mailer struct {
	mu    sync.Mutex
	sent  []auth.Message
	Err   error
	Stall bool
}

// Send implements auth.Mailer.
func (m *Mailer) Send(ctx context.Context, msg auth.Message) error {
	m.mu.Lock()
	stall := m.Stall
	m.mu.Unlock()
	if stall {
		<-ctx.Done()
		return &auth.MailDeliveryError{To: msg.To, Err: ctx.Err()}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return &auth.MailDeliveryError{To: msg.To, Err: m.Err}
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of every delivered message.
func (m *Mailer) Sent() []auth.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]auth.Message(nil), m.sent...)
}

// Last returns the most recent message, or the zero Message.
func (m *Mailer) Last() auth.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return auth.Message{}
	}
	return m.sent[len(m.sent)-1]
}

// ResetToken extracts the token from the most recent reset link.
func (m *Mailer) ResetToken() string {
	match := tokenParam.FindStringSubmatch(m.Last().Body)
	if match == nil {
		return ""
	}
	return match[1]
}

var _ auth.Mailer = (*Mailer)(nil)
