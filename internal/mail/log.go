// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package mail

import (
	"context"
	"log/slog"

	"github.com/inkwell/inkwell/internal/auth"
)

// LogMailer writes messages to the logger instead of sending them. Reset
// links and temporary passwords appear in the log, so it is for development
// only.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer returns a LogMailer. A nil logger uses slog.Default.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// Send logs msg at INFO and never fails.
func (m *LogMailer) Send(ctx context.Context, msg auth.Message) error {
	m.logger.InfoContext(ctx, "mail",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body)
	return nil
}

var _ auth.Mailer = (*LogMailer)(nil)
