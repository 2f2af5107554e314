// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package mail delivers auth.Message values over SMTP, or writes them to the
// log in development.
package mail

import (
	"context"
	"errors"
	"log/slog"
	"net"
	netmail "net/mail"
	"net/textproto"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	gomail "github.com/wneessen/go-mail"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/observability"
)

// DefaultTimeout bounds one SMTP session when the caller's context has no
// earlier deadline.
const DefaultTimeout = 30 * time.Second

// SMTPConfig configures an SMTPMailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// Attempts is the number of delivery attempts per message.
	Attempts int
	// Backoff is the first retry delay; it doubles on each retry.
	Backoff time.Duration
	// Timeout caps a single SMTP session, dial to QUIT.
	Timeout time.Duration
}

type sendFunc func(ctx context.Context, client *gomail.Client, msg *gomail.Msg) error

func dialAndSend(ctx context.Context, client *gomail.Client, msg *gomail.Msg) error {
	return client.DialAndSendWithContext(ctx, msg)
}

// SMTPMailer sends plain-text mail through a submission server. Transient
// failures are retried; 5xx replies are not. Every session is bounded by the
// caller's context.
type SMTPMailer struct {
	cfg    SMTPConfig
	from   *netmail.Address
	send   sendFunc
	now    func() time.Time
	logger *slog.Logger
}

// NewSMTPMailer validates cfg and returns a mailer.
func NewSMTPMailer(cfg SMTPConfig, logger *slog.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.Port <= 0 {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("smtp host and port are required")
	}
	from, err := netmail.ParseAddress(cfg.From)
	if err != nil {
		return nil, oops.Code("MAIL_CONFIG_INVALID").With("from", cfg.From).Wrap(err)
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &SMTPMailer{cfg: cfg, from: from, send: dialAndSend, now: time.Now, logger: logger}
	if _, err := m.client(context.Background()); err != nil {
		return nil, oops.Code("MAIL_CONFIG_INVALID").With("host", cfg.Host).With("port", cfg.Port).Wrap(err)
	}
	return m, nil
}

// client builds a go-mail client whose connection lives no longer than ctx.
func (m *SMTPMailer) client(ctx context.Context) (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(m.cfg.Port),
		gomail.WithTimeout(m.cfg.Timeout),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		gomail.WithDialContextFunc(sessionDialer(ctx, m.cfg.Timeout)),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.Username),
			gomail.WithPassword(m.cfg.Password))
	}
	return gomail.NewClient(m.cfg.Host, opts...)
}

// Send delivers msg, retrying transient failures until the attempt budget or
// ctx runs out. Every failure is returned as an *auth.MailDeliveryError.
func (m *SMTPMailer) Send(ctx context.Context, msg auth.Message) error {
	to, err := netmail.ParseAddress(msg.To)
	if err != nil {
		return &auth.MailDeliveryError{To: msg.To, Err: oops.Code("MAIL_INVALID_RECIPIENT").Wrap(err)}
	}
	out, err := m.compose(to, msg)
	if err != nil {
		return &auth.MailDeliveryError{To: to.Address, Err: oops.Code("MAIL_COMPOSE_FAILED").Wrap(err)}
	}

	b := retry.WithMaxRetries(uint64(m.cfg.Attempts-1), retry.NewExponential(m.cfg.Backoff)) //nolint:gosec // Attempts >= 1
	attempt := 0
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		client, clientErr := m.client(ctx)
		if clientErr != nil {
			return clientErr
		}
		sendErr := m.send(ctx, client, out)
		if sendErr == nil {
			observability.RecordMailAttempt("sent")
			return nil
		}
		if permanent(sendErr) || ctx.Err() != nil {
			observability.RecordMailAttempt("failed")
			return sendErr
		}
		observability.RecordMailAttempt("retry")
		m.logger.WarnContext(ctx, "mail delivery attempt failed",
			"to", to.Address, "attempt", attempt, "error", sendErr)
		return retry.RetryableError(sendErr)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = errors.Join(err, ctxErr)
		}
		return &auth.MailDeliveryError{
			To: to.Address,
			Err: oops.Code("MAIL_SEND_FAILED").
				With("host", m.cfg.Host).
				With("attempts", attempt).
				Wrap(err),
		}
	}
	m.logger.DebugContext(ctx, "mail delivered", "to", to.Address, "subject", msg.Subject, "attempts", attempt)
	return nil
}

func (m *SMTPMailer) compose(to *netmail.Address, msg auth.Message) (*gomail.Msg, error) {
	out := gomail.NewMsg()
	if err := out.From(m.from.String()); err != nil {
		return nil, err
	}
	if err := out.To(to.String()); err != nil {
		return nil, err
	}
	out.Subject(msg.Subject)
	out.SetDateWithValue(m.now())
	out.SetMessageIDWithValue(ulid.Make().String() + "@" + m.cfg.Host)
	out.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return out, nil
}

// sessionDialer dials the server and bounds every read and write on the
// connection by the earlier of ctx's deadline and timeout. Cancelling ctx
// unblocks a session that is waiting on the server.
func sessionDialer(ctx context.Context, timeout time.Duration) func(context.Context, string, string) (net.Conn, error) {
	return func(dialCtx context.Context, network, address string) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(dialCtx, network, address)
		if err != nil {
			return nil, err
		}
		deadline := time.Now().Add(timeout)
		if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
			deadline = ctxDeadline
		}
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
		stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
		return &sessionConn{Conn: conn, stop: stop}, nil
	}
}

type sessionConn struct {
	net.Conn
	stop func() bool
}

func (c *sessionConn) Close() error {
	c.stop()
	return c.Conn.Close()
}

// permanent reports SMTP 5xx replies, which retrying cannot fix.
func permanent(err error) bool {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return tpErr.Code >= 500
	}
	var sendErr *gomail.SendError
	return errors.As(err, &sendErr) && !sendErr.IsTemp()
}

var _ auth.Mailer = (*SMTPMailer)(nil)
