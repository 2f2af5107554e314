// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers email. Delivery is awaited by the calling operation.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// MailDeliveryError reports that a message could not be delivered.
type MailDeliveryError struct {
	To  string
	Err error
}

func (e *MailDeliveryError) Error() string {
	return fmt.Sprintf("mail delivery to %s failed: %v", e.To, e.Err)
}

func (e *MailDeliveryError) Unwrap() error {
	return e.Err
}

// IsMailDeliveryError reports whether err is, or wraps, a MailDeliveryError.
func IsMailDeliveryError(err error) bool {
	var mde *MailDeliveryError
	return errors.As(err, &mde)
}

// mailFailure classifies a Mailer error for logs. Every error counts as a
// failed delivery; the class only tells a refused message from a broken
// mailer.
func mailFailure(err error) string {
	if IsMailDeliveryError(err) {
		return "undelivered"
	}
	return "mailer_error"
}

func greeting(u *User) string {
	if u.FirstName != "" {
		return "Hi " + u.FirstName + ","
	}
	return "Hi,"
}

func hijackNotice(u *User) Message {
	return Message{
		To:      u.Email,
		Subject: "Suspicious sign-in activity",
		Body: greeting(u) + "\n\n" +
			"A session on your account presented a refresh token that had already been replaced. " +
			"We signed that session out. If this was not you, change your password now.\n",
	}
}

func resetLinkMessage(u *User, baseURL, token string) Message {
	link := baseURL + "?token=" + url.QueryEscape(token)
	return Message{
		To:      u.Email,
		Subject: "Reset your password",
		Body: greeting(u) + "\n\n" +
			"Use the link below to choose a new password. It expires in a few minutes.\n\n" +
			link + "\n",
	}
}

func resetConfirmation(u *User) Message {
	return Message{
		To:      u.Email,
		Subject: "Your password was changed",
		Body: greeting(u) + "\n\n" +
			"Your password was just reset and every signed-in device was signed out.\n",
	}
}

func temporaryPasswordMessage(u *User, password string) Message {
	return Message{
		To:      u.Email,
		Subject: "Your temporary password",
		Body: greeting(u) + "\n\n" +
			"Sign in with this temporary password and finish registering your account:\n\n" +
			password + "\n",
	}
}
