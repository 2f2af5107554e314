// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"fmt"
	"regexp"
	"strings"
)

// Input constraints.
const (
	MaxEmailLength          = 254
	MinPasswordLength       = 8
	MaxPasswordLength       = 128
	MaxOpaqueIDLength       = 128
	GeneratedPasswordLength = 16
)

var (
	emailRegex  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	opaqueRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// FieldErrors maps a field name to the first rule it failed.
type FieldErrors map[string]string

// rule returns an error message, or "" when the value passes.
type rule func(value string) string

type field struct {
	name     string
	label    string
	required bool
	rules    []rule
}

// schema is the explicit input contract of one operation.
type schema []field

func (s schema) validate(values map[string]string) FieldErrors {
	errs := FieldErrors{}
	for _, f := range s {
		v := values[f.name]
		if strings.TrimSpace(v) == "" {
			if f.required {
				errs[f.name] = f.label + " is required"
			}
			continue
		}
		for _, r := range f.rules {
			if msg := r(v); msg != "" {
				errs[f.name] = msg
				break
			}
		}
	}
	return errs
}

func emailRule(v string) string {
	return validateEmail(v)
}

func validateEmail(v string) string {
	if v == "" {
		return "Email is required"
	}
	if len(v) > MaxEmailLength || !emailRegex.MatchString(v) {
		return "Email is invalid"
	}
	return ""
}

func lengthRule(label string, minLen, maxLen int) rule {
	return func(v string) string {
		switch {
		case len(v) < minLen:
			return fmt.Sprintf("%s must be at least %d characters", label, minLen)
		case len(v) > maxLen:
			return fmt.Sprintf("%s must be at most %d characters", label, maxLen)
		}
		return ""
	}
}

func opaqueRule(label string) rule {
	return func(v string) string {
		if len(v) > MaxOpaqueIDLength || !opaqueRegex.MatchString(v) {
			return label + " is invalid"
		}
		return ""
	}
}

var (
	loginSchema = schema{
		{name: "email", label: "Email", required: true, rules: []rule{emailRule}},
		{name: "password", label: "Password", required: true, rules: []rule{lengthRule("Password", 1, MaxPasswordLength)}},
	}
	emailSchema = schema{
		{name: "email", label: "Email", required: true, rules: []rule{emailRule}},
	}
	sessionIDSchema = schema{
		{name: "sessionId", label: "Session id", required: true, rules: []rule{opaqueRule("Session id")}},
	}
	resetTokenSchema = schema{
		{name: "token", label: "Token", required: true, rules: []rule{opaqueRule("Token")}},
	}
	resetPasswordSchema = schema{
		{name: "token", label: "Token", required: true, rules: []rule{opaqueRule("Token")}},
		{name: "password", label: "Password", required: true, rules: []rule{lengthRule("Password", MinPasswordLength, MaxPasswordLength)}},
		{name: "confirmPassword", label: "Confirm password", required: true},
	}
)

// ValidateLogin checks login input.
func ValidateLogin(email, password string) (LoginValidationError, bool) {
	errs := loginSchema.validate(map[string]string{"email": email, "password": password})
	if len(errs) == 0 {
		return LoginValidationError{}, true
	}
	return LoginValidationError{EmailError: errs["email"], PasswordError: errs["password"]}, false
}

// ValidateEmail checks a bare email input.
func ValidateEmail(email string) (EmailValidationError, bool) {
	errs := emailSchema.validate(map[string]string{"email": email})
	if len(errs) == 0 {
		return EmailValidationError{}, true
	}
	return EmailValidationError{EmailError: errs["email"]}, false
}

// ValidateSessionID checks a caller-supplied session id.
func ValidateSessionID(sessionID string) (SessionIDValidationError, bool) {
	errs := sessionIDSchema.validate(map[string]string{"sessionId": sessionID})
	if len(errs) == 0 {
		return SessionIDValidationError{}, true
	}
	return SessionIDValidationError{SessionIDError: errs["sessionId"]}, false
}

// ValidateResetToken checks a reset token input.
func ValidateResetToken(token string) (VerifyResetTokenValidationError, bool) {
	errs := resetTokenSchema.validate(map[string]string{"token": token})
	if len(errs) == 0 {
		return VerifyResetTokenValidationError{}, true
	}
	return VerifyResetTokenValidationError{TokenError: errs["token"]}, false
}

// ValidateResetPassword checks reset input, including confirmation match.
func ValidateResetPassword(token, password, confirmPassword string) (ResetPasswordValidationError, bool) {
	errs := resetPasswordSchema.validate(map[string]string{
		"token":           token,
		"password":        password,
		"confirmPassword": confirmPassword,
	})
	if _, bad := errs["confirmPassword"]; !bad && confirmPassword != password {
		errs["confirmPassword"] = "Passwords do not match"
	}
	if len(errs) == 0 {
		return ResetPasswordValidationError{}, true
	}
	return ResetPasswordValidationError{
		TokenError:           errs["token"],
		PasswordError:        errs["password"],
		ConfirmPasswordError: errs["confirmPassword"],
	}, false
}
