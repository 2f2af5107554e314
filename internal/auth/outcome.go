// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

// Status is the severity carried by every outcome.
type Status string

// Outcome statuses.
const (
	StatusSuccess Status = "SUCCESS"
	StatusWarn    Status = "WARN"
	StatusError   Status = "ERROR"
)

// Kind is the explicit discriminant of an outcome. It is serialized as
// __typename by the HTTP API.
type Kind string

// Outcome kinds.
const (
	KindLoggedInUser                    Kind = "LoggedInUser"
	KindVerifiedSession                 Kind = "VerifiedSession"
	KindAccessToken                     Kind = "AccessToken"
	KindVerifiedResetToken              Kind = "VerifiedResetToken"
	KindResponse                        Kind = "Response"
	KindLoginValidationError            Kind = "LoginValidationError"
	KindSessionIDValidationError        Kind = "SessionIdValidationError"
	KindEmailValidationError            Kind = "EmailValidationError"
	KindVerifyResetTokenValidationError Kind = "VerifyResetTokenValidationError"
	KindResetPasswordValidationError    Kind = "ResetPasswordValidationError"
	KindNotAllowedError                 Kind = "NotAllowedError"
	KindForbiddenError                  Kind = "ForbiddenError"
	KindUnknownError                    Kind = "UnknownError"
	KindUserSessionError                Kind = "UserSessionError"
	KindAuthenticationError             Kind = "AuthenticationError"
	KindRegistrationError               Kind = "RegistrationError"
	KindServerError                     Kind = "ServerError"
)

// Outcome is implemented by every result shape.
type Outcome interface {
	Kind() Kind
	Status() Status
}

// The per-operation interfaces below close the set of variants each
// operation may return. Callers switch on the concrete type or on Kind().
type (
	LoginOutcome interface {
		Outcome
		loginOutcome()
	}
	VerifySessionOutcome interface {
		Outcome
		verifySessionOutcome()
	}
	RefreshTokenOutcome interface {
		Outcome
		refreshTokenOutcome()
	}
	LogoutOutcome interface {
		Outcome
		logoutOutcome()
	}
	ForgotPasswordOutcome interface {
		Outcome
		forgotPasswordOutcome()
	}
	VerifyResetTokenOutcome interface {
		Outcome
		verifyResetTokenOutcome()
	}
	ResetPasswordOutcome interface {
		Outcome
		resetPasswordOutcome()
	}
	GeneratePasswordOutcome interface {
		Outcome
		generatePasswordOutcome()
	}
)

// LoggedInUser is the successful login result.
type LoggedInUser struct {
	User        UserProfile `json:"user"`
	AccessToken string      `json:"accessToken"`
	SessionID   string      `json:"sessionId"`
}

// VerifiedSession is the successful verifySession result.
type VerifiedSession struct {
	User        UserProfile `json:"user"`
	AccessToken string      `json:"accessToken"`
}

// AccessToken is the successful refreshToken result.
type AccessToken struct {
	AccessToken string `json:"accessToken"`
}

// VerifiedResetToken is the successful verifyResetToken result.
type VerifiedResetToken struct {
	Email      string `json:"email"`
	ResetToken string `json:"resetToken"`
}

// Response is a plain acknowledgement. Level is SUCCESS or WARN.
type Response struct {
	Message string `json:"message"`
	Level   Status `json:"-"`
}

func (LoggedInUser) Kind() Kind           { return KindLoggedInUser }
func (VerifiedSession) Kind() Kind        { return KindVerifiedSession }
func (AccessToken) Kind() Kind            { return KindAccessToken }
func (VerifiedResetToken) Kind() Kind     { return KindVerifiedResetToken }
func (Response) Kind() Kind               { return KindResponse }
func (LoggedInUser) Status() Status       { return StatusSuccess }
func (VerifiedSession) Status() Status    { return StatusSuccess }
func (AccessToken) Status() Status        { return StatusSuccess }
func (VerifiedResetToken) Status() Status { return StatusSuccess }

// Status returns the response level, defaulting to SUCCESS.
func (r Response) Status() Status {
	if r.Level == "" {
		return StatusSuccess
	}
	return r.Level
}

// LoginValidationError reports malformed login input.
type LoginValidationError struct {
	EmailError    string `json:"emailError,omitempty"`
	PasswordError string `json:"passwordError,omitempty"`
}

// SessionIDValidationError reports a missing or malformed session id.
type SessionIDValidationError struct {
	SessionIDError string `json:"sessionIdError"`
}

// EmailValidationError reports a missing or malformed email.
type EmailValidationError struct {
	EmailError string `json:"emailError"`
}

// VerifyResetTokenValidationError reports a missing or malformed reset token.
type VerifyResetTokenValidationError struct {
	TokenError string `json:"tokenError"`
}

// ResetPasswordValidationError reports malformed reset input.
type ResetPasswordValidationError struct {
	TokenError           string `json:"tokenError,omitempty"`
	PasswordError        string `json:"passwordError,omitempty"`
	ConfirmPasswordError string `json:"confirmPasswordError,omitempty"`
}

func (LoginValidationError) Kind() Kind                { return KindLoginValidationError }
func (SessionIDValidationError) Kind() Kind            { return KindSessionIDValidationError }
func (EmailValidationError) Kind() Kind                { return KindEmailValidationError }
func (VerifyResetTokenValidationError) Kind() Kind     { return KindVerifyResetTokenValidationError }
func (ResetPasswordValidationError) Kind() Kind        { return KindResetPasswordValidationError }
func (LoginValidationError) Status() Status            { return StatusError }
func (SessionIDValidationError) Status() Status        { return StatusError }
func (EmailValidationError) Status() Status            { return StatusError }
func (VerifyResetTokenValidationError) Status() Status { return StatusError }
func (ResetPasswordValidationError) Status() Status    { return StatusError }

// NotAllowedError is the generic refusal. Hijack detection deliberately
// returns this same shape.
type NotAllowedError struct {
	Message string `json:"message"`
}

// ForbiddenError means the credential was incomplete or failed verification.
type ForbiddenError struct {
	Message string `json:"message"`
}

// UnknownError means no matching session row exists.
type UnknownError struct {
	Message string `json:"message"`
}

// UserSessionError means the session id belongs to a different account than
// the credential subject.
type UserSessionError struct {
	Message string `json:"message"`
}

// AuthenticationError means the caller carries no authenticated identity.
type AuthenticationError struct {
	Message string `json:"message"`
}

// RegistrationError means the account's registration state forbids the
// operation.
type RegistrationError struct {
	Message string `json:"message"`
}

// ServerError means a dependent service (mail) failed before the primary
// state change could be kept.
type ServerError struct {
	Message string `json:"message"`
}

func (NotAllowedError) Kind() Kind         { return KindNotAllowedError }
func (ForbiddenError) Kind() Kind          { return KindForbiddenError }
func (UnknownError) Kind() Kind            { return KindUnknownError }
func (UserSessionError) Kind() Kind        { return KindUserSessionError }
func (AuthenticationError) Kind() Kind     { return KindAuthenticationError }
func (RegistrationError) Kind() Kind       { return KindRegistrationError }
func (ServerError) Kind() Kind             { return KindServerError }
func (NotAllowedError) Status() Status     { return StatusError }
func (ForbiddenError) Status() Status      { return StatusError }
func (UnknownError) Status() Status        { return StatusError }
func (UserSessionError) Status() Status    { return StatusError }
func (AuthenticationError) Status() Status { return StatusError }
func (RegistrationError) Status() Status   { return StatusError }
func (ServerError) Status() Status         { return StatusError }

// login
func (LoggedInUser) loginOutcome()         {}
func (LoginValidationError) loginOutcome() {}
func (NotAllowedError) loginOutcome()      {}

// verifySession
func (VerifiedSession) verifySessionOutcome()          {}
func (SessionIDValidationError) verifySessionOutcome() {}
func (ForbiddenError) verifySessionOutcome()           {}
func (UnknownError) verifySessionOutcome()             {}
func (UserSessionError) verifySessionOutcome()         {}
func (NotAllowedError) verifySessionOutcome()          {}

// refreshToken
func (AccessToken) refreshTokenOutcome()              {}
func (SessionIDValidationError) refreshTokenOutcome() {}
func (ForbiddenError) refreshTokenOutcome()           {}
func (UnknownError) refreshTokenOutcome()             {}
func (UserSessionError) refreshTokenOutcome()         {}
func (NotAllowedError) refreshTokenOutcome()          {}

// logout
func (Response) logoutOutcome()                 {}
func (AuthenticationError) logoutOutcome()      {}
func (UnknownError) logoutOutcome()             {}
func (NotAllowedError) logoutOutcome()          {}
func (SessionIDValidationError) logoutOutcome() {}

// forgotPassword
func (Response) forgotPasswordOutcome()             {}
func (EmailValidationError) forgotPasswordOutcome() {}
func (NotAllowedError) forgotPasswordOutcome()      {}
func (RegistrationError) forgotPasswordOutcome()    {}
func (ServerError) forgotPasswordOutcome()          {}

// verifyResetToken
func (VerifiedResetToken) verifyResetTokenOutcome()              {}
func (VerifyResetTokenValidationError) verifyResetTokenOutcome() {}
func (NotAllowedError) verifyResetTokenOutcome()                 {}
func (RegistrationError) verifyResetTokenOutcome()               {}

// resetPassword
func (Response) resetPasswordOutcome()                     {}
func (ResetPasswordValidationError) resetPasswordOutcome() {}
func (NotAllowedError) resetPasswordOutcome()              {}
func (RegistrationError) resetPasswordOutcome()            {}

// generatePassword
func (Response) generatePasswordOutcome()             {}
func (EmailValidationError) generatePasswordOutcome() {}
func (NotAllowedError) generatePasswordOutcome()      {}
func (RegistrationError) generatePasswordOutcome()    {}
func (ServerError) generatePasswordOutcome()          {}
