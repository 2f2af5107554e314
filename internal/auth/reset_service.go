// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Outcome messages shared by the reset flows.
const (
	msgNoAccount            = "No account exists for that email"
	msgNotRegistered        = "Account registration is not complete"
	msgAlreadyRegistered    = "Account is already registered"
	msgResetLinkSent        = "A password reset link has been sent to your email"
	msgResetMailFailed      = "The reset email could not be sent. Please try again."
	msgResetTokenInvalid    = "Reset token is invalid or has expired"
	msgPasswordChanged      = "Your password has been changed"
	msgPasswordChangedNoAck = "Your password has been changed, but the confirmation email could not be sent"
	msgTempPasswordSent     = "A temporary password has been sent to your email"
	msgTempPasswordFailed   = "A temporary password was set, but the email could not be sent. Please try again."
)

// expireTimeout bounds the store write made from a timer callback.
const expireTimeout = 10 * time.Second

// ResetService manages reset tokens and one-time passwords.
type ResetService struct {
	users     UserRepository
	sessions  SessionRepository
	hasher    PasswordHasher
	mailer    Mailer
	scheduler ExpiryScheduler
	logger    *slog.Logger
	recorder  Recorder
	opts      options
}

// NewResetService creates a new ResetService.
func NewResetService(
	users UserRepository,
	sessions SessionRepository,
	hasher PasswordHasher,
	mailer Mailer,
	scheduler ExpiryScheduler,
	opts ...Option,
) (*ResetService, error) {
	if users == nil {
		return nil, oops.Code("RESET_INVALID_SERVICE").Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("RESET_INVALID_SERVICE").Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("RESET_INVALID_SERVICE").Errorf("password hasher is required")
	}
	if mailer == nil {
		return nil, oops.Code("RESET_INVALID_SERVICE").Errorf("mailer is required")
	}
	if scheduler == nil {
		return nil, oops.Code("RESET_INVALID_SERVICE").Errorf("expiry scheduler is required")
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return &ResetService{
		users:     users,
		sessions:  sessions,
		hasher:    hasher,
		mailer:    mailer,
		scheduler: scheduler,
		logger:    o.logger,
		recorder:  o.recorder,
		opts:      o,
	}, nil
}

func (s *ResetService) record(operation string, out Outcome, err error) {
	if err == nil && out != nil {
		s.recorder.RecordOutcome(operation, out)
	}
}

// ForgotPassword issues a reset token for a registered account and mails the
// reset link. If the mail cannot be delivered the token is withdrawn.
func (s *ResetService) ForgotPassword(ctx context.Context, email string) (ForgotPasswordOutcome, error) {
	out, err := s.forgotPassword(ctx, email)
	s.record("forgotPassword", out, err)
	return out, err
}

func (s *ResetService) forgotPassword(ctx context.Context, email string) (ForgotPasswordOutcome, error) {
	email = strings.TrimSpace(email)
	if verr, ok := ValidateEmail(email); !ok {
		return verr, nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return NotAllowedError{Message: msgNoAccount}, nil
	}
	if err != nil {
		return nil, oops.Code("RESET_REQUEST_FAILED").With("operation", "get user by email").Wrap(err)
	}
	if !user.Registered {
		return RegistrationError{Message: msgNotRegistered}, nil
	}

	// A new request supersedes the previous token and its timer.
	if user.Reset != nil {
		s.scheduler.Cancel(user.Reset.Handle)
	}

	token, err := RandomString(ResetTokenBytes)
	if err != nil {
		return nil, oops.Code("RESET_REQUEST_FAILED").With("operation", "generate token").Wrap(err)
	}
	tokenHash := HashToken(token)
	userID := user.ID
	pending := s.scheduler.Schedule(token, s.opts.resetTTL, func() {
		s.expire(userID, tokenHash)
	})
	reset := ResetToken{
		TokenHash: tokenHash,
		Handle:    pending.Handle,
		ExpiresAt: s.opts.now().Add(s.opts.resetTTL),
	}
	if err := s.users.SetResetToken(ctx, user.ID, reset); err != nil {
		s.scheduler.Cancel(pending.Handle)
		return nil, oops.Code("RESET_REQUEST_FAILED").
			With("operation", "store reset token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	s.recorder.RecordEvent(EventResetIssued)

	if err := s.mailer.Send(ctx, resetLinkMessage(user, s.opts.resetURL, token)); err != nil {
		s.recorder.RecordEvent(EventMailFailed)
		s.logger.WarnContext(ctx, "reset link not delivered, withdrawing token",
			"user_id", user.ID.String(), "error", err, "failure", mailFailure(err))
		s.scheduler.Cancel(pending.Handle)

		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), expireTimeout)
		defer cancel()
		if _, err := s.users.ClearResetToken(cctx, user.ID, tokenHash); err != nil {
			return nil, oops.Code("RESET_COMPENSATE_FAILED").
				With("user_id", user.ID.String()).
				Wrap(err)
		}
		return ServerError{Message: msgResetMailFailed}, nil
	}

	s.logger.InfoContext(ctx, "reset token issued",
		"user_id", user.ID.String(), "expires_at", reset.ExpiresAt)
	return Response{Message: msgResetLinkSent}, nil
}

// expire runs when a reset token's window elapses. It clears the token only
// if it is still the one the timer was armed for.
func (s *ResetService) expire(userID ulid.ULID, tokenHash string) {
	ctx, cancel := context.WithTimeout(context.Background(), expireTimeout)
	defer cancel()

	cleared, err := s.users.ClearResetToken(ctx, userID, tokenHash)
	if err != nil {
		s.logger.WarnContext(ctx, "reset token expiry failed", "user_id", userID.String(), "error", err)
		return
	}
	if cleared {
		s.recorder.RecordEvent(EventResetExpired)
		s.logger.InfoContext(ctx, "reset token expired", "user_id", userID.String())
	}
}

// lookupReset finds the live reset token holder. A nil user with a nil error
// means the token is unknown or past its deadline.
func (s *ResetService) lookupReset(ctx context.Context, token string) (*User, error) {
	tokenHash := HashToken(token)
	user, err := s.users.GetByResetTokenHash(ctx, tokenHash)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("RESET_LOOKUP_FAILED").Wrap(err)
	}
	if user.Reset == nil || !user.Reset.Matches(token) {
		return nil, nil
	}
	if user.Reset.IsExpiredAt(s.opts.now()) {
		s.scheduler.Cancel(user.Reset.Handle)
		if cleared, err := s.users.ClearResetToken(ctx, user.ID, tokenHash); err != nil {
			s.logger.WarnContext(ctx, "clearing expired reset token failed",
				"user_id", user.ID.String(), "error", err)
		} else if cleared {
			s.recorder.RecordEvent(EventResetExpired)
		}
		return nil, nil
	}
	return user, nil
}

// VerifyResetToken reports whether token is a live reset token for a
// registered account.
func (s *ResetService) VerifyResetToken(ctx context.Context, token string) (VerifyResetTokenOutcome, error) {
	out, err := s.verifyResetToken(ctx, token)
	s.record("verifyResetToken", out, err)
	return out, err
}

func (s *ResetService) verifyResetToken(ctx context.Context, token string) (VerifyResetTokenOutcome, error) {
	if verr, ok := ValidateResetToken(token); !ok {
		return verr, nil
	}
	user, err := s.lookupReset(ctx, token)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return NotAllowedError{Message: msgResetTokenInvalid}, nil
	}
	if !user.Registered {
		return RegistrationError{Message: msgNotRegistered}, nil
	}
	return VerifiedResetToken{Email: user.Email, ResetToken: token}, nil
}

// ResetPassword consumes a reset token, sets the new password, and signs the
// account out everywhere.
func (s *ResetService) ResetPassword(ctx context.Context, token, password, confirmPassword string) (ResetPasswordOutcome, error) {
	out, err := s.resetPassword(ctx, token, password, confirmPassword)
	s.record("resetPassword", out, err)
	return out, err
}

func (s *ResetService) resetPassword(ctx context.Context, token, password, confirmPassword string) (ResetPasswordOutcome, error) {
	if verr, ok := ValidateResetPassword(token, password, confirmPassword); !ok {
		return verr, nil
	}
	user, err := s.lookupReset(ctx, token)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return NotAllowedError{Message: msgResetTokenInvalid}, nil
	}

	tokenHash := HashToken(token)
	s.scheduler.Cancel(user.Reset.Handle)

	if !user.Registered {
		if _, err := s.users.ClearResetToken(ctx, user.ID, tokenHash); err != nil {
			return nil, oops.Code("RESET_CLEAR_FAILED").With("user_id", user.ID.String()).Wrap(err)
		}
		return RegistrationError{Message: msgNotRegistered}, nil
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("RESET_FAILED").With("operation", "hash password").Wrap(err)
	}
	err = s.users.ConsumeResetToken(ctx, user.ID, tokenHash, hash)
	if errors.Is(err, ErrNotFound) {
		// Consumed or expired by a concurrent request.
		return NotAllowedError{Message: msgResetTokenInvalid}, nil
	}
	if err != nil {
		return nil, oops.Code("RESET_FAILED").
			With("operation", "consume reset token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	s.recorder.RecordEvent(EventResetConsumed)
	s.logger.InfoContext(ctx, "password reset", "user_id", user.ID.String())

	if err := s.sessions.DeleteByUser(ctx, user.ID); err != nil {
		s.logger.WarnContext(ctx, "revoking sessions after reset failed",
			"user_id", user.ID.String(), "error", err)
	}

	if err := s.mailer.Send(ctx, resetConfirmation(user)); err != nil {
		s.recorder.RecordEvent(EventMailFailed)
		s.logger.WarnContext(ctx, "reset confirmation not delivered",
			"user_id", user.ID.String(), "error", err, "failure", mailFailure(err))
		return Response{Message: msgPasswordChangedNoAck, Level: StatusWarn}, nil
	}
	return Response{Message: msgPasswordChanged}, nil
}

// GeneratePassword sets and mails a temporary password for an account whose
// registration is not complete.
func (s *ResetService) GeneratePassword(ctx context.Context, email string) (GeneratePasswordOutcome, error) {
	out, err := s.generatePassword(ctx, email)
	s.record("generatePassword", out, err)
	return out, err
}

func (s *ResetService) generatePassword(ctx context.Context, email string) (GeneratePasswordOutcome, error) {
	email = strings.TrimSpace(email)
	if verr, ok := ValidateEmail(email); !ok {
		return verr, nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return NotAllowedError{Message: msgNoAccount}, nil
	}
	if err != nil {
		return nil, oops.Code("PASSWORD_GENERATE_FAILED").With("operation", "get user by email").Wrap(err)
	}
	if user.Registered {
		return RegistrationError{Message: msgAlreadyRegistered}, nil
	}

	password, err := RandomPassword(GeneratedPasswordLength)
	if err != nil {
		return nil, oops.Code("PASSWORD_GENERATE_FAILED").With("operation", "generate password").Wrap(err)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("PASSWORD_GENERATE_FAILED").With("operation", "hash password").Wrap(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, oops.Code("PASSWORD_GENERATE_FAILED").
			With("operation", "update password").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	s.recorder.RecordEvent(EventPasswordGenerated)

	if err := s.mailer.Send(ctx, temporaryPasswordMessage(user, password)); err != nil {
		s.recorder.RecordEvent(EventMailFailed)
		s.logger.WarnContext(ctx, "temporary password not delivered",
			"user_id", user.ID.String(), "error", err, "failure", mailFailure(err))
		return ServerError{Message: msgTempPasswordFailed}, nil
	}
	s.logger.InfoContext(ctx, "temporary password issued", "user_id", user.ID.String())
	return Response{Message: msgTempPasswordSent}, nil
}

// SweepExpired clears reset tokens whose deadline passed without their timer
// firing, such as after a restart.
func (s *ResetService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.users.ClearExpiredResetTokens(ctx, s.opts.now())
	if err != nil {
		return 0, oops.Code("RESET_SWEEP_FAILED").Wrap(err)
	}
	for range n {
		s.recorder.RecordEvent(EventResetExpired)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "swept expired reset tokens", "count", n)
	}
	return n, nil
}
