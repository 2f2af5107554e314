// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

// SecurityEvent names a notable occurrence in the session and reset flows.
type SecurityEvent string

// Security events.
const (
	EventSessionIssued     SecurityEvent = "session_issued"
	EventSessionRotated    SecurityEvent = "session_rotated"
	EventExpiredRecovery   SecurityEvent = "expired_token_recovery"
	EventHijackDetected    SecurityEvent = "hijack_detected"
	EventSessionRevoked    SecurityEvent = "session_revoked"
	EventResetIssued       SecurityEvent = "reset_token_issued"
	EventResetConsumed     SecurityEvent = "reset_token_consumed"
	EventResetExpired      SecurityEvent = "reset_token_expired"
	EventMailFailed        SecurityEvent = "mail_delivery_failed"
	EventPasswordGenerated SecurityEvent = "password_generated"
)

// Recorder receives outcome and event notifications, typically for metrics.
type Recorder interface {
	RecordOutcome(operation string, outcome Outcome)
	RecordEvent(event SecurityEvent)
}

type noopRecorder struct{}

func (noopRecorder) RecordOutcome(string, Outcome) {}
func (noopRecorder) RecordEvent(SecurityEvent)     {}
