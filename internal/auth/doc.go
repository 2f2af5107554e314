// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package auth implements the session and credential lifecycle of the
// Inkwell console.
//
// # Sessions
//
// A login opens a Session row holding the digest of the only refresh token
// valid for it. The refresh token travels as three cookies (see Credential).
// Every successful VerifySession or RefreshToken replaces the stored digest
// with a compare-and-swap; presenting a token that is no longer current is
// treated as theft and revokes the session.
//
// # Reset tokens
//
// ResetService issues short-lived reset tokens. Each token is backed by a
// process-local timer (ExpiryScheduler) and a persisted deadline; either one
// invalidates it. A token is consumed together with the password write.
//
// # Outcomes
//
// Business conditions are returned as typed outcomes, one closed set per
// operation (LoginOutcome, LogoutOutcome, ...). The error return is reserved
// for infrastructure failures.
package auth
