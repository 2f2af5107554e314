// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

// Reset token configuration.
const (
	ResetTokenBytes  = 32              // 32 bytes = 43 base64url chars
	ResetTokenExpiry = 5 * time.Minute // default validity window
)

// ResetToken is the pending reset stored on a user row: the digest of the
// mailed token, the handle of the process-local expiry timer, and the
// wall-clock deadline.
type ResetToken struct {
	TokenHash string
	Handle    string
	ExpiresAt time.Time
}

// IsExpiredAt reports whether the token is past its deadline at t.
func (r *ResetToken) IsExpiredAt(t time.Time) bool {
	return !t.Before(r.ExpiresAt)
}

// Matches reports whether token hashes to the stored digest.
func (r *ResetToken) Matches(token string) bool {
	return TokenMatches(token, r.TokenHash)
}

// HashToken computes the SHA256 hash of an opaque token. Only digests are
// persisted.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// TokenMatches checks a plaintext token against a stored digest in constant time.
func TokenMatches(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	computed := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}
