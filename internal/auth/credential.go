// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// Credential is a signed refresh token stored as three separate cookies.
// PartA, PartB and PartC hold the JWT header, claims, and signature
// segments. All three must be present to reconstitute the token.
type Credential struct {
	PartA string
	PartB string
	PartC string
}

// SplitCredential splits a signed token into its three parts. Anything that
// is not a three-segment token yields an empty Credential.
func SplitCredential(signed string) Credential {
	parts := strings.Split(signed, ".")
	if len(parts) != 3 {
		return Credential{}
	}
	return Credential{PartA: parts[0], PartB: parts[1], PartC: parts[2]}
}

// Complete reassembles the signed token. It fails closed: if any part is
// missing the credential counts as absent.
func (c Credential) Complete() (string, bool) {
	if c.PartA == "" || c.PartB == "" || c.PartC == "" {
		return "", false
	}
	return c.PartA + "." + c.PartB + "." + c.PartC, true
}

// IsEmpty reports whether no part is present.
func (c Credential) IsEmpty() bool {
	return c.PartA == "" && c.PartB == "" && c.PartC == ""
}

// CookieJar is the side channel through which the credential triple travels.
// Implementations read the caller's cookies and record cookie writes for the
// response.
type CookieJar interface {
	// Credential returns whatever parts the caller presented.
	Credential() Credential

	// SetCredential replaces the caller's cookies with c.
	SetCredential(c Credential)

	// ClearCredential expires all three cookies.
	ClearCredential()
}

// Identity is the authenticated caller derived from a valid access token.
type Identity struct {
	UserID ulid.ULID
}
