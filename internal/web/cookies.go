// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package web

import (
	"net/http"
	"time"

	"github.com/inkwell/inkwell/internal/auth"
)

// CookieSettings names and scopes the three credential cookies.
type CookieSettings struct {
	PartA    string
	PartB    string
	PartC    string
	Domain   string
	Path     string
	Secure   bool
	SameSite http.SameSite
	// MaxAge bounds the cookie lifetime. Zero means the refresh token TTL.
	MaxAge time.Duration
}

// DefaultCookieSettings returns strict, secure cookies named inkwell_a/b/c.
func DefaultCookieSettings() CookieSettings {
	return CookieSettings{
		PartA:    "inkwell_a",
		PartB:    "inkwell_b",
		PartC:    "inkwell_c",
		Path:     "/",
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

// requestJar reads the credential from a request and buffers cookie writes
// until the response header is written.
type requestJar struct {
	settings CookieSettings
	incoming auth.Credential
	pending  []*http.Cookie
}

func newRequestJar(r *http.Request, settings CookieSettings) *requestJar {
	value := func(name string) string {
		if c, err := r.Cookie(name); err == nil {
			return c.Value
		}
		return ""
	}
	return &requestJar{
		settings: settings,
		incoming: auth.Credential{
			PartA: value(settings.PartA),
			PartB: value(settings.PartB),
			PartC: value(settings.PartC),
		},
	}
}

func (j *requestJar) Credential() auth.Credential {
	return j.incoming
}

func (j *requestJar) SetCredential(c auth.Credential) {
	maxAge := int(j.settings.MaxAge / time.Second)
	j.pending = []*http.Cookie{
		j.cookie(j.settings.PartA, c.PartA, maxAge),
		j.cookie(j.settings.PartB, c.PartB, maxAge),
		j.cookie(j.settings.PartC, c.PartC, maxAge),
	}
	j.incoming = c
}

func (j *requestJar) ClearCredential() {
	j.pending = []*http.Cookie{
		j.cookie(j.settings.PartA, "", -1),
		j.cookie(j.settings.PartB, "", -1),
		j.cookie(j.settings.PartC, "", -1),
	}
	j.incoming = auth.Credential{}
}

func (j *requestJar) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     j.settings.Path,
		Domain:   j.settings.Domain,
		MaxAge:   maxAge,
		Secure:   j.settings.Secure,
		HttpOnly: true,
		SameSite: j.settings.SameSite,
	}
}

// flush writes the buffered cookies. It must run before the status line.
func (j *requestJar) flush(w http.ResponseWriter) {
	for _, c := range j.pending {
		http.SetCookie(w, c)
	}
}

var _ auth.CookieJar = (*requestJar)(nil)
