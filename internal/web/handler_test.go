// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package web_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/auth/authtest"
	"github.com/inkwell/inkwell/internal/web"
)

type countingFailures struct {
	mu  sync.Mutex
	ops []string
}

func (c *countingFailures) RecordFailure(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, op)
}

type server struct {
	handler  *web.Handler
	users    *authtest.Users
	sessions *authtest.Sessions
	mailer   *authtest.Mailer
	failures *countingFailures
	hasher   auth.PasswordHasher
}

func newServer(t *testing.T, opts ...web.Option) *server {
	t.Helper()
	users := authtest.NewUsers()
	sessions := authtest.NewSessions(users)
	mailer := &authtest.Mailer{}
	hasher := auth.NewArgon2idHasher()
	codec, err := auth.NewTokenCodec(auth.TokenConfig{
		AccessSecret:  []byte("access-secret-for-web-tests-0123456789"),
		RefreshSecret: []byte("refresh-secret-for-web-tests-0123456789"),
	})
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	sessionSvc, err := auth.NewSessionService(users, sessions, hasher, codec, mailer, auth.WithLogger(logger))
	require.NoError(t, err)
	resetSvc, err := auth.NewResetService(users, sessions, hasher, mailer, authtest.NewScheduler(),
		auth.WithLogger(logger), auth.WithResetURL("https://console.test/reset-password"))
	require.NoError(t, err)

	failures := &countingFailures{}
	opts = append([]web.Option{web.WithLogger(logger), web.WithFailureRecorder(failures)}, opts...)
	h, err := web.NewHandler(sessionSvc, resetSvc, codec, web.DefaultCookieSettings(), opts...)
	require.NoError(t, err)

	return &server{handler: h, users: users, sessions: sessions, mailer: mailer, failures: failures, hasher: hasher}
}

func (s *server) addUser(t *testing.T, email, password string, registered bool) *auth.User {
	t.Helper()
	hash, err := s.hasher.Hash(password)
	require.NoError(t, err)
	u, err := auth.NewUser(email, hash, registered)
	require.NoError(t, err)
	s.users.Put(u)
	return u
}

type reply struct {
	Code     int
	Typename string          `json:"__typename"`
	Status   string          `json:"status"`
	Data     json.RawMessage `json:"data"`
	Cookies  []*http.Cookie
}

func (s *server) post(t *testing.T, path, body string, cookies []*http.Cookie, bearer string) reply {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	out.Code = rec.Code
	out.Cookies = rec.Result().Cookies()
	return out
}

func (r reply) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, v))
}

func cookieValues(cookies []*http.Cookie) string {
	values := make([]string, 0, len(cookies))
	for _, c := range cookies {
		values = append(values, c.Value)
	}
	return strings.Join(values, ".")
}

func TestNewHandler_RequiresDependencies(t *testing.T) {
	_, err := web.NewHandler(nil, nil, nil, web.DefaultCookieSettings())
	assert.Error(t, err)
}

func TestHandler_SessionLifecycle(t *testing.T) {
	s := newServer(t)
	s.addUser(t, "ada@example.com", "correct horse", true)

	login := s.post(t, web.PathLogin, `{"email":"ada@example.com","password":"correct horse"}`, nil, "")
	require.Equal(t, http.StatusOK, login.Code)
	require.Equal(t, "LoggedInUser", login.Typename)
	assert.Equal(t, "SUCCESS", login.Status)
	require.Len(t, login.Cookies, 3)
	for _, c := range login.Cookies {
		assert.True(t, c.HttpOnly, c.Name)
		assert.True(t, c.Secure, c.Name)
		assert.Equal(t, http.SameSiteStrictMode, c.SameSite, c.Name)
		assert.Equal(t, int(auth.DefaultRefreshTokenTTL/time.Second), c.MaxAge, c.Name)
		assert.NotEmpty(t, c.Value, c.Name)
	}

	var loggedIn auth.LoggedInUser
	login.decode(t, &loggedIn)
	assert.Equal(t, "ada@example.com", loggedIn.User.Email)

	verify := s.post(t, web.PathVerifySession, `{"sessionId":"`+loggedIn.SessionID+`"}`, login.Cookies, "")
	require.Equal(t, "VerifiedSession", verify.Typename)
	require.Len(t, verify.Cookies, 3, "rotation replaces the credential")
	assert.NotEqual(t, cookieValues(login.Cookies), cookieValues(verify.Cookies))

	replay := s.post(t, web.PathRefreshToken, `{"sessionId":"`+loggedIn.SessionID+`"}`, login.Cookies, "")
	assert.Equal(t, "NotAllowedError", replay.Typename, "the superseded credential is a replay")
	assert.Zero(t, s.sessions.Len(), "replay revokes the session")

	var hijack auth.Message
	for _, m := range s.mailer.Sent() {
		if m.Subject == "Suspicious sign-in activity" {
			hijack = m
		}
	}
	assert.Equal(t, "ada@example.com", hijack.To)
}

func TestHandler_Logout(t *testing.T) {
	s := newServer(t)
	s.addUser(t, "ada@example.com", "correct horse", true)
	loginBody := `{"email":"ada@example.com","password":"correct horse"}`

	t.Run("without access token discards presented cookies", func(t *testing.T) {
		login := s.post(t, web.PathLogin, loginBody, nil, "")
		var loggedIn auth.LoggedInUser
		login.decode(t, &loggedIn)
		before := s.sessions.Len()

		out := s.post(t, web.PathLogout, `{"sessionId":"`+loggedIn.SessionID+`"}`, login.Cookies, "")
		assert.Equal(t, "AuthenticationError", out.Typename)
		require.Len(t, out.Cookies, 3)
		assert.Equal(t, before-1, s.sessions.Len())
	})

	t.Run("with access token closes the session", func(t *testing.T) {
		login := s.post(t, web.PathLogin, loginBody, nil, "")
		var loggedIn auth.LoggedInUser
		login.decode(t, &loggedIn)
		before := s.sessions.Len()

		out := s.post(t, web.PathLogout, `{"sessionId":"`+loggedIn.SessionID+`"}`, login.Cookies, loggedIn.AccessToken)
		require.Equal(t, "Response", out.Typename)
		assert.Equal(t, "SUCCESS", out.Status)
		require.Len(t, out.Cookies, 3)
		for _, c := range out.Cookies {
			assert.Empty(t, c.Value)
			assert.Negative(t, c.MaxAge)
		}
		assert.Equal(t, before-1, s.sessions.Len())
	})
}

func TestHandler_LoginValidation(t *testing.T) {
	s := newServer(t)

	out := s.post(t, web.PathLogin, `{"email":"not-an-email","password":""}`, nil, "")
	require.Equal(t, http.StatusOK, out.Code)
	assert.Equal(t, "LoginValidationError", out.Typename)

	var fields auth.LoginValidationError
	out.decode(t, &fields)
	assert.Equal(t, "Email is invalid", fields.EmailError)
	assert.Equal(t, "Password is required", fields.PasswordError)
}

func TestHandler_MalformedBodies(t *testing.T) {
	s := newServer(t)
	for name, body := range map[string]string{
		"not json":      `{"email":`,
		"wrong type":    `{"email":42,"password":"x"}`,
		"unknown field": `{"email":"a@example.com","password":"x","admin":true}`,
		"too long":      `{"email":"` + strings.Repeat("a", 400) + `@example.com","password":"x"}`,
	} {
		t.Run(name, func(t *testing.T) {
			out := s.post(t, web.PathLogin, body, nil, "")
			assert.Equal(t, http.StatusBadRequest, out.Code)
			assert.Equal(t, "BadRequestError", out.Typename)
		})
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	s := newServer(t)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, web.PathLogin, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_InfrastructureFailureIsOpaque(t *testing.T) {
	s := newServer(t)
	s.users.Err = errors.New("pq: password authentication failed for user inkwell")

	out := s.post(t, web.PathLogin, `{"email":"ada@example.com","password":"correct horse"}`, nil, "")
	assert.Equal(t, http.StatusInternalServerError, out.Code)
	assert.Equal(t, "InternalError", out.Typename)
	assert.NotContains(t, string(out.Data), "pq:")
	assert.Equal(t, []string{"login"}, s.failures.ops)
}

func TestHandler_PasswordReset(t *testing.T) {
	s := newServer(t)
	s.addUser(t, "ada@example.com", "correct horse", true)

	forgot := s.post(t, web.PathForgotPassword, `{"email":"ada@example.com"}`, nil, "")
	require.Equal(t, "Response", forgot.Typename)
	token := s.mailer.ResetToken()
	require.NotEmpty(t, token)

	verify := s.post(t, web.PathVerifyResetToken, `{"token":"`+token+`"}`, nil, "")
	require.Equal(t, "VerifiedResetToken", verify.Typename)
	var verified auth.VerifiedResetToken
	verify.decode(t, &verified)
	assert.Equal(t, "ada@example.com", verified.Email)

	mismatch := s.post(t, web.PathResetPassword,
		`{"token":"`+token+`","password":"battery staple","confirmPassword":"battery stable"}`, nil, "")
	assert.Equal(t, "ResetPasswordValidationError", mismatch.Typename)

	reset := s.post(t, web.PathResetPassword,
		`{"token":"`+token+`","password":"battery staple","confirmPassword":"battery staple"}`, nil, "")
	require.Equal(t, "Response", reset.Typename)

	again := s.post(t, web.PathResetPassword,
		`{"token":"`+token+`","password":"battery staple","confirmPassword":"battery staple"}`, nil, "")
	assert.Equal(t, "NotAllowedError", again.Typename)

	login := s.post(t, web.PathLogin, `{"email":"ada@example.com","password":"battery staple"}`, nil, "")
	assert.Equal(t, "LoggedInUser", login.Typename)
}

func TestHandler_GeneratePassword(t *testing.T) {
	s := newServer(t)
	s.addUser(t, "new@example.com", "placeholder", false)
	s.addUser(t, "ada@example.com", "correct horse", true)

	out := s.post(t, web.PathGeneratePassword, `{"email":"ada@example.com"}`, nil, "")
	assert.Equal(t, "RegistrationError", out.Typename)

	out = s.post(t, web.PathGeneratePassword, `{"email":"new@example.com"}`, nil, "")
	require.Equal(t, "Response", out.Typename)
	assert.Equal(t, "new@example.com", s.mailer.Last().To)
}

func TestHandler_ResponsesAreNotCached(t *testing.T) {
	s := newServer(t)
	req := httptest.NewRequest(http.MethodPost, web.PathForgotPassword, bytes.NewBufferString(`{"email":""}`))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestHandler_RequestTimeoutBoundsMailDelivery(t *testing.T) {
	s := newServer(t, web.WithRequestTimeout(100*time.Millisecond))
	u := s.addUser(t, "ada@example.com", "correct horse", true)
	s.mailer.Stall = true

	start := time.Now()
	out := s.post(t, web.PathForgotPassword, `{"email":"ada@example.com"}`, nil, "")

	assert.Less(t, time.Since(start), 2*time.Second, "the request deadline must cut the mail step short")
	assert.Equal(t, http.StatusOK, out.Code)
	assert.Equal(t, "ServerError", out.Typename)
	assert.Nil(t, s.users.Get(u.ID).Reset, "an undelivered reset token is withdrawn")
}

func TestHandler_RequestTimeoutBoundsTemporaryPassword(t *testing.T) {
	s := newServer(t, web.WithRequestTimeout(100*time.Millisecond))
	s.addUser(t, "new@example.com", "placeholder", false)
	s.mailer.Stall = true

	start := time.Now()
	out := s.post(t, web.PathGeneratePassword, `{"email":"new@example.com"}`, nil, "")

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, "ServerError", out.Typename)
}
