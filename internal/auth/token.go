// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Token defaults.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
	MinTokenSecretBytes    = 32

	tokenIDBytes = 16
)

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind string

// Token kinds.
const (
	AccessTokenKind  TokenKind = "access"
	RefreshTokenKind TokenKind = "refresh"
)

var (
	// ErrTokenExpired is returned with valid claims when a token is correctly
	// signed but past its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid is returned for malformed, forged, or mis-typed tokens.
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims are the JWT claims carried by access and refresh tokens. Refresh
// tokens also carry the session id they were issued for.
type Claims struct {
	jwt.RegisteredClaims
	Kind      TokenKind `json:"knd"`
	SessionID string    `json:"sid,omitempty"`
}

// UserID parses the subject claim.
func (c *Claims) UserID() (ulid.ULID, error) {
	id, err := ulid.Parse(c.Subject)
	if err != nil {
		return ulid.ULID{}, oops.Code("TOKEN_INVALID_SUBJECT").With("subject", c.Subject).Wrap(err)
	}
	return id, nil
}

// TokenConfig configures a TokenCodec.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	// Now overrides the clock used for issuing and validating. Optional.
	Now func() time.Time
}

// TokenPair is a freshly minted access/refresh pair.
type TokenPair struct {
	Access           string
	Refresh          string
	RefreshExpiresAt time.Time
}

// TokenCodec signs and verifies HS256 JWTs.
type TokenCodec struct {
	cfg TokenConfig
	now func() time.Time
}

// NewTokenCodec creates a TokenCodec after validating its configuration.
func NewTokenCodec(cfg TokenConfig) (*TokenCodec, error) {
	if len(cfg.AccessSecret) < MinTokenSecretBytes {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("access secret must be at least %d bytes", MinTokenSecretBytes)
	}
	if len(cfg.RefreshSecret) < MinTokenSecretBytes {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("refresh secret must be at least %d bytes", MinTokenSecretBytes)
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTokenTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "inkwell"
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &TokenCodec{cfg: cfg, now: now}, nil
}

// RefreshTTL returns the configured refresh token lifetime.
func (c *TokenCodec) RefreshTTL() time.Duration {
	return c.cfg.RefreshTTL
}

// IssuePair mints an access token and a refresh token for the session.
func (c *TokenCodec) IssuePair(userID ulid.ULID, sessionID string) (TokenPair, error) {
	access, _, err := c.sign(AccessTokenKind, userID, "", c.cfg.AccessTTL, c.cfg.AccessSecret)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := c.sign(RefreshTokenKind, userID, sessionID, c.cfg.RefreshTTL, c.cfg.RefreshSecret)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh, RefreshExpiresAt: refreshExp}, nil
}

// VerifyAccess validates an access token strictly.
func (c *TokenCodec) VerifyAccess(token string) (*Claims, error) {
	claims, err := c.verify(token, AccessTokenKind, c.cfg.AccessSecret)
	if errors.Is(err, ErrTokenExpired) {
		return nil, err
	}
	return claims, err
}

// VerifyRefresh validates a refresh token. A correctly signed token that is
// only past its expiry returns its claims together with ErrTokenExpired.
func (c *TokenCodec) VerifyRefresh(token string) (*Claims, error) {
	return c.verify(token, RefreshTokenKind, c.cfg.RefreshSecret)
}

func (c *TokenCodec) sign(kind TokenKind, userID ulid.ULID, sessionID string, ttl time.Duration, secret []byte) (string, time.Time, error) {
	jti, err := RandomString(tokenIDBytes)
	if err != nil {
		return "", time.Time{}, err
	}
	now := c.now()
	exp := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    c.cfg.Issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Kind:      kind,
		SessionID: sessionID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, oops.Code("TOKEN_SIGN_FAILED").With("kind", string(kind)).Wrap(err)
	}
	return signed, exp, nil
}

func (c *TokenCodec) verify(token string, kind TokenKind, secret []byte) (*Claims, error) {
	if token == "" {
		return nil, ErrTokenInvalid
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	expired := false
	if err != nil {
		// Claims are only validated after the signature checks out, so an
		// expiry error on its own means the token is authentic.
		if !errors.Is(err, jwt.ErrTokenExpired) ||
			errors.Is(err, jwt.ErrTokenInvalidIssuer) ||
			errors.Is(err, jwt.ErrTokenNotValidYet) ||
			errors.Is(err, jwt.ErrTokenUsedBeforeIssued) {
			return nil, ErrTokenInvalid
		}
		expired = true
	}
	if claims.Kind != kind || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	if kind == RefreshTokenKind && claims.SessionID == "" {
		return nil, ErrTokenInvalid
	}
	if expired {
		return claims, ErrTokenExpired
	}
	return claims, nil
}

// RandomString returns nBytes of crypto/rand output, base64url encoded
// without padding.
func RandomString(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("TOKEN_RANDOM_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", nBytes).
			Wrap(err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// passwordAlphabet omits look-alike characters (0/O, 1/l/I).
const passwordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

// RandomPassword returns a random password of the given length drawn
// uniformly from passwordAlphabet.
func RandomPassword(length int) (string, error) {
	out := make([]byte, length)
	limit := big.NewInt(int64(len(passwordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", oops.Code("TOKEN_RANDOM_FAILED").With("operation", "generate password").Wrap(err)
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out), nil
}
