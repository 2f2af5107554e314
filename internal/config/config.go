// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package config loads Inkwell's settings from a YAML file and command-line
// flags. Secrets come only from the environment.
package config

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/logging"
)

// Environment variables carrying secrets. Secrets are never read from the
// config file or flags.
const (
	EnvDatabaseURL   = "DATABASE_URL"
	EnvAccessSecret  = "INKWELL_ACCESS_SECRET"
	EnvRefreshSecret = "INKWELL_REFRESH_SECRET"
	EnvSMTPPassword  = "INKWELL_SMTP_PASSWORD"
)

// Mail drivers.
const (
	MailDriverSMTP = "smtp"
	MailDriverLog  = "log"
)

// Config is the complete process configuration.
type Config struct {
	HTTPAddr    string `koanf:"http-addr"`
	MetricsAddr string `koanf:"metrics-addr"`
	LogFormat   string `koanf:"log-format"`
	LogLevel    string `koanf:"log-level"`
	ConsoleURL  string `koanf:"console-url"`
	DatabaseURL string `koanf:"database-url"`

	// RequestTimeout bounds one API call, including the mail it waits on.
	RequestTimeout time.Duration `koanf:"request-timeout"`

	Tokens   TokensConfig   `koanf:"tokens"`
	Reset    ResetConfig    `koanf:"reset"`
	Sessions SessionsConfig `koanf:"sessions"`
	Cookies  CookiesConfig  `koanf:"cookies"`
	Mail     MailConfig     `koanf:"mail"`
	TLS      TLSConfig      `koanf:"tls"`
}

// TLSConfig configures HTTPS for the API. With no files and no
// self-signed flag the API is served over plain HTTP, typically behind a
// terminating proxy.
type TLSConfig struct {
	CertFile   string `koanf:"cert-file"`
	KeyFile    string `koanf:"key-file"`
	SelfSigned bool   `koanf:"self-signed"`
}

// Enabled reports whether the API should terminate TLS itself.
func (t TLSConfig) Enabled() bool {
	return t.SelfSigned || t.CertFile != ""
}

// TokensConfig configures the JWT codec.
type TokensConfig struct {
	Issuer     string        `koanf:"issuer"`
	AccessTTL  time.Duration `koanf:"access-ttl"`
	RefreshTTL time.Duration `koanf:"refresh-ttl"`

	AccessSecret  string `koanf:"-"`
	RefreshSecret string `koanf:"-"`
}

// ResetConfig configures password reset tokens.
type ResetConfig struct {
	TokenTTL      time.Duration `koanf:"token-ttl"`
	SweepInterval time.Duration `koanf:"sweep-interval"`
}

// SessionsConfig configures session housekeeping.
type SessionsConfig struct {
	IdleTimeout time.Duration `koanf:"idle-timeout"`
}

// CookiesConfig names and scopes the three credential cookies.
type CookiesConfig struct {
	PartA    string `koanf:"part-a"`
	PartB    string `koanf:"part-b"`
	PartC    string `koanf:"part-c"`
	Domain   string `koanf:"domain"`
	Path     string `koanf:"path"`
	Secure   bool   `koanf:"secure"`
	SameSite string `koanf:"same-site"`
}

// MailConfig configures outbound email.
type MailConfig struct {
	Driver   string        `koanf:"driver"`
	Host     string        `koanf:"host"`
	Port     int           `koanf:"port"`
	Username string        `koanf:"username"`
	From     string        `koanf:"from"`
	Attempts int           `koanf:"attempts"`
	Backoff  time.Duration `koanf:"backoff"`
	Timeout  time.Duration `koanf:"timeout"`

	Password string `koanf:"-"`
}

// RegisterFlags adds every non-secret key to fs with its default.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("http-addr", "127.0.0.1:8080", "HTTP API listen address")
	fs.Duration("request-timeout", 30*time.Second, "deadline for a single API request")
	fs.String("metrics-addr", "", "metrics and health listen address (empty disables)")
	fs.String("log-format", logging.FormatJSON, "log format (json or text)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("console-url", "http://localhost:3000", "console base URL used in emailed links")
	fs.String("database-url", "", "PostgreSQL connection URL (or $"+EnvDatabaseURL+")")

	fs.String("tokens.issuer", "inkwell", "JWT issuer")
	fs.Duration("tokens.access-ttl", auth.DefaultAccessTokenTTL, "access token lifetime")
	fs.Duration("tokens.refresh-ttl", auth.DefaultRefreshTokenTTL, "refresh token lifetime")

	fs.Duration("reset.token-ttl", auth.ResetTokenExpiry, "password reset token lifetime")
	fs.Duration("reset.sweep-interval", time.Minute, "interval between expired-token sweeps")

	fs.Duration("sessions.idle-timeout", auth.SessionIdleTimeout, "prune sessions not refreshed for this long")

	fs.String("cookies.part-a", "inkwell_a", "name of the first credential cookie")
	fs.String("cookies.part-b", "inkwell_b", "name of the second credential cookie")
	fs.String("cookies.part-c", "inkwell_c", "name of the third credential cookie")
	fs.String("cookies.domain", "", "credential cookie domain")
	fs.String("cookies.path", "/", "credential cookie path")
	fs.Bool("cookies.secure", true, "mark credential cookies Secure")
	fs.String("cookies.same-site", "strict", "credential cookie SameSite (strict, lax, none)")

	fs.String("mail.driver", MailDriverLog, "mail driver (smtp or log)")
	fs.String("mail.host", "localhost", "SMTP host")
	fs.Int("mail.port", 587, "SMTP port")
	fs.String("mail.username", "", "SMTP username")
	fs.String("mail.from", "Inkwell <no-reply@localhost>", "sender address")
	fs.Int("mail.attempts", 3, "SMTP delivery attempts per message")
	fs.Duration("mail.backoff", 500*time.Millisecond, "first SMTP retry delay")
	fs.Duration("mail.timeout", 20*time.Second, "deadline for one SMTP session")

	fs.String("tls.cert-file", "", "PEM certificate for HTTPS")
	fs.String("tls.key-file", "", "PEM private key for HTTPS")
	fs.Bool("tls.self-signed", false, "serve HTTPS with a generated development certificate")
}

// Load reads path (optional) and fs into a Config, then applies secrets
// from the environment. Flags explicitly set on fs override the file; flag
// defaults only fill keys the file leaves unset.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}
	if fs != nil {
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "load flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "decode").Wrap(err)
	}
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvDatabaseURL); ok && c.DatabaseURL == "" {
		c.DatabaseURL = v
	}
	c.Tokens.AccessSecret = os.Getenv(EnvAccessSecret)
	c.Tokens.RefreshSecret = os.Getenv(EnvRefreshSecret)
	c.Mail.Password = os.Getenv(EnvSMTPPassword)
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	invalid := func(key, format string, args ...any) error {
		return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
	}

	switch {
	case c.HTTPAddr == "":
		return invalid("http-addr", "http address is required")
	case c.RequestTimeout <= 0:
		return invalid("request-timeout", "request timeout must be positive")
	case c.DatabaseURL == "":
		return invalid("database-url", "database url is required (flag, file or $%s)", EnvDatabaseURL)
	case !logging.ValidFormat(c.LogFormat):
		return invalid("log-format", "unknown log format %q", c.LogFormat)
	case len(c.Tokens.AccessSecret) < auth.MinTokenSecretBytes:
		return invalid(EnvAccessSecret, "access secret must be at least %d bytes", auth.MinTokenSecretBytes)
	case len(c.Tokens.RefreshSecret) < auth.MinTokenSecretBytes:
		return invalid(EnvRefreshSecret, "refresh secret must be at least %d bytes", auth.MinTokenSecretBytes)
	case c.Tokens.AccessSecret == c.Tokens.RefreshSecret:
		return invalid(EnvRefreshSecret, "access and refresh secrets must differ")
	case c.Tokens.AccessTTL <= 0 || c.Tokens.RefreshTTL <= 0:
		return invalid("tokens", "token lifetimes must be positive")
	case c.Reset.TokenTTL <= 0:
		return invalid("reset.token-ttl", "reset token lifetime must be positive")
	case c.Reset.SweepInterval <= 0:
		return invalid("reset.sweep-interval", "sweep interval must be positive")
	case c.Sessions.IdleTimeout <= 0:
		return invalid("sessions.idle-timeout", "session idle timeout must be positive")
	case c.Cookies.PartA == "" || c.Cookies.PartB == "" || c.Cookies.PartC == "":
		return invalid("cookies", "all three cookie names are required")
	case c.Cookies.PartA == c.Cookies.PartB || c.Cookies.PartB == c.Cookies.PartC || c.Cookies.PartA == c.Cookies.PartC:
		return invalid("cookies", "cookie names must be distinct")
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return invalid("tls", "tls.cert-file and tls.key-file must be set together")
	}
	if c.TLS.SelfSigned && c.TLS.CertFile != "" {
		return invalid("tls.self-signed", "tls.self-signed conflicts with tls.cert-file")
	}
	if _, err := c.Cookies.SameSiteMode(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err //nolint:wrapcheck // already coded
	}

	switch c.Mail.Driver {
	case MailDriverLog:
	case MailDriverSMTP:
		if c.Mail.Host == "" || c.Mail.Port <= 0 {
			return invalid("mail.host", "smtp host and port are required")
		}
		if c.Mail.From == "" {
			return invalid("mail.from", "sender address is required")
		}
		if c.Mail.Attempts <= 0 {
			return invalid("mail.attempts", "mail attempts must be positive")
		}
		if c.Mail.Timeout <= 0 {
			return invalid("mail.timeout", "mail timeout must be positive")
		}
	default:
		return invalid("mail.driver", "unknown mail driver %q", c.Mail.Driver)
	}
	return nil
}

// ResetURL is the console page the reset email links to.
func (c *Config) ResetURL() string {
	return strings.TrimRight(c.ConsoleURL, "/") + "/reset-password"
}

// SameSiteMode maps the same-site setting to its http constant.
func (c CookiesConfig) SameSiteMode() (http.SameSite, error) {
	switch strings.ToLower(c.SameSite) {
	case "", "strict":
		return http.SameSiteStrictMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "none":
		if !c.Secure {
			return 0, oops.Code("CONFIG_INVALID").With("key", "cookies.same-site").
				Errorf("same-site none requires secure cookies")
		}
		return http.SameSiteNoneMode, nil
	}
	return 0, oops.Code("CONFIG_INVALID").With("key", "cookies.same-site").
		Errorf("unknown same-site mode %q", c.SameSite)
}
