// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

// Package config loads DevCollab configuration from defaults, an optional
// YAML file, command-line flags and secret-bearing environment variables, in
// that order of precedence.
package config

import (
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/devcollab/devcollab/internal/auth"
	"github.com/devcollab/devcollab/internal/mail"
)

// Environment variables read for secrets. They override file and flag values.
const (
	EnvDatabaseURL   = "DATABASE_URL"
	EnvSessionSecret = "DEVCOLLAB_SESSION_SECRET" //nolint:gosec // G101: variable name, not a credential
	EnvSMTPPassword  = "DEVCOLLAB_SMTP_PASSWORD"  //nolint:gosec // G101: variable name, not a credential
)

// MinSessionSecretLength is the shortest accepted session signing secret.
const MinSessionSecretLength = auth.MinSessionSecretSize

// Config is the full service configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
	Database DatabaseConfig `koanf:"database"`
	Session  SessionConfig  `koanf:"session"`
	Reset    ResetConfig    `koanf:"reset"`
	SMTP     SMTPConfig     `koanf:"smtp"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr           string        `koanf:"addr"`
	CookieSecure   bool          `koanf:"cookie_secure"`
	ClientURL      string        `koanf:"client_url"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// MetricsConfig configures the observability listener. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// DatabaseConfig configures PostgreSQL.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// SessionConfig configures session tokens.
type SessionConfig struct {
	Secret string        `koanf:"secret"`
	TTL    time.Duration `koanf:"ttl"`
}

// ResetConfig configures the password reset lifecycle.
type ResetConfig struct {
	TTL           time.Duration `koanf:"ttl"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// SMTPConfig configures outbound mail. An empty host selects a sender that
// only logs.
type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

// Enabled reports whether an SMTP relay is configured.
func (c SMTPConfig) Enabled() bool { return c.Host != "" }

// Mail converts the settings for mail.NewSMTPSender.
func (c SMTPConfig) Mail() mail.SMTPConfig {
	return mail.SMTPConfig{
		Host:     c.Host,
		Port:     c.Port,
		Username: c.Username,
		Password: c.Password,
		From:     c.From,
	}
}

var defaults = map[string]any{
	"http.addr":            ":5000",
	"http.cookie_secure":   false,
	"http.client_url":      auth.DefaultClientURL,
	"http.request_timeout": 10 * time.Second,
	"metrics.addr":         "127.0.0.1:9100",
	"log.format":           "json",
	"log.level":            "info",
	"session.ttl":          auth.SessionTokenExpiry,
	"reset.ttl":            auth.ResetTokenExpiry,
	"reset.sweep_interval": 10 * time.Minute,
	"smtp.port":            587,
}

// Flags registers the command-line overrides on fs. Flag names are the
// configuration keys.
func Flags(fs *pflag.FlagSet) {
	fs.String("http.addr", ":5000", "API listen address")
	fs.Bool("http.cookie_secure", false, "mark the session cookie Secure")
	fs.String("http.client_url", auth.DefaultClientURL, "front-end origin for CORS and reset links")
	fs.String("metrics.addr", "127.0.0.1:9100", "metrics and health listen address (empty disables)")
	fs.String("log.format", "json", "log format (json or text)")
	fs.String("log.level", "info", "log level (debug, info, warn, error)")
}

// Load builds a Config. path may be empty to skip the file; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, oops.Code("CONFIG_DEFAULTS_FAILED").With("key", key).Wrap(err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_INVALID").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
		}
	}

	for env, key := range map[string]string{
		EnvDatabaseURL:   "database.url",
		EnvSessionSecret: "session.secret",
		EnvSMTPPassword:  "smtp.password",
	} {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			if err := k.Set(key, v); err != nil {
				return nil, oops.Code("CONFIG_ENV_INVALID").With("env", env).Wrap(err)
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	return &cfg, nil
}

// Validate checks settings the service cannot start without. Messages name
// fields, never values.
func (c *Config) Validate() error {
	errs := validation.Errors{
		"database.url": validation.Validate(c.Database.URL, validation.Required),
		"session.secret": validation.Validate(c.Session.Secret,
			validation.Required,
			validation.Length(MinSessionSecretLength, 0).Error("must be at least 32 bytes")),
		"session.ttl":          validation.Validate(c.Session.TTL, validation.Required),
		"reset.ttl":            validation.Validate(c.Reset.TTL, validation.Required),
		"reset.sweep_interval": validation.Validate(c.Reset.SweepInterval, validation.Required),
		"http.addr":            validation.Validate(c.HTTP.Addr, validation.Required),
		"http.client_url":      validation.Validate(c.HTTP.ClientURL, validation.Required, is.URL),
		"http.request_timeout": validation.Validate(c.HTTP.RequestTimeout, validation.Required),
		"log.format":           validation.Validate(c.Log.Format, validation.In("json", "text")),
		"log.level":            validation.Validate(c.Log.Level, validation.In("debug", "info", "warn", "error")),
	}
	if c.SMTP.Enabled() {
		errs["smtp.port"] = validation.Validate(c.SMTP.Port, validation.Min(1), validation.Max(65535))
		errs["smtp.from"] = validation.Validate(c.SMTP.From, is.Email)
	}
	if err := errs.Filter(); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return nil
}
