// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package config loads and validates Gatehouse configuration from defaults,
// an optional YAML file, and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/gatehouse/gatehouse/internal/xdg"
)

// AuthType selects the authentication strategy for the API server.
const (
	AuthTypeNone    = "none"
	AuthTypeBasic   = "basic"
	AuthTypeSession = "session"
)

// Session backends.
const (
	SessionBackendMemory   = "memory"
	SessionBackendPostgres = "postgres"
)

// AuthConfig configures the authentication strategy and session behavior.
type AuthConfig struct {
	// Type is the auth strategy: "none", "basic", or "session".
	Type string `koanf:"type"`

	// SessionCookie is the name of the session cookie.
	SessionCookie string `koanf:"session_cookie"`

	// SessionTTL is the session lifetime. Zero means sessions never expire.
	SessionTTL time.Duration `koanf:"session_ttl"`

	// SessionBackend selects session storage: "memory" or "postgres".
	SessionBackend string `koanf:"session_backend"`

	// ExcludedPaths are glob patterns for paths that bypass authentication.
	ExcludedPaths []string `koanf:"excluded_paths"`

	// HashConcurrency caps concurrent password hashing operations.
	// Zero disables the cap.
	HashConcurrency int `koanf:"hash_concurrency"`
}

// Config is the root Gatehouse configuration.
type Config struct {
	// ListenAddr is the API server listen address.
	ListenAddr string `koanf:"listen_addr"`

	// MetricsAddr is the observability server listen address.
	MetricsAddr string `koanf:"metrics_addr"`

	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string `koanf:"database_url"`

	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log_format"`

	Auth AuthConfig `koanf:"auth"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		ListenAddr:  "127.0.0.1:5000",
		MetricsAddr: "127.0.0.1:9100",
		LogFormat:   "json",
		Auth: AuthConfig{
			Type:           AuthTypeSession,
			SessionCookie:  "_gatehouse_session_id",
			SessionTTL:     0,
			SessionBackend: SessionBackendMemory,
			ExcludedPaths: []string{
				"/api/v1/status/",
				"/api/v1/users/",
				"/api/v1/auth_session/login/",
				"/api/v1/reset_password/",
			},
			HashConcurrency: 0,
		},
	}
}

// DefaultPath returns the default config file location under the XDG config
// directory.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigDir(), "config.yaml")
}

// Load builds a Config from defaults, the YAML file at path (if it exists),
// and flags (if non-nil). Flags take precedence over the file, which takes
// precedence over defaults. A missing file at the default path is not an
// error; a missing explicitly-given path is.
func Load(path string, explicit bool, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()

	k := koanf.New(".")

	if path != "" {
		err := k.Load(file.Provider(path), yaml.Parser())
		switch {
		case err == nil:
		case errors.Is(err, fs.ErrNotExist) && !explicit:
			// Default location absent; run on defaults and flags.
		default:
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").
				With("source", "flags").
				Wrap(err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_PARSE_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the configuration for invalid combinations.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("listen_addr is required")
	}

	switch c.LogFormat {
	case "", "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").
			With("log_format", c.LogFormat).
			Errorf("log_format must be json or text")
	}

	switch c.Auth.Type {
	case AuthTypeNone, AuthTypeBasic, AuthTypeSession:
	default:
		return oops.Code("CONFIG_INVALID").
			With("auth_type", c.Auth.Type).
			Errorf("auth type must be none, basic, or session")
	}

	switch c.Auth.SessionBackend {
	case SessionBackendMemory, SessionBackendPostgres:
	default:
		return oops.Code("CONFIG_INVALID").
			With("session_backend", c.Auth.SessionBackend).
			Errorf("session backend must be memory or postgres")
	}

	if c.Auth.SessionTTL < 0 {
		return oops.Code("CONFIG_INVALID").
			With("session_ttl", c.Auth.SessionTTL.String()).
			Errorf("session_ttl must not be negative")
	}

	if c.Auth.HashConcurrency < 0 {
		return oops.Code("CONFIG_INVALID").
			With("hash_concurrency", c.Auth.HashConcurrency).
			Errorf("hash_concurrency must not be negative")
	}

	// Accounts live in PostgreSQL, so any authenticating strategy needs a
	// database even when sessions are held in memory.
	if c.Auth.Type != AuthTypeNone && c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").
			With("auth_type", c.Auth.Type).
			Errorf("auth type %q requires database_url", c.Auth.Type)
	}

	return nil
}
