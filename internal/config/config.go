// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodlog Contributors

// Package config loads service configuration from defaults, an optional YAML
// file, selected environment variables, and CLI flags, in that order of
// precedence (later wins).
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config is the full service configuration, immutable after Load.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Observability ObservabilityConfig `koanf:"observability"`
	Database      DatabaseConfig      `koanf:"database"`
	Auth          AuthConfig          `koanf:"auth"`
	Google        GoogleConfig        `koanf:"google"`
	Logging       LoggingConfig       `koanf:"logging"`
}

// ServerConfig configures the API HTTP server.
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// ObservabilityConfig configures the metrics/health HTTP server.
type ObservabilityConfig struct {
	Addr string `koanf:"addr"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// AuthConfig configures session token issuance and verification.
type AuthConfig struct {
	PrivateKeyPath string        `koanf:"private_key_path"`
	PublicKeyPath  string        `koanf:"public_key_path"`
	TokenTTL       time.Duration `koanf:"token_ttl"`
}

// GoogleConfig configures the Google identity provider.
type GoogleConfig struct {
	ClientID string `koanf:"client_id"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Format string `koanf:"format"` // "json" or "text"
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server:        ServerConfig{Addr: ":8080"},
		Observability: ObservabilityConfig{Addr: "127.0.0.1:9100"},
		Auth:          AuthConfig{TokenTTL: 86400 * time.Second},
		Logging:       LoggingConfig{Format: "json"},
	}
}

// Load builds the configuration. path may be empty (no file); flags may be
// nil. DATABASE_URL and GOOGLE_CLIENT_ID environment variables override the
// file when set, so deployments can keep secrets out of config files.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

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

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if clientID := os.Getenv("GOOGLE_CLIENT_ID"); clientID != "" {
		cfg.Google.ClientID = clientID
	}

	return &cfg, nil
}

// Validate checks the fields the serve command cannot run without.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url (or DATABASE_URL) is required")
	}
	if c.Auth.PrivateKeyPath == "" {
		return oops.Code("CONFIG_INVALID").Errorf("auth.private_key_path is required")
	}
	if c.Auth.PublicKeyPath == "" {
		return oops.Code("CONFIG_INVALID").Errorf("auth.public_key_path is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth.token_ttl must be positive")
	}
	return nil
}
