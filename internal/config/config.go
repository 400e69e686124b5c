// Package config loads and validates the sayless service configuration.
// Settings come from an optional YAML file merged with SAYLESS_*
// environment variables; the master token is only ever read from the
// environment, never from the file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full, immutable service configuration. It is built once
// at startup and injected into each component; nothing mutates it
// afterwards.
type Config struct {
	Server      ServerConfig       `yaml:"server"`
	Database    DatabaseConfig     `yaml:"database"`
	MaxStrikes  uint16             `yaml:"max_strikes"`
	IPRecording *IPRecordingConfig `yaml:"ip_recording"`
	Tokens      *TokenConfig       `yaml:"tokens"`
	Logging     LoggingConfig      `yaml:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	CORSOrigins     []string `yaml:"cors_origins"`
	CreateRateLimit int      `yaml:"create_rate_limit"` // requests/min per IP on /l/create; 0 disables
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
}

// DatabaseConfig selects the relational store holding links, origins,
// strikes, and tokens.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, or postgres
	DSN    string `yaml:"dsn"`
}

// IPRecordingConfig enables recording of link creators' network
// addresses. Presence of the section enables recording, matching the
// strikes ledger's availability.
type IPRecordingConfig struct {
	// RetentionPeriod is a duration literal with suffixes Y/M/w/d/h/m/s,
	// e.g. "2w". Origin rows older than this are pruned.
	RetentionPeriod string `yaml:"retention_period"`
	// RetentionCheckSchedule is a cron expression controlling when the
	// pruning job fires.
	RetentionCheckSchedule string `yaml:"retention_check_schedule"`

	// Retention is the parsed RetentionPeriod, populated by Validate.
	Retention time.Duration `yaml:"-"`
}

// TokenConfig enables the capability-token subsystem.
type TokenConfig struct {
	CreationRequiresAuth bool `yaml:"creation_requires_auth"`

	// MasterToken is the out-of-band secret that satisfies every
	// permission check. Required whenever the token subsystem is
	// enabled; set via SAYLESS_MASTER_TOKEN.
	MasterToken string `yaml:"-"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel maps the configured level name onto a slog.Level.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const (
	DefaultMaxStrikes        = 30
	DefaultRetentionPeriod   = "2w"
	DefaultRetentionSchedule = "0 0 * * *" // once daily at midnight
)

// Default returns the baseline configuration before any file or
// environment overrides.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: "30s",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
		},
		MaxStrikes: DefaultMaxStrikes,
		Logging:    LoggingConfig{Level: "info"},
	}
}

// Load reads the YAML config file at path into a default-initialized
// Config. A missing file is not an error; the defaults stand.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks cross-field requirements and fills in derived values.
// It must be called after all overrides have been applied.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Tokens != nil && c.Tokens.MasterToken == "" {
		return fmt.Errorf("master token is required when the token system is enabled (set SAYLESS_MASTER_TOKEN)")
	}

	if c.IPRecording != nil {
		if c.IPRecording.RetentionPeriod == "" {
			c.IPRecording.RetentionPeriod = DefaultRetentionPeriod
		}
		if c.IPRecording.RetentionCheckSchedule == "" {
			c.IPRecording.RetentionCheckSchedule = DefaultRetentionSchedule
		}
		d, err := ParsePeriod(c.IPRecording.RetentionPeriod)
		if err != nil {
			return fmt.Errorf("invalid retention_period: %w", err)
		}
		c.IPRecording.Retention = d
	}

	return nil
}

// TokensEnabled reports whether the token subsystem is configured.
func (c *Config) TokensEnabled() bool { return c.Tokens != nil }

// RecordIPs reports whether origin recording is configured.
func (c *Config) RecordIPs() bool { return c.IPRecording != nil }

// CreationRequiresAuth reports whether POST /l/create is token-gated.
func (c *Config) CreationRequiresAuth() bool {
	return c.Tokens != nil && c.Tokens.CreationRequiresAuth
}

// MasterToken returns the configured master token, or "" when the token
// subsystem is disabled.
func (c *Config) MasterToken() string {
	if c.Tokens == nil {
		return ""
	}
	return c.Tokens.MasterToken
}
