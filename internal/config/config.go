// Package config loads application configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment variable overrides, e.g.
// CASAOPS_SYNC_WORKERS=8 sets sync.workers.
const EnvPrefix = "CASAOPS_"

// DefaultConfigPaths lists where the config file is searched, first match wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/casaops/config.yaml",
}

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Sync       SyncConfig       `koanf:"sync"`
	Exclusions ExclusionsConfig `koanf:"exclusions"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// SyncConfig configures the orchestrator and feed fetching.
type SyncConfig struct {
	// Interval between scheduled full-fleet runs.
	Interval time.Duration `koanf:"interval"`
	// Workers bounds how many properties sync concurrently.
	Workers int `koanf:"workers"`
	// RunTimeout caps a full-fleet run; in-flight properties finish,
	// no new ones start past the deadline.
	RunTimeout time.Duration `koanf:"run_timeout"`
	// FeedTimeout is the per-request HTTP timeout for feed fetches.
	FeedTimeout time.Duration `koanf:"feed_timeout"`
	// LockStaleAfter is how old a property sync lock must be before a new
	// run may take it over.
	LockStaleAfter time.Duration `koanf:"lock_stale_after"`
	// DefaultTimezone applies to properties without an explicit timezone.
	DefaultTimezone string `koanf:"default_timezone"`
}

// DefaultLocation resolves DefaultTimezone. Validate guarantees the name
// loads, so only a zero-value config falls back to UTC here.
func (c SyncConfig) DefaultLocation() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ExclusionsConfig configures exclusion retention.
type ExclusionsConfig struct {
	RetentionDays int `koanf:"retention_days"`
}

// SecurityConfig configures trigger-endpoint authentication.
type SecurityConfig struct {
	// TriggerSecret is the shared secret required on sync and maintenance
	// trigger endpoints.
	TriggerSecret string `koanf:"trigger_secret"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "/data/casaops.db",
		},
		Sync: SyncConfig{
			Interval:        30 * time.Minute,
			Workers:         4,
			RunTimeout:      5 * time.Minute,
			FeedTimeout:     15 * time.Second,
			LockStaleAfter:  10 * time.Minute,
			DefaultTimezone: "Europe/Rome",
		},
		Exclusions: ExclusionsConfig{
			RetentionDays: 90,
		},
		Security: SecurityConfig{
			TriggerSecret: "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from defaults, the first config file found and
// CASAOPS_-prefixed environment variables.
func Load() (*Config, error) {
	return load(findConfigFile())
}

// LoadFile reads configuration using the given config file path ("" skips
// the file layer).
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// CASAOPS_SYNC_RUN_TIMEOUT -> sync.run_timeout
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.Replace(key, "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the loaded configuration for unusable values.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Sync.Workers <= 0 {
		return fmt.Errorf("sync.workers must be positive, got %d", c.Sync.Workers)
	}
	if c.Sync.RunTimeout <= 0 || c.Sync.FeedTimeout <= 0 {
		return fmt.Errorf("sync timeouts must be positive")
	}
	if c.Exclusions.RetentionDays <= 0 {
		return fmt.Errorf("exclusions.retention_days must be positive, got %d", c.Exclusions.RetentionDays)
	}
	if c.Sync.DefaultTimezone != "" {
		if _, err := time.LoadLocation(c.Sync.DefaultTimezone); err != nil {
			return fmt.Errorf("sync.default_timezone: %w", err)
		}
	}
	return nil
}

func findConfigFile() string {
	if p := os.Getenv(EnvPrefix + "CONFIG"); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
