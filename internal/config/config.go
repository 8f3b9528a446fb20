// Package config loads the layered service configuration: TOML base file,
// environment overlay file, then environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/wboerner/archivar/pkg/database"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvArchivarEnv             = "ARCHIVAR_ENV"
	EnvArchivarShutdownTimeout = "ARCHIVAR_SHUTDOWN_TIMEOUT"
	EnvArchivarVersion         = "ARCHIVAR_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "ARCHIVAR_DB_HOST",
	Port:            "ARCHIVAR_DB_PORT",
	Name:            "ARCHIVAR_DB_NAME",
	User:            "ARCHIVAR_DB_USER",
	Password:        "ARCHIVAR_DB_PASSWORD",
	SSLMode:         "ARCHIVAR_DB_SSL_MODE",
	MaxOpenConns:    "ARCHIVAR_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "ARCHIVAR_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "ARCHIVAR_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "ARCHIVAR_DB_CONN_TIMEOUT",
}

// Config is the root configuration for the archivar service.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Database        database.Config `toml:"database"`
	API             APIConfig       `toml:"api"`
	Archive         ArchiveConfig   `toml:"archive"`
	Reasoning       ReasoningConfig `toml:"reasoning"`
	Pipeline        PipelineConfig  `toml:"pipeline"`
	Poller          PollerConfig    `toml:"poller"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the ARCHIVAR_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvArchivarEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.API.Merge(&overlay.API)
	c.Archive.Merge(&overlay.Archive)
	c.Reasoning.Merge(&overlay.Reasoning)
	c.Pipeline.Merge(&overlay.Pipeline)
	c.Poller.Merge(&overlay.Poller)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Archive.Finalize(); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	if err := c.Reasoning.Finalize(); err != nil {
		return fmt.Errorf("reasoning: %w", err)
	}
	if err := c.Pipeline.Finalize(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := c.Poller.Finalize(); err != nil {
		return fmt.Errorf("poller: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvArchivarShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvArchivarVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvArchivarEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
