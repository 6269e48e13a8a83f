// Package config loads and finalizes the root service configuration from
// TOML files and environment variables. A base config.toml may be overlaid
// by config.<env>.toml selected via APPRAISE_ENV; environment variables
// override both.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/finlight/appraise/internal/auth"
	"github.com/finlight/appraise/internal/intelligence"
	"github.com/finlight/appraise/internal/pipeline"
	"github.com/finlight/appraise/pkg/database"
	"github.com/finlight/appraise/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvAppraiseEnv             = "APPRAISE_ENV"
	EnvAppraiseShutdownTimeout = "APPRAISE_SHUTDOWN_TIMEOUT"
	EnvAppraiseVersion         = "APPRAISE_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "APPRAISE_DB_HOST",
	Port:            "APPRAISE_DB_PORT",
	Name:            "APPRAISE_DB_NAME",
	User:            "APPRAISE_DB_USER",
	Password:        "APPRAISE_DB_PASSWORD",
	SSLMode:         "APPRAISE_DB_SSL_MODE",
	MaxOpenConns:    "APPRAISE_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "APPRAISE_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "APPRAISE_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "APPRAISE_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "APPRAISE_STORAGE_CONTAINER_NAME",
	ConnectionString: "APPRAISE_STORAGE_CONNECTION_STRING",
}

var authEnv = &auth.Env{
	Issuer:   "APPRAISE_AUTH_ISSUER",
	Audience: "APPRAISE_AUTH_AUDIENCE",
}

var intelligenceEnv = &intelligence.Env{
	ExtractURL: "APPRAISE_INTELLIGENCE_EXTRACT_URL",
	ValuateURL: "APPRAISE_INTELLIGENCE_VALUATE_URL",
	APIKey:     "APPRAISE_INTELLIGENCE_API_KEY",
	Timeout:    "APPRAISE_INTELLIGENCE_TIMEOUT",
}

var pipelineEnv = &pipeline.Env{
	ExtractionConcurrency: "APPRAISE_PIPELINE_EXTRACTION_CONCURRENCY",
	StaleProcessingAfter:  "APPRAISE_PIPELINE_STALE_PROCESSING_AFTER",
	RejectCompleted:       "APPRAISE_PIPELINE_REJECT_COMPLETED",
}

// Config is the root configuration for the Appraise service.
type Config struct {
	Server          ServerConfig        `toml:"server"`
	Database        database.Config     `toml:"database"`
	Storage         storage.Config      `toml:"storage"`
	Auth            auth.Config         `toml:"auth"`
	Intelligence    intelligence.Config `toml:"intelligence"`
	Pipeline        pipeline.Config     `toml:"pipeline"`
	API             APIConfig           `toml:"api"`
	ShutdownTimeout string              `toml:"shutdown_timeout"`
	Version         string              `toml:"version"`
}

// Env returns the APPRAISE_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvAppraiseEnv); env != "" {
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
	c.Storage.Merge(&overlay.Storage)
	c.Auth.Merge(&overlay.Auth)
	c.Intelligence.Merge(&overlay.Intelligence)
	c.Pipeline.Merge(&overlay.Pipeline)
	c.API.Merge(&overlay.API)
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
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Intelligence.Finalize(intelligenceEnv); err != nil {
		return fmt.Errorf("intelligence: %w", err)
	}
	if err := c.Pipeline.Finalize(pipelineEnv); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
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
	if v := os.Getenv(EnvAppraiseShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvAppraiseVersion); v != "" {
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
	if env := os.Getenv(EnvAppraiseEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
