package intelligence

import (
	"fmt"
	"os"
	"time"
)

// Config holds intelligence service endpoints and call parameters.
type Config struct {
	ExtractURL string `toml:"extract_url"`
	ValuateURL string `toml:"valuate_url"`
	APIKey     string `toml:"api_key"`
	Timeout    string `toml:"timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	ExtractURL string
	ValuateURL string
	APIKey     string
	Timeout    string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.ExtractURL != "" {
		c.ExtractURL = overlay.ExtractURL
	}
	if overlay.ValuateURL != "" {
		c.ValuateURL = overlay.ValuateURL
	}
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

func (c *Config) loadDefaults() {
	if c.Timeout == "" {
		// Extraction of a large scanned PDF can take minutes.
		c.Timeout = "5m"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.ExtractURL != "" {
		if v := os.Getenv(env.ExtractURL); v != "" {
			c.ExtractURL = v
		}
	}
	if env.ValuateURL != "" {
		if v := os.Getenv(env.ValuateURL); v != "" {
			c.ValuateURL = v
		}
	}
	if env.APIKey != "" {
		if v := os.Getenv(env.APIKey); v != "" {
			c.APIKey = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
}

func (c *Config) validate() error {
	if c.ExtractURL == "" {
		return fmt.Errorf("extract_url required")
	}
	if c.ValuateURL == "" {
		return fmt.Errorf("valuate_url required")
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	return nil
}
