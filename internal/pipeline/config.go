// Package pipeline holds tuning parameters shared by the extraction and
// valuation phase controllers.
package pipeline

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds phase controller tuning parameters.
//
// ExtractionConcurrency bounds the number of documents processed at once
// during an extraction run. The default of 1 keeps processing strictly
// sequential in insertion order, which is required to stay under the
// intelligence service's rate limit.
//
// StaleProcessingAfter is the age beyond which a row stuck in processing
// (left behind by an abandoned run) becomes eligible for re-processing.
//
// RejectCompleted, when set, refuses valuation of a report that has already
// completed instead of re-running and overwriting the prior result.
type Config struct {
	ExtractionConcurrency int    `toml:"extraction_concurrency"`
	StaleProcessingAfter  string `toml:"stale_processing_after"`
	RejectCompleted       bool   `toml:"reject_completed"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	ExtractionConcurrency string
	StaleProcessingAfter  string
	RejectCompleted       string
}

// StaleProcessingAfterDuration returns StaleProcessingAfter as a time.Duration.
func (c *Config) StaleProcessingAfterDuration() time.Duration {
	d, _ := time.ParseDuration(c.StaleProcessingAfter)
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

// Merge overwrites non-zero fields from overlay. RejectCompleted always applies.
func (c *Config) Merge(overlay *Config) {
	if overlay.ExtractionConcurrency != 0 {
		c.ExtractionConcurrency = overlay.ExtractionConcurrency
	}
	if overlay.StaleProcessingAfter != "" {
		c.StaleProcessingAfter = overlay.StaleProcessingAfter
	}
	c.RejectCompleted = overlay.RejectCompleted
}

func (c *Config) loadDefaults() {
	if c.ExtractionConcurrency == 0 {
		c.ExtractionConcurrency = 1
	}
	if c.StaleProcessingAfter == "" {
		c.StaleProcessingAfter = "15m"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.ExtractionConcurrency != "" {
		if v := os.Getenv(env.ExtractionConcurrency); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.ExtractionConcurrency = n
			}
		}
	}
	if env.StaleProcessingAfter != "" {
		if v := os.Getenv(env.StaleProcessingAfter); v != "" {
			c.StaleProcessingAfter = v
		}
	}
	if env.RejectCompleted != "" {
		if v := os.Getenv(env.RejectCompleted); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.RejectCompleted = b
			}
		}
	}
}

func (c *Config) validate() error {
	if c.ExtractionConcurrency < 1 {
		return fmt.Errorf("extraction_concurrency must be positive")
	}
	if _, err := time.ParseDuration(c.StaleProcessingAfter); err != nil {
		return fmt.Errorf("invalid stale_processing_after: %w", err)
	}
	return nil
}
