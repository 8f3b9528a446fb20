package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvReasoningAPIKey       = "ARCHIVAR_REASONING_API_KEY"
	EnvReasoningCapableModel = "ARCHIVAR_REASONING_CAPABLE_MODEL"
	EnvReasoningFastModel    = "ARCHIVAR_REASONING_FAST_MODEL"
	EnvReasoningMaxTokens    = "ARCHIVAR_REASONING_MAX_TOKENS"
)

// ReasoningConfig holds the reasoning-service credentials and tier models.
type ReasoningConfig struct {
	APIKey       string `toml:"api_key"`
	CapableModel string `toml:"capable_model"`
	FastModel    string `toml:"fast_model"`
	MaxTokens    int64  `toml:"max_tokens"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ReasoningConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ReasoningConfig) Merge(overlay *ReasoningConfig) {
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.CapableModel != "" {
		c.CapableModel = overlay.CapableModel
	}
	if overlay.FastModel != "" {
		c.FastModel = overlay.FastModel
	}
	if overlay.MaxTokens != 0 {
		c.MaxTokens = overlay.MaxTokens
	}
}

func (c *ReasoningConfig) loadDefaults() {
	if c.CapableModel == "" {
		c.CapableModel = "claude-sonnet-4-5-20250929"
	}
	if c.FastModel == "" {
		c.FastModel = "claude-haiku-4-5-20251001"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2048
	}
}

func (c *ReasoningConfig) loadEnv() {
	if v := os.Getenv(EnvReasoningAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvReasoningCapableModel); v != "" {
		c.CapableModel = v
	}
	if v := os.Getenv(EnvReasoningFastModel); v != "" {
		c.FastModel = v
	}
	if v := os.Getenv(EnvReasoningMaxTokens); v != "" {
		if tokens, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.MaxTokens = tokens
		}
	}
}

func (c *ReasoningConfig) validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key required")
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("invalid max_tokens: %d", c.MaxTokens)
	}
	return nil
}
