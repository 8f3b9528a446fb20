package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/wboerner/archivar/internal/poller"
)

const (
	EnvPollerEnabled          = "ARCHIVAR_POLLER_ENABLED"
	EnvPollerInterval         = "ARCHIVAR_POLLER_INTERVAL"
	EnvPollerDocumentDelay    = "ARCHIVAR_POLLER_DOCUMENT_DELAY"
	EnvPollerMonthlyBudgetUSD = "ARCHIVAR_POLLER_MONTHLY_BUDGET_USD"
)

// PollerConfig holds polling loop timing and spend limits.
type PollerConfig struct {
	Enabled          *bool   `toml:"enabled"`
	Interval         string  `toml:"interval"`
	DocumentDelay    string  `toml:"document_delay"`
	MonthlyBudgetUSD float64 `toml:"monthly_budget_usd"`
}

// IsEnabled reports whether the polling loop should run.
func (c *PollerConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// IntervalDuration returns Interval as a time.Duration.
func (c *PollerConfig) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
}

// DocumentDelayDuration returns DocumentDelay as a time.Duration.
func (c *PollerConfig) DocumentDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.DocumentDelay)
	return d
}

// PollerOptions returns the poller runtime configuration.
func (c *PollerConfig) PollerOptions() poller.Config {
	return poller.Config{
		Interval:         c.IntervalDuration(),
		DocumentDelay:    c.DocumentDelayDuration(),
		MonthlyBudgetUSD: c.MonthlyBudgetUSD,
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PollerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *PollerConfig) Merge(overlay *PollerConfig) {
	if overlay.Enabled != nil {
		c.Enabled = overlay.Enabled
	}
	if overlay.Interval != "" {
		c.Interval = overlay.Interval
	}
	if overlay.DocumentDelay != "" {
		c.DocumentDelay = overlay.DocumentDelay
	}
	if overlay.MonthlyBudgetUSD != 0 {
		c.MonthlyBudgetUSD = overlay.MonthlyBudgetUSD
	}
}

func (c *PollerConfig) loadDefaults() {
	if c.Interval == "" {
		c.Interval = "5m"
	}
	if c.DocumentDelay == "" {
		c.DocumentDelay = "2s"
	}
	if c.MonthlyBudgetUSD == 0 {
		c.MonthlyBudgetUSD = 25.0
	}
}

func (c *PollerConfig) loadEnv() {
	if v := os.Getenv(EnvPollerEnabled); v != "" {
		enabled := parseBool(v)
		c.Enabled = &enabled
	}
	if v := os.Getenv(EnvPollerInterval); v != "" {
		c.Interval = v
	}
	if v := os.Getenv(EnvPollerDocumentDelay); v != "" {
		c.DocumentDelay = v
	}
	if v := os.Getenv(EnvPollerMonthlyBudgetUSD); v != "" {
		if budget, err := strconv.ParseFloat(v, 64); err == nil {
			c.MonthlyBudgetUSD = budget
		}
	}
}

func (c *PollerConfig) validate() error {
	if _, err := time.ParseDuration(c.Interval); err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	}
	if _, err := time.ParseDuration(c.DocumentDelay); err != nil {
		return fmt.Errorf("invalid document_delay: %w", err)
	}
	if c.MonthlyBudgetUSD < 0 {
		return fmt.Errorf("invalid monthly_budget_usd: %v", c.MonthlyBudgetUSD)
	}
	return nil
}
