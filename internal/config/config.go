// Package config defines the validated runtime configuration, YAML file
// loading, and hot reload.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/agent-recall/internal/promotion"
	"github.com/rcliao/agent-recall/internal/scoring"
	"github.com/rcliao/agent-recall/internal/shortterm"
	"github.com/rcliao/agent-recall/internal/store"
)

// Promotion configures the promotion engine and scheduler.
type Promotion struct {
	Threshold      float64       `yaml:"threshold"`
	CloseThreshold float64       `yaml:"close_threshold"`
	MaxPerRun      int           `yaml:"max_per_run"`
	Interval       time.Duration `yaml:"interval"`
	Enabled        bool          `yaml:"enabled"`
}

// Capacities bounds the short-term containers and the per-session store cap.
type Capacities struct {
	WorkingBudget int `yaml:"working_budget"`
	PendingCap    int `yaml:"pending_cap"`
	AccessLogCap  int `yaml:"access_log_cap"`
	SessionCap    int `yaml:"session_cap"`
}

// Config is the full runtime configuration.
type Config struct {
	Weights      scoring.Weights `yaml:"weights"`
	FrequencyCap int             `yaml:"frequency_cap"`
	Promotion    Promotion       `yaml:"promotion"`
	BudgetTotal  int             `yaml:"budget_total"`
	Capacities   Capacities      `yaml:"capacities"`
}

// Default returns the standard configuration.
func Default() *Config {
	return &Config{
		Weights:      scoring.DefaultWeights(),
		FrequencyCap: scoring.DefaultFrequencyCap,
		Promotion: Promotion{
			Threshold:      promotion.DefaultThreshold,
			CloseThreshold: promotion.DefaultCloseThreshold,
			MaxPerRun:      promotion.DefaultMaxPerRun,
			Interval:       promotion.DefaultInterval,
			Enabled:        true,
		},
		BudgetTotal: 32000,
		Capacities: Capacities{
			WorkingBudget: shortterm.DefaultWorkingBudget,
			PendingCap:    shortterm.DefaultPendingCap,
			AccessLogCap:  shortterm.DefaultAccessLogCap,
			SessionCap:    store.DefaultSessionCap,
		},
	}
}

// Validate rejects out-of-range values with errors naming the field.
func (c *Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.FrequencyCap < 1 {
		return fmt.Errorf("config: frequency_cap must be >= 1, got %d", c.FrequencyCap)
	}
	if c.Promotion.Threshold < 0 || c.Promotion.Threshold > 1 {
		return fmt.Errorf("config: promotion.threshold must be in [0,1], got %v", c.Promotion.Threshold)
	}
	if c.Promotion.CloseThreshold < 0 || c.Promotion.CloseThreshold > 1 {
		return fmt.Errorf("config: promotion.close_threshold must be in [0,1], got %v", c.Promotion.CloseThreshold)
	}
	if c.Promotion.MaxPerRun < 1 {
		return fmt.Errorf("config: promotion.max_per_run must be >= 1, got %d", c.Promotion.MaxPerRun)
	}
	if c.Promotion.Interval <= 0 {
		return fmt.Errorf("config: promotion.interval must be > 0, got %v", c.Promotion.Interval)
	}
	if c.BudgetTotal <= 0 {
		return fmt.Errorf("config: budget_total must be > 0, got %d", c.BudgetTotal)
	}
	for _, f := range []struct {
		name  string
		value int
	}{
		{"working_budget", c.Capacities.WorkingBudget},
		{"pending_cap", c.Capacities.PendingCap},
		{"access_log_cap", c.Capacities.AccessLogCap},
		{"session_cap", c.Capacities.SessionCap},
	} {
		if f.value < 1 {
			return fmt.Errorf("config: capacities.%s must be >= 1, got %d", f.name, f.value)
		}
	}
	return nil
}

// Load reads and validates a YAML config file. Absent fields keep their
// defaults; unknown fields are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse unmarshals YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
