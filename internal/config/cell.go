package config

import "sync/atomic"

// Cell holds the current configuration behind an atomic pointer so readers
// never see a partially applied update.
type Cell struct {
	p atomic.Pointer[Config]
}

// NewCell creates a cell holding cfg (or the defaults when nil).
func NewCell(cfg *Config) *Cell {
	c := &Cell{}
	if cfg == nil {
		cfg = Default()
	}
	c.p.Store(cfg)
	return c
}

// Current returns the active configuration. The returned value must be
// treated as read-only.
func (c *Cell) Current() *Config {
	return c.p.Load()
}

// Swap installs a new configuration after validating it.
func (c *Cell) Swap(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.p.Store(cfg)
	return nil
}

// Reset restores the defaults.
func (c *Cell) Reset() {
	c.p.Store(Default())
}
