// Package config loads the rig configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Normalize.
const (
	DefaultBaudRate      = 19200
	DefaultUnitID        = 6
	DefaultPositionsFile = "positions.json"
)

// Collector describes the serial link to the fraction collector.
type Collector struct {
	Port   string `yaml:"port"`
	Baud   int    `yaml:"baud"`
	UnitID int    `yaml:"unit_id"`
}

// Collection holds the timing of one automated collection cycle.
// All values are seconds.
type Collection struct {
	MeasureSeconds       float64 `yaml:"measure_seconds"`
	TubingDelaySeconds   float64 `yaml:"tubing_delay_seconds"`
	InternalDelaySeconds float64 `yaml:"internal_delay_seconds"`
}

// Config is the root of the rig configuration file.
type Config struct {
	Collector     Collector  `yaml:"collector"`
	PositionsFile string     `yaml:"positions_file"`
	Collection    Collection `yaml:"collection"`
}

// Default returns a configuration with all defaults filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.Normalize()

	return cfg
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Normalize fills unset fields with their defaults.
func (c *Config) Normalize() {
	if c.Collector.Baud == 0 {
		c.Collector.Baud = DefaultBaudRate
	}

	if c.PositionsFile == "" {
		c.PositionsFile = DefaultPositionsFile
	}
}

// Validate checks field ranges after Normalize.
func (c *Config) Validate() error {
	if c.Collector.UnitID < 0 || c.Collector.UnitID > 63 {
		return fmt.Errorf("config: unit_id %d out of range [0, 63]", c.Collector.UnitID)
	}

	if c.Collector.Baud <= 0 {
		return fmt.Errorf("config: baud %d must be positive", c.Collector.Baud)
	}

	if c.Collection.MeasureSeconds < 0 {
		return fmt.Errorf("config: measure_seconds must not be negative")
	}

	if c.Collection.TubingDelaySeconds < 0 {
		return fmt.Errorf("config: tubing_delay_seconds must not be negative")
	}

	if c.Collection.InternalDelaySeconds < 0 {
		return fmt.Errorf("config: internal_delay_seconds must not be negative")
	}

	return nil
}

// CollectionWait returns how long the head stays at a collection position:
// the measurement window plus the dead volume delay of the tubing, minus the
// instrument's own internal latency, floored at zero.
func (c *Config) CollectionWait() time.Duration {
	seconds := c.Collection.MeasureSeconds +
		c.Collection.TubingDelaySeconds -
		c.Collection.InternalDelaySeconds

	if seconds < 0 {
		seconds = 0
	}

	return time.Duration(seconds * float64(time.Second))
}
