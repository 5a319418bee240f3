// Package config provides the simulator configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mipsim/bus"
	"github.com/sarchlab/mipsim/timing/cache"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

// BusLayout overrides the default field layout of one bus.
type BusLayout struct {
	// Name is the bus name, such as "DS_TO_ES".
	Name bus.Name `json:"name"`

	// Fields lists the fields from most to least significant.
	Fields []bus.Field `json:"fields"`
}

// DCacheConfig holds the optional L1 data cache settings.
type DCacheConfig struct {
	// Enabled puts the data cache between the memory stage and memory.
	Enabled bool `json:"enabled"`

	cache.Config
}

// Config holds the simulator configuration.
// Values can be loaded from a JSON file; missing keys keep their defaults.
type Config struct {
	// Buses overrides default bus layouts. Buses not listed keep theirs.
	Buses []BusLayout `json:"buses,omitempty"`

	// DCache configures the L1 data cache.
	DCache DCacheConfig `json:"dcache"`

	// MaxCycles stops the pipeline after this many cycles. 0 means no limit.
	MaxCycles uint64 `json:"max_cycles"`

	// LogLevel is a logrus level name.
	LogLevel string `json:"log_level"`
}

// DefaultConfig returns the default configuration: default bus layouts,
// no data cache, no cycle limit and warning-level logging.
func DefaultConfig() *Config {
	return &Config{
		DCache: DCacheConfig{
			Enabled: false,
			Config:  cache.DefaultConfig(),
		},
		MaxCycles: 0,
		LogLevel:  logrus.WarnLevel.String(),
	}
}

// Load loads a configuration from a JSON file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	c := DefaultConfig()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return c, nil
}

// Save saves the configuration to a JSON file.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}

	if c.DCache.Enabled {
		if err := validateCache(c.DCache.Config); err != nil {
			return err
		}
	}

	if _, err := c.Registry(); err != nil {
		return err
	}

	return nil
}

func validateCache(cc cache.Config) error {
	switch {
	case cc.BlockSize <= 0 || cc.BlockSize%4 != 0:
		return fmt.Errorf("dcache.block_size must be a positive multiple of 4")
	case cc.Associativity <= 0:
		return fmt.Errorf("dcache.associativity must be > 0")
	case cc.Size <= 0 || cc.Size%(cc.Associativity*cc.BlockSize) != 0:
		return fmt.Errorf("dcache.size must be a positive multiple of associativity * block_size")
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() (logrus.Level, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// Registry builds a frozen bus registry holding the default layouts with
// the configured overrides applied. Overrides must still carry every field
// the pipeline stages use at no less than its working width.
func (c *Config) Registry() (*bus.Registry, error) {
	r := bus.NewRegistry()
	if err := r.DeclareDefaults(); err != nil {
		return nil, err
	}

	for _, b := range c.Buses {
		if err := r.DeclareLayout(b.Name, b.Fields); err != nil {
			return nil, fmt.Errorf("buses: %w", err)
		}
	}

	if err := pipeline.CheckLayouts(r); err != nil {
		return nil, fmt.Errorf("buses: %w", err)
	}

	r.Freeze()
	return r, nil
}

// PipelineOptions returns the pipeline options the configuration implies.
func (c *Config) PipelineOptions() ([]pipeline.PipelineOption, error) {
	r, err := c.Registry()
	if err != nil {
		return nil, err
	}

	opts := []pipeline.PipelineOption{
		pipeline.WithRegistry(r),
		pipeline.WithMaxCycles(c.MaxCycles),
	}
	if c.DCache.Enabled {
		opts = append(opts, pipeline.WithDCache(c.DCache.Config))
	}

	return opts, nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c

	if c.Buses != nil {
		clone.Buses = make([]BusLayout, len(c.Buses))
		for i, b := range c.Buses {
			clone.Buses[i] = BusLayout{
				Name:   b.Name,
				Fields: append([]bus.Field(nil), b.Fields...),
			}
		}
	}

	return &clone
}
