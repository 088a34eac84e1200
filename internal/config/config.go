package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/vlab/internal/clock"
)

const (
	DefaultExperiment = "titration"
	DefaultTheme      = "lab"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
	DefaultAddr       = ":8080"
	// DefaultMaxTicks bounds a headless run.
	DefaultMaxTicks = 100000
)

type Config struct {
	Experiment string             `yaml:"experiment"`
	Params     map[string]float64 `yaml:"params,omitempty"`
	Clock      ClockConfig        `yaml:"clock"`
	Log        LogConfig          `yaml:"log"`
	Theme      string             `yaml:"theme"`
	Server     ServerConfig       `yaml:"server"`
}

type ClockConfig struct {
	TitrationInterval time.Duration `yaml:"titration_interval"`
	FrameInterval     time.Duration `yaml:"frame_interval"`
	MaxTicks          int           `yaml:"max_ticks"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

func DefaultConfig() *Config {
	return &Config{
		Experiment: DefaultExperiment,
		Clock: ClockConfig{
			TitrationInterval: clock.TitrationInterval,
			FrameInterval:     clock.FrameInterval,
			MaxTicks:          DefaultMaxTicks,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Theme:  DefaultTheme,
		Server: ServerConfig{Addr: DefaultAddr},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the settings that do not depend on the experiment catalogue.
func (c *Config) Validate() error {
	if c.Clock.TitrationInterval <= 0 {
		return fmt.Errorf("clock.titration_interval must be positive, got %s", c.Clock.TitrationInterval)
	}
	if c.Clock.FrameInterval <= 0 {
		return fmt.Errorf("clock.frame_interval must be positive, got %s", c.Clock.FrameInterval)
	}
	if c.Clock.MaxTicks <= 0 {
		return fmt.Errorf("clock.max_ticks must be positive, got %d", c.Clock.MaxTicks)
	}
	return nil
}

// Merge overlays the non-zero fields of other onto a copy of c. Params are
// merged key by key.
func (c *Config) Merge(other *Config) *Config {
	out := c.Clone()
	if other == nil {
		return out
	}
	if other.Experiment != "" {
		out.Experiment = other.Experiment
	}
	for k, v := range other.Params {
		if out.Params == nil {
			out.Params = make(map[string]float64)
		}
		out.Params[k] = v
	}
	if other.Clock.TitrationInterval > 0 {
		out.Clock.TitrationInterval = other.Clock.TitrationInterval
	}
	if other.Clock.FrameInterval > 0 {
		out.Clock.FrameInterval = other.Clock.FrameInterval
	}
	if other.Clock.MaxTicks > 0 {
		out.Clock.MaxTicks = other.Clock.MaxTicks
	}
	if other.Log.Level != "" {
		out.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		out.Log.Format = other.Log.Format
	}
	if other.Theme != "" {
		out.Theme = other.Theme
	}
	if other.Server.Addr != "" {
		out.Server.Addr = other.Server.Addr
	}
	return out
}

func (c *Config) Clone() *Config {
	out := *c
	if c.Params != nil {
		out.Params = make(map[string]float64, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	return &out
}
