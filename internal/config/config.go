package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAddr     = "127.0.0.1:8000"
	DefaultSweepLo  = -4.0
	DefaultSweepHi  = 4.0
	DefaultSamples  = 2000
	DefaultMaxOrder = 24
	DefaultSafety   = 5.0
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Sweep  SweepConfig  `yaml:"sweep"`
	Limits LimitsConfig `yaml:"limits"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	StaticDir   string `yaml:"static_dir"`
	OpenBrowser bool   `yaml:"open_browser"`
}

// SweepConfig controls the frequency sweep behind comparison plots.
// Exponents are powers of ten.
type SweepConfig struct {
	LoExp   float64 `yaml:"lo_exp"`
	HiExp   float64 `yaml:"hi_exp"`
	Samples int     `yaml:"samples"`
}

// LimitsConfig bounds request size so worst-case latency stays bounded;
// there is no per-request timeout mechanism.
type LimitsConfig struct {
	MaxOrder int `yaml:"max_order"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: DefaultAddr,
		},
		Sweep: SweepConfig{
			LoExp:   DefaultSweepLo,
			HiExp:   DefaultSweepHi,
			Samples: DefaultSamples,
		},
		Limits: LimitsConfig{
			MaxOrder: DefaultMaxOrder,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
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

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr must not be empty")
	}
	if c.Sweep.HiExp <= c.Sweep.LoExp {
		return fmt.Errorf("sweep hi_exp (%g) must exceed lo_exp (%g)", c.Sweep.HiExp, c.Sweep.LoExp)
	}
	if c.Sweep.Samples < 2 {
		return fmt.Errorf("sweep samples must be at least 2, got %d", c.Sweep.Samples)
	}
	if c.Limits.MaxOrder < 1 {
		return fmt.Errorf("max order must be positive, got %d", c.Limits.MaxOrder)
	}
	return nil
}
