package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Addr == "" {
		t.Error("addr should not be empty")
	}
	if cfg.Sweep.Samples < 2 {
		t.Error("sweep samples should be at least 2")
	}
	if cfg.Limits.MaxOrder <= 0 {
		t.Error("max order should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctrlab.yaml")

	cfg := DefaultConfig()
	cfg.Server.Addr = "0.0.0.0:9000"
	cfg.Sweep.Samples = 500
	cfg.Limits.MaxOrder = 12

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Server.Addr != "0.0.0.0:9000" {
		t.Errorf("expected addr 0.0.0.0:9000, got %s", loaded.Server.Addr)
	}
	if loaded.Sweep.Samples != 500 {
		t.Errorf("expected 500 samples, got %d", loaded.Sweep.Samples)
	}
	if loaded.Limits.MaxOrder != 12 {
		t.Errorf("expected max order 12, got %d", loaded.Limits.MaxOrder)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"inverted sweep", func(c *Config) { c.Sweep.LoExp, c.Sweep.HiExp = 4, -4 }},
		{"too few samples", func(c *Config) { c.Sweep.Samples = 1 }},
		{"zero max order", func(c *Config) { c.Limits.MaxOrder = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
