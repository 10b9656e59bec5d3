package executors

import (
	"testing"
	"time"
)

func TestGetConfigDefaults(t *testing.T) {
	cfg := GetConfig()

	if cfg.RiskLevel != "balanced" || cfg.AccountBalance != 10000 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ConfidenceThreshold != 50 || cfg.MaxPositions != 5 {
		t.Fatalf("unexpected gate defaults: %+v", cfg)
	}
	if len(cfg.Symbols) != 4 || cfg.Symbols[0] != "BTCUSDT" {
		t.Fatalf("unexpected symbols: %v", cfg.Symbols)
	}
	if cfg.CycleInterval != 5*time.Minute || cfg.SymbolPause != 2*time.Second {
		t.Fatalf("unexpected timings: %s %s", cfg.CycleInterval, cfg.SymbolPause)
	}
	if cfg.RunContinuous {
		t.Fatalf("expected single-cycle mode by default")
	}
}

func TestGetConfigFromEnv(t *testing.T) {
	t.Setenv("RISK_LEVEL", "aggressive")
	t.Setenv("SYMBOLS", "BTCUSDT,ETHUSDT")
	t.Setenv("CONFIDENCE_THRESHOLD", "70")

	cfg := GetConfig()
	if cfg.RiskLevel != "aggressive" || cfg.ConfidenceThreshold != 70 || len(cfg.Symbols) != 2 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}

	params := cfg.RiskParams()
	if params.ConfidenceThreshold != 70 || params.MaxPositionSize != 0.05 {
		t.Fatalf("unexpected risk params: %+v", params)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown risk level", func(c *Config) { c.RiskLevel = "yolo" }},
		{"non-positive balance", func(c *Config) { c.AccountBalance = 0 }},
		{"threshold above 100", func(c *Config) { c.ConfidenceThreshold = 101 }},
		{"zero max positions", func(c *Config) { c.MaxPositions = 0 }},
		{"no symbols", func(c *Config) { c.Symbols = nil }},
		{"empty symbol", func(c *Config) { c.Symbols = []string{"BTCUSDT", ""} }},
		{"zero interval", func(c *Config) { c.CycleInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestGetConfigPanicsOnInvalidEnv(t *testing.T) {
	t.Setenv("RISK_LEVEL", "reckless")
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for invalid risk level")
		}
	}()
	GetConfig()
}
