package motion

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}

	if cfg.GracePeriod != 2*time.Second {
		t.Errorf("GracePeriod = %v, want 2s", cfg.GracePeriod)
	}
	if cfg.BodyGain != 0.08 || cfg.HeadGain != 0.12 || cfg.EyeGain != 0.25 {
		t.Errorf("gains = %v/%v/%v, want 0.08/0.12/0.25", cfg.BodyGain, cfg.HeadGain, cfg.EyeGain)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero head gain", func(c *Config) { c.HeadGain = 0 }},
		{"gain above one", func(c *Config) { c.EyeGain = 1.5 }},
		{"negative blink", func(c *Config) { c.BlinkRate = -0.1 }},
		{"negative grace", func(c *Config) { c.GracePeriod = -time.Second }},
		{"zero limit", func(c *Config) { c.Limits.HeadY = 0 }},
		{"decay zero", func(c *Config) { c.Decay = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
