// Package motion turns face positions into smoothed avatar joint rotations.
//
// A Controller is a small state machine with three modes:
//   - Active: a face is detected; rotations chase targets with exponential smoothing
//   - Grace:  detection was lost recently; rotations decay toward center
//   - Idle:   detection has been lost for longer than the grace period; a
//     time-only idle animation plays
//
// The controller never reads the wall clock or a global RNG. Callers pass
// the tick timestamp to Advance and inject a RandSource for blinks.
package motion

import (
	"fmt"
	"time"
)

// Config holds the tunable constants of the motion pipeline.
// All angles are in degrees.
type Config struct {
	Limits Limits `json:"limits" yaml:"limits"`

	// EyeReach scales the eye limits so the eyes look past the head.
	EyeReach float64 `json:"eye_reach" yaml:"eye_reach"`

	// BodyThreshold is the |nx| the face must exceed before the body turns.
	BodyThreshold float64 `json:"body_threshold" yaml:"body_threshold"`

	// DistanceGain controls how much a close face amplifies motion:
	// factor = 1 + (0.5 - z) * DistanceGain.
	DistanceGain float64 `json:"distance_gain" yaml:"distance_gain"`

	// Per-tick fraction of remaining error closed by smoothing (0-1).
	BodyGain float64 `json:"body_gain" yaml:"body_gain"`
	HeadGain float64 `json:"head_gain" yaml:"head_gain"`
	EyeGain  float64 `json:"eye_gain" yaml:"eye_gain"`

	// Cross-coupling applied when composing output.
	BodyToHead float64 `json:"body_to_head" yaml:"body_to_head"`
	HeadToEye  float64 `json:"head_to_eye" yaml:"head_to_eye"`

	// GracePeriod is how long after losing detection the decay animation runs
	// before switching to idle.
	GracePeriod time.Duration `json:"grace_period" yaml:"grace_period"`

	// Decay is the per-tick fraction removed from every channel during grace.
	Decay float64 `json:"decay" yaml:"decay"`

	// Blink probability per tick.
	BlinkRate     float64 `json:"blink_rate" yaml:"blink_rate"`
	IdleBlinkRate float64 `json:"idle_blink_rate" yaml:"idle_blink_rate"`
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		Limits:        DefaultLimits(),
		EyeReach:      1.5,
		BodyThreshold: 0.3,
		DistanceGain:  0.3,

		BodyGain: 0.08,
		HeadGain: 0.12,
		EyeGain:  0.25,

		BodyToHead: 0.3,
		HeadToEye:  0.5,

		GracePeriod: 2 * time.Second,
		Decay:       0.05,

		BlinkRate:     0.008,
		IdleBlinkRate: 0.005,
	}
}

// Validate checks that gains and probabilities are usable.
func (c *Config) Validate() error {
	for _, g := range []struct {
		name string
		v    float64
	}{
		{"body_gain", c.BodyGain},
		{"head_gain", c.HeadGain},
		{"eye_gain", c.EyeGain},
		{"decay", c.Decay},
	} {
		if g.v <= 0 || g.v > 1 {
			return fmt.Errorf("%w: %s must be in (0,1], got %v", ErrInvalidConfig, g.name, g.v)
		}
	}
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"blink_rate", c.BlinkRate},
		{"idle_blink_rate", c.IdleBlinkRate},
	} {
		if p.v < 0 || p.v > 1 {
			return fmt.Errorf("%w: %s must be in [0,1], got %v", ErrInvalidConfig, p.name, p.v)
		}
	}
	if c.GracePeriod < 0 {
		return fmt.Errorf("%w: grace_period must not be negative", ErrInvalidConfig)
	}
	if c.BodyThreshold < 0 {
		return fmt.Errorf("%w: body_threshold must not be negative", ErrInvalidConfig)
	}
	return c.Limits.Validate()
}
