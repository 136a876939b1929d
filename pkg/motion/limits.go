package motion

import (
	"fmt"
	"math"
)

// Limits are the per-channel rotation limits in degrees (symmetric ±).
// Eye limits are multiplied by Config.EyeReach before use.
type Limits struct {
	BodyY float64 `json:"body_y" yaml:"body_y"`
	HeadX float64 `json:"head_x" yaml:"head_x"`
	HeadY float64 `json:"head_y" yaml:"head_y"`
	EyeX  float64 `json:"eye_x" yaml:"eye_x"`
	EyeY  float64 `json:"eye_y" yaml:"eye_y"`
}

// DefaultLimits returns the avatar rig limits.
func DefaultLimits() Limits {
	return Limits{
		BodyY: 45,
		HeadX: 30,
		HeadY: 25,
		EyeX:  20,
		EyeY:  15,
	}
}

// Validate requires every limit to be positive.
func (l Limits) Validate() error {
	for name, v := range map[string]float64{
		"body_y": l.BodyY, "head_x": l.HeadX, "head_y": l.HeadY, "eye_x": l.EyeX, "eye_y": l.EyeY,
	} {
		if v <= 0 {
			return fmt.Errorf("%w: limit %s must be positive, got %v", ErrInvalidConfig, name, v)
		}
	}
	return nil
}

// WithinLimits reports whether every channel of s lies inside its limit.
// eyeReach scales the eye limits.
func (s Rotations) WithinLimits(l Limits, eyeReach float64) bool {
	const eps = 1e-9
	return math.Abs(s.BodyY) <= l.BodyY+eps &&
		math.Abs(s.HeadX) <= l.HeadX+eps &&
		math.Abs(s.HeadY) <= l.HeadY+eps &&
		math.Abs(s.EyeX) <= l.EyeX*eyeReach+eps &&
		math.Abs(s.EyeY) <= l.EyeY*eyeReach+eps
}
