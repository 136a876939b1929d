package motion

import "time"

// Mode is the controller's tracking mode.
type Mode int

const (
	// ModeGrace decays toward center after detection is lost.
	ModeGrace Mode = iota
	// ModeActive follows a detected face.
	ModeActive
	// ModeIdle plays the time-only idle animation.
	ModeIdle
)

// String returns the lowercase mode name used in logs and metrics.
func (m Mode) String() string {
	switch m {
	case ModeActive:
		return "active"
	case ModeGrace:
		return "grace"
	case ModeIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// Rotations is one value per animated channel, in degrees.
type Rotations struct {
	BodyY float64 `json:"body_y"`
	HeadX float64 `json:"head_x"`
	HeadY float64 `json:"head_y"`
	EyeX  float64 `json:"eye_x"`
	EyeY  float64 `json:"eye_y"`
}

// Scale returns r with every channel multiplied by k.
func (r Rotations) Scale(k float64) Rotations {
	return Rotations{
		BodyY: r.BodyY * k,
		HeadX: r.HeadX * k,
		HeadY: r.HeadY * k,
		EyeX:  r.EyeX * k,
		EyeY:  r.EyeY * k,
	}
}

// State is the mutable motion state of one controller.
type State struct {
	Rotations

	LastDetection time.Time `json:"last_detection"`
	IdleStart     time.Time `json:"idle_start"`
}
