package source

import (
	"context"
	"math"
	"time"

	"github.com/teslashibe/go-avatar/pkg/protocol"
)

const syntheticConfidence = 0.7

// Synthetic traces a slow orbit around the frame center, as if a face were
// drifting in front of the camera. It needs no hardware.
type Synthetic struct {
	now   func() time.Time
	start time.Time
}

// NewSynthetic creates a synthetic source. A nil clock uses time.Now.
func NewSynthetic(now func() time.Time) *Synthetic {
	if now == nil {
		now = time.Now
	}
	return &Synthetic{now: now, start: now()}
}

// Poll returns the orbit position for the current time.
func (s *Synthetic) Poll(context.Context) protocol.FacePosition {
	return SyntheticAt(s.now().Sub(s.start))
}

// Release is a no-op.
func (s *Synthetic) Release() error { return nil }

// SyntheticAt returns the orbit position t after start.
func SyntheticAt(t time.Duration) protocol.FacePosition {
	sec := t.Seconds()
	return protocol.Detected(
		0.5+0.2*math.Sin(sec*0.5),
		0.5+0.1*math.Cos(sec*0.3),
		0.6+0.1*math.Sin(sec*0.2),
		syntheticConfidence,
	)
}
