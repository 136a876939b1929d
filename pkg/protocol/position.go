package protocol

import (
	"encoding/json"
	"fmt"
	"math"
)

// FacePosition is one sample from a position source.
// Coordinates are normalized to [0,1]; a sample with Detected=false carries no position.
type FacePosition struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Confidence float64 `json:"confidence"`
	Detected   bool    `json:"detected"`
}

// MarshalJSON writes {"detected":false} for undetected samples and the full
// object otherwise.
func (p FacePosition) MarshalJSON() ([]byte, error) {
	if !p.Detected {
		return []byte(`{"detected":false}`), nil
	}
	type plain FacePosition
	return json.Marshal(plain(p))
}

// NotDetected returns the "no face" sample.
func NotDetected() FacePosition {
	return FacePosition{}
}

// Detected returns a detected sample at the given normalized position.
func Detected(x, y, z, confidence float64) FacePosition {
	return FacePosition{X: x, Y: y, Z: z, Confidence: confidence, Detected: true}
}

// Validate checks that a detected sample lies inside the unit cube.
// Undetected samples are always valid.
func (p FacePosition) Validate() error {
	if !p.Detected {
		return nil
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"x", p.X}, {"y", p.Y}, {"z", p.Z}, {"confidence", p.Confidence},
	} {
		if math.IsNaN(f.v) || f.v < 0 || f.v > 1 {
			return fmt.Errorf("%w: %s=%v", ErrOutOfRange, f.name, f.v)
		}
	}
	return nil
}

// positionWire mirrors FacePosition with pointer fields so missing keys can be detected.
type positionWire struct {
	X          *float64 `json:"x"`
	Y          *float64 `json:"y"`
	Z          *float64 `json:"z"`
	Confidence *float64 `json:"confidence"`
	Detected   *bool    `json:"detected"`
}

// DecodePosition parses a position sample in the source input format:
// {"detected":false} or {"x":..,"y":..,"z":..,"confidence":..,"detected":true}.
// z and confidence default to 0.5 and 0 when omitted from a detected sample.
func DecodePosition(data []byte) (FacePosition, error) {
	var w positionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return FacePosition{}, &DecodeError{Kind: "position", Err: err}
	}
	if w.Detected == nil {
		return FacePosition{}, &DecodeError{Kind: "position", Err: fmt.Errorf("%w: detected", ErrMissingField)}
	}
	if !*w.Detected {
		return NotDetected(), nil
	}
	if w.X == nil || w.Y == nil {
		return FacePosition{}, &DecodeError{Kind: "position", Err: fmt.Errorf("%w: x/y", ErrMissingField)}
	}

	p := FacePosition{X: *w.X, Y: *w.Y, Z: 0.5, Detected: true}
	if w.Z != nil {
		p.Z = *w.Z
	}
	if w.Confidence != nil {
		p.Confidence = *w.Confidence
	}
	if err := p.Validate(); err != nil {
		return FacePosition{}, &DecodeError{Kind: "position", Err: err}
	}
	return p, nil
}
