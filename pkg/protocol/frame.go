// Package protocol defines the messages exchanged with avatar clients and
// position producers: FacePosition in, OutputFrame out.
package protocol

// OutputFrame is the per-tick motion command sent to the rendering client.
// All angles are in degrees.
type OutputFrame struct {
	Body  BodyRotation `json:"body" msgpack:"body"`
	Head  Rotation     `json:"head" msgpack:"head"`
	Eyes  Rotation     `json:"eyes" msgpack:"eyes"`
	Blink bool         `json:"blink" msgpack:"blink"`
}

// BodyRotation holds the body yaw.
type BodyRotation struct {
	Y float64 `json:"y" msgpack:"y"`
}

// Rotation holds a two-axis rotation.
type Rotation struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// frameWire uses pointers so that a frame missing any key fails to decode.
type frameWire struct {
	Body *struct {
		Y *float64 `json:"y" msgpack:"y"`
	} `json:"body" msgpack:"body"`
	Head  *rotationWire `json:"head" msgpack:"head"`
	Eyes  *rotationWire `json:"eyes" msgpack:"eyes"`
	Blink *bool         `json:"blink" msgpack:"blink"`
}

type rotationWire struct {
	X *float64 `json:"x" msgpack:"x"`
	Y *float64 `json:"y" msgpack:"y"`
}

func (w *frameWire) frame() (OutputFrame, error) {
	switch {
	case w.Body == nil || w.Body.Y == nil:
		return OutputFrame{}, missing("body.y")
	case w.Head == nil || w.Head.X == nil || w.Head.Y == nil:
		return OutputFrame{}, missing("head")
	case w.Eyes == nil || w.Eyes.X == nil || w.Eyes.Y == nil:
		return OutputFrame{}, missing("eyes")
	case w.Blink == nil:
		return OutputFrame{}, missing("blink")
	}
	return OutputFrame{
		Body:  BodyRotation{Y: *w.Body.Y},
		Head:  Rotation{X: *w.Head.X, Y: *w.Head.Y},
		Eyes:  Rotation{X: *w.Eyes.X, Y: *w.Eyes.Y},
		Blink: *w.Blink,
	}, nil
}
