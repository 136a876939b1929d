// Package detection finds faces in camera frames.
//
// Two backends are available: YuNet (an ONNX network, precise) and a Haar
// cascade (cheap, no model download beyond the OpenCV XML). Both report
// bounding boxes normalized to the frame size.
package detection

import (
	"errors"

	"gocv.io/x/gocv"
)

// Detection is a face bounding box in normalized frame coordinates.
type Detection struct {
	X, Y       float64 // Top-left corner (0-1)
	W, H       float64 // Width and height (0-1)
	Confidence float64 // Detector score (0-1)
}

// Center returns the center point of the detection
func (d Detection) Center() (x, y float64) {
	return d.X + d.W/2, d.Y + d.H/2
}

// Area returns the area of the bounding box
func (d Detection) Area() float64 {
	return d.W * d.H
}

// Detector is the interface for face detection backends
type Detector interface {
	// Detect finds faces in a BGR frame.
	Detect(img gocv.Mat) ([]Detection, error)

	// Close releases resources
	Close() error
}

var (
	// ErrModelNotFound is returned when the model or cascade file is missing.
	ErrModelNotFound = errors.New("detection: model file not found")

	// ErrModelLoad is returned when OpenCV rejects the model file.
	ErrModelLoad = errors.New("detection: failed to load model")

	// ErrEmptyFrame is returned by Detect for an empty Mat.
	ErrEmptyFrame = errors.New("detection: empty frame")
)

// Config holds detector configuration
type Config struct {
	ModelPath        string  `yaml:"model_path" json:"model_path"`               // YuNet ONNX model
	CascadePath      string  `yaml:"cascade_path" json:"cascade_path"`           // Haar cascade XML
	ConfidenceThresh float64 `yaml:"confidence_thresh" json:"confidence_thresh"` // Minimum confidence (default 0.5)
	InputWidth       int     `yaml:"input_width" json:"input_width"`
	InputHeight      int     `yaml:"input_height" json:"input_height"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/face_detection_yunet.onnx",
		CascadePath:      "models/haarcascade_frontalface_default.xml",
		ConfidenceThresh: 0.5,
		InputWidth:       320,
		InputHeight:      320,
	}
}

// SelectBest picks the best face from multiple detections.
// Score: confidence * 0.7 + (area / largest area) * 0.3
func SelectBest(dets []Detection) *Detection {
	if len(dets) == 0 {
		return nil
	}

	if len(dets) == 1 {
		return &dets[0]
	}

	maxArea := 0.0
	for _, d := range dets {
		if d.Area() > maxArea {
			maxArea = d.Area()
		}
	}

	bestScore := -1.0
	var best *Detection

	for i := range dets {
		score := dets[i].Confidence * 0.7
		if maxArea > 0 {
			score += (dets[i].Area() / maxArea) * 0.3
		}
		if score > bestScore {
			bestScore = score
			best = &dets[i]
		}
	}

	return best
}
