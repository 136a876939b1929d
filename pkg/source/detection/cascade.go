package detection

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// cascadeConfidence is reported for every Haar hit; the classifier has no score.
const cascadeConfidence = 0.8

// CascadeDetector runs an OpenCV Haar cascade on grayscale frames.
type CascadeDetector struct {
	classifier gocv.CascadeClassifier
	gray       gocv.Mat
	minSize    image.Point
	mu         sync.Mutex
}

// NewCascade loads the cascade at cfg.CascadePath.
func NewCascade(cfg Config) (*CascadeDetector, error) {
	if _, err := os.Stat(cfg.CascadePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, cfg.CascadePath)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cfg.CascadePath) {
		classifier.Close()
		return nil, fmt.Errorf("%w: %s", ErrModelLoad, cfg.CascadePath)
	}

	return &CascadeDetector{
		classifier: classifier,
		gray:       gocv.NewMat(),
		minSize:    image.Pt(30, 30),
	}, nil
}

// Detect finds faces in the frame.
func (d *CascadeDetector) Detect(img gocv.Mat) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if img.Empty() {
		return nil, ErrEmptyFrame
	}

	gocv.CvtColor(img, &d.gray, gocv.ColorBGRToGray)

	rects := d.classifier.DetectMultiScaleWithParams(d.gray, 1.1, 5, 0, d.minSize, image.Pt(0, 0))

	imgW := float64(img.Cols())
	imgH := float64(img.Rows())

	detections := make([]Detection, 0, len(rects))
	for _, r := range rects {
		detections = append(detections, Detection{
			X:          float64(r.Min.X) / imgW,
			Y:          float64(r.Min.Y) / imgH,
			W:          float64(r.Dx()) / imgW,
			H:          float64(r.Dy()) / imgH,
			Confidence: cascadeConfidence,
		})
	}
	return detections, nil
}

// Close releases the classifier.
func (d *CascadeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gray.Close()
	return d.classifier.Close()
}
