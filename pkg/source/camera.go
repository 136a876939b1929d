package source

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-avatar/pkg/protocol"
	"github.com/teslashibe/go-avatar/pkg/source/detection"
)

// capture is the part of gocv.VideoCapture the camera source uses.
type capture interface {
	Read(m *gocv.Mat) bool
	Close() error
}

// Camera reads frames from a capture device and reports the best face.
type Camera struct {
	cap      capture
	detector detection.Detector
	lease    *Lease
	frame    gocv.Mat
	tracker  tracker
	logger   *slog.Logger

	misses  int
	release sync.Once
}

// OpenCamera opens the device named in cfg under lease. On error the lease
// and detector are left to the caller.
func OpenCamera(cfg Config, det detection.Detector, lease *Lease, logger *slog.Logger) (*Camera, error) {
	if logger == nil {
		logger = slog.Default()
	}

	vc, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", ErrCameraUnavailable, cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: device %d not opened", ErrCameraUnavailable, cfg.Device)
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}

	logger.Info("camera opened", "device", cfg.Device, "kind", cfg.Kind)

	return newCamera(vc, det, lease, cfg.Smoothing, logger), nil
}

func newCamera(c capture, det detection.Detector, lease *Lease, smoothing float64, logger *slog.Logger) *Camera {
	return &Camera{
		cap:      c,
		detector: det,
		lease:    lease,
		frame:    gocv.NewMat(),
		tracker:  newTracker(smoothing),
		logger:   logger,
	}
}

// Poll grabs one frame and returns the smoothed position of the best face.
func (c *Camera) Poll(ctx context.Context) protocol.FacePosition {
	if ctx.Err() != nil {
		return protocol.NotDetected()
	}

	if ok := c.cap.Read(&c.frame); !ok || c.frame.Empty() {
		c.misses++
		if c.misses == 1 || c.misses%100 == 0 {
			c.logger.Debug("camera read failed", "misses", c.misses)
		}
		return protocol.NotDetected()
	}
	c.misses = 0

	dets, err := c.detector.Detect(c.frame)
	if err != nil {
		c.logger.Debug("face detection failed", "error", err)
		return protocol.NotDetected()
	}
	return c.tracker.observe(dets)
}

// Release closes the device, the detector and returns the lease.
func (c *Camera) Release() error {
	var err error
	c.release.Do(func() {
		if cerr := c.detector.Close(); cerr != nil {
			err = cerr
		}
		if cerr := c.cap.Close(); cerr != nil && err == nil {
			err = cerr
		}
		c.frame.Close()
		if c.lease != nil {
			c.lease.Release()
		}
		c.logger.Debug("camera released")
	})
	return err
}

// tracker smooths face positions across frames.
type tracker struct {
	alpha   float64
	x, y, z float64
}

func newTracker(alpha float64) tracker {
	return tracker{alpha: alpha, x: 0.5, y: 0.5, z: 0.5}
}

// observe folds the best detection into the running estimate.
// Missing faces do not move the estimate.
func (t *tracker) observe(dets []detection.Detection) protocol.FacePosition {
	best := detection.SelectBest(dets)
	if best == nil {
		return protocol.NotDetected()
	}

	cx, cy := best.Center()
	z := math.Min(1, best.Area()*4)

	t.x += (clamp01(cx) - t.x) * t.alpha
	t.y += (clamp01(cy) - t.y) * t.alpha
	t.z += (clamp01(z) - t.z) * t.alpha

	return protocol.Detected(t.x, t.y, t.z, clamp01(best.Confidence))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
