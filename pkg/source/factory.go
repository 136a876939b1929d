package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-avatar/pkg/source/detection"
)

// New creates the source selected by cfg.Kind. Camera kinds take an
// exclusive lease on cfg.Device; a second open of the same device returns
// ErrDeviceBusy until the first source is released.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Source, error) {
	return NewWithLeases(ctx, cfg, devices, logger)
}

// NewWithLeases is New with an explicit lease table.
func NewWithLeases(ctx context.Context, cfg Config, leases *Leases, logger *slog.Logger) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("creating position source", "kind", cfg.Kind)

	switch cfg.Kind {
	case KindSynthetic:
		return NewSynthetic(nil), nil
	case KindStatic:
		return NewStatic(cfg.Static), nil
	case KindMQTT:
		m, err := DialMQTT(ctx, cfg.MQTT, logger)
		if err != nil {
			return nil, err
		}
		return m, nil
	case KindYuNet, KindCascade:
		return openCamera(cfg, leases, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

func openCamera(cfg Config, leases *Leases, logger *slog.Logger) (Source, error) {
	lease, err := leases.Acquire(cfg.Device)
	if err != nil {
		return nil, err
	}

	det, err := newDetector(cfg)
	if err != nil {
		lease.Release()
		return nil, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}

	cam, err := OpenCamera(cfg, det, lease, logger)
	if err != nil {
		det.Close()
		lease.Release()
		return nil, err
	}
	return cam, nil
}

func newDetector(cfg Config) (detection.Detector, error) {
	if cfg.Kind == KindCascade {
		return detection.NewCascade(cfg.Detection)
	}
	return detection.NewYuNet(cfg.Detection)
}
