// Package source provides the per-session position sources that feed the
// motion controller.
//
// Supported kinds:
//   - synthetic - Lissajous orbit, no hardware (demo and CI)
//   - yunet     - camera + YuNet face detector (precise)
//   - cascade   - camera + Haar cascade (cheap)
//   - mqtt      - latest sample from an external detector on a broker topic
//   - static    - a fixed sample (calibration and tests)
//
// The kind is chosen once per session, at construction.
package source

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-avatar/pkg/protocol"
	"github.com/teslashibe/go-avatar/pkg/source/detection"
)

// Kind selects a Source implementation.
type Kind string

const (
	KindSynthetic Kind = "synthetic"
	KindYuNet     Kind = "yunet"
	KindCascade   Kind = "cascade"
	KindMQTT      Kind = "mqtt"
	KindStatic    Kind = "static"
)

// Kinds lists every supported kind.
func Kinds() []Kind {
	return []Kind{KindSynthetic, KindYuNet, KindCascade, KindMQTT, KindStatic}
}

// IsCamera reports whether the kind opens a capture device.
func (k Kind) IsCamera() bool {
	return k == KindYuNet || k == KindCascade
}

// Config holds source configuration.
type Config struct {
	// Kind selects the implementation.
	// Default: "synthetic"
	Kind Kind `yaml:"kind" json:"kind"`

	// Device is the capture device index for camera kinds.
	Device int `yaml:"device" json:"device"`

	// Width and Height request a capture resolution. Zero keeps the driver default.
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`

	// Smoothing is the fraction of the way each camera sample moves the
	// estimate toward a new detection. 1 disables smoothing.
	// Default: 0.15
	Smoothing float64 `yaml:"smoothing" json:"smoothing"`

	// FallbackSynthetic swaps in a synthetic source when the camera cannot be used.
	FallbackSynthetic bool `yaml:"fallback_synthetic" json:"fallback_synthetic"`

	Detection detection.Config `yaml:"detection" json:"detection"`
	MQTT      MQTTConfig       `yaml:"mqtt" json:"mqtt"`

	// Static is the sample returned by KindStatic.
	Static protocol.FacePosition `yaml:"static" json:"static"`
}

// MQTTConfig configures the MQTT position feed.
type MQTTConfig struct {
	Broker   string `yaml:"broker" json:"broker"` // host:port
	Topic    string `yaml:"topic" json:"topic"`
	ClientID string `yaml:"client_id" json:"client_id"` // prefix; a per-session suffix is added
	QoS      byte   `yaml:"qos" json:"qos"`

	// MaxAge is how long a sample stays current. Older samples read as not detected.
	MaxAge time.Duration `yaml:"max_age" json:"max_age"`

	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Kind:              KindSynthetic,
		Device:            0,
		Width:             640,
		Height:            480,
		Smoothing:         0.15,
		FallbackSynthetic: true,
		Detection:         detection.DefaultConfig(),
		MQTT: MQTTConfig{
			Broker:         "localhost:1883",
			Topic:          "avatar/face",
			ClientID:       "avatar",
			QoS:            0,
			MaxAge:         500 * time.Millisecond,
			ConnectTimeout: 5 * time.Second,
		},
		Static: protocol.Detected(0.5, 0.5, 0.5, 1),
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Kind {
	case KindSynthetic, KindStatic:
	case KindYuNet, KindCascade:
		if c.Device < 0 {
			return fmt.Errorf("%w: device must be >= 0, got %d", ErrInvalidConfig, c.Device)
		}
	case KindMQTT:
		if c.MQTT.Broker == "" {
			return fmt.Errorf("%w: mqtt.broker is required", ErrInvalidConfig)
		}
		if c.MQTT.Topic == "" {
			return fmt.Errorf("%w: mqtt.topic is required", ErrInvalidConfig)
		}
		if c.MQTT.MaxAge <= 0 {
			return fmt.Errorf("%w: mqtt.max_age must be positive, got %v", ErrInvalidConfig, c.MQTT.MaxAge)
		}
		if c.MQTT.QoS > 2 {
			return fmt.Errorf("%w: mqtt.qos must be 0-2, got %d", ErrInvalidConfig, c.MQTT.QoS)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, c.Kind)
	}
	if c.Smoothing <= 0 || c.Smoothing > 1 {
		return fmt.Errorf("%w: smoothing must be in (0,1], got %v", ErrInvalidConfig, c.Smoothing)
	}
	if c.Kind == KindStatic {
		if err := c.Static.Validate(); err != nil {
			return fmt.Errorf("%w: static: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}
