package source

import "errors"

var (
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("source: invalid config")

	// ErrUnknownKind is returned for an unsupported Kind.
	ErrUnknownKind = errors.New("source: unknown kind")

	// ErrDeviceBusy is returned when another session holds the capture device.
	ErrDeviceBusy = errors.New("source: device busy")

	// ErrCameraUnavailable is returned when the capture device cannot be opened.
	ErrCameraUnavailable = errors.New("source: camera unavailable")

	// ErrMQTTConnect is returned when the broker cannot be reached.
	ErrMQTTConnect = errors.New("source: mqtt connect failed")
)
