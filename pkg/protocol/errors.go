package protocol

import (
	"errors"
	"fmt"
)

// Sentinel errors for decoding.
var (
	// ErrMissingField is returned when a required key is absent.
	ErrMissingField = errors.New("protocol: missing field")

	// ErrOutOfRange is returned when a normalized value is outside [0,1].
	ErrOutOfRange = errors.New("protocol: value out of range")

	// ErrUnknownEncoding is returned for an unsupported codec name.
	ErrUnknownEncoding = errors.New("protocol: unknown encoding")
)

// DecodeError reports a payload that could not be decoded.
type DecodeError struct {
	Kind string // "frame" or "position"
	Err  error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("protocol: decode %s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

func missing(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}
