package stream

import "errors"

var (
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("stream: invalid config")

	// ErrDuplicateSession is returned when a session id is already registered.
	ErrDuplicateSession = errors.New("stream: duplicate session id")

	// ErrInvalidSessionID is returned for ids that are not 1-64 characters
	// of letters, digits, '_' or '-'.
	ErrInvalidSessionID = errors.New("stream: invalid session id")

	// ErrSend is returned when a frame cannot be written to the client.
	ErrSend = errors.New("stream: send failed")

	// ErrSessionPanic marks a session that ended in a recovered panic.
	ErrSessionPanic = errors.New("stream: session panicked")
)
