// Package stream serves motion frames to avatar renderers over websockets.
//
// Each connection is a session: it owns one position source and one motion
// controller, and runs poll, advance, encode and send once per tick until
// the client goes away.
package stream

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/teslashibe/go-avatar/pkg/protocol"
)

// Config holds server configuration.
type Config struct {
	Host        string `yaml:"host" json:"host"`
	Port        int    `yaml:"port" json:"port"`
	ServiceName string `yaml:"service_name" json:"service_name"`

	// TickInterval is the target time between frames.
	// Default: 33ms (~30 fps)
	TickInterval time.Duration `yaml:"tick_interval" json:"tick_interval"`

	// WriteTimeout bounds a single frame send.
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`

	// ReadLimit caps client messages; clients only send control text.
	ReadLimit int64 `yaml:"read_limit" json:"read_limit"`

	// DefaultEncoding is used when the client does not pass ?encoding=.
	DefaultEncoding string `yaml:"default_encoding" json:"default_encoding"`

	AllowOrigins    string        `yaml:"allow_origins" json:"allow_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8765,
		ServiceName:     "avatar-motion",
		TickInterval:    33 * time.Millisecond,
		WriteTimeout:    time.Second,
		ReadLimit:       4096,
		DefaultEncoding: protocol.EncodingJSON,
		AllowOrigins:    "*",
		ShutdownTimeout: 5 * time.Second,
	}
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port out of range: %d", ErrInvalidConfig, c.Port)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tick_interval must be positive, got %v", ErrInvalidConfig, c.TickInterval)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("%w: write_timeout must be positive, got %v", ErrInvalidConfig, c.WriteTimeout)
	}
	if _, err := protocol.CodecFor(c.DefaultEncoding); err != nil {
		return fmt.Errorf("%w: default_encoding: %v", ErrInvalidConfig, err)
	}
	return nil
}
