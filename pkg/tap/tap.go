// Package tap mirrors streamed frames onto NATS so other services can
// observe a session without holding a websocket.
//
// Frames are published fire-and-forget to <prefix>.<session_id>.frames.
// Publish failures never affect the session.
package tap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("tap: invalid config")

// Config configures the NATS tap.
type Config struct {
	Enabled       bool          `yaml:"enabled" json:"enabled"`
	URL           string        `yaml:"url" json:"url"`
	SubjectPrefix string        `yaml:"subject_prefix" json:"subject_prefix"`
	ClientName    string        `yaml:"client_name" json:"client_name"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
}

// DefaultConfig returns a disabled tap pointed at a local server.
func DefaultConfig() Config {
	return Config{
		Enabled:       false,
		URL:           nats.DefaultURL,
		SubjectPrefix: "avatar.sessions",
		ClientName:    "avatar-server",
		Timeout:       5 * time.Second,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidConfig)
	}
	if c.SubjectPrefix == "" || strings.ContainsAny(c.SubjectPrefix, " *>") {
		return fmt.Errorf("%w: bad subject prefix %q", ErrInvalidConfig, c.SubjectPrefix)
	}
	return nil
}

// Publisher receives every encoded frame of every session.
type Publisher interface {
	Publish(sessionID string, frame []byte)
	Close()
}

// Nop discards frames.
type Nop struct{}

func (Nop) Publish(string, []byte) {}
func (Nop) Close()                 {}

// Subject returns the subject frames of sessionID are published on.
func Subject(prefix, sessionID string) string {
	return prefix + "." + sessionID + ".frames"
}

type conn interface {
	Publish(subj string, data []byte) error
}

// NATS publishes frames on a NATS connection.
type NATS struct {
	conn   conn
	nc     *nats.Conn
	prefix string
	logger *slog.Logger

	published atomic.Uint64
	failed    atomic.Uint64
}

// New returns Nop when the tap is disabled and a connected NATS publisher
// otherwise.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Publisher, error) {
	if !cfg.Enabled {
		return Nop{}, nil
	}
	n, err := Connect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Connect dials cfg.URL.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*NATS, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "tap")

	timeout := cfg.Timeout
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
		timeout = time.Until(dl)
	}

	opts := []nats.Option{
		nats.Name(cfg.ClientName),
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("tap: connect %s: %w", cfg.URL, err)
	}

	logger.Info("frame tap connected", "url", cfg.URL, "prefix", cfg.SubjectPrefix)

	return &NATS{conn: nc, nc: nc, prefix: cfg.SubjectPrefix, logger: logger}, nil
}

// Publish sends frame on the session's subject.
func (n *NATS) Publish(sessionID string, frame []byte) {
	if err := n.conn.Publish(Subject(n.prefix, sessionID), frame); err != nil {
		if n.failed.Add(1) == 1 {
			n.logger.Warn("frame publish failed", "session_id", sessionID, "error", err)
		}
		return
	}
	n.published.Add(1)
}

// Stats returns published and failed frame counts.
func (n *NATS) Stats() (published, failed uint64) {
	return n.published.Load(), n.failed.Load()
}

// Close drains the connection.
func (n *NATS) Close() {
	if n.nc == nil {
		return
	}
	if err := n.nc.Drain(); err != nil {
		n.nc.Close()
	}
}
