package stream

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/teslashibe/go-avatar/pkg/metrics"
	"github.com/teslashibe/go-avatar/pkg/motion"
	"github.com/teslashibe/go-avatar/pkg/protocol"
	"github.com/teslashibe/go-avatar/pkg/source"
	"github.com/teslashibe/go-avatar/pkg/tap"
)

// closeCommand is the text message a client sends to end its session.
const closeCommand = "close"

// modeStarting marks a session that has not ticked yet.
const modeStarting int32 = -1

// Conn is the part of a websocket connection a session uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Session streams frames to one client. The goroutine calling Run owns
// the source and controller; nothing else touches them.
type Session struct {
	id       string
	conn     Conn
	src      source.Source
	ctrl     *motion.Controller
	codec    protocol.Codec
	kind     string
	remote   string
	started  time.Time
	tick     time.Duration
	deadline time.Duration
	now      func() time.Time

	tap     tap.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger

	ticks atomic.Uint64
	mode  atomic.Int32
}

// SessionConfig carries everything a session needs.
type SessionConfig struct {
	ID           string
	Conn         Conn
	Source       source.Source
	SourceKind   string
	Controller   *motion.Controller
	Codec        protocol.Codec
	Remote       string
	TickInterval time.Duration
	WriteTimeout time.Duration
	Now          func() time.Time
	Tap          tap.Publisher
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

// NewSession builds a session. Nil Now, Tap and Logger get defaults.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Tap == nil {
		cfg.Tap = tap.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Codec == nil {
		cfg.Codec = protocol.JSONCodec{}
	}
	s := &Session{
		id:       cfg.ID,
		conn:     cfg.Conn,
		src:      cfg.Source,
		ctrl:     cfg.Controller,
		codec:    cfg.Codec,
		kind:     cfg.SourceKind,
		remote:   cfg.Remote,
		tick:     cfg.TickInterval,
		deadline: cfg.WriteTimeout,
		now:      cfg.Now,
		tap:      cfg.Tap,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger.With("session_id", cfg.ID, "source", cfg.SourceKind),
	}
	s.started = s.now()
	s.mode.Store(modeStarting)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Ticks returns the number of frames sent.
func (s *Session) Ticks() uint64 { return s.ticks.Load() }

// Started returns when the session was created.
func (s *Session) Started() time.Time { return s.started }

// Info returns a snapshot safe to read from any goroutine.
func (s *Session) Info() SessionInfo {
	mode := "starting"
	if m := s.mode.Load(); m != modeStarting {
		mode = motion.Mode(m).String()
	}
	return SessionInfo{
		ID:       s.id,
		Source:   s.kind,
		Encoding: s.codec.Name(),
		Remote:   s.remote,
		Started:  s.started,
		Mode:     mode,
		Ticks:    s.ticks.Load(),
	}
}

// Run streams frames until ctx is cancelled, the client disconnects or
// asks to close, or a send fails. A client-initiated end returns nil.
// Panics are recovered and returned as ErrSessionPanic.
//
// Run does not return until its reader has stopped touching the
// connection, so the caller may hand the connection back afterwards.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		s.readLoop(cancel)
	}()

	err := s.loop(ctx)

	// Unblock a pending read; the connection is unusable for reads after this.
	s.conn.SetReadDeadline(time.Now())
	<-readDone
	return err
}

func (s *Session) loop(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session panic", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrSessionPanic, r)
		}
	}()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := s.step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// step runs one tick: poll, advance, encode, send.
func (s *Session) step(ctx context.Context) error {
	start := time.Now()

	pos := s.src.Poll(ctx)
	frame := s.ctrl.Advance(pos, s.now())
	mode := s.ctrl.Mode()
	if prev := s.mode.Swap(int32(mode)); prev != modeStarting && motion.Mode(prev) != mode {
		s.logger.Debug("mode changed", "from", motion.Mode(prev), "to", mode)
	}

	data, err := s.codec.Encode(frame)
	if err != nil {
		return fmt.Errorf("stream: encode frame: %w", err)
	}

	msgType := websocket.TextMessage
	if s.codec.Binary() {
		msgType = websocket.BinaryMessage
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.deadline))
	if err := s.conn.WriteMessage(msgType, data); err != nil {
		s.metrics.RecordSendError()
		return fmt.Errorf("%w: %v", ErrSend, err)
	}

	s.tap.Publish(s.id, data)
	s.ticks.Add(1)
	s.metrics.RecordTick(mode.String(), time.Since(start))
	return nil
}

// readLoop watches the socket. Any read error or a "close" text message
// ends the session.
func (s *Session) readLoop(cancel context.CancelFunc) {
	defer cancel()
	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			s.logger.Debug("client read ended", "error", err)
			return
		}
		if mt == websocket.TextMessage && strings.EqualFold(strings.TrimSpace(string(data)), closeCommand) {
			s.logger.Debug("client requested close")
			return
		}
	}
}
