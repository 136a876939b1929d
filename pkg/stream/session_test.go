package stream

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-avatar/pkg/metrics"
	"github.com/teslashibe/go-avatar/pkg/motion"
	"github.com/teslashibe/go-avatar/pkg/protocol"
)

type recordingTap struct {
	ch chan string
}

func (r *recordingTap) Publish(id string, _ []byte) {
	select {
	case r.ch <- id:
	default:
	}
}

func (r *recordingTap) Close() {}

func newTestSession(conn Conn, src *fakeSource, codec protocol.Codec) *Session {
	return NewSession(SessionConfig{
		ID:           "sess",
		Conn:         conn,
		Source:       src,
		SourceKind:   "static",
		Controller:   motion.NewController(motion.DefaultConfig(), motion.FixedRand(1)),
		Codec:        codec,
		TickInterval: time.Millisecond,
		WriteTimeout: time.Second,
		Logger:       discardLogger(),
	})
}

func runAsync(s *Session, ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
		return nil
	}
}

func TestSession_StreamsUntilCloseMessage(t *testing.T) {
	conn := newFakeConn()
	defer close(conn.reads)
	src := &fakeSource{pos: protocol.Detected(0.9, 0.5, 0.5, 1)}
	s := newTestSession(conn, src, protocol.JSONCodec{})

	done := runAsync(s, context.Background())
	require.Eventually(t, func() bool { return conn.written() >= 5 }, time.Second, time.Millisecond)

	conn.reads <- readResult{mt: websocket.TextMessage, data: []byte(" close\n")}
	require.NoError(t, waitDone(t, done))

	raw := conn.frame(0)
	var wire map[string]any
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.Contains(t, wire, "blink")

	decoded, err := protocol.JSONCodec{}.Decode(raw)
	require.NoError(t, err)
	assert.Greater(t, decoded.Head.X, 0.0, "face on the right turns the head right")

	assert.Equal(t, websocket.TextMessage, conn.types[0])
	assert.Equal(t, uint64(conn.written()), s.Ticks())
	assert.Equal(t, "active", s.Info().Mode)
}

func TestSession_OtherTextIsIgnored(t *testing.T) {
	conn := newFakeConn()
	defer close(conn.reads)
	s := newTestSession(conn, &fakeSource{}, protocol.JSONCodec{})

	done := runAsync(s, context.Background())
	conn.reads <- readResult{mt: websocket.TextMessage, data: []byte("hello")}
	conn.reads <- readResult{mt: websocket.BinaryMessage, data: []byte("close")}

	n := conn.written()
	require.Eventually(t, func() bool { return conn.written() > n+3 }, time.Second, time.Millisecond)

	conn.reads <- readResult{err: errors.New("EOF")}
	require.NoError(t, waitDone(t, done))
}

func TestSession_ContextCancel(t *testing.T) {
	conn := newFakeConn()
	defer close(conn.reads)
	s := newTestSession(conn, &fakeSource{}, protocol.JSONCodec{})

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(s, ctx)
	require.Eventually(t, func() bool { return conn.written() > 0 }, time.Second, time.Millisecond)

	cancel()
	assert.NoError(t, waitDone(t, done))
}

func TestSession_SendError(t *testing.T) {
	conn := newFakeConn()
	defer close(conn.reads)
	conn.writeErr = errors.New("broken pipe")
	m := metrics.New("")

	s := NewSession(SessionConfig{
		ID:           "s",
		Conn:         conn,
		Source:       &fakeSource{},
		Controller:   motion.NewController(motion.DefaultConfig(), motion.FixedRand(1)),
		TickInterval: time.Millisecond,
		WriteTimeout: time.Second,
		Metrics:      m,
		Logger:       discardLogger(),
	})

	err := waitDone(t, runAsync(s, context.Background()))
	assert.ErrorIs(t, err, ErrSend)
	assert.Equal(t, uint64(0), s.Ticks())
}

func TestSession_PanicIsRecovered(t *testing.T) {
	conn := newFakeConn()
	defer close(conn.reads)
	src := &fakeSource{panicAt: 3}
	s := newTestSession(conn, src, protocol.JSONCodec{})

	err := waitDone(t, runAsync(s, context.Background()))
	assert.ErrorIs(t, err, ErrSessionPanic)
	assert.Equal(t, uint64(2), s.Ticks())
}

func TestSession_MsgpackIsBinary(t *testing.T) {
	conn := newFakeConn()
	defer close(conn.reads)
	tp := &recordingTap{ch: make(chan string, 1)}

	s := NewSession(SessionConfig{
		ID:           "bin",
		Conn:         conn,
		Source:       &fakeSource{pos: protocol.Detected(0.5, 0.5, 0.5, 1)},
		Controller:   motion.NewController(motion.DefaultConfig(), motion.FixedRand(1)),
		Codec:        protocol.MsgpackCodec{},
		TickInterval: time.Millisecond,
		WriteTimeout: time.Second,
		Tap:          tp,
		Logger:       discardLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(s, ctx)
	require.Eventually(t, func() bool { return conn.written() > 0 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, waitDone(t, done))

	assert.Equal(t, websocket.BinaryMessage, conn.types[0])
	_, err := protocol.MsgpackCodec{}.Decode(conn.frame(0))
	assert.NoError(t, err)
	assert.Equal(t, "bin", <-tp.ch)
}

func TestSession_ReaderStopsBeforeRunReturns(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(conn *fakeConn, src *fakeSource)
		timeout time.Duration
		wantErr error
	}{
		{
			name:    "panic",
			setup:   func(_ *fakeConn, src *fakeSource) { src.panicAt = 5 },
			wantErr: ErrSessionPanic,
		},
		{
			name:    "send error",
			setup:   func(conn *fakeConn, _ *fakeSource) { conn.writeErr = errors.New("broken pipe") },
			wantErr: ErrSend,
		},
		{
			name:    "shutdown",
			setup:   func(*fakeConn, *fakeSource) {},
			timeout: 20 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newFakeConn()
			src := &fakeSource{}
			tt.setup(conn, src)

			ctx := context.Background()
			if tt.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, tt.timeout)
				defer cancel()
			}

			// The client keeps talking while the server ends the session.
			chatter := make(chan struct{})
			go func() {
				defer close(chatter)
				for {
					select {
					case conn.reads <- readResult{mt: websocket.TextMessage, data: []byte("hello")}:
					case <-conn.deadline:
						return
					}
				}
			}()

			s := newTestSession(conn, src, protocol.JSONCodec{})
			err := waitDone(t, runAsync(s, ctx))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, int32(0), conn.reading.Load(), "no read in flight after Run returns")
			select {
			case <-conn.deadline:
			default:
				t.Fatal("pending read was not unblocked")
			}
			<-chatter
		})
	}
}

func TestSession_ModeBeforeFirstTick(t *testing.T) {
	conn := newFakeConn()
	defer close(conn.reads)
	src := &fakeSource{pos: protocol.Detected(0.5, 0.5, 0.5, 1)}
	s := newTestSession(conn, src, protocol.JSONCodec{})

	assert.Equal(t, "starting", s.Info().Mode)

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(s, ctx)
	require.Eventually(t, func() bool { return s.Ticks() > 0 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, waitDone(t, done))

	assert.Equal(t, "active", s.Info().Mode)
}
