package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-avatar/pkg/protocol"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource counts polls and releases.
type fakeSource struct {
	pos      protocol.FacePosition
	polls    atomic.Int64
	released atomic.Int32
	panicAt  int64
}

func (f *fakeSource) Poll(context.Context) protocol.FacePosition {
	n := f.polls.Add(1)
	if f.panicAt > 0 && n == f.panicAt {
		panic("sensor exploded")
	}
	return f.pos
}

func (f *fakeSource) Release() error {
	f.released.Add(1)
	return nil
}

type readResult struct {
	mt   int
	data []byte
	err  error
}

// fakeConn feeds reads from a channel and records writes. Setting a read
// deadline fails the pending read and every later one, like a real socket.
type fakeConn struct {
	reads    chan readResult
	deadline chan struct{}
	once     sync.Once
	reading  atomic.Int32

	mu       sync.Mutex
	writes   [][]byte
	types    []int
	writeErr error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		reads:    make(chan readResult, 4),
		deadline: make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	f.reading.Add(1)
	defer f.reading.Add(-1)

	select {
	case <-f.deadline:
		return 0, nil, errors.New("i/o timeout")
	default:
	}
	select {
	case r, ok := <-f.reads:
		if !ok {
			return 0, nil, errors.New("connection closed")
		}
		return r.mt, r.data, r.err
	case <-f.deadline:
		return 0, nil, errors.New("i/o timeout")
	}
}

func (f *fakeConn) SetReadDeadline(time.Time) error {
	f.once.Do(func() { close(f.deadline) })
	return nil
}

func (f *fakeConn) WriteMessage(mt int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.types = append(f.types, mt)
	f.writes = append(f.writes, append([]byte(nil), data...))
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) written() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeConn) frame(i int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes[i]
}
