package source

import (
	"context"

	"github.com/teslashibe/go-avatar/pkg/protocol"
)

// Source produces one FacePosition per tick.
//
// Poll never fails: sensor problems are reported as a not-detected sample.
// Release frees the underlying resources and is safe to call more than once.
// A Source is owned by a single session goroutine.
type Source interface {
	Poll(ctx context.Context) protocol.FacePosition
	Release() error
}

// Static returns the same sample on every poll.
type Static struct {
	Position protocol.FacePosition
}

// NewStatic returns a Static source for pos.
func NewStatic(pos protocol.FacePosition) *Static {
	return &Static{Position: pos}
}

// Poll returns the fixed sample.
func (s *Static) Poll(context.Context) protocol.FacePosition { return s.Position }

// Release is a no-op.
func (s *Static) Release() error { return nil }
