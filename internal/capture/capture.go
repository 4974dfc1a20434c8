// Package capture provides frame sources for scanning: still images, frames
// pushed from a client, and a lifecycle session that binds a camera only
// while permission is granted.
package capture

import (
	"context"

	"github.com/MeKo-Tech/roiscan/internal/frame"
)

// Source yields the current frame. A nil frame with a nil error means no
// frame is available yet; that is a normal condition while a camera binds.
// The caller owns the returned frame and must release it.
type Source interface {
	Frame(ctx context.Context) (*frame.Frame, error)
}

// Camera is a frame source that must be bound before it produces frames.
// Bind returns once binding has started; ready is called when the first
// frame can be taken, possibly from another goroutine.
type Camera interface {
	Source
	Bind(ctx context.Context, ready func()) error
	Unbind() error
}

// Permission gates camera access.
type Permission interface {
	Granted() bool
	// Request asks for access and reports whether it was granted.
	Request(ctx context.Context) (bool, error)
}

// StaticPermission is a Permission with a fixed answer.
type StaticPermission bool

func (p StaticPermission) Granted() bool { return bool(p) }

func (p StaticPermission) Request(context.Context) (bool, error) { return bool(p), nil }

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*frame.Frame, error)

func (fn SourceFunc) Frame(ctx context.Context) (*frame.Frame, error) { return fn(ctx) }
