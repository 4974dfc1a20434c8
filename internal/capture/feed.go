package capture

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/roiscan/internal/frame"
)

// ErrNotBound is returned when frames are pushed to an unbound feed.
var ErrNotBound = errors.New("capture: feed is not bound")

// Feed holds the latest frame pushed by a remote client. It behaves as a
// camera: frames are accepted only while bound; the ready callback fires on
// the first frame after each Bind.
type Feed struct {
	mu     sync.Mutex
	bound  bool
	latest *frame.Frame
	ready  func()
	frames uint64
}

// NewFeed returns an unbound feed.
func NewFeed() *Feed { return &Feed{} }

func (f *Feed) Bind(_ context.Context, ready func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bound = true
	f.ready = ready
	return nil
}

// Unbind drops the held frame and stops accepting pushes.
func (f *Feed) Unbind() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bound = false
	f.ready = nil
	f.latest.Release()
	f.latest = nil
	return nil
}

// Push replaces the held frame with a copy of img.
func (f *Feed) Push(img image.Image) error {
	fr, err := frame.FromImage(img)
	if err != nil {
		return err
	}
	return f.PushFrame(fr)
}

// PushFrame replaces the held frame, taking ownership of fr.
func (f *Feed) PushFrame(fr *frame.Frame) error {
	f.mu.Lock()
	if !f.bound {
		f.mu.Unlock()
		fr.Release()
		return ErrNotBound
	}
	prev := f.latest
	f.latest = fr
	f.frames++
	ready := f.ready
	f.ready = nil
	f.mu.Unlock()

	prev.Release()
	if ready != nil {
		slog.Debug("Feed received first frame", "width", fr.Width(), "height", fr.Height())
		ready()
	}
	return nil
}

// Frame returns a copy of the latest frame, or nil when none was pushed.
func (f *Feed) Frame(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latest == nil {
		return nil, nil
	}
	return f.latest.Clone()
}

// Frames returns the number of frames accepted so far.
func (f *Feed) Frames() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames
}
