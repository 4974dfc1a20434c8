package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/roiscan/internal/frame"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp" // register BMP decoder
)

// Still serves copies of a single decoded image, standing in for a camera
// preview when scanning files.
type Still struct {
	img image.Image

	mu    sync.Mutex
	bound bool
}

// NewStill wraps img.
func NewStill(img image.Image) (*Still, error) {
	if img == nil {
		return nil, errors.New("capture: still image is nil")
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("capture: still image has empty bounds %v", img.Bounds())
	}
	return &Still{img: img}, nil
}

// LoadStill decodes a JPEG, PNG or BMP file, applying EXIF orientation.
func LoadStill(path string) (*Still, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("capture: open %s: %w", path, err)
	}
	slog.Debug("Still image loaded", "path", path, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return NewStill(img)
}

// Size returns the image dimensions.
func (s *Still) Size() image.Point { return s.img.Bounds().Size() }

// Frame returns a fresh copy of the image.
func (s *Still) Frame(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return frame.FromImage(s.img)
}

// Bind marks the image available right away.
func (s *Still) Bind(_ context.Context, ready func()) error {
	s.mu.Lock()
	s.bound = true
	s.mu.Unlock()
	if ready != nil {
		ready()
	}
	return nil
}

func (s *Still) Unbind() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bound = false
	return nil
}

// Bound reports whether the still is currently bound.
func (s *Still) Bound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound
}
