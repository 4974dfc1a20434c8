package frame

import (
	"image"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/roiscan/internal/mempool"
)

// Gray is a single-channel 8-bit image produced by the transform stage and
// consumed by recognition.
type Gray struct {
	width  int
	height int

	mu  sync.Mutex
	pix []byte
}

// NewGray allocates a pooled, zeroed gray image.
func NewGray(width, height int) *Gray {
	return &Gray{width: width, height: height, pix: mempool.GetBytes(width * height)}
}

// GrayFrom copies src into a pooled gray image.
func GrayFrom(src *image.Gray) *Gray {
	b := src.Bounds()
	g := NewGray(b.Dx(), b.Dy())
	for y := range g.height {
		si := src.PixOffset(b.Min.X, b.Min.Y+y)
		copy(g.pix[y*g.width:(y+1)*g.width], src.Pix[si:si+g.width])
	}
	return g
}

// Width returns the image width in pixels.
func (g *Gray) Width() int { return g.width }

// Height returns the image height in pixels.
func (g *Gray) Height() int { return g.height }

// Channels is always 1.
func (g *Gray) Channels() int { return 1 }

// View calls fn with an *image.Gray over the pooled buffer. The image must not
// be retained past fn.
func (g *Gray) View(fn func(img *image.Gray) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pix == nil {
		return ErrReleased
	}
	return fn(&image.Gray{Pix: g.pix, Stride: g.width, Rect: image.Rect(0, 0, g.width, g.height)})
}

// Clone copies the pixels into a standalone *image.Gray that survives Release.
func (g *Gray) Clone() (*image.Gray, error) {
	var out *image.Gray
	err := g.View(func(img *image.Gray) error {
		out = image.NewGray(img.Rect)
		copy(out.Pix, img.Pix)
		return nil
	})
	return out, err
}

// Released reports whether Release has been called.
func (g *Gray) Released() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pix == nil
}

// Release returns the buffer to the pool. Further calls are no-ops.
func (g *Gray) Release() {
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pix == nil {
		return
	}
	mempool.PutBytes(g.pix)
	g.pix = nil
	slog.Debug("Gray image released", "width", g.width, "height", g.height)
}
