// Package frame holds the single-owner pixel buffers that flow through a
// scan: the raw Frame delivered by capture and the grayscale image derived
// from it. Both are backed by pooled memory and must be released exactly
// once by their owner.
package frame

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/roiscan/internal/mempool"
	"github.com/disintegration/imaging"
)

// ErrReleased is returned when a buffer is used after Release.
var ErrReleased = errors.New("frame: buffer already released")

// Format is the pixel layout of a Frame.
type Format int

const (
	FormatRGB  Format = iota + 1 // 3 bytes per pixel
	FormatRGBA                   // 4 bytes per pixel, alpha ignored for luma
)

// Channels returns the number of bytes per pixel.
func (f Format) Channels() int {
	switch f {
	case FormatRGB:
		return 3
	case FormatRGBA:
		return 4
	}
	return 0
}

func (f Format) String() string {
	switch f {
	case FormatRGB:
		return "rgb"
	case FormatRGBA:
		return "rgba"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Frame is an immutable raw pixel buffer captured for one scan.
type Frame struct {
	width  int
	height int
	format Format
	stride int

	mu     sync.Mutex
	pix    []byte
	pooled bool
}

// New wraps pix as a frame. pix must hold exactly width*height*channels bytes
// in row-major order. The frame takes ownership of pix.
func New(width, height int, format Format, pix []byte) (*Frame, error) {
	ch := format.Channels()
	if ch == 0 {
		return nil, fmt.Errorf("frame: unsupported pixel format %v", format)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("frame: invalid dimensions %dx%d", width, height)
	}
	if len(pix) != width*height*ch {
		return nil, fmt.Errorf("frame: buffer holds %d bytes, want %d", len(pix), width*height*ch)
	}
	return &Frame{width: width, height: height, format: format, stride: width * ch, pix: pix}, nil
}

// FromImage copies img into a pooled RGBA frame.
func FromImage(img image.Image) (*Frame, error) {
	if img == nil {
		return nil, errors.New("frame: input image is nil")
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("frame: empty image bounds %v", b)
	}

	var src *image.NRGBA
	switch v := img.(type) {
	case *image.NRGBA:
		src = v
	case *image.RGBA:
		// Opaque camera frames; premultiplied values equal straight values.
		f := pooledFrame(b.Dx(), b.Dy(), FormatRGBA)
		dst := &image.RGBA{Pix: f.pix, Stride: f.stride, Rect: image.Rect(0, 0, b.Dx(), b.Dy())}
		draw.Draw(dst, dst.Rect, v, b.Min, draw.Src)
		return f, nil
	default:
		src = imaging.Clone(img)
	}

	f := pooledFrame(b.Dx(), b.Dy(), FormatRGBA)
	sb := src.Bounds()
	for y := range f.height {
		si := src.PixOffset(sb.Min.X, sb.Min.Y+y)
		copy(f.pix[y*f.stride:(y+1)*f.stride], src.Pix[si:si+f.stride])
	}
	return f, nil
}

func pooledFrame(width, height int, format Format) *Frame {
	stride := width * format.Channels()
	return &Frame{
		width:  width,
		height: height,
		format: format,
		stride: stride,
		pix:    mempool.GetBytes(stride * height),
		pooled: true,
	}
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int { return f.width }

// Height returns the frame height in pixels.
func (f *Frame) Height() int { return f.height }

// Format returns the pixel format.
func (f *Frame) Format() Format { return f.format }

// Stride returns the number of bytes per row.
func (f *Frame) Stride() int { return f.stride }

// Bounds returns the frame rectangle anchored at the origin.
func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.width, f.height) }

// View calls fn with the pixel buffer. The slice must not be retained past fn.
func (f *Frame) View(fn func(pix []byte) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pix == nil {
		return ErrReleased
	}
	return fn(f.pix)
}

// Clone copies the frame into a new pooled frame owned by the caller.
func (f *Frame) Clone() (*Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pix == nil {
		return nil, ErrReleased
	}
	c := pooledFrame(f.width, f.height, f.format)
	copy(c.pix, f.pix)
	return c, nil
}

// Released reports whether Release has been called.
func (f *Frame) Released() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pix == nil
}

// Release returns the pixel buffer to the pool. Further calls are no-ops.
func (f *Frame) Release() {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pix == nil {
		return
	}
	if f.pooled {
		mempool.PutBytes(f.pix)
	}
	f.pix = nil
	slog.Debug("Frame released", "width", f.width, "height", f.height)
}
