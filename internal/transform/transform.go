// Package transform turns a captured frame and a scan region into the
// grayscale image handed to text recognition.
package transform

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/roiscan/internal/frame"
	"github.com/MeKo-Tech/roiscan/internal/mempool"
	"github.com/MeKo-Tech/roiscan/internal/region"
	"github.com/MeKo-Tech/roiscan/internal/scanerr"
)

// Luma coefficients in thousandths.
type Luma struct {
	R, G, B int
}

var (
	// LumaBT601 matches the conversion used by most camera pipelines and OpenCV.
	LumaBT601 = Luma{R: 299, G: 587, B: 114}
	// LumaBT709 is the HDTV weighting.
	LumaBT709 = Luma{R: 213, G: 715, B: 72}
)

// Config holds transform settings.
type Config struct {
	Luma Luma
}

// DefaultConfig returns BT.601 luma weights.
func DefaultConfig() Config {
	return Config{Luma: LumaBT601}
}

// Pipeline crops frames to a region and converts them to grayscale.
type Pipeline struct {
	luma Luma
}

// New creates a transform pipeline. Weights that do not sum to 1000 fall back
// to BT.601.
func New(cfg Config) *Pipeline {
	l := cfg.Luma
	if l.R+l.G+l.B != 1000 || l.R < 0 || l.G < 0 || l.B < 0 {
		l = LumaBT601
	}
	return &Pipeline{luma: l}
}

// Clip intersects r with the frame bounds. Regions without positive width
// and height clip to the empty rectangle.
func Clip(r region.ScanRegion, bounds image.Rectangle) image.Rectangle {
	if r.Width <= 0 || r.Height <= 0 {
		return image.Rectangle{}
	}
	return r.Rect().Intersect(bounds)
}

// Process crops f to r clipped to the frame bounds and converts the result to
// a single-channel image. f is not released; the returned image is owned by
// the caller. A region that does not overlap the frame yields EmptyRegion.
func (p *Pipeline) Process(f *frame.Frame, r region.ScanRegion) (*frame.Gray, error) {
	const op = "transform"
	if f == nil {
		return nil, scanerr.Newf(scanerr.CodeNoFrame, op, "frame is nil")
	}

	clip := Clip(r, f.Bounds())
	if clip.Empty() {
		return nil, scanerr.Newf(scanerr.CodeEmptyRegion, op,
			"region %v does not overlap frame %dx%d", r, f.Width(), f.Height())
	}

	ch := f.Format().Channels()
	w, h := clip.Dx(), clip.Dy()
	rowBytes := w * ch

	// Cropped copy; the source frame may be released independently.
	cropped := mempool.GetBytes(rowBytes * h)
	defer mempool.PutBytes(cropped)

	err := f.View(func(pix []byte) error {
		stride := f.Stride()
		for y := range h {
			si := (clip.Min.Y+y)*stride + clip.Min.X*ch
			copy(cropped[y*rowBytes:(y+1)*rowBytes], pix[si:si+rowBytes])
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: crop: %w", op, err)
	}

	gray := frame.NewGray(w, h)
	_ = gray.View(func(img *image.Gray) error {
		p.toGray(img.Pix, cropped, ch)
		return nil
	})

	slog.Debug("Region transformed", "clip", clip.String(), "format", f.Format().String())
	return gray, nil
}

// toGray writes one luma byte per pixel of src into dst.
func (p *Pipeline) toGray(dst, src []byte, ch int) {
	l := p.luma
	for i, j := 0, 0; i < len(dst); i, j = i+1, j+ch {
		y := int(src[j])*l.R + int(src[j+1])*l.G + int(src[j+2])*l.B
		dst[i] = uint8((y + 500) / 1000)
	}
}

// LumaOf returns the gray value of one RGB pixel under l.
func LumaOf(l Luma, r, g, b uint8) uint8 {
	y := int(r)*l.R + int(g)*l.G + int(b)*l.B
	return uint8((y + 500) / 1000)
}
