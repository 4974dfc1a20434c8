package transform

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/MeKo-Tech/roiscan/internal/frame"
	"github.com/MeKo-Tech/roiscan/internal/region"
	"github.com/MeKo-Tech/roiscan/internal/scanerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lumaTolerance is the maximum allowed deviation from the floating point
// BT.601 formula.
const lumaTolerance = 1

func solidFrame(t *testing.T, w, h int, c color.NRGBA) *frame.Frame {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	f, err := frame.FromImage(img)
	require.NoError(t, err)
	return f
}

func TestProcess_RegionOutsideFrame(t *testing.T) {
	f := solidFrame(t, 64, 48, color.NRGBA{A: 255})
	defer f.Release()
	p := New(DefaultConfig())

	tests := []struct {
		name string
		r    region.ScanRegion
	}{
		{"right of frame", region.ScanRegion{X: 64, Y: 0, Width: 100, Height: 100}},
		{"below frame", region.ScanRegion{X: 0, Y: 500, Width: 100, Height: 100}},
		{"negative quadrant", region.ScanRegion{X: -300, Y: -300, Width: 100, Height: 100}},
		{"zero size", region.ScanRegion{X: 10, Y: 10}},
		{"negative size", region.ScanRegion{X: 60, Y: 40, Width: -50, Height: -30}},
		{"far right near int max", region.ScanRegion{X: math.MaxInt - 50, Y: 0, Width: 200, Height: 100}},
		{"far below near int max", region.ScanRegion{X: 0, Y: math.MaxInt - 10, Width: 200, Height: 100}},
		{"far left near int min", region.ScanRegion{X: math.MinInt, Y: 0, Width: 200, Height: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := p.Process(f, tt.r)
			require.ErrorIs(t, err, scanerr.ErrEmptyRegion)
			assert.Nil(t, g)
		})
	}
}

func TestProcess_ClipsToFrame(t *testing.T) {
	f := solidFrame(t, 640, 480, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	defer f.Release()

	g, err := New(DefaultConfig()).Process(f, region.ScanRegion{X: 600, Y: 400, Width: 200, Height: 100})
	require.NoError(t, err)
	defer g.Release()

	assert.Equal(t, 40, g.Width())
	assert.Equal(t, 80, g.Height())
	assert.Equal(t, 1, g.Channels())
}

func TestProcess_KnownPattern(t *testing.T) {
	colors := []color.NRGBA{
		{R: 255, A: 255},
		{G: 255, A: 255},
		{B: 255, A: 255},
		{R: 255, G: 255, B: 255, A: 255},
		{R: 12, G: 200, B: 99, A: 255},
		{R: 128, G: 128, B: 128, A: 255},
	}
	img := image.NewNRGBA(image.Rect(0, 0, len(colors), 1))
	for x, c := range colors {
		img.SetNRGBA(x, 0, c)
	}
	f, err := frame.FromImage(img)
	require.NoError(t, err)
	defer f.Release()

	g, err := New(DefaultConfig()).Process(f, region.ScanRegion{Width: len(colors), Height: 1})
	require.NoError(t, err)
	defer g.Release()

	out, err := g.Clone()
	require.NoError(t, err)
	for x, c := range colors {
		want := 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
		got := float64(out.GrayAt(x, 0).Y)
		assert.InDelta(t, want, got, lumaTolerance, "pixel %d (%v)", x, c)
	}
}

func TestProcess_RGBFrame(t *testing.T) {
	// 2x2 RGB frame, region selects the bottom-right pixel.
	pix := []byte{
		0, 0, 0, 0, 0, 0,
		0, 0, 0, 10, 20, 30,
	}
	f, err := frame.New(2, 2, frame.FormatRGB, pix)
	require.NoError(t, err)

	g, err := New(DefaultConfig()).Process(f, region.ScanRegion{X: 1, Y: 1, Width: 100, Height: 100})
	require.NoError(t, err)
	defer g.Release()

	out, err := g.Clone()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1, 1), out.Bounds())
	assert.Equal(t, LumaOf(LumaBT601, 10, 20, 30), out.GrayAt(0, 0).Y)
}

func TestProcess_OutputSurvivesFrameRelease(t *testing.T) {
	f := solidFrame(t, 32, 32, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
	g, err := New(DefaultConfig()).Process(f, region.ScanRegion{Width: 16, Height: 16})
	require.NoError(t, err)
	defer g.Release()

	assert.False(t, f.Released(), "process must not release the input frame")
	f.Release()

	out, err := g.Clone()
	require.NoError(t, err)
	assert.Equal(t, uint8(200), out.GrayAt(5, 5).Y)
}

func TestProcess_ReleasedFrame(t *testing.T) {
	f := solidFrame(t, 8, 8, color.NRGBA{A: 255})
	f.Release()

	_, err := New(DefaultConfig()).Process(f, region.ScanRegion{Width: 4, Height: 4})
	require.ErrorIs(t, err, frame.ErrReleased)
}

func TestProcess_NilFrame(t *testing.T) {
	_, err := New(DefaultConfig()).Process(nil, region.ScanRegion{Width: 4, Height: 4})
	require.ErrorIs(t, err, scanerr.ErrNoFrame)
}

func TestNew_InvalidWeightsFallBack(t *testing.T) {
	p := New(Config{Luma: Luma{R: 1, G: 1, B: 1}})
	assert.Equal(t, LumaBT601, p.luma)

	p = New(Config{Luma: LumaBT709})
	assert.Equal(t, LumaBT709, p.luma)
}
