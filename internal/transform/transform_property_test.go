package transform

import (
	"math"
	"testing"

	"github.com/MeKo-Tech/roiscan/internal/frame"
	"github.com/MeKo-Tech/roiscan/internal/region"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestLuma_WithinTolerance verifies the fixed-point conversion tracks the
// floating point BT.601 formula.
func TestLuma_WithinTolerance(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("luma within 1 of float formula", prop.ForAll(
		func(r, g, b uint8) bool {
			want := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
			got := float64(LumaOf(LumaBT601, r, g, b))
			return math.Abs(want-got) <= lumaTolerance
		},
		gen.UInt8(),
		gen.UInt8(),
		gen.UInt8(),
	))

	properties.TestingRun(t)
}

// TestProcess_OutputMatchesClip verifies output dimensions equal the clipped
// region for arbitrary placements.
func TestProcess_OutputMatchesClip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	f, err := frame.New(64, 48, frame.FormatRGB, make([]byte, 64*48*3))
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	p := New(DefaultConfig())

	properties.Property("dimensions equal clipped rect", prop.ForAll(
		func(x, y, w, h int) bool {
			r := region.ScanRegion{X: x, Y: y, Width: w, Height: h}
			clip := Clip(r, f.Bounds())
			g, err := p.Process(f, r)
			if clip.Empty() {
				return err != nil && g == nil
			}
			if err != nil {
				return false
			}
			defer g.Release()
			return g.Width() == clip.Dx() && g.Height() == clip.Dy() && g.Channels() == 1
		},
		gen.IntRange(-100, 100),
		gen.IntRange(-100, 100),
		gen.IntRange(0, 150),
		gen.IntRange(0, 150),
	))

	properties.TestingRun(t)
}
