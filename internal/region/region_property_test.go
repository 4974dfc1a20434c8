package region

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type touch struct {
	Down bool
	X, Y float64
}

func genTouch() gopter.Gen {
	return gopter.CombineGens(
		gen.Bool(),
		gen.Float64Range(-2000, 2000),
		gen.Float64Range(-2000, 2000),
	).Map(func(vals []interface{}) touch {
		return touch{Down: vals[0].(bool), X: vals[1].(float64), Y: vals[2].(float64)}
	})
}

// TestRegion_MinSizeHolds verifies no drag sequence shrinks a region below the minimum.
func TestRegion_MinSizeHolds(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("width and height stay >= MinSize", prop.ForAll(
		func(events []touch, w, h int) bool {
			c := newTestController(ScanRegion{X: 0, Y: 0, Width: w, Height: h})
			for _, ev := range events {
				if ev.Down {
					c.TouchDown(ev.X, ev.Y)
				} else {
					c.TouchMove(ev.X, ev.Y)
				}
				r := c.Snapshot()
				if r.Width < DefaultMinSize || r.Height < DefaultMinSize {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genTouch()),
		gen.IntRange(0, 800),
		gen.IntRange(0, 800),
	))

	properties.TestingRun(t)
}

// TestRegion_InteriorDragNeverResizes verifies drags starting farther than the
// touch zone from every edge leave the size unchanged.
func TestRegion_InteriorDragNeverResizes(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("interior drags keep width and height", prop.ForAll(
		func(fx, fy, mx, my float64) bool {
			initial := ScanRegion{X: 100, Y: 100, Width: 600, Height: 400}
			c := newTestController(initial)

			// Map fractions into the strict interior beyond the touch zone.
			zone := float64(DefaultTouchZone)
			downX := 100 + zone + 1 + fx*(600-2*zone-2)
			downY := 100 + zone + 1 + fy*(400-2*zone-2)

			c.TouchDown(downX, downY)
			c.TouchMove(mx, my)
			r := c.Snapshot()
			return r.Width == initial.Width && r.Height == initial.Height
		},
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
		gen.Float64Range(-3000, 3000),
		gen.Float64Range(-3000, 3000),
	))

	properties.TestingRun(t)
}

// TestRegion_OriginNeverMoves verifies drags only change dimensions.
func TestRegion_OriginNeverMoves(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("x and y are unchanged by drags", prop.ForAll(
		func(events []touch, x, y int) bool {
			c := newTestController(ScanRegion{X: x, Y: y, Width: 300, Height: 300})
			for _, ev := range events {
				if ev.Down {
					c.TouchDown(ev.X, ev.Y)
				} else {
					c.TouchMove(ev.X, ev.Y)
				}
			}
			r := c.Snapshot()
			return r.X == x && r.Y == y
		},
		gen.SliceOf(genTouch()),
		gen.IntRange(-500, 500),
		gen.IntRange(-500, 500),
	))

	properties.TestingRun(t)
}
