// Package region implements the user-adjustable scan rectangle and the drag
// interaction that resizes it.
package region

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"
)

const (
	// DefaultMinSize is the smallest width or height a region may have.
	DefaultMinSize = 100
	// DefaultTouchZone is how close to an edge a drag must start to resize it.
	DefaultTouchZone = 70
)

// ScanRegion is an axis-aligned rectangle in view coordinates.
type ScanRegion struct {
	X      int `json:"x" mapstructure:"x" yaml:"x"`
	Y      int `json:"y" mapstructure:"y" yaml:"y"`
	Width  int `json:"width" mapstructure:"width" yaml:"width"`
	Height int `json:"height" mapstructure:"height" yaml:"height"`
}

// Rect converts the region to an image.Rectangle. The far edges saturate at
// math.MaxInt instead of wrapping.
func (r ScanRegion) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, saturatingAdd(r.X, r.Width), saturatingAdd(r.Y, r.Height))
}

func saturatingAdd(a, b int) int {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return math.MaxInt
	case b < 0 && a < math.MinInt-b:
		return math.MinInt
	}
	return a + b
}

// maxDimension bounds a dragged width or height.
const maxDimension = math.MaxInt32

// resize returns base+delta clamped to [minSize, maxDimension].
func resize(base int, delta float64, minSize int) int {
	v := float64(base) + delta
	switch {
	case math.IsNaN(v):
		return max(minSize, base)
	case v < float64(minSize):
		return minSize
	case v > maxDimension:
		return maxDimension
	}
	return int(v)
}

func (r ScanRegion) String() string {
	return fmt.Sprintf("{x:%d y:%d w:%d h:%d}", r.X, r.Y, r.Width, r.Height)
}

// Clamp returns r with width and height raised to at least minSize.
func (r ScanRegion) Clamp(minSize int) ScanRegion {
	r.Width = max(minSize, r.Width)
	r.Height = max(minSize, r.Height)
	return r
}

// Config holds the geometry constraints of a Controller.
type Config struct {
	MinSize   int
	TouchZone int
	Initial   ScanRegion
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{
		MinSize:   DefaultMinSize,
		TouchZone: DefaultTouchZone,
		Initial:   ScanRegion{X: 50, Y: 50, Width: 200, Height: 100},
	}
}

// Axis names the dimension a drag resized.
type Axis int

const (
	AxisNone Axis = iota
	AxisHorizontal
	AxisVertical
)

func (a Axis) String() string {
	switch a {
	case AxisHorizontal:
		return "horizontal"
	case AxisVertical:
		return "vertical"
	}
	return "none"
}

// Controller owns the current ScanRegion and mutates it in response to
// touch-down and touch-move events.
//
// Touch events are expected from a single interaction goroutine. Snapshot may
// be called from any goroutine and always returns a copy.
type Controller struct {
	minSize   int
	touchZone int

	mu      sync.RWMutex
	current ScanRegion

	// Drag baseline recorded at touch-down.
	active   bool
	originX  float64
	originY  float64
	baseline ScanRegion
}

// NewController creates a controller starting at cfg.Initial.
func NewController(cfg Config) *Controller {
	if cfg.MinSize <= 0 {
		cfg.MinSize = DefaultMinSize
	}
	if cfg.TouchZone <= 0 {
		cfg.TouchZone = DefaultTouchZone
	}
	return &Controller{
		minSize:   cfg.MinSize,
		touchZone: cfg.TouchZone,
		current:   cfg.Initial.Clamp(cfg.MinSize),
	}
}

// MinSize returns the minimum region dimension.
func (c *Controller) MinSize() int { return c.minSize }

// TouchZone returns the edge touch zone size.
func (c *Controller) TouchZone() int { return c.touchZone }

// Snapshot returns a copy of the current region.
func (c *Controller) Snapshot() ScanRegion {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// SetRegion replaces the region, for example after a view re-layout. The
// region is clamped to the minimum size and any drag in progress is dropped.
func (c *Controller) SetRegion(r ScanRegion) ScanRegion {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = r.Clamp(c.minSize)
	c.active = false
	return c.current
}

// TouchDown records the drag origin and the region's size at this instant.
func (c *Controller) TouchDown(x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = true
	c.originX = x
	c.originY = y
	c.baseline = c.current
}

// TouchMove resizes the region along the dominant drag axis if the drag
// started near a matching edge. It returns the axis that was resized, or
// AxisNone when the move committed nothing.
func (c *Controller) TouchMove(x, y float64) Axis {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return AxisNone
	}

	dx := x - c.originX
	dy := y - c.originY
	b := c.baseline

	// Ties resize horizontally.
	if math.Abs(dx) >= math.Abs(dy) {
		if !c.nearHorizontalEdge(b) {
			return AxisNone
		}
		c.current.Width = resize(b.Width, dx, c.minSize)
		slog.Debug("Region resized", "axis", "horizontal", "width", c.current.Width)
		return AxisHorizontal
	}

	if !c.nearVerticalEdge(b) {
		return AxisNone
	}
	c.current.Height = resize(b.Height, dy, c.minSize)
	slog.Debug("Region resized", "axis", "vertical", "height", c.current.Height)
	return AxisVertical
}

// nearHorizontalEdge reports whether the drag origin lies within the touch
// zone of the left or right edge of b.
func (c *Controller) nearHorizontalEdge(b ScanRegion) bool {
	zone := float64(c.touchZone)
	left := float64(b.X)
	right := float64(b.X + b.Width)
	return math.Abs(c.originX-right) < zone || math.Abs(c.originX-left) < zone
}

// nearVerticalEdge reports whether the drag origin lies within the touch zone
// of the top or bottom edge of b.
func (c *Controller) nearVerticalEdge(b ScanRegion) bool {
	zone := float64(c.touchZone)
	top := float64(b.Y)
	bottom := float64(b.Y + b.Height)
	return math.Abs(c.originY-bottom) < zone || math.Abs(c.originY-top) < zone
}
