package testutil

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/roiscan/internal/frame"
	"github.com/MeKo-Tech/roiscan/internal/region"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ImageSize represents common image dimensions.
type ImageSize struct {
	Width  int
	Height int
}

var (
	// Common test frame sizes.
	SmallSize  = ImageSize{320, 240}
	MediumSize = ImageSize{640, 480}
	LargeSize  = ImageSize{1024, 768}
)

// SceneConfig describes a synthetic camera frame with text inside a region.
type SceneConfig struct {
	Text       string
	Size       ImageSize
	Region     region.ScanRegion // text is drawn inside this rectangle
	Background color.Color
	Foreground color.Color
	FontFace   font.Face
	Rotation   float64 // rotation in degrees, applied to the whole frame
}

// DefaultSceneConfig returns a 640x480 white frame with black text in the
// default scan region.
func DefaultSceneConfig() SceneConfig {
	return SceneConfig{
		Text:       "SCAN-42.XY",
		Size:       MediumSize,
		Region:     region.DefaultConfig().Initial,
		Background: color.White,
		Foreground: color.Black,
		FontFace:   basicfont.Face7x13,
	}
}

// TextOrigin returns the baseline origin used for the text of cfg: a small
// inset from the region's left edge, vertically centred.
func TextOrigin(cfg SceneConfig) image.Point {
	m := cfg.FontFace.Metrics()
	ascent := m.Ascent.Ceil()
	height := m.Height.Ceil()
	return image.Pt(cfg.Region.X+8, cfg.Region.Y+(cfg.Region.Height-height)/2+ascent)
}

// RenderScene draws cfg into a new RGBA image.
func RenderScene(cfg SceneConfig) *image.RGBA {
	if cfg.FontFace == nil {
		cfg.FontFace = basicfont.Face7x13
	}
	img := image.NewRGBA(image.Rect(0, 0, cfg.Size.Width, cfg.Size.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{cfg.Background}, image.Point{}, draw.Src)

	if cfg.Text != "" {
		drawer := &font.Drawer{
			Dst:  img,
			Src:  &image.Uniform{cfg.Foreground},
			Face: cfg.FontFace,
			Dot:  fixed.P(TextOrigin(cfg).X, TextOrigin(cfg).Y),
		}
		drawer.DrawString(cfg.Text)
	}

	if cfg.Rotation != 0 {
		rotated := imaging.Rotate(img, cfg.Rotation, cfg.Background)
		rgba := image.NewRGBA(rotated.Bounds())
		draw.Draw(rgba, rgba.Bounds(), rotated, rotated.Bounds().Min, draw.Src)
		return rgba
	}
	return img
}

// RenderTextFrame renders cfg as a pooled capture frame.
func RenderTextFrame(t *testing.T, cfg SceneConfig) *frame.Frame {
	t.Helper()
	f, err := frame.FromImage(RenderScene(cfg))
	require.NoError(t, err, "Failed to build frame from scene")
	return f
}

// BlankFrame returns a frame filled with the background colour only.
func BlankFrame(t *testing.T, size ImageSize) *frame.Frame {
	t.Helper()
	cfg := DefaultSceneConfig()
	cfg.Text = ""
	cfg.Size = size
	return RenderTextFrame(t, cfg)
}

// SaveImage saves an image as PNG to the specified path.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	dir := filepath.Dir(path)
	require.NoError(t, EnsureDir(dir), "Failed to create directory %s", dir)

	file, err := os.Create(path) //nolint:gosec // G304: Test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()

	require.NoError(t, png.Encode(file, img), "Failed to encode PNG image")
}

// WriteScene renders cfg and stores it as a PNG in dir, returning the path.
func WriteScene(t *testing.T, dir, name string, cfg SceneConfig) string {
	t.Helper()
	path := filepath.Join(dir, fmt.Sprintf("%s.png", name))
	SaveImage(t, RenderScene(cfg), path)
	return path
}

// EnsureDir creates path and its parents if they do not exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o750)
}
