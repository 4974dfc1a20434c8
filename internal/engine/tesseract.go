//go:build tesseract

package engine

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/MeKo-Tech/roiscan/internal/frame"
	"github.com/otiai10/gosseract/v2"
)

// TesseractAvailable reports whether the binary was built with the native
// Tesseract backend.
const TesseractAvailable = true

// TesseractBackend drives libtesseract through gosseract.
type TesseractBackend struct {
	client *gosseract.Client
	// gosseract re-initializes the engine after every SetVariable, so
	// unchanged values are not sent again.
	vars variableSet
}

// NewTesseractBackend returns an uninitialized Tesseract backend.
func NewTesseractBackend() Backend {
	return &TesseractBackend{}
}

// Init creates a client bound to dataDir and lang. gosseract initializes the
// native API lazily, so a blank page is recognized once to surface missing or
// corrupt trained data here instead of on the first scan.
func (b *TesseractBackend) Init(dataDir, lang string) error {
	if b.client != nil {
		_ = b.client.Close()
		b.client = nil
	}

	c := gosseract.NewClient()
	if dataDir != "" {
		if err := c.SetTessdataPrefix(dataDir); err != nil {
			_ = c.Close()
			return fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := c.SetLanguage(lang); err != nil {
		_ = c.Close()
		return fmt.Errorf("set language %q: %w", lang, err)
	}

	blank := image.NewGray(image.Rect(0, 0, 16, 16))
	draw.Draw(blank, blank.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	data, err := encodePNG(blank)
	if err != nil {
		_ = c.Close()
		return err
	}
	if err := c.SetImageFromBytes(data); err != nil {
		_ = c.Close()
		return fmt.Errorf("warmup image: %w", err)
	}
	if _, err := c.Text(); err != nil {
		_ = c.Close()
		return fmt.Errorf("initialize tesseract: %w", err)
	}

	b.client = c
	b.vars = variableSet{}
	return nil
}

func (b *TesseractBackend) SetVariable(key, value string) error {
	if b.client == nil {
		return errors.New("tesseract not initialized")
	}
	if !b.vars.update(key, value) {
		return nil
	}
	if err := b.client.SetVariable(gosseract.SettableVariable(key), value); err != nil {
		delete(b.vars, key)
		return err
	}
	return nil
}

func (b *TesseractBackend) SetImage(img *frame.Gray) error {
	if b.client == nil {
		return errors.New("tesseract not initialized")
	}
	var data []byte
	err := img.View(func(g *image.Gray) error {
		var encErr error
		data, encErr = encodePNG(g)
		return encErr
	})
	if err != nil {
		return err
	}
	return b.client.SetImageFromBytes(data)
}

func (b *TesseractBackend) Text() (string, error) {
	if b.client == nil {
		return "", errors.New("tesseract not initialized")
	}
	return b.client.Text()
}

func (b *TesseractBackend) End() error {
	if b.client == nil {
		return nil
	}
	err := b.client.Close()
	b.client = nil
	b.vars = nil
	return err
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
