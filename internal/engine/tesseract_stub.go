//go:build !tesseract

package engine

import (
	"errors"

	"github.com/MeKo-Tech/roiscan/internal/frame"
)

// TesseractAvailable reports whether the binary was built with the native
// Tesseract backend.
const TesseractAvailable = false

// ErrTesseractUnavailable is returned by the stub backend. Rebuild with
// -tags tesseract to link libtesseract.
var ErrTesseractUnavailable = errors.New("tesseract support not compiled in (build with -tags tesseract)")

type stubBackend struct{}

// NewTesseractBackend returns a backend whose Init always fails.
func NewTesseractBackend() Backend { return stubBackend{} }

func (stubBackend) Init(string, string) error        { return ErrTesseractUnavailable }
func (stubBackend) SetVariable(string, string) error { return ErrTesseractUnavailable }
func (stubBackend) SetImage(*frame.Gray) error       { return ErrTesseractUnavailable }
func (stubBackend) Text() (string, error)            { return "", ErrTesseractUnavailable }
func (stubBackend) End() error                       { return nil }
