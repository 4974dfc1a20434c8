// Package scan runs one capture, transform and recognition pass over the
// current scan region.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/roiscan/internal/capture"
	"github.com/MeKo-Tech/roiscan/internal/engine"
	"github.com/MeKo-Tech/roiscan/internal/frame"
	"github.com/MeKo-Tech/roiscan/internal/region"
	"github.com/MeKo-Tech/roiscan/internal/scanerr"
	"github.com/google/uuid"
)

// Regioner supplies the scan region snapshot.
type Regioner interface {
	Snapshot() region.ScanRegion
}

// Transformer crops and converts a frame.
type Transformer interface {
	Process(f *frame.Frame, r region.ScanRegion) (*frame.Gray, error)
}

// Recognizer runs OCR on a processed image, releasing it.
type Recognizer interface {
	Recognize(img *frame.Gray) (engine.Extracted, error)
}

// Result is a completed scan. Found is false when recognition succeeded but
// produced no text.
type Result struct {
	ID       string             `json:"id"`
	Text     string             `json:"text"`
	Found    bool               `json:"found"`
	Region   region.ScanRegion  `json:"region"`
	Duration time.Duration      `json:"duration"`
	Stages   map[string]float64 `json:"stages_ms,omitempty"`
}

// Message returns the text shown to the user for the result.
func (r *Result) Message() string {
	if !r.Found {
		return "No text found in the image."
	}
	return "Extracted Text: " + r.Text
}

// Err returns ErrNoTextFound for an empty result and nil otherwise.
func (r *Result) Err() error {
	if !r.Found {
		return scanerr.New(scanerr.CodeNoTextFound, "scan", nil)
	}
	return nil
}

// FailureMessage returns the text shown to the user for a failed scan.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	if code := scanerr.CodeOf(err); code != "" {
		return "scan failed: " + code.Message()
	}
	return fmt.Sprintf("scan failed: %v", err)
}

// Orchestrator wires the pipeline stages together.
type Orchestrator struct {
	source    capture.Source
	regions   Regioner
	transform Transformer
	engine    Recognizer
	observer  Observer
}

// Observer is notified of every finished scan.
type Observer interface {
	ScanFinished(res *Result, err error, elapsed time.Duration)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver registers o for scan notifications.
func WithObserver(o Observer) Option {
	return func(s *Orchestrator) { s.observer = o }
}

// New creates an orchestrator over the given stages.
func New(source capture.Source, regions Regioner, t Transformer, rec Recognizer, opts ...Option) *Orchestrator {
	o := &Orchestrator{source: source, regions: regions, transform: t, engine: rec}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Scan takes one frame, crops it to the current region and recognizes it.
// Every intermediate buffer is released before Scan returns. A missing frame
// is reported as ErrNoFrame without touching the engine.
func (o *Orchestrator) Scan(ctx context.Context) (*Result, error) {
	start := time.Now()
	id := uuid.NewString()
	res, err := o.scan(ctx, id)
	elapsed := time.Since(start)

	if err != nil {
		slog.Warn("Scan failed", "scan_id", id, "code", string(scanerr.CodeOf(err)), "error", err)
	} else {
		res.Duration = elapsed
		slog.Info("Scan finished", "scan_id", id, "found", res.Found, "chars", len(res.Text), "duration", elapsed)
	}
	if o.observer != nil {
		o.observer.ScanFinished(res, err, elapsed)
	}
	return res, err
}

func (o *Orchestrator) scan(ctx context.Context, id string) (*Result, error) {
	const op = "scan"
	stages := make(map[string]float64, 3)

	t := time.Now()
	f, err := o.source.Frame(ctx)
	stages["capture"] = ms(time.Since(t))
	if err != nil {
		if scanerr.CodeOf(err) == "" && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			err = scanerr.New(scanerr.CodeNoFrame, op, err)
		}
		return nil, err
	}
	if f == nil {
		return nil, scanerr.New(scanerr.CodeNoFrame, op, nil)
	}
	defer f.Release()

	r := o.regions.Snapshot()

	t = time.Now()
	img, err := o.transform.Process(f, r)
	stages["transform"] = ms(time.Since(t))
	f.Release()
	if err != nil {
		return nil, err
	}

	t = time.Now()
	ext, err := o.engine.Recognize(img)
	stages["recognize"] = ms(time.Since(t))
	if err != nil {
		return nil, err
	}

	return &Result{ID: id, Text: ext.Text, Found: ext.Found, Region: r, Stages: stages}, nil
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
