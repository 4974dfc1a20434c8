package support

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/MeKo-Tech/roiscan/internal/capture"
	"github.com/MeKo-Tech/roiscan/internal/engine"
	"github.com/MeKo-Tech/roiscan/internal/engine/enginetest"
	"github.com/MeKo-Tech/roiscan/internal/frame"
	"github.com/MeKo-Tech/roiscan/internal/region"
	"github.com/MeKo-Tech/roiscan/internal/scan"
	"github.com/MeKo-Tech/roiscan/internal/transform"
)

// countingEngine counts recognitions that reached the engine.
type countingEngine struct {
	*engine.Manager
	mu    sync.Mutex
	calls int
}

func (c *countingEngine) Recognize(img *frame.Gray) (engine.Extracted, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.Manager.Recognize(img)
}

func (c *countingEngine) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// ScanContext holds the state of one scenario: a pushed camera feed, the
// region controller and the engine behind the orchestrator.
type ScanContext struct {
	Feed    *capture.Feed
	Session *capture.Session
	Regions *region.Controller
	Engine  *countingEngine
	Fake    *enginetest.Fake
	Orch    *scan.Orchestrator

	LastResult *scan.Result
	LastErr    error
	LastAxis   region.Axis

	release func()
	pending <-chan scan.Outcome
}

// NewScanContext wires a fresh pipeline around the template matching engine.
func NewScanContext() (*ScanContext, error) {
	return newScanContext(enginetest.NewGlyphBackend(), nil)
}

func newScanContext(backend engine.Backend, fake *enginetest.Fake) (*ScanContext, error) {
	feed := capture.NewFeed()
	session := capture.NewSession(feed, capture.StaticPermission(true))
	if err := session.Start(context.Background()); err != nil {
		return nil, err
	}
	sc := &ScanContext{
		Feed:    feed,
		Session: session,
		Regions: region.NewController(region.DefaultConfig()),
		Engine:  &countingEngine{Manager: engine.NewManager(engine.DefaultConfig(), backend, nil)},
		Fake:    fake,
	}
	sc.Orch = scan.New(session, sc.Regions, transform.New(transform.DefaultConfig()), sc.Engine)
	return sc, nil
}

// UseSlowEngine replaces the engine with a fake that blocks until released.
func (sc *ScanContext) UseSlowEngine(text string) error {
	sc.Cleanup()
	fake := enginetest.NewFake(text)
	next, err := newScanContext(fake, fake)
	if err != nil {
		return err
	}
	*sc = *next
	return nil
}

// Push delivers img as the latest camera frame.
func (sc *ScanContext) Push(img image.Image) error {
	return sc.Feed.Push(img)
}

// Scan runs one scan and records its outcome.
func (sc *ScanContext) Scan() {
	sc.LastResult, sc.LastErr = sc.Orch.Scan(context.Background())
}

// StartHeldScan starts a scan that blocks inside the engine until Release.
func (sc *ScanContext) StartHeldScan() error {
	if sc.Fake == nil {
		return errors.New("held scans need the slow engine")
	}
	entered, release := sc.Fake.Hold()
	sc.release = release
	sc.pending = sc.Orch.ScanAsync(context.Background())
	select {
	case <-entered:
		return nil
	case oc := <-sc.pending:
		return fmt.Errorf("scan finished before reaching the engine: %v", oc.Err)
	}
}

// Release lets a held scan finish and records its outcome.
func (sc *ScanContext) Release() {
	if sc.release == nil {
		return
	}
	sc.release()
	sc.release = nil
	oc := <-sc.pending
	sc.LastResult, sc.LastErr = oc.Result, oc.Err
}

// Cleanup releases held scans and stops the session and engine.
func (sc *ScanContext) Cleanup() {
	sc.Release()
	_ = sc.Session.Stop()
	sc.Engine.Shutdown()
}

func failureMessage(err error) string {
	if err == nil {
		return ""
	}
	return scan.FailureMessage(err)
}
