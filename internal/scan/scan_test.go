package scan

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/MeKo-Tech/roiscan/internal/capture"
	"github.com/MeKo-Tech/roiscan/internal/engine"
	"github.com/MeKo-Tech/roiscan/internal/engine/enginetest"
	"github.com/MeKo-Tech/roiscan/internal/frame"
	"github.com/MeKo-Tech/roiscan/internal/region"
	"github.com/MeKo-Tech/roiscan/internal/scanerr"
	"github.com/MeKo-Tech/roiscan/internal/testutil"
	"github.com/MeKo-Tech/roiscan/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trackingSource hands out one frame per call and remembers them.
type trackingSource struct {
	mu     sync.Mutex
	make   func() *frame.Frame
	frames []*frame.Frame
	calls  int
}

func (s *trackingSource) Frame(context.Context) (*frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	f := s.make()
	if f != nil {
		s.frames = append(s.frames, f)
	}
	return f, nil
}

func (s *trackingSource) allReleased() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.frames {
		if !f.Released() {
			return false
		}
	}
	return true
}

// countingRecognizer wraps an engine and records the images it saw.
type countingRecognizer struct {
	inner  Recognizer
	mu     sync.Mutex
	images []*frame.Gray
}

func (c *countingRecognizer) Recognize(img *frame.Gray) (engine.Extracted, error) {
	c.mu.Lock()
	c.images = append(c.images, img)
	c.mu.Unlock()
	return c.inner.Recognize(img)
}

func (c *countingRecognizer) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.images)
}

func readyGlyphEngine(t *testing.T) *engine.Manager {
	t.Helper()
	m := engine.NewManager(engine.DefaultConfig(), enginetest.NewGlyphBackend(), nil)
	require.NoError(t, m.EnsureReady(context.Background()))
	t.Cleanup(m.Shutdown)
	return m
}

func newFixture(t *testing.T, cfg testutil.SceneConfig, rec Recognizer) (*Orchestrator, *trackingSource, *countingRecognizer) {
	t.Helper()
	src := &trackingSource{make: func() *frame.Frame { return testutil.RenderTextFrame(t, cfg) }}
	ctrl := region.NewController(region.Config{Initial: cfg.Region})
	counting := &countingRecognizer{inner: rec}
	return New(src, ctrl, transform.New(transform.DefaultConfig()), counting), src, counting
}

func TestScanStandardScenes(t *testing.T) {
	m := readyGlyphEngine(t)

	for _, scene := range testutil.StandardScenes() {
		t.Run(scene.Name, func(t *testing.T) {
			o, src, rec := newFixture(t, scene.Config, m)

			res, err := o.Scan(context.Background())
			require.NoError(t, err)
			assert.NotEmpty(t, res.ID)
			assert.Equal(t, scene.Expected, res.Text)
			assert.Equal(t, scene.Expected != "", res.Found)
			assert.Equal(t, scene.Config.Region, res.Region)
			assert.Positive(t, res.Duration)

			assert.True(t, src.allReleased(), "frame released")
			require.Equal(t, 1, rec.calls())
			assert.True(t, rec.images[0].Released(), "processed image released")
			assert.Equal(t, engine.StateReady, m.State())
		})
	}
}

func TestScanTextIsWhitelisted(t *testing.T) {
	m := readyGlyphEngine(t)
	cfg := testutil.DefaultSceneConfig()
	cfg.Text = "AB#CD"
	o, _, _ := newFixture(t, cfg, m)

	res, err := o.Scan(context.Background())
	require.NoError(t, err)
	for _, r := range res.Text {
		assert.Contains(t, engine.DefaultWhitelist+" ", string(r))
	}
	assert.Contains(t, res.Text, "AB")
}

func TestScanNoFrameSkipsEngine(t *testing.T) {
	fake := enginetest.NewFake("X")
	m := engine.NewManager(engine.DefaultConfig(), fake, nil)
	require.NoError(t, m.EnsureReady(context.Background()))

	src := &trackingSource{make: func() *frame.Frame { return nil }}
	o := New(src, region.NewController(region.DefaultConfig()), transform.New(transform.DefaultConfig()), m)

	res, err := o.Scan(context.Background())
	require.ErrorIs(t, err, scanerr.ErrNoFrame)
	assert.Nil(t, res)
	assert.Equal(t, 1, src.calls)
	assert.Zero(t, fake.Texts(), "engine is never touched")
}

func TestScanSourceErrors(t *testing.T) {
	rec := &countingRecognizer{inner: readyGlyphEngine(t)}
	ctrl := region.NewController(region.DefaultConfig())
	tr := transform.New(transform.DefaultConfig())

	t.Run("plain error becomes no frame", func(t *testing.T) {
		src := capture.SourceFunc(func(context.Context) (*frame.Frame, error) { return nil, errors.New("camera closed") })
		_, err := New(src, ctrl, tr, rec).Scan(context.Background())
		require.ErrorIs(t, err, scanerr.ErrNoFrame)
	})

	t.Run("permission denied kept", func(t *testing.T) {
		src := capture.SourceFunc(func(context.Context) (*frame.Frame, error) {
			return nil, scanerr.New(scanerr.CodePermissionDenied, "capture frame", nil)
		})
		_, err := New(src, ctrl, tr, rec).Scan(context.Background())
		require.ErrorIs(t, err, scanerr.ErrPermissionDenied)
	})

	t.Run("cancellation kept", func(t *testing.T) {
		src := capture.SourceFunc(func(ctx context.Context) (*frame.Frame, error) { return nil, context.Canceled })
		_, err := New(src, ctrl, tr, rec).Scan(context.Background())
		require.ErrorIs(t, err, context.Canceled)
	})

	assert.Zero(t, rec.calls())
}

func TestScanEmptyRegionReleasesFrame(t *testing.T) {
	fake := enginetest.NewFake("X")
	m := engine.NewManager(engine.DefaultConfig(), fake, nil)
	require.NoError(t, m.EnsureReady(context.Background()))

	cfg := testutil.DefaultSceneConfig()
	cfg.Size = testutil.ImageSize{Width: 40, Height: 40}
	cfg.Text = ""
	src := &trackingSource{make: func() *frame.Frame { return testutil.RenderTextFrame(t, cfg) }}
	ctrl := region.NewController(region.Config{Initial: region.ScanRegion{X: 100, Y: 100, Width: 120, Height: 120}})

	_, err := New(src, ctrl, transform.New(transform.DefaultConfig()), m).Scan(context.Background())
	require.ErrorIs(t, err, scanerr.ErrEmptyRegion)
	assert.True(t, scanerr.Recoverable(err))
	assert.True(t, src.allReleased())
	assert.Zero(t, fake.Texts())
}

func TestScanEngineNotReady(t *testing.T) {
	m := engine.NewManager(engine.DefaultConfig(), enginetest.NewFake("X"), nil)
	o, src, rec := newFixture(t, testutil.DefaultSceneConfig(), m)

	_, err := o.Scan(context.Background())
	require.ErrorIs(t, err, scanerr.ErrEngineNotReady)
	assert.True(t, src.allReleased())
	require.Equal(t, 1, rec.calls())
	assert.True(t, rec.images[0].Released())
}

func TestScanWhileBusy(t *testing.T) {
	fake := enginetest.NewFake("SLOW")
	m := engine.NewManager(engine.DefaultConfig(), fake, nil)
	require.NoError(t, m.EnsureReady(context.Background()))
	entered, release := fake.Hold()

	o, src, _ := newFixture(t, testutil.DefaultSceneConfig(), m)
	first := o.ScanAsync(context.Background())
	<-entered

	_, err := o.Scan(context.Background())
	require.ErrorIs(t, err, scanerr.ErrEngineBusy)

	release()
	oc := <-first
	require.NoError(t, oc.Err)
	assert.Equal(t, "SLOW", oc.Result.Text)
	assert.True(t, src.allReleased())
}

func TestScanAsyncCancelledWait(t *testing.T) {
	fake := enginetest.NewFake("LATE")
	m := engine.NewManager(engine.DefaultConfig(), fake, nil)
	require.NoError(t, m.EnsureReady(context.Background()))
	entered, release := fake.Hold()

	o, src, _ := newFixture(t, testutil.DefaultSceneConfig(), m)
	ctx, cancel := context.WithCancel(context.Background())
	out := o.ScanAsync(ctx)
	<-entered

	cancel()
	oc := <-out
	require.ErrorIs(t, oc.Err, context.Canceled)
	assert.Equal(t, engine.StateBusy, m.State(), "recognition keeps running")

	release()
	require.Eventually(t, func() bool { return m.State() == engine.StateReady }, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, src.allReleased, 5*time.Second, 10*time.Millisecond)
}

func TestScanUsesRegionSnapshot(t *testing.T) {
	fake := enginetest.NewFake("X")
	m := engine.NewManager(engine.DefaultConfig(), fake, nil)
	require.NoError(t, m.EnsureReady(context.Background()))
	entered, release := fake.Hold()

	cfg := testutil.DefaultSceneConfig()
	src := &trackingSource{make: func() *frame.Frame { return testutil.RenderTextFrame(t, cfg) }}
	ctrl := region.NewController(region.Config{Initial: cfg.Region})
	o := New(src, ctrl, transform.New(transform.DefaultConfig()), m)

	out := o.ScanAsync(context.Background())
	<-entered
	ctrl.TouchDown(250, 100)
	ctrl.TouchMove(400, 100)
	release()

	oc := <-out
	require.NoError(t, oc.Err)
	assert.Equal(t, cfg.Region, oc.Result.Region, "an in-flight scan is unaffected by dragging")
	assert.Equal(t, image.Pt(200, 100), fake.ImageSize())
	assert.NotEqual(t, cfg.Region, ctrl.Snapshot())
}

func TestResultMessages(t *testing.T) {
	found := &Result{Text: "AB-1", Found: true}
	assert.Equal(t, "Extracted Text: AB-1", found.Message())
	assert.NoError(t, found.Err())

	empty := &Result{}
	assert.Equal(t, "No text found in the image.", empty.Message())
	assert.ErrorIs(t, empty.Err(), scanerr.ErrNoTextFound)

	assert.Equal(t, "scan failed: camera is not ready yet", FailureMessage(scanerr.ErrNoFrame))
	assert.Equal(t, "scan failed: boom", FailureMessage(errors.New("boom")))
	assert.Empty(t, FailureMessage(nil))
}

type recordingObserver struct {
	mu      sync.Mutex
	results []*Result
	errs    []error
}

func (r *recordingObserver) ScanFinished(res *Result, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	r.errs = append(r.errs, err)
}

func TestObserverNotified(t *testing.T) {
	obs := &recordingObserver{}
	src := &trackingSource{make: func() *frame.Frame { return nil }}
	o := New(src, region.NewController(region.DefaultConfig()), transform.New(transform.DefaultConfig()),
		readyGlyphEngine(t), WithObserver(obs))

	_, _ = o.Scan(context.Background())
	require.Len(t, obs.errs, 1)
	assert.ErrorIs(t, obs.errs[0], scanerr.ErrNoFrame)
}
