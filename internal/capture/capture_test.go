package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"sync"
	"testing"

	"github.com/MeKo-Tech/roiscan/internal/scanerr"
	"github.com/MeKo-Tech/roiscan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// askPermission grants or refuses on request and counts requests.
type askPermission struct {
	mu       sync.Mutex
	granted  bool
	answer   bool
	err      error
	requests int
}

func (p *askPermission) Granted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.granted
}

func (p *askPermission) Request(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests++
	if p.err != nil {
		return false, p.err
	}
	p.granted = p.answer
	return p.answer, nil
}

func TestStillFrameIsFreshCopy(t *testing.T) {
	s, err := NewStill(solid(4, 3, color.White))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(4, 3), s.Size())

	a, err := s.Frame(context.Background())
	require.NoError(t, err)
	b, err := s.Frame(context.Background())
	require.NoError(t, err)

	a.Release()
	assert.False(t, b.Released())
	b.Release()
}

func TestStillRejectsEmpty(t *testing.T) {
	_, err := NewStill(nil)
	assert.Error(t, err)
	_, err = NewStill(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.Error(t, err)
}

func TestLoadStill(t *testing.T) {
	path := testutil.WriteScene(t, t.TempDir(), "still", testutil.DefaultSceneConfig())

	s, err := LoadStill(path)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(640, 480), s.Size())

	_, err = LoadStill(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestFeedLifecycle(t *testing.T) {
	f := NewFeed()
	ctx := context.Background()

	assert.ErrorIs(t, f.Push(solid(2, 2, color.White)), ErrNotBound)

	readyCalls := 0
	require.NoError(t, f.Bind(ctx, func() { readyCalls++ }))

	fr, err := f.Frame(ctx)
	require.NoError(t, err)
	assert.Nil(t, fr, "no frame before the first push")

	require.NoError(t, f.Push(solid(2, 2, color.White)))
	require.NoError(t, f.Push(solid(3, 3, color.Black)))
	assert.Equal(t, 1, readyCalls, "ready fires once per bind")
	assert.Equal(t, uint64(2), f.Frames())

	fr, err = f.Frame(ctx)
	require.NoError(t, err)
	require.NotNil(t, fr)
	assert.Equal(t, 3, fr.Width())
	fr.Release()

	again, err := f.Frame(ctx)
	require.NoError(t, err)
	require.NotNil(t, again, "releasing a copy does not affect the held frame")
	again.Release()

	require.NoError(t, f.Unbind())
	fr, err = f.Frame(ctx)
	require.NoError(t, err)
	assert.Nil(t, fr)
}

func TestFeedFrameCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFeed().Frame(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSessionStartWithPermission(t *testing.T) {
	feed := NewFeed()
	s := NewSession(feed, StaticPermission(true))
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	assert.Equal(t, SessionBound, s.State())

	fr, err := s.Frame(ctx)
	require.NoError(t, err)
	assert.Nil(t, fr, "frames are withheld until the camera reports ready")

	require.NoError(t, feed.Push(solid(2, 2, color.White)))
	<-s.Ready()

	fr, err = s.Frame(ctx)
	require.NoError(t, err)
	require.NotNil(t, fr)
	fr.Release()
}

func TestSessionRequestsPermissionOnce(t *testing.T) {
	perm := &askPermission{answer: false}
	s := NewSession(NewFeed(), perm)

	err := s.Start(context.Background())
	require.ErrorIs(t, err, scanerr.ErrPermissionDenied)
	assert.Equal(t, SessionDenied, s.State())
	assert.Equal(t, 1, perm.requests)

	_, err = s.Frame(context.Background())
	require.ErrorIs(t, err, scanerr.ErrPermissionDenied)

	require.ErrorIs(t, s.Resume(context.Background()), scanerr.ErrPermissionDenied)
	assert.Equal(t, 1, perm.requests, "resume never prompts")
}

func TestSessionPermissionGrantedOnRequest(t *testing.T) {
	perm := &askPermission{answer: true}
	s := NewSession(NewFeed(), perm)
	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, SessionBound, s.State())
}

func TestSessionPermissionRequestError(t *testing.T) {
	perm := &askPermission{err: errors.New("dialog dismissed")}
	s := NewSession(NewFeed(), perm)
	require.ErrorIs(t, s.Start(context.Background()), scanerr.ErrPermissionDenied)
}

func TestSessionPauseResume(t *testing.T) {
	still, err := NewStill(solid(4, 4, color.White))
	require.NoError(t, err)
	s := NewSession(still, nil)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	first := s.Ready()
	<-first
	assert.True(t, still.Bound())

	require.NoError(t, s.Pause())
	assert.Equal(t, SessionPaused, s.State())
	assert.False(t, still.Bound())
	fr, err := s.Frame(ctx)
	require.NoError(t, err)
	assert.Nil(t, fr, "a paused session yields no frame")

	require.NoError(t, s.Resume(ctx))
	assert.NotEqual(t, first, s.Ready(), "each bind has its own readiness")
	<-s.Ready()
	fr, err = s.Frame(ctx)
	require.NoError(t, err)
	require.NotNil(t, fr)
	fr.Release()

	require.NoError(t, s.Stop())
	assert.Equal(t, SessionStopped, s.State())
	require.NoError(t, s.Stop())
}

func TestSessionIgnoresStaleReady(t *testing.T) {
	feed := NewFeed()
	s := NewSession(feed, nil)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	s.mu.Lock()
	stale := s.gen
	s.mu.Unlock()

	require.NoError(t, s.Pause())
	require.NoError(t, s.Resume(ctx))

	s.markReady(stale)
	select {
	case <-s.Ready():
		t.Fatal("stale readiness must be ignored")
	default:
	}
}

func TestSessionStateString(t *testing.T) {
	assert.Equal(t, "bound", SessionBound.String())
	assert.Equal(t, "denied", SessionDenied.String())
	assert.Equal(t, "unknown", SessionState(99).String())
}
