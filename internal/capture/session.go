package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/roiscan/internal/frame"
	"github.com/MeKo-Tech/roiscan/internal/scanerr"
)

// SessionState is the lifecycle state of a capture session.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionBound
	SessionPaused
	SessionStopped
	SessionDenied
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionBound:
		return "bound"
	case SessionPaused:
		return "paused"
	case SessionStopped:
		return "stopped"
	case SessionDenied:
		return "denied"
	}
	return "unknown"
}

// Session binds a camera for the lifetime of a host: Start binds after a
// permission check, Pause and Stop release the camera, Resume binds again
// only when permission is still granted. Session is itself a Source.
type Session struct {
	cam  Camera
	perm Permission

	mu    sync.Mutex
	state SessionState
	gen   uint64
	ready chan struct{}
	isSet bool
}

// NewSession creates an idle session. A nil perm grants access.
func NewSession(cam Camera, perm Permission) *Session {
	if perm == nil {
		perm = StaticPermission(true)
	}
	return &Session{cam: cam, perm: perm, ready: make(chan struct{})}
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ready returns a channel closed once the current binding delivers frames.
// Each bind creates a new channel.
func (s *Session) Ready() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Start checks permission, requesting it once when missing, and binds the
// camera. A refused request leaves the session Denied.
func (s *Session) Start(ctx context.Context) error {
	const op = "capture start"
	if !s.perm.Granted() {
		ok, err := s.perm.Request(ctx)
		if err != nil {
			return scanerr.New(scanerr.CodePermissionDenied, op, err)
		}
		if !ok {
			s.mu.Lock()
			s.state = SessionDenied
			s.mu.Unlock()
			slog.Warn("Camera permission denied")
			return scanerr.New(scanerr.CodePermissionDenied, op, nil)
		}
	}
	return s.bind(ctx)
}

// Resume binds the camera again after Pause or Stop. Without permission it
// does nothing and reports PermissionDenied.
func (s *Session) Resume(ctx context.Context) error {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	if st == SessionBound {
		return nil
	}
	if !s.perm.Granted() {
		return scanerr.New(scanerr.CodePermissionDenied, "capture resume", nil)
	}
	return s.bind(ctx)
}

// Pause releases the camera.
func (s *Session) Pause() error { return s.release(SessionPaused) }

// Stop releases the camera.
func (s *Session) Stop() error { return s.release(SessionStopped) }

func (s *Session) bind(ctx context.Context) error {
	s.mu.Lock()
	if s.state == SessionBound {
		s.mu.Unlock()
		return nil
	}
	s.gen++
	gen := s.gen
	s.ready = make(chan struct{})
	s.isSet = false
	s.state = SessionBound
	s.mu.Unlock()

	if err := s.cam.Bind(ctx, func() { s.markReady(gen) }); err != nil {
		s.mu.Lock()
		if s.gen == gen {
			s.state = SessionIdle
		}
		s.mu.Unlock()
		return fmt.Errorf("capture bind: %w", err)
	}
	slog.Info("Camera bound", "generation", gen)
	return nil
}

// markReady ignores notifications from bindings that were since replaced.
func (s *Session) markReady(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.state != SessionBound || s.isSet {
		return
	}
	s.isSet = true
	close(s.ready)
}

func (s *Session) release(to SessionState) error {
	s.mu.Lock()
	if s.state != SessionBound {
		if s.state != SessionDenied {
			s.state = to
		}
		s.mu.Unlock()
		return nil
	}
	s.state = to
	s.gen++
	s.mu.Unlock()

	if err := s.cam.Unbind(); err != nil {
		return fmt.Errorf("capture unbind: %w", err)
	}
	slog.Info("Camera released", "state", to.String())
	return nil
}

// Frame returns the current camera frame. It yields no frame while the
// camera is unbound or not yet ready, and PermissionDenied after a refused
// permission request.
func (s *Session) Frame(ctx context.Context) (*frame.Frame, error) {
	s.mu.Lock()
	st, ready := s.state, s.isSet
	s.mu.Unlock()

	switch {
	case st == SessionDenied:
		return nil, scanerr.New(scanerr.CodePermissionDenied, "capture frame", nil)
	case st != SessionBound || !ready:
		return nil, nil
	}
	return s.cam.Frame(ctx)
}
