// Package engine manages the lifecycle of the OCR engine: provisioning of
// trained data, initialization, guarded recognition and teardown.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/MeKo-Tech/roiscan/internal/frame"
	"github.com/MeKo-Tech/roiscan/internal/scanerr"
	"github.com/MeKo-Tech/roiscan/internal/tessdata"
)

// Provisioner makes trained data available in a writable directory.
type Provisioner interface {
	Ensure(lang string) (tessdata.Result, error)
	DataDir() string
}

// Config holds engine settings.
type Config struct {
	Language  string `json:"language"  yaml:"language"  mapstructure:"language"`
	Whitelist string `json:"whitelist" yaml:"whitelist" mapstructure:"whitelist"`
}

// DefaultConfig returns the English engine with the default whitelist.
func DefaultConfig() Config {
	return Config{Language: tessdata.DefaultLanguage, Whitelist: DefaultWhitelist}
}

// Extracted is the outcome of one recognition.
type Extracted struct {
	Text  string `json:"text"`
	Found bool   `json:"found"`
}

// Manager owns the single engine instance. Recognize runs at most once at a
// time; a concurrent caller gets ErrEngineBusy instead of waiting.
type Manager struct {
	cfg     Config
	backend Backend
	prov    Provisioner

	// initMu serializes EnsureReady and Shutdown. It is never taken by
	// Recognize.
	initMu sync.Mutex

	mu         sync.Mutex
	state      State
	initErr    error
	endPending bool
	onState    func(State)
}

// NewManager creates a manager around backend. prov may be nil when the
// trained data is managed externally; Init then receives an empty data dir.
func NewManager(cfg Config, backend Backend, prov Provisioner) *Manager {
	if cfg.Language == "" {
		cfg.Language = tessdata.DefaultLanguage
	}
	return &Manager{cfg: cfg, backend: backend, prov: prov}
}

// Config returns the engine settings.
func (m *Manager) Config() Config { return m.cfg }

// OnStateChange registers fn to be called on every state transition. fn runs
// with the manager's lock held and must not call back into the manager.
func (m *Manager) OnStateChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onState = fn
}

// State returns the current engine state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the last initialization failure, or nil.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initErr
}

func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	slog.Info("Engine state changed", "from", m.state.String(), "to", s.String())
	m.state = s
	if m.onState != nil {
		m.onState(s)
	}
}

// EnsureReady provisions trained data and initializes the engine. It is a
// no-op when the engine is already Ready or Busy. A Failed or Cleaned engine
// is initialized again; an existing data file is not copied twice.
func (m *Manager) EnsureReady(ctx context.Context) error {
	const op = "ensure ready"
	m.initMu.Lock()
	defer m.initMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	switch m.state {
	case StateReady:
		m.mu.Unlock()
		return nil
	case StateBusy:
		// A re-ensure cancels a teardown requested during recognition.
		m.endPending = false
		m.mu.Unlock()
		return nil
	}
	m.setStateLocked(StateProvisioning)
	m.mu.Unlock()

	start := time.Now()
	err := m.initialize(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		if !errors.Is(err, scanerr.ErrEngineInitFailed) {
			err = scanerr.New(scanerr.CodeEngineInitFailed, op, err)
		}
		m.initErr = err
		m.setStateLocked(StateFailed)
		slog.Error("Engine initialization failed", "language", m.cfg.Language, "error", err)
		return err
	}
	m.initErr = nil
	m.setStateLocked(StateReady)
	slog.Info("Engine ready", "language", m.cfg.Language, "duration", time.Since(start))
	return nil
}

func (m *Manager) initialize(ctx context.Context) error {
	if m.backend == nil {
		return errors.New("no engine backend configured")
	}
	dataDir := ""
	if m.prov != nil {
		res, err := m.prov.Ensure(m.cfg.Language)
		if err != nil {
			return err
		}
		if res.Copied {
			slog.Info("Trained data provisioned", "path", res.Path, "bytes", res.Bytes)
		}
		dataDir = m.prov.DataDir()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.backend.Init(dataDir, m.cfg.Language)
}

// Recognize runs OCR on img. img is released before Recognize returns,
// whatever the outcome. Empty engine output is reported as a result with
// Found false, not as an error.
func (m *Manager) Recognize(img *frame.Gray) (Extracted, error) {
	const op = "recognize"
	defer img.Release()

	m.mu.Lock()
	switch m.state {
	case StateReady:
	case StateBusy:
		m.mu.Unlock()
		return Extracted{}, scanerr.New(scanerr.CodeEngineBusy, op, nil)
	default:
		st := m.state
		m.mu.Unlock()
		return Extracted{}, scanerr.Newf(scanerr.CodeEngineNotReady, op, "engine is %s", st)
	}
	m.setStateLocked(StateBusy)
	m.mu.Unlock()

	start := time.Now()
	raw, err := m.run(img)

	m.mu.Lock()
	if m.endPending {
		m.endPending = false
		m.endLocked()
	} else {
		m.setStateLocked(StateReady)
	}
	m.mu.Unlock()

	if err != nil {
		slog.Error("Recognition failed", "error", err)
		return Extracted{}, scanerr.New(scanerr.CodeRecognitionFailed, op, err)
	}

	text := CleanText(raw, m.cfg.Whitelist)
	slog.Debug("Recognition finished", "chars", len(text), "duration", time.Since(start))
	return Extracted{Text: text, Found: text != ""}, nil
}

func (m *Manager) run(img *frame.Gray) (string, error) {
	if img == nil || img.Released() {
		return "", errors.New("no image to recognize")
	}
	if m.cfg.Whitelist != "" {
		if err := m.backend.SetVariable(WhitelistVariable, m.cfg.Whitelist); err != nil {
			return "", err
		}
	}
	if err := m.backend.SetImage(img); err != nil {
		return "", err
	}
	return m.backend.Text()
}

// Shutdown releases the engine and moves it to Cleaned. Calling it on a
// Cleaned engine is a no-op. While a recognition is in flight the teardown
// is deferred until that recognition returns.
func (m *Manager) Shutdown() {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateCleaned:
		return
	case StateBusy:
		m.endPending = true
		slog.Info("Engine shutdown deferred until recognition completes")
		return
	}
	m.endLocked()
}

func (m *Manager) endLocked() {
	if m.backend != nil && m.state != StateUninitialized {
		if err := m.backend.End(); err != nil {
			slog.Warn("Engine teardown reported an error", "error", err)
		}
	}
	m.setStateLocked(StateCleaned)
}
