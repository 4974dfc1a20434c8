// Package enginetest provides in-process recognition backends for tests.
package enginetest

import (
	"errors"
	"image"
	"sync"

	"github.com/MeKo-Tech/roiscan/internal/frame"
)

// Fake is a scripted backend. It returns a fixed text, can fail on demand and
// can hold Text until released to simulate a slow recognition.
type Fake struct {
	mu      sync.Mutex
	text    string
	initErr error
	textErr error

	gate    chan struct{}
	entered chan struct{}
	once    *sync.Once

	inits   int
	ends    int
	texts   int
	dataDir string
	lang    string
	vars    map[string]string
	size    image.Point
	hasImg  bool
}

// NewFake returns a backend that recognizes text for every image.
func NewFake(text string) *Fake {
	return &Fake{text: text, vars: map[string]string{}}
}

// FailInit makes Init return err.
func (f *Fake) FailInit(err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initErr = err
	return f
}

// FailText makes Text return err.
func (f *Fake) FailText(err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textErr = err
	return f
}

// SetText changes the recognized text.
func (f *Fake) SetText(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = s
}

// Hold makes the next Text calls block until release is called. entered is
// closed once a Text call is waiting.
func (f *Fake) Hold() (entered <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gate = gate
	f.entered = make(chan struct{})
	f.once = &sync.Once{}
	var releaseOnce sync.Once
	return f.entered, func() { releaseOnce.Do(func() { close(gate) }) }
}

func (f *Fake) Init(dataDir, lang string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits++
	f.dataDir = dataDir
	f.lang = lang
	return f.initErr
}

func (f *Fake) SetVariable(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vars[key] = value
	return nil
}

func (f *Fake) SetImage(img *frame.Gray) error {
	if img == nil || img.Released() {
		return errors.New("image released")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.size = image.Pt(img.Width(), img.Height())
	f.hasImg = true
	return nil
}

func (f *Fake) Text() (string, error) {
	f.mu.Lock()
	f.texts++
	gate, entered, once := f.gate, f.entered, f.once
	f.mu.Unlock()

	if gate != nil {
		once.Do(func() { close(entered) })
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.hasImg {
		return "", errors.New("no image set")
	}
	f.hasImg = false
	return f.text, f.textErr
}

func (f *Fake) End() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ends++
	return nil
}

// Inits returns the number of Init calls.
func (f *Fake) Inits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inits
}

// Ends returns the number of End calls.
func (f *Fake) Ends() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ends
}

// Texts returns the number of Text calls.
func (f *Fake) Texts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.texts
}

// Variable returns the last value set for key.
func (f *Fake) Variable(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vars[key]
}

// DataDir returns the data directory of the last Init.
func (f *Fake) DataDir() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dataDir
}

// Language returns the language of the last Init.
func (f *Fake) Language() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lang
}

// ImageSize returns the dimensions of the last image set.
func (f *Fake) ImageSize() image.Point {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}
