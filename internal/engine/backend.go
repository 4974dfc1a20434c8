package engine

import "github.com/MeKo-Tech/roiscan/internal/frame"

const (
	// WhitelistVariable is the engine variable restricting output characters.
	WhitelistVariable = "tessedit_char_whitelist"

	// DefaultWhitelist allows ASCII letters, digits, hyphen and period.
	DefaultWhitelist = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-."
)

// Backend is the native OCR engine surface driven by the Manager.
// Implementations need not be safe for concurrent use; the Manager never
// calls a backend from two goroutines at once.
type Backend interface {
	// Init loads the trained data for lang from dataDir.
	Init(dataDir, lang string) error
	// SetVariable sets an engine variable such as the character whitelist.
	SetVariable(key, value string) error
	// SetImage hands the image to recognize to the engine. The backend must
	// not retain img after Text returns.
	SetImage(img *frame.Gray) error
	// Text runs recognition on the current image.
	Text() (string, error)
	// End releases the engine. It must tolerate being called without Init.
	End() error
}
