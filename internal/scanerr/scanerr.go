// Package scanerr defines the error kinds surfaced by the scan pipeline.
//
// Every error carries a Code. Sentinels such as ErrNoFrame match any *Error
// with the same code, so callers can use errors.Is through wrapped chains:
//
//	if errors.Is(err, scanerr.ErrEngineBusy) { ... }
package scanerr

import (
	"errors"
	"fmt"
)

// Code identifies an error kind.
type Code string

const (
	CodePermissionDenied   Code = "PERMISSION_DENIED"
	CodeNoFrame            Code = "NO_FRAME"
	CodeEmptyRegion        Code = "EMPTY_REGION"
	CodeEngineNotReady     Code = "ENGINE_NOT_READY"
	CodeEngineBusy         Code = "ENGINE_BUSY"
	CodeEngineInitFailed   Code = "ENGINE_INIT_FAILED"
	CodeNoTextFound        Code = "NO_TEXT_FOUND"
	CodeRecognitionFailed  Code = "RECOGNITION_FAILED"
	CodeProvisioningFailed Code = "PROVISIONING_FAILED"
)

// Sentinels for errors.Is comparisons.
var (
	ErrPermissionDenied   = &Error{Code: CodePermissionDenied}
	ErrNoFrame            = &Error{Code: CodeNoFrame}
	ErrEmptyRegion        = &Error{Code: CodeEmptyRegion}
	ErrEngineNotReady     = &Error{Code: CodeEngineNotReady}
	ErrEngineBusy         = &Error{Code: CodeEngineBusy}
	ErrEngineInitFailed   = &Error{Code: CodeEngineInitFailed}
	ErrNoTextFound        = &Error{Code: CodeNoTextFound}
	ErrRecognitionFailed  = &Error{Code: CodeRecognitionFailed}
	ErrProvisioningFailed = &Error{Code: CodeProvisioningFailed}
)

// Error is a pipeline error tagged with a Code and the operation that failed.
type Error struct {
	Code Code
	Op   string
	Err  error
}

// New creates an error for op with the given code and optional cause.
func New(code Code, op string, cause error) *Error {
	return &Error{Code: code, Op: op, Err: cause}
}

// Newf creates an error for op whose cause is a formatted message.
func Newf(code Code, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Recoverable reports whether the user can recover from err by retrying the
// scan, adjusting the region or re-provisioning the engine. Errors without a
// code are treated as unexpected.
func Recoverable(err error) bool {
	return CodeOf(err) != ""
}

// Message returns the short user-facing description for a code.
func (c Code) Message() string {
	switch c {
	case CodePermissionDenied:
		return "camera permission is required to scan"
	case CodeNoFrame:
		return "camera is not ready yet"
	case CodeEmptyRegion:
		return "scan area is outside the captured image"
	case CodeEngineNotReady:
		return "text recognition is not ready"
	case CodeEngineBusy:
		return "a scan is already in progress"
	case CodeEngineInitFailed:
		return "text recognition failed to initialize"
	case CodeNoTextFound:
		return "no text found in the image"
	case CodeRecognitionFailed:
		return "text recognition failed"
	case CodeProvisioningFailed:
		return "trained data could not be installed"
	}
	return "unexpected error"
}
