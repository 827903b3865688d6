// Package errors provides the error taxonomy shared by the map engine.
//
// Callers match kinds with errors.Is against the sentinels:
//
//	if errors.Is(err, errors.ErrValidation) {
//	    banner.Report(err)
//	}
//
// Tile load failures are never surfaced to the user; the other kinds are shown
// in the transient status banner.
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error kind.
type Code string

// Error kinds produced by the engine.
const (
	CodeValidation Code = "VALIDATION"
	CodeAuth       Code = "AUTH"
	CodeNetwork    Code = "NETWORK"
	CodeTileLoad   Code = "TILE_LOAD"
)

// Silent reports whether errors of this kind are kept away from the user.
func (c Code) Silent() bool {
	return c == CodeTileLoad
}

// Error is a domain error with a code, message and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error carrying the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetails returns a copy of the error carrying details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// WithCause returns a copy of the error wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

// Sentinel errors for use with errors.Is().
var (
	ErrValidation = &Error{Code: CodeValidation, Message: "validation error"}
	ErrAuth       = &Error{Code: CodeAuth, Message: "not signed in"}
	ErrNetwork    = &Error{Code: CodeNetwork, Message: "network error"}
	ErrTileLoad   = &Error{Code: CodeTileLoad, Message: "tile load failed"}
)

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Auth creates an authentication error.
func Auth(msg string) *Error {
	return &Error{Code: CodeAuth, Message: msg}
}

// Network wraps a transport failure or non-2xx response.
func Network(msg string, cause error) *Error {
	return &Error{Code: CodeNetwork, Message: msg, cause: cause}
}

// Networkf creates a network error with a formatted message.
func Networkf(format string, args ...any) *Error {
	return &Error{Code: CodeNetwork, Message: fmt.Sprintf(format, args...)}
}

// TileLoad wraps a failed tile fetch.
func TileLoad(url string, cause error) *Error {
	return &Error{Code: CodeTileLoad, Message: "tile load failed: " + url, cause: cause}
}

// CodeOf returns the Code of the first *Error in err's chain.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}
