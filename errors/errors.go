// Package errors defines the error taxonomy of the chat backend.
// Errors carry a machine-readable code so transport layers can decide
// what to surface and what to swallow.
package errors

import (
	"errors"
	"fmt"
)

// Codes for the failure categories of the send/fan-out pipeline.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodePersistence        = "PERSISTENCE_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeChannelUnavailable = "CHANNEL_UNAVAILABLE"
	CodeMalformedPayload   = "MALFORMED_PAYLOAD"
)

var (
	// ErrStreamClosed is returned by a subscription stream once it has been
	// cancelled. It marks a normal end of consumption, not a failure.
	ErrStreamClosed = fmt.Errorf("subscription stream closed")

	// ErrWorkerPanic replaces a recovered panic in a supervised worker.
	ErrWorkerPanic = fmt.Errorf("worker panic")
)

// Error is a categorized error with an optional wrapped cause.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a categorized error without a cause.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a categorized error around an underlying cause.
func Wrap(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code string) bool {
	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized.Code == code
	}
	return false
}

// IsValidation reports whether the error was caused by rejected input.
func IsValidation(err error) bool {
	return HasCode(err, CodeValidation)
}

// IsNotFound reports whether the error marks a missing room or user.
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsChannelUnavailable reports whether the error comes from the pub/sub
// transport being unreachable.
func IsChannelUnavailable(err error) bool {
	return HasCode(err, CodeChannelUnavailable)
}
