// Package domainerrors provides coded domain errors for service layers.
//
// Stores return pkg/platform/sentinel errors; services translate them here so
// transports can map codes to wire responses without inspecting error text.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for transport mapping and retry decisions.
type Code string

const (
	// CodeBadRequest covers malformed or missing request input.
	CodeBadRequest Code = "bad_request"

	// CodeInvalidInput covers input that parsed but failed domain validation
	// (format, checksum, unsupported file type).
	CodeInvalidInput Code = "invalid_input"

	// CodeNotFound indicates the referenced entity does not exist.
	CodeNotFound Code = "not_found"

	// CodeConflict indicates the operation collides with current state
	// (duplicate provider code, non-cancellable batch, existing valid
	// authentication).
	CodeConflict Code = "conflict"

	// CodeRateLimited indicates the caller exceeded the attempt quota and may
	// retry after the window resets.
	CodeRateLimited Code = "rate_limited"

	// CodeProviderFailure indicates an upstream verification provider failed
	// (network, timeout, malformed response).
	CodeProviderFailure Code = "provider_failure"

	// CodeInvariantViolation indicates a domain invariant would be broken.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeInternal is the fallback for unexpected failures.
	CodeInternal Code = "internal_error"
)

// Error carries a code, a human-readable message, and an optional cause.
type Error struct {
	Code    Code
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

// New creates a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err yields nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a readable alias for HasCode at call sites that test one code.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the message from a coded error, or "" for plain errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
