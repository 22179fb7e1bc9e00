// Package domainerrors carries error codes across layer boundaries so that
// transports and batch reporting can react to failure classes without string
// matching. Wrapped causes are preserved for diagnostics.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a failure. Codes are part of the public contract between
// services, stores and transports.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeInternal     Code = "internal"

	// CodeConfigurationMissing marks an operation attempted without a usable
	// credential or environment mode. Fatal for the operation, never retried.
	CodeConfigurationMissing Code = "configuration_missing"
	// CodeAuthenticationFailed covers signing errors, malformed ticket
	// responses and remote-reported authentication faults.
	CodeAuthenticationFailed Code = "authentication_failed"
	// CodeTransport covers network level failures talking to a remote
	// service. Retry policy belongs to the caller.
	CodeTransport Code = "transport_error"
	// CodeRegistryNotFound means the remote registry had no record for the
	// identifier. An expected outcome, not a crash.
	CodeRegistryNotFound Code = "not_found_in_registry"
	// CodeInvalidIdentifier marks identifiers rejected before any remote
	// call is attempted.
	CodeInvalidIdentifier Code = "invalid_identifier"
)

// Error is the concrete error type used throughout the module.
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

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two domain errors by code.
func (e *Error) Is(target error) bool {
	var de *Error
	if errors.As(target, &de) {
		return de.Code == e.Code
	}
	return false
}

// New creates a domain error without a wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// GetCode extracts the domain code from an error chain. Unclassified errors
// report CodeInternal.
func GetCode(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
