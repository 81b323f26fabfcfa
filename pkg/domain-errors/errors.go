// Package domainerrors defines the error vocabulary shared by services,
// stores, and transport. Services attach a Code to every failure they
// surface; transport maps codes to HTTP statuses without inspecting
// messages.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a failure for callers and for the HTTP layer.
type Code string

const (
	// Registry lifecycle and authorization failures.
	CodeAlreadyInitialized Code = "already_initialized"
	CodeNotInitialized     Code = "not_initialized"
	CodeUnauthorized       Code = "unauthorized"
	CodeWrapAlreadyExists  Code = "wrap_already_exists"
	CodeInvalidSignature   Code = "invalid_signature"
	CodeTransferNotAllowed Code = "transfer_not_allowed"

	// Ambient failures.
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeNotFound     Code = "not_found"
	CodeTimeout      Code = "timeout"
	CodeInternal     Code = "internal_error"
)

// Error carries a code, a human-readable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error. The cause
// remains reachable through errors.Is / errors.As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the code from err, walking the wrap chain. Errors
// without a code report CodeInternal: anything a service did not
// classify is an internal fault by definition.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the attached message, or the error text for
// unclassified errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
