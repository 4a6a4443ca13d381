package agentmemory

import "github.com/becomeliminal/agentmemory/internal/agerr"

// ErrorCode enumerates the fixed error taxonomy. The type and its
// constructors live in internal/agerr so every leaf package can build and
// inspect them without importing this root package; this file is a thin,
// public re-export.
type ErrorCode = agerr.Code

const (
	CodeNotFound          = agerr.CodeNotFound
	CodeValidation        = agerr.CodeValidation
	CodeSecurityViolation = agerr.CodeSecurityViolation
	CodeTransientStore    = agerr.CodeTransientStore
	CodeTimeout           = agerr.CodeTimeout
	CodeUpstreamModel     = agerr.CodeUpstreamModel
	CodeInternal          = agerr.CodeInternal
)

// Error is the stable, user-visible error shape: {code, message, hint?}.
type Error = agerr.Error

// NotFound builds a not-found error. cause may be nil.
func NotFound(cause error, format string, args ...interface{}) *Error {
	return agerr.NotFound(cause, format, args...)
}

// Validation builds a validation-error. cause may be nil.
func Validation(cause error, format string, args ...interface{}) *Error {
	return agerr.Validation(cause, format, args...)
}

// SecurityViolation builds a security-violation error naming the matched
// pattern categories.
func SecurityViolation(patterns []string) *Error {
	return agerr.SecurityViolation(patterns)
}

// TransientStore builds a transient-store error.
func TransientStore(cause error, format string, args ...interface{}) *Error {
	return agerr.TransientStore(cause, format, args...)
}

// Timeout builds a timeout error.
func Timeout(cause error, format string, args ...interface{}) *Error {
	return agerr.Timeout(cause, format, args...)
}

// UpstreamModel builds an upstream-model error.
func UpstreamModel(cause error, format string, args ...interface{}) *Error {
	return agerr.UpstreamModel(cause, format, args...)
}

// Internal builds an internal error.
func Internal(cause error, format string, args ...interface{}) *Error {
	return agerr.Internal(cause, format, args...)
}

// CodeOf extracts the ErrorCode from err if it is (or wraps) an *Error,
// defaulting to CodeInternal otherwise.
func CodeOf(err error) ErrorCode {
	return agerr.CodeOf(err)
}
