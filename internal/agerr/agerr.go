// Package agerr is the internal home of the fixed error taxonomy. It lives
// under internal/ so every leaf package (storegw, modelgateway, security,
// workingmemory, longterm, contextassembler) can construct and inspect
// these errors without creating an import cycle back to the agentmemory
// root package, which re-exports the public names from here.
package agerr

import "fmt"

// Code enumerates the fixed error taxonomy.
type Code string

const (
	CodeNotFound          Code = "not-found"
	CodeValidation        Code = "validation-error"
	CodeSecurityViolation Code = "security-violation"
	CodeTransientStore    Code = "transient-store"
	CodeTimeout           Code = "timeout"
	CodeUpstreamModel     Code = "upstream-model"
	CodeInternal          Code = "internal"
)

// Error is the stable, user-visible error shape: {code, message, hint?}.
// It wraps an underlying cause for callers that want
// errors.Is/errors.As against the original failure, but that cause is never
// part of the stable message (no PII, structural information only).
type Error struct {
	Code    Code
	Message string
	Hint    string
	cause   error
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (hint: %s)", e.Code, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func newError(code Code, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		cause:   cause,
	}
}

// NotFound builds a not-found error. cause may be nil.
func NotFound(cause error, format string, args ...interface{}) *Error {
	return newError(CodeNotFound, cause, format, args...)
}

// Validation builds a validation-error. cause may be nil.
func Validation(cause error, format string, args ...interface{}) *Error {
	return newError(CodeValidation, cause, format, args...)
}

// SecurityViolation builds a security-violation error naming the matched
// pattern categories and advising the caller to store a reference instead.
func SecurityViolation(patterns []string) *Error {
	return &Error{
		Code:    CodeSecurityViolation,
		Message: fmt.Sprintf("content matched credential patterns: %v", patterns),
		Hint:    "store a reference to the secret (e.g. a vault key name), not the secret itself",
	}
}

// TransientStore builds a transient-store error, returned after the write
// retry budget is exhausted.
func TransientStore(cause error, format string, args ...interface{}) *Error {
	return newError(CodeTransientStore, cause, format, args...)
}

// Timeout builds a timeout error for an elapsed deadline.
func Timeout(cause error, format string, args ...interface{}) *Error {
	return newError(CodeTimeout, cause, format, args...)
}

// UpstreamModel builds an upstream-model error for an unrecoverable model
// service failure.
func UpstreamModel(cause error, format string, args ...interface{}) *Error {
	return newError(CodeUpstreamModel, cause, format, args...)
}

// Internal builds an internal error for every other invariant violation.
func Internal(cause error, format string, args ...interface{}) *Error {
	return newError(CodeInternal, cause, format, args...)
}

// CodeOf extracts the Code from err if it is (or wraps) an *Error,
// defaulting to CodeInternal otherwise.
func CodeOf(err error) Code {
	var e *Error
	if asError(err, &e) {
		return e.Code
	}
	return CodeInternal
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
