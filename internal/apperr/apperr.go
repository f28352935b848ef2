// Package apperr defines the error taxonomy of the ingestion pipeline.
//
// Each failure carries a machine-readable Code. Codes decide how far a failure
// propagates: record-level codes are absorbed by the stage that raised them,
// auth codes end the invocation.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeMalformedRecord Code = "MALFORMED_RECORD"
	CodeAuthUnavailable Code = "AUTH_UNAVAILABLE"
	CodeAuthRejected    Code = "AUTH_REJECTED"
	CodeFetchError      Code = "FETCH_ERROR"
	CodeDeliveryFailure Code = "DELIVERY_FAILURE"
	CodeInternal        Code = "INTERNAL_ERROR"
	CodeConfigInvalid   Code = "CONFIG_INVALID"
)

// Error is the pipeline's structured error type.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error with the same Code, so sentinels like
// ErrAuthRejected work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetail sets a single detail key and returns the receiver.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// HTTPStatus maps the code to the status reported in the invocation result.
func (e *Error) HTTPStatus() int {
	return StatusFor(e.Code)
}

// Sentinels for errors.Is comparisons.
var (
	ErrMalformedRecord = &Error{Code: CodeMalformedRecord, Message: "malformed record"}
	ErrAuthUnavailable = &Error{Code: CodeAuthUnavailable, Message: "credentials unavailable"}
	ErrAuthRejected    = &Error{Code: CodeAuthRejected, Message: "authorization rejected"}
	ErrFetch           = &Error{Code: CodeFetchError, Message: "state fetch failed"}
	ErrDelivery        = &Error{Code: CodeDeliveryFailure, Message: "delivery failed"}
	ErrInternal        = &Error{Code: CodeInternal, Message: "internal error"}
	ErrConfigInvalid   = &Error{Code: CodeConfigInvalid, Message: "invalid configuration"}
)

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func MalformedRecord(format string, args ...any) *Error {
	return New(CodeMalformedRecord, fmt.Sprintf(format, args...))
}

func AuthUnavailable(message string, cause error) *Error {
	return Wrap(CodeAuthUnavailable, message, cause)
}

func AuthRejected(message string, cause error) *Error {
	return Wrap(CodeAuthRejected, message, cause)
}

func FetchError(message string, cause error) *Error {
	return Wrap(CodeFetchError, message, cause)
}

func Internal(cause error) *Error {
	return Wrap(CodeInternal, "unexpected fault", cause)
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// StatusFor returns the invocation status code for a Code.
func StatusFor(code Code) int {
	switch code {
	case CodeAuthUnavailable:
		return http.StatusServiceUnavailable
	case CodeAuthRejected:
		return http.StatusUnauthorized
	case CodeFetchError:
		return http.StatusNotFound
	case CodeDeliveryFailure:
		return http.StatusBadGateway
	case CodeConfigInvalid, CodeMalformedRecord:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
