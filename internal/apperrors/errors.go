package apperrors

import (
	"errors"
	"fmt"
)

// Code is a stable identifier for a failure mode
type Code string

const (
	// EmptyInput indicates the caller supplied a blank location or question
	EmptyInput Code = "EMPTY_INPUT"
	// GeocodingFailed indicates one or both locations could not be resolved
	GeocodingFailed Code = "GEOCODING_FAILED"
	// ProviderError indicates a network or status failure from the routing provider
	ProviderError Code = "PROVIDER_ERROR"
	// RetrievalOrModelError indicates the query pipeline failed
	RetrievalOrModelError Code = "RETRIEVAL_OR_MODEL_ERROR"
	// InvalidRequest indicates a malformed API request
	InvalidRequest Code = "INVALID_REQUEST"
	// InternalError indicates an unexpected error
	InternalError Code = "INTERNAL_ERROR"
)

var httpStatus = map[Code]int{
	EmptyInput:            400,
	InvalidRequest:        400,
	GeocodingFailed:       422,
	ProviderError:         502,
	RetrievalOrModelError: 503,
	InternalError:         500,
}

// Error is a coded application error
type Error struct {
	Code    Code        `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// New creates a coded error wrapping cause (which may be nil)
func New(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Newf creates a coded error without a cause
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error carrying the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetails attaches details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// HTTPStatus maps the error code to an HTTP status
func (e *Error) HTTPStatus() int {
	if s, ok := httpStatus[e.Code]; ok {
		return s
	}
	return 500
}

// CodeOf returns the code of the first *Error in err's chain, or InternalError
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return InternalError
}

// HasCode reports whether err's chain contains an *Error with code
func HasCode(err error, code Code) bool {
	return errors.Is(err, &Error{Code: code})
}
