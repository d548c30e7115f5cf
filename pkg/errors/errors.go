package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrUnknownTable      = New("UNKNOWN_TABLE", http.StatusBadRequest, "table is not in the allowed set")
	ErrInvalidIdentifier = New("INVALID_IDENTIFIER", http.StatusBadRequest, "invalid column identifier")
	ErrMalformedFilter   = New("MALFORMED_FILTER", http.StatusBadRequest, "malformed filter clause")
	ErrValidation        = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrUnauthorized      = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden         = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrYearArchived      = New("YEAR_ARCHIVED", http.StatusForbidden, "academic year is archived and read-only")
	ErrYearNotCurrent    = New("YEAR_NOT_CURRENT", http.StatusForbidden, "academic year is not the current year")
	ErrNotFound          = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrDuplicate         = New("DUPLICATE", http.StatusConflict, "duplicate or constraint violation")
	ErrDataUnavailable   = New("DATA_UNAVAILABLE", http.StatusServiceUnavailable, "data store unavailable")
	ErrInternal          = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss         = New("CACHE_MISS", http.StatusInternalServerError, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
