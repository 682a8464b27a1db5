package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Carryon error code.
type ErrorCode string

const (
	ErrInvalidRequest        ErrorCode = "INVALID_REQUEST"        // 400
	ErrNotFound              ErrorCode = "NOT_FOUND"              // 404
	ErrFileNotFound          ErrorCode = "FILE_NOT_FOUND"         // 404
	ErrCancelled             ErrorCode = "CANCELLED"              // 499
	ErrSummarizerFailed      ErrorCode = "SUMMARIZER_FAILED"      // 502
	ErrStoreUnavailable      ErrorCode = "STORE_UNAVAILABLE"      // 503
	ErrSummarizerUnavailable ErrorCode = "SUMMARIZER_UNAVAILABLE" // 503
	ErrInternal              ErrorCode = "INTERNAL"               // 500
)

// CarryonError represents a structured error with code, status, and details.
type CarryonError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *CarryonError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *CarryonError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *CarryonError {
	return &CarryonError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing document or state record.
func NewNotFound(identifier string) *CarryonError {
	return &CarryonError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *CarryonError {
	return &CarryonError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewCancelled creates a 499 error when an operation is cancelled mid-way.
func NewCancelled(op string) *CarryonError {
	return &CarryonError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
	}
}

// NewStoreUnavailable creates a 503 error when the similarity store cannot be opened.
func NewStoreUnavailable(err error) *CarryonError {
	return &CarryonError{
		Code:    ErrStoreUnavailable,
		Status:  503,
		Message: fmt.Sprintf("store unavailable: %v", err),
		cause:   err,
	}
}

// NewSummarizerUnavailable creates a 503 error when no summarizer is configured.
func NewSummarizerUnavailable(provider string) *CarryonError {
	return &CarryonError{
		Code:    ErrSummarizerUnavailable,
		Status:  503,
		Message: fmt.Sprintf("summarizer unavailable (provider %q)", provider),
		Details: map[string]any{"provider": provider},
	}
}

// NewSummarizerFailed creates a 502 error when the summarizer call fails.
func NewSummarizerFailed(err error) *CarryonError {
	return &CarryonError{
		Code:    ErrSummarizerFailed,
		Status:  502,
		Message: fmt.Sprintf("summarizer failed: %v", err),
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *CarryonError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &CarryonError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if an error (or anything it wraps) is a CarryonError with the given code.
func Is(err error, code ErrorCode) bool {
	var cErr *CarryonError
	if stderrors.As(err, &cErr) {
		return cErr.Code == code
	}
	return false
}

// As reports whether err wraps a CarryonError and returns it.
func As(err error) (*CarryonError, bool) {
	var cErr *CarryonError
	if stderrors.As(err, &cErr) {
		return cErr, true
	}
	return nil, false
}
