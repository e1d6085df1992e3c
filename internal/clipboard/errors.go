package clipboard

import (
	"errors"
	"fmt"
)

// ErrorCode classifies failures crossing the service boundary.
type ErrorCode string

const (
	// ErrCodeInvalidInput marks caller errors: blank or missing content.
	// Rejected before any store access.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrCodeNotFound marks operations addressed by id with no matching row.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeStorage wraps any underlying store fault during an operation.
	ErrCodeStorage ErrorCode = "STORAGE_ERROR"
)

// AppError carries an error code across the service boundary so callers can
// map failures without string matching.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError creates an AppError without an underlying cause.
func NewError(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// WrapError attaches a cause for diagnostics.
func WrapError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// IsCode reports whether err is, or wraps, an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
