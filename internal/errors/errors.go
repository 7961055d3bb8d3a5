// Package errors provides unified error handling for the promptkeep system.
//
// Every failure that crosses a package boundary is represented as an
// *AppError carrying a standardized ErrorCode, so callers (CLI today, any
// other transport tomorrow) can branch on the code while users get a
// message that tells them what to do next. Errors are created with the
// constructor functions below and inspected with HasCode/CodeOf.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode identifies a class of failure.
type ErrorCode string

const (
	// Name and resource errors
	ErrCodeInvalidName      ErrorCode = "INVALID_NAME"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	ErrCodeIO               ErrorCode = "IO_ERROR"

	// Template file errors
	ErrCodeMissingMetadata   ErrorCode = "MISSING_METADATA"
	ErrCodeMalformedMetadata ErrorCode = "MALFORMED_METADATA"
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeSizeLimit         ErrorCode = "SIZE_LIMIT_EXCEEDED"
	ErrCodeSecurity          ErrorCode = "SECURITY_VIOLATION"
	ErrCodeSyntax            ErrorCode = "SYNTAX_ERROR"

	// Render errors
	ErrCodeMissingParameter  ErrorCode = "MISSING_REQUIRED_PARAMETER"
	ErrCodeTypeMismatch      ErrorCode = "TYPE_MISMATCH"
	ErrCodeRenderTimeout     ErrorCode = "RENDER_TIMEOUT"
	ErrCodeRenderEngineFault ErrorCode = "RENDER_ENGINE_FAULT"
	ErrCodeRender            ErrorCode = "RENDER_ERROR"
)

// AppError is a standardized application error.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates an AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an existing error.
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf attaches a code and a formatted message to an existing error.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the error code of err, or ErrCodeIO for foreign errors.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeIO
}
