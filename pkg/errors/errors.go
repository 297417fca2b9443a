package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`

	// kind is the sentinel this error was built from
	kind *AppError
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("code=%d, message=%s, details=%s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("code=%d, message=%s", e.Code, e.Message)
}

// Unwrap lets errors.Is match the sentinel an error was built from
func (e *AppError) Unwrap() error {
	if e.kind == nil {
		return nil
	}
	return e.kind
}

// Common errors
var (
	ErrNotFound       = &AppError{Code: http.StatusNotFound, Message: "Resource not found"}
	ErrBadRequest     = &AppError{Code: http.StatusBadRequest, Message: "Bad request"}
	ErrValidation     = &AppError{Code: http.StatusBadRequest, Message: "Validation failed"}
	ErrUnavailable    = &AppError{Code: http.StatusServiceUnavailable, Message: "Service unavailable"}
	ErrInternalServer = &AppError{Code: http.StatusInternalServerError, Message: "Internal server error"}
)

func newOfKind(kind *AppError, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    kind.Code,
		Message: fmt.Sprintf(format, args...),
		kind:    kind,
	}
}

// Validationf creates an ErrValidation error with a formatted message
func Validationf(format string, args ...interface{}) *AppError {
	return newOfKind(ErrValidation, format, args...)
}

// BadRequestf creates an ErrBadRequest error with a formatted message
func BadRequestf(format string, args ...interface{}) *AppError {
	return newOfKind(ErrBadRequest, format, args...)
}

// NotFoundf creates an ErrNotFound error with a formatted message
func NotFoundf(format string, args ...interface{}) *AppError {
	return newOfKind(ErrNotFound, format, args...)
}

// Unavailablef creates an ErrUnavailable error with a formatted message
func Unavailablef(format string, args ...interface{}) *AppError {
	return newOfKind(ErrUnavailable, format, args...)
}

// Internalf creates an ErrInternalServer error with a formatted message
func Internalf(format string, args ...interface{}) *AppError {
	return newOfKind(ErrInternalServer, format, args...)
}

// WithDetails adds details to an error
func WithDetails(err *AppError, details string) *AppError {
	kind := err.kind
	if kind == nil {
		kind = err
	}
	return &AppError{
		Code:    err.Code,
		Message: err.Message,
		Details: details,
		kind:    kind,
	}
}

// IsAppError checks if an error is, or wraps, an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetStatusCode returns the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// Message returns the client-facing message of an error. AppErrors expose
// their Message (and Details when set); anything else falls back to Error().
func Message(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		if appErr.Details != "" {
			return appErr.Message + ": " + appErr.Details
		}
		return appErr.Message
	}
	return err.Error()
}
