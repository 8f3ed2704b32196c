// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Data errors
	ErrNoData       = &Error{Code: "NO_DATA", Message: "no data available"}
	ErrCoinNotFound = &Error{Code: "COIN_NOT_FOUND", Message: "coin not found"}
	ErrInvalidRange = &Error{Code: "INVALID_RANGE", Message: "invalid chart range"}

	// Provider errors
	ErrProviderFailed = &Error{Code: "PROVIDER_FAILED", Message: "market data provider failed"}
	ErrRateLimited    = &Error{Code: "RATE_LIMITED", Message: "market data provider rate limit hit"}

	// Widget errors
	ErrMountMissing      = &Error{Code: "MOUNT_MISSING", Message: "widget mount point missing"}
	ErrScriptLoad        = &Error{Code: "SCRIPT_LOAD_FAILED", Message: "widget script load failed"}
	ErrWidgetUnavailable = &Error{Code: "WIDGET_UNAVAILABLE", Message: "widget constructor not available"}
	ErrWidgetInit        = &Error{Code: "WIDGET_INIT_FAILED", Message: "widget initialization failed"}

	// Storage errors
	ErrArchiveFailed = &Error{Code: "ARCHIVE_FAILED", Message: "archive operation failed"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
