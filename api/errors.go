// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-poller.

package api

import "fmt"

// Common errors used across the library.
var (
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrNotSupported    = fmt.Errorf("operation not supported")
	ErrNotFound        = fmt.Errorf("registration not found")
	ErrClosed          = fmt.Errorf("backend is closed")
	ErrReservedKey     = fmt.Errorf("event key is reserved")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeNotSupported
	ErrCodeNotFound
	ErrCodeClosed
	ErrCodeResource
	ErrCodeInternal
)

// Error represents a structured error with code and the native OS error
// code when one is available. Errno is the raw numeric value reported by
// the kernel, letting callers distinguish cases like "handle invalid"
// from transient failures.
type Error struct {
	Code    ErrorCode
	Message string
	Errno   int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Errno != 0 {
		return fmt.Sprintf("%s (errno %d)", e.Message, e.Errno)
	}
	return e.Message
}

// Is maps structured codes onto the package sentinels so callers can
// match a *Error with errors.Is against the variable they know.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidArgument:
		return e.Code == ErrCodeInvalidArgument
	case ErrNotSupported:
		return e.Code == ErrCodeNotSupported
	case ErrNotFound:
		return e.Code == ErrCodeNotFound
	case ErrClosed:
		return e.Code == ErrCodeClosed
	}
	return false
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithErrno attaches the native OS error code.
func (e *Error) WithErrno(errno int) *Error {
	e.Errno = errno
	return e
}
