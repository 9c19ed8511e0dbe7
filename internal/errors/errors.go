package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the category of a build failure.
type ErrorCode string

const (
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrConfigLoad   ErrorCode = "CONFIG_LOAD"
	ErrConfigValid  ErrorCode = "CONFIG_INVALID"
	ErrBuildFailed  ErrorCode = "BUILD_FAILED"
	ErrPlugin       ErrorCode = "PLUGIN"
	ErrProcess      ErrorCode = "PROCESS"
	ErrFileAccess   ErrorCode = "FILE_ACCESS"
	ErrCompile      ErrorCode = "COMPILE"
	ErrNotSupported ErrorCode = "NOT_SUPPORTED"
)

type PackError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

func (e *PackError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *PackError) Unwrap() error {
	return e.Wrapped
}

// Is matches any PackError carrying the same code.
func (e *PackError) Is(target error) bool {
	var targetErr *PackError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

func New(code ErrorCode, message string) *PackError {
	return &PackError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

func Newf(code ErrorCode, format string, args ...interface{}) *PackError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap returns nil when err is nil so it can be used in return position.
func Wrap(err error, code ErrorCode, message string) error {
	if err == nil {
		return nil
	}
	return &PackError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

func Wrapf(err error, code ErrorCode, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func (e *PackError) WithDetail(key string, value interface{}) *PackError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func IsErrorCode(err error, code ErrorCode) bool {
	var packErr *PackError
	if errors.As(err, &packErr) {
		return packErr.Code == code
	}
	return false
}

func GetErrorCode(err error) ErrorCode {
	var packErr *PackError
	if errors.As(err, &packErr) {
		return packErr.Code
	}
	return ErrUnknown
}
