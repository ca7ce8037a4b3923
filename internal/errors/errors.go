package errors

import (
	"errors"
	"fmt"
)

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeNotFound      ErrCode = "NOT_FOUND"
	ErrCodeNotGenerated  ErrCode = "NOT_GENERATED"
	ErrCodeRateLimited   ErrCode = "RATE_LIMITED"
	ErrCodeInternal      ErrCode = "INTERNAL_ERROR"
	ErrCodeBadRequest    ErrCode = "BAD_REQUEST"
	ErrCodeUpstreamFetch ErrCode = "UPSTREAM_FETCH_FAILED"
	ErrCodeCacheWrite    ErrCode = "CACHE_WRITE_FAILED"
)

// AppError represents an application error
type AppError struct {
	Code    ErrCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewNotGeneratedError signals that a dashboard has not been generated yet and needs a refresh
func NewNotGeneratedError(username string) *AppError {
	return &AppError{
		Code:    ErrCodeNotGenerated,
		Message: fmt.Sprintf("dashboard for %s has not been generated; trigger a refresh", username),
	}
}

// NewRateLimitedError creates a new rate limited error
func NewRateLimitedError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeRateLimited,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
	}
}

// NewUpstreamFetchError wraps a failure of the repository aggregation endpoint
func NewUpstreamFetchError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeUpstreamFetch,
		Message: message,
		Err:     err,
	}
}

// NewCacheWriteError wraps a failed cache write
func NewCacheWriteError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeCacheWrite,
		Message: message,
		Err:     err,
	}
}

// AsAppError returns the first AppError in err's chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first AppError in err's chain, or "" if there is none
func CodeOf(err error) ErrCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsRateLimited checks if the error is a rate limited error
func IsRateLimited(err error) bool {
	return CodeOf(err) == ErrCodeRateLimited
}

// IsUpstreamFetch checks if the error is an upstream fetch failure
func IsUpstreamFetch(err error) bool {
	return CodeOf(err) == ErrCodeUpstreamFetch
}
