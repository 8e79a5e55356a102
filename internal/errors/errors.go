package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrNotFound        ErrorType = "NOT_FOUND"
	ErrRateLimit       ErrorType = "RATE_LIMIT"
	ErrInvalidInput    ErrorType = "INVALID_INPUT"
	ErrInternal        ErrorType = "INTERNAL"
	ErrUnauthorized    ErrorType = "UNAUTHORIZED"
	ErrNoRepositories  ErrorType = "NO_REPOSITORIES"
	ErrDiscoveryFailed ErrorType = "DISCOVERY_FAILED"
	ErrRunInProgress   ErrorType = "RUN_IN_PROGRESS"
)

// AppError represents an application error
type AppError struct {
	Type      ErrorType
	Message   string
	Cause     error
	Timestamp time.Time
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:      errType,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return TypeOf(err) == ErrNotFound
}

// IsRateLimit checks if the error is a rate limit error
func IsRateLimit(err error) bool {
	return TypeOf(err) == ErrRateLimit
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return TypeOf(err) == ErrInvalidInput
}

// IsNoRepositories checks if discovery found nothing to collect
func IsNoRepositories(err error) bool {
	return TypeOf(err) == ErrNoRepositories
}

// IsDiscoveryFailed checks if repository discovery itself failed
func IsDiscoveryFailed(err error) bool {
	return TypeOf(err) == ErrDiscoveryFailed
}

// IsRunInProgress checks if another collection run holds the lock
func IsRunInProgress(err error) bool {
	return TypeOf(err) == ErrRunInProgress
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, err error) *AppError {
	return New(ErrNotFound, message, err)
}

// NewValidationError creates a new validation error
func NewValidationError(message string, err error) *AppError {
	return New(ErrInvalidInput, message, err)
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string, err error) *AppError {
	return New(ErrUnauthorized, message, err)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return New(ErrInternal, message, err)
}

// NewRateLimitError creates a new rate limit error
func NewRateLimitError(resetTime time.Time, cause error) *AppError {
	return New(ErrRateLimit, fmt.Sprintf("rate limit exceeded, resets at %v", resetTime.UTC().Format(time.RFC3339)), cause)
}

// NewNoRepositoriesError reports that discovery returned no repositories
func NewNoRepositoriesError(org string) *AppError {
	return New(ErrNoRepositories, fmt.Sprintf("no repositories found for organization %s", org), nil)
}

// NewDiscoveryFailedError reports that discovery could not complete
func NewDiscoveryFailedError(org string, err error) *AppError {
	return New(ErrDiscoveryFailed, fmt.Sprintf("failed to list repositories for organization %s", org), err)
}

// NewRunInProgressError reports that another run currently holds the collection lock
func NewRunInProgressError(key string) *AppError {
	return New(ErrRunInProgress, fmt.Sprintf("collection run already in progress (%s)", key), nil)
}
