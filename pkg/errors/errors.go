package errors

import (
	"errors"
	"fmt"
)

// Kind classifies application errors for handling at the response boundary
type Kind string

const (
	// KindInvalidInput indicates a malformed drug name or non-positive quantity
	KindInvalidInput Kind = "INVALID_INPUT"

	// KindNoMatch indicates normalization exhausted every strategy without a candidate
	KindNoMatch Kind = "NO_MATCH"

	// KindNoPackages indicates an empty candidate package set
	KindNoPackages Kind = "NO_PACKAGES"

	// KindCircuitOpen indicates a call rejected preemptively by the circuit breaker
	KindCircuitOpen Kind = "CIRCUIT_OPEN"

	// KindDependencyTimeout indicates an external call exceeded its deadline
	KindDependencyTimeout Kind = "DEPENDENCY_TIMEOUT"

	// KindDependency indicates a failure from an external service
	KindDependency Kind = "DEPENDENCY"

	// KindCacheUnavailable indicates the cache store could not be reached
	KindCacheUnavailable Kind = "CACHE_UNAVAILABLE"

	// KindInternal indicates an internal server error
	KindInternal Kind = "INTERNAL"
)

// AppError represents an application error carrying a classification kind
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or KindInternal for unclassified errors
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Kind == kind
}

// NewInvalidInputError creates a new invalid input error
func NewInvalidInputError(message string) *AppError {
	return &AppError{
		Kind:    KindInvalidInput,
		Message: message,
	}
}

// NewNoMatchError creates a new no match error
func NewNoMatchError(message string) *AppError {
	return &AppError{
		Kind:    KindNoMatch,
		Message: message,
	}
}

// NewNoPackagesError creates a new no packages error
func NewNoPackagesError(message string) *AppError {
	return &AppError{
		Kind:    KindNoPackages,
		Message: message,
	}
}

// NewCircuitOpenError creates a new circuit open error
func NewCircuitOpenError(message string) *AppError {
	return &AppError{
		Kind:    KindCircuitOpen,
		Message: message,
	}
}

// NewDependencyTimeoutError creates a new dependency timeout error
func NewDependencyTimeoutError(message string, err error) *AppError {
	return &AppError{
		Kind:    KindDependencyTimeout,
		Message: message,
		Err:     err,
	}
}

// NewDependencyError creates a new external dependency error
func NewDependencyError(message string, err error) *AppError {
	return &AppError{
		Kind:    KindDependency,
		Message: message,
		Err:     err,
	}
}

// NewCacheUnavailableError creates a new cache unavailable error
func NewCacheUnavailableError(message string, err error) *AppError {
	return &AppError{
		Kind:    KindCacheUnavailable,
		Message: message,
		Err:     err,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Kind:    KindInternal,
		Message: message,
		Err:     err,
	}
}
