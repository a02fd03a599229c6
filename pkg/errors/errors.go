package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors covering the failure taxonomy of the search engine.
var (
	// ErrInvalidInput marks a malformed request. The cache and catalog are
	// never touched for these.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable marks a downstream dependency failure (catalog store,
	// message broker). Results produced under this error are never cached.
	ErrUnavailable = errors.New("dependency unavailable")

	// ErrNotFound marks a missing resource. Reserved for single-item lookups;
	// an empty search result set is NOT a not-found condition.
	ErrNotFound = errors.New("resource not found")

	// ErrInternal marks an unexpected internal failure.
	ErrInternal = errors.New("internal error")
)

// AppError is a structured application error with an HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Validation creates a 400 error for a malformed or incomplete request.
func Validation(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Dependency creates a 503 error for a downstream dependency failure.
// The dependency name is included so callers can tell a catalog outage
// apart from an empty result set.
func Dependency(name string, err error) *AppError {
	return &AppError{
		Code:    "DEPENDENCY_ERROR",
		Message: fmt.Sprintf("%s is temporarily unavailable", name),
		Status:  http.StatusServiceUnavailable,
		Err:     fmt.Errorf("%w: %s: %w", ErrUnavailable, name, err),
	}
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsDependency reports whether err is a dependency failure.
func IsDependency(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
