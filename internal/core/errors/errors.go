package errors

import (
	"errors"
	"fmt"
)

// Client errors - these represent session and transport conditions
var (
	// Authentication
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("action forbidden")
	ErrNoSession         = errors.New("no active session")
	ErrInvalidRole       = errors.New("invalid role")
	ErrMalformedResponse = errors.New("malformed response")

	// Real-time transport
	ErrNoToken      = errors.New("bearer token is required")
	ErrNotConnected = errors.New("websocket not connected")

	// Generic
	ErrNotFound    = errors.New("resource not found")
	ErrBadRequest  = errors.New("bad request")
	ErrConflict    = errors.New("resource conflict")
	ErrRateLimited = errors.New("rate limit exceeded")
	ErrUnavailable = errors.New("service unavailable")
)

// AppError wraps errors with additional context for the status server responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewUnavailableError(err error, message string) *AppError {
	return &AppError{
		Err:        errors.Join(ErrUnavailable, err),
		Message:    message,
		Code:       "UNAVAILABLE",
		StatusCode: 503,
	}
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}
