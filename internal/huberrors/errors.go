// Package huberrors provides sentinel and custom error types for the application.
package huberrors

import "strconv"

// ErrNotFound represents a "not found" error.
// Use when a requested resource doesn't exist.
var ErrNotFound = &NotFoundError{}

// NotFoundError is a sentinel error for resources that are not found.
type NotFoundError struct {
	Resource string
	Message  string
}

// NewNotFoundError creates a new NotFoundError with a custom message.
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Resource != "" {
		return e.Resource + " not found"
	}

	return "resource not found"
}

// Is implements the error interface for error comparison.
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)

	return ok
}

// ErrValidation represents a validation error.
// Use when client input fails validation.
var ErrValidation = &ValidationError{}

// ValidationError is a sentinel error for validation failures.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new ValidationError with a custom message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Field != "" {
		return "validation failed for field: " + e.Field
	}

	return "validation error"
}

// Is implements the error interface for error comparison.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)

	return ok
}

// ErrUpstream is the sentinel for failures reported by an external model provider.
var ErrUpstream = &UpstreamError{}

// UpstreamError wraps a provider failure together with the HTTP status it answered with.
// StatusCode is 0 when the request never produced a response (network error, timeout).
type UpstreamError struct {
	Provider   string
	StatusCode int
	Err        error
}

// NewUpstreamError wraps err as a failure of provider with the given HTTP status.
func NewUpstreamError(provider string, statusCode int, err error) *UpstreamError {
	return &UpstreamError{Provider: provider, StatusCode: statusCode, Err: err}
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	msg := "upstream error"
	if e.Provider != "" {
		msg = e.Provider + " " + msg
	}

	if e.StatusCode != 0 {
		msg += " (status " + strconv.Itoa(e.StatusCode) + ")"
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// HTTPStatus returns the provider's HTTP status, or 0 when unknown.
func (e *UpstreamError) HTTPStatus() int {
	return e.StatusCode
}

// Unwrap returns the underlying error.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is implements the error interface for error comparison.
func (e *UpstreamError) Is(target error) bool {
	_, ok := target.(*UpstreamError)

	return ok
}
