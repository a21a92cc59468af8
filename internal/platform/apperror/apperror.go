// Package apperror defines the error kinds shared by every module and their
// mapping to HTTP responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds. Concrete errors below match them through errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrAuthentication    = errors.New("authentication failed")
	ErrUpstream          = errors.New("upstream failure")
	ErrRefreshFailed     = errors.New("no valid credential")
)

// ValidationError is returned when caller input is rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e ValidationError) Is(target error) bool { return target == ErrValidation }

// Validation builds a ValidationError for a single field.
func Validation(field, message string) error {
	return ValidationError{Field: field, Message: message}
}

// NotFoundError hides whether a row is missing or owned by someone else.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string { return fmt.Sprintf("%s not found", e.Resource) }

func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound builds a NotFoundError for resource.
func NotFound(resource string) error { return NotFoundError{Resource: resource} }

// InvalidTransitionError reports a lifecycle action refused in the current status.
type InvalidTransitionError struct {
	Transition string
	Status     string
	Reason     string
}

func (e InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot %s invoice in status %s: %s", e.Transition, e.Status, e.Reason)
	}
	return fmt.Sprintf("cannot %s invoice in status %s", e.Transition, e.Status)
}

func (e InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// AuthenticationError covers bad signatures and missing sessions.
type AuthenticationError struct {
	Reason string
}

func (e AuthenticationError) Error() string { return e.Reason }

func (e AuthenticationError) Is(target error) bool { return target == ErrAuthentication }

// UpstreamError records a failed call to an external service.
type UpstreamError struct {
	Service    string
	StatusCode int
	Detail     string
}

func (e UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s responded %d: %s", e.Service, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s unreachable: %s", e.Service, e.Detail)
}

func (e UpstreamError) Is(target error) bool { return target == ErrUpstream }

// RefreshFailedError means a mail account has no usable access token.
type RefreshFailedError struct {
	Provider string
	Err      error
}

func (e RefreshFailedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s token refresh failed", e.Provider)
	}
	return fmt.Sprintf("%s token refresh failed: %v", e.Provider, e.Err)
}

func (e RefreshFailedError) Unwrap() error { return e.Err }

func (e RefreshFailedError) Is(target error) bool { return target == ErrRefreshFailed }

// HTTPStatus maps an error to the status code controllers respond with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrAuthentication):
		return http.StatusForbidden
	case errors.Is(err, ErrUpstream), errors.Is(err, ErrRefreshFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-safe message for err. Unclassified errors are
// reported generically so internals do not leak.
func Message(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}

// MaxDetail bounds upstream error text kept in responses and on invoices.
const MaxDetail = 2000

// Truncate cuts s to at most n characters (runes).
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
