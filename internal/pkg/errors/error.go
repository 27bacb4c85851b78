package xerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common reusable application errors
var (
	ErrBadRequest         = errors.New("bad request")
	ErrUnauthorized       = errors.New("unauthorized access")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("conflict: resource already exists")
	ErrGone               = errors.New("resource no longer available")
	ErrFailedDependency   = errors.New("failed dependency")
	ErrRateLimited        = errors.New("too many requests")
	ErrInternal           = errors.New("internal server error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrSessionExpired     = errors.New("session expired or invalid")
	ErrNoSession          = errors.New("no session")
	ErrInvalidResponse    = errors.New("invalid response from server")
)

// Kind is the human-readable category of an API failure.
type Kind string

const (
	KindBadRequest         Kind = "bad-request"
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "not-found"
	KindConflict           Kind = "conflict"
	KindGone               Kind = "gone"
	KindFailedDependency   Kind = "failed-dependency"
	KindRateLimited        Kind = "rate-limited"
	KindInternal           Kind = "internal"
	KindServiceUnavailable Kind = "service-unavailable"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Kind    Kind
	Message string
	err     error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (%d)", e.err, e.Status)
	}
	return fmt.Sprintf("%s (%d): %s", e.err, e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.err }

// FromStatus classifies an HTTP status code. message is the backend's
// {message} body, if any.
func FromStatus(status int, message string) *APIError {
	kind, sentinel := classify(status)
	return &APIError{Status: status, Kind: kind, Message: message, err: sentinel}
}

func classify(status int) (Kind, error) {
	switch status {
	case http.StatusBadRequest:
		return KindBadRequest, ErrBadRequest
	case http.StatusUnauthorized:
		return KindUnauthorized, ErrUnauthorized
	case http.StatusForbidden:
		return KindForbidden, ErrForbidden
	case http.StatusNotFound:
		return KindNotFound, ErrNotFound
	case http.StatusConflict:
		return KindConflict, ErrConflict
	case http.StatusGone:
		return KindGone, ErrGone
	case http.StatusFailedDependency:
		return KindFailedDependency, ErrFailedDependency
	case http.StatusTooManyRequests:
		return KindRateLimited, ErrRateLimited
	case http.StatusServiceUnavailable:
		return KindServiceUnavailable, ErrServiceUnavailable
	}
	if status >= 400 && status < 500 {
		return KindBadRequest, ErrBadRequest
	}
	return KindInternal, ErrInternal
}

// StatusOf returns the HTTP status carried by err, or 500 when err is not an
// APIError.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrSessionExpired), errors.Is(err, ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrServiceUnavailable), errors.Is(err, ErrInvalidResponse):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
