package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// StatusError is a non-2xx response from a collaborator.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not
// a *StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// IsDenied reports whether err means the capability or resource is off for
// this identity: authorization failure or not-found. Denied results are
// cached sticky by the capability cache and stop dependent pollers.
func IsDenied(err error) bool {
	switch StatusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

// IsTransient reports whether err is worth retrying on the next natural
// cycle: timeouts, network failures, and server errors. Transient results
// are never cached.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if code := StatusCode(err); code != 0 {
		return code >= 500 || code == http.StatusTooManyRequests
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	// Anything else without an HTTP status is a transport-level failure.
	return !errors.Is(err, context.Canceled)
}

// IsValidation reports whether err is a synchronous rejection of the
// submitted payload (e.g. a duplicate record). Validation failures are
// surfaced to the user and never retried automatically.
func IsValidation(err error) bool {
	switch StatusCode(err) {
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return true
	}
	return false
}
