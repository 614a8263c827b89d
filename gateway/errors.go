package gateway

import (
	"fmt"

	"github.com/jrsteele09/nccc-portal-client/internal/errors"
)

// ErrAuthInvalid is matched (errors.Is) by a StatusError whose 401 triggered
// session invalidation.
var ErrAuthInvalid = errors.ErrAuthInvalid

// TransportError means no HTTP response was obtained: dial failures,
// timeouts, cancelled contexts, truncated bodies.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == errors.ErrTransport
}

// StatusError is a response outside the 2xx range.
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string // envelope message, when the body carried one

	authInvalid bool
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

func (e *StatusError) Is(target error) bool {
	return target == errors.ErrAuthInvalid && e.authInvalid
}

// Unauthenticated reports a 401 response, whether or not it invalidated the
// session.
func (e *StatusError) Unauthenticated() bool {
	return e.Status == 401
}

// ErrorMessage returns the backend's message carried by err, or fallback
// when err has none (transport failures, bare status codes).
func ErrorMessage(err error, fallback string) string {
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}
