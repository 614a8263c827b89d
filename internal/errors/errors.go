package errors

import (
	"errors"
	"fmt"
)

// Common error types for the portal client
var (
	// Session errors
	ErrAuthInvalid = errors.New("credential rejected by backend")

	// Request errors
	ErrTransport    = errors.New("transport failure")
	ErrBadEnvelope  = errors.New("malformed response envelope")
	ErrInvalidInput = errors.New("invalid input")

	// Channel errors
	ErrChannelClosed  = errors.New("channel closed")
	ErrChannelDropped = errors.New("channel dropped")

	// General errors
	ErrUnsupported = errors.New("unsupported operation")
)

// New returns an error with the given text
func New(text string) error {
	return errors.New(text)
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
