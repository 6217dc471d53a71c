package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenUnavailable is returned when the token endpoint did not issue a token
	ErrTokenUnavailable = errors.New("engine: could not retrieve token")

	// ErrEncoding is returned when a response body is not valid UTF-8 text
	ErrEncoding = errors.New("engine: response body is not valid UTF-8")

	// ErrBodyTooLarge is returned when a response body is over the read limit
	ErrBodyTooLarge = errors.New("engine: response body too large")

	// ErrLockPoisoned is returned by a Credentials store after a renewal
	// panicked. The store stays unusable for the rest of the process.
	ErrLockPoisoned = errors.New("engine: credential store poisoned")
)

// TransportError wraps a failure of the underlying HTTP client
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("engine: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
