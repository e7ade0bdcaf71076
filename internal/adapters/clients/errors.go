// Package clients provides the instrumented HTTP transport used to reach the remote feed.
package clients

import (
	"errors"
	"fmt"
)

// Client errors represent failures in the transport layer.
// The ACL translates them to domain errors; nothing above it sees these values.
var (
	// ErrCircuitOpen is returned without touching the network while the breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrRetriesExhausted wraps the last failure after every attempt failed.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrBodyTooLarge is returned when a response exceeds Config.MaxBodyBytes.
	ErrBodyTooLarge = errors.New("response body too large")
)

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	Code int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.Code)
}

// StatusCode extracts the HTTP status from err, or 0 when err carries none.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}

	return 0
}
