package acl

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/domain"
)

// MapFetchError translates a transport failure into a domain error.
// Every feed failure is a *domain.UnavailableError; the reason says which kind.
func MapFetchError(err error, serviceName, operation string) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, clients.ErrCircuitOpen):
		return domain.NewUnavailableError(serviceName, "circuit breaker open during "+operation)

	case errors.Is(err, clients.ErrBodyTooLarge):
		return domain.NewUnavailableError(serviceName, operation+" returned an oversized response")
	}

	if status := clients.StatusCode(err); status > 0 {
		return domain.NewUnavailableError(serviceName, reasonForStatus(status, operation))
	}

	return domain.NewUnavailableError(serviceName, fmt.Sprintf("%s failed: %v", operation, err))
}

// MapDecodeError reports a payload the feed should never have sent.
func MapDecodeError(err error, serviceName, operation string) error {
	return domain.NewUnavailableError(serviceName, fmt.Sprintf("%s returned an unreadable payload: %v", operation, err))
}

func reasonForStatus(status int, operation string) string {
	switch status {
	case http.StatusNotFound:
		return operation + ": feed endpoint not found (HTTP 404)"
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Sprintf("%s: access denied (HTTP %d)", operation, status)
	case http.StatusTooManyRequests:
		return operation + ": rate limit exceeded (HTTP 429)"
	default:
		return fmt.Sprintf("%s: HTTP %d", operation, status)
	}
}
