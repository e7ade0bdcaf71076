// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (ErrUnavailable, ErrStorageUnavailable)
//   - Keep interfaces small and focused
package ports

import (
	"context"
	"io"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// Storage keys shared by every KeyValueStore implementation.
const (
	// KeyQuotes holds the JSON-encoded quote collection.
	KeyQuotes = "quotes"

	// KeyLastSelectedCategory holds the last category filter as a plain string.
	KeyLastSelectedCategory = "lastSelectedCategory"
)

// KeyValueStore is a durable string-to-string map.
// It survives process restarts and knows nothing about the values it holds.
//
// Example usage in application layer:
//
//	raw, ok, err := store.Load(ctx, ports.KeyQuotes)
//	if err != nil {
//	    // fall back to in-memory state
//	}
type KeyValueStore interface {
	// Save stores value under key, replacing any previous value.
	// Returns a *domain.StorageError when the backend rejects the write.
	Save(ctx context.Context, key, value string) error

	// Load returns the value stored under key.
	// ok is false when nothing has ever been saved under key.
	// Returns a *domain.StorageError when the backend cannot be read.
	Load(ctx context.Context, key string) (value string, ok bool, err error)
}

// QuoteFeed retrieves candidate quotes from a remote source.
//
// Key considerations:
//   - Handle timeouts via context deadline
//   - Map transport and status failures to domain.ErrUnavailable
//   - Every returned quote satisfies domain.Quote.Validate
type QuoteFeed interface {
	// FetchCandidates returns the remote quotes in the order the feed lists them.
	FetchCandidates(ctx context.Context) ([]domain.Quote, error)
}

// QuoteCodec converts a collection to and from the portable exchange format.
type QuoteCodec interface {
	// Encode renders quotes for download.
	Encode(quotes []domain.Quote) ([]byte, error)

	// Decode parses an uploaded document. Any invalid record rejects the
	// whole document with a *domain.ValidationError.
	Decode(r io.Reader) ([]domain.Quote, error)
}
