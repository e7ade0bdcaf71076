package acl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

const (
	// RemoteCategory is assigned to every quote that comes from a feed.
	RemoteCategory = "Server"

	// PlaceholderText stands in for a record with neither title nor body.
	PlaceholderText = "Untitled quote"
)

// Fetcher is the part of clients.Client the adapters need.
type Fetcher interface {
	Fetch(ctx context.Context, path, accept string) ([]byte, error)
	CircuitState() clients.State
}

// FeedConfig configures a feed adapter.
type FeedConfig struct {
	// Client reaches the feed. Required.
	Client Fetcher

	// ServiceName names the feed in errors and health checks.
	ServiceName string

	// Path is requested relative to the client's base URL.
	Path string

	// MaxRecords truncates the candidate list. Zero keeps everything.
	MaxRecords int

	Logger *slog.Logger
}

// BaseAdapter holds what every feed adapter shares.
type BaseAdapter struct {
	client      Fetcher
	serviceName string
	path        string
	maxRecords  int
	logger      *slog.Logger
}

// NewBaseAdapter validates cfg. Panics if Client is nil.
func NewBaseAdapter(cfg FeedConfig) BaseAdapter {
	if cfg.Client == nil {
		panic("acl: feed Client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	name := cfg.ServiceName
	if name == "" {
		name = "quote-feed"
	}

	return BaseAdapter{
		client:      cfg.Client,
		serviceName: name,
		path:        cfg.Path,
		maxRecords:  cfg.MaxRecords,
		logger:      logger.With(slog.String("feed", name)),
	}
}

// ServiceName returns the feed name.
func (a *BaseAdapter) ServiceName() string {
	return a.serviceName
}

// Name implements ports.HealthChecker.
func (a *BaseAdapter) Name() string {
	return a.serviceName
}

// Check reports the feed unhealthy while its circuit breaker is open.
// It never calls the feed, so readiness probes cost nothing upstream.
func (a *BaseAdapter) Check(_ context.Context) error {
	if state := a.client.CircuitState(); state == clients.StateOpen {
		return domain.NewUnavailableError(a.serviceName, "circuit breaker "+state.String())
	}

	return nil
}

// fetch downloads the feed document, mapping failures to domain errors.
func (a *BaseAdapter) fetch(ctx context.Context, accept string) ([]byte, error) {
	a.logger.Log(ctx, logging.LevelTrace, "fetching feed", slog.String("path", a.path))

	body, err := a.client.Fetch(ctx, a.path, accept)
	if err != nil {
		return nil, MapFetchError(err, a.serviceName, "fetch candidates")
	}

	a.logger.Log(ctx, logging.LevelTrace, "feed fetched", slog.Int("bytes", len(body)))

	return body, nil
}

// limit applies MaxRecords.
func (a *BaseAdapter) limit(quotes []domain.Quote) []domain.Quote {
	if a.maxRecords > 0 && len(quotes) > a.maxRecords {
		return quotes[:a.maxRecords]
	}

	return quotes
}

// DecodeJSON decodes body into T.
func DecodeJSON[T any](body []byte) (T, error) {
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decoding response: %w", err)
	}

	return out, nil
}

// Translator converts one external record into a domain value.
type Translator[E any, D any] func(ext *E) D

// TranslateSlice applies translate to every item, preserving order.
func TranslateSlice[E any, D any](items []E, translate Translator[E, D]) []D {
	out := make([]D, 0, len(items))
	for i := range items {
		out = append(out, translate(&items[i]))
	}

	return out
}

// remoteQuote builds a quote from the first non-blank candidate text.
func remoteQuote(candidates ...string) domain.Quote {
	for _, c := range candidates {
		if text := strings.TrimSpace(c); text != "" {
			return domain.Quote{Text: text, Category: RemoteCategory}
		}
	}

	return domain.Quote{Text: PlaceholderText, Category: RemoteCategory}
}
