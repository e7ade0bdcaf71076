package acl

import (
	"fmt"
	"log/slog"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// Feed formats accepted by NewFeed.
const (
	FormatJSON = "json"
	FormatRSS  = "rss"
)

// Feed is a quote feed that also reports its health.
type Feed interface {
	ports.QuoteFeed
	ports.HealthChecker
}

// NewFeed returns the adapter for format.
func NewFeed(format string, cfg FeedConfig) (Feed, error) {
	switch format {
	case FormatJSON, "":
		return NewJSONFeed(cfg), nil
	case FormatRSS:
		return NewRSSFeed(cfg), nil
	default:
		return nil, fmt.Errorf("unknown feed format %q", format)
	}
}

// NewFeedFromConfig builds the HTTP client and the adapter for the
// configured feed.
func NewFeedFromConfig(feed config.FeedConfig, client config.ClientConfig, logger *slog.Logger) (Feed, error) {
	c, err := clients.New(clients.Config{
		BaseURL:      feed.BaseURL,
		ServiceName:  feed.Name,
		Timeout:      client.Timeout,
		MaxBodyBytes: client.MaxBodyBytes,
		UserAgent:    client.UserAgent,
		Retry:        client.Retry,
		Circuit:      client.CircuitBreaker,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating feed client: %w", err)
	}

	return NewFeed(feed.Format, FeedConfig{
		Client:      c,
		ServiceName: feed.Name,
		Path:        feed.Path,
		MaxRecords:  feed.MaxRecords,
		Logger:      logger,
	})
}
