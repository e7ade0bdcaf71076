package acl

import (
	"context"
	"log/slog"

	"github.com/mmcdole/gofeed"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

const feedAccept = "application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, */*;q=0.8"

// RSSFeed reads an RSS 2.0, Atom or JSON Feed document.
type RSSFeed struct {
	BaseAdapter
	parser *gofeed.Parser
}

// NewRSSFeed creates a syndication feed adapter. Panics if cfg.Client is nil.
func NewRSSFeed(cfg FeedConfig) *RSSFeed {
	return &RSSFeed{
		BaseAdapter: NewBaseAdapter(cfg),
		parser:      gofeed.NewParser(),
	}
}

// FetchCandidates implements ports.QuoteFeed.
func (f *RSSFeed) FetchCandidates(ctx context.Context) ([]domain.Quote, error) {
	body, err := f.fetch(ctx, feedAccept)
	if err != nil {
		return nil, err
	}

	doc, err := f.parser.ParseString(string(body))
	if err != nil {
		return nil, MapDecodeError(err, f.serviceName, "fetch candidates")
	}

	quotes := f.limit(TranslateSlice(doc.Items, translateItem))

	f.logger.DebugContext(ctx, "translated feed items",
		slog.String("feed_type", doc.FeedType),
		slog.Int("items", len(doc.Items)),
		slog.Int("candidates", len(quotes)),
	)

	return quotes, nil
}

func translateItem(item **gofeed.Item) domain.Quote {
	if *item == nil {
		return remoteQuote()
	}

	return remoteQuote((*item).Title, (*item).Description, (*item).Content)
}
