package acl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

var errNotArray = errors.New("payload is not a JSON array")

// JSONFeed reads a JSON array of posts, e.g. https://jsonplaceholder.typicode.com/posts.
type JSONFeed struct {
	BaseAdapter
}

// NewJSONFeed creates a JSON feed adapter. Panics if cfg.Client is nil.
func NewJSONFeed(cfg FeedConfig) *JSONFeed {
	return &JSONFeed{BaseAdapter: NewBaseAdapter(cfg)}
}

// postDTO is one record of the feed. Only the fields we map are declared;
// anything else the feed sends (id, userId, ...) is ignored.
type postDTO struct {
	Title flexString `json:"title"`
	Body  flexString `json:"body"`
}

// UnmarshalJSON treats any element that is not an object (a number, a
// string, null, a nested array) as a post with neither title nor body.
func (p *postDTO) UnmarshalJSON(b []byte) error {
	*p = postDTO{}

	if trimmed := bytes.TrimSpace(b); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}

	type plain postDTO

	return json.Unmarshal(b, (*plain)(p))
}

// flexString accepts any JSON scalar and keeps only strings.
// A numeric or null title must fall back to the body, not fail the whole batch.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*f = ""
		return nil //nolint:nilerr // non-string values count as absent
	}

	*f = flexString(s)

	return nil
}

// FetchCandidates implements ports.QuoteFeed.
func (f *JSONFeed) FetchCandidates(ctx context.Context) ([]domain.Quote, error) {
	body, err := f.fetch(ctx, "application/json")
	if err != nil {
		return nil, err
	}

	posts, err := DecodeJSON[[]postDTO](body)
	if err == nil && posts == nil {
		err = errNotArray
	}

	if err != nil {
		return nil, MapDecodeError(err, f.serviceName, "fetch candidates")
	}

	quotes := f.limit(TranslateSlice(posts, translatePost))

	f.logger.DebugContext(ctx, "translated feed records",
		slog.Int("records", len(posts)),
		slog.Int("candidates", len(quotes)),
	)

	return quotes, nil
}

func translatePost(p *postDTO) domain.Quote {
	return remoteQuote(string(p.Title), string(p.Body))
}
