// Package app contains application services that orchestrate use cases.
// It coordinates the domain and the ports; it knows nothing about HTTP or
// the concrete store and feed behind the ports.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// QuoteService is the narrow surface presentation layers call into.
type QuoteService struct {
	repo   *QuoteRepository
	prefs  *Preferences
	codec  ports.QuoteCodec
	pick   func(n int) int
	logger *slog.Logger
}

// QuoteServiceConfig contains configuration for the quote service.
type QuoteServiceConfig struct {
	Repository  *QuoteRepository
	Preferences *Preferences
	Codec       ports.QuoteCodec
	Logger      *slog.Logger

	// Pick returns an index in [0, n). Defaults to math/rand/v2.IntN.
	Pick func(n int) int
}

// ImportResult reports an import.
type ImportResult struct {
	Imported int `json:"imported"`
	Total    int `json:"total"`
}

// NewQuoteService creates a new quote service. Panics if Repository,
// Preferences or Codec is nil.
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	if cfg.Repository == nil || cfg.Preferences == nil || cfg.Codec == nil {
		panic("app: QuoteService requires a Repository, Preferences and a Codec")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pick := cfg.Pick
	if pick == nil {
		pick = rand.IntN
	}

	return &QuoteService{
		repo:   cfg.Repository,
		prefs:  cfg.Preferences,
		codec:  cfg.Codec,
		pick:   pick,
		logger: logger.With(slog.String("component", "app.QuoteService")),
	}
}

// Categories returns the distinct categories in first-seen order.
func (s *QuoteService) Categories() []string {
	return s.repo.Categories()
}

// QuotesFor returns the quotes matching filter. An empty filter uses the
// last selected category.
func (s *QuoteService) QuotesFor(filter string) []domain.Quote {
	return s.repo.ByCategory(s.resolve(filter))
}

// RandomQuote picks one quote matching filter.
// Returns a *domain.NotFoundError when nothing matches.
func (s *QuoteService) RandomQuote(filter string) (domain.Quote, error) {
	filter = s.resolve(filter)

	quotes := s.repo.ByCategory(filter)
	if len(quotes) == 0 {
		return domain.Quote{}, domain.NewNotFoundError("quotes in category", filter)
	}

	return quotes[s.pick(len(quotes))], nil
}

// AddQuote validates and appends a quote.
func (s *QuoteService) AddQuote(ctx context.Context, text, category string) (domain.Quote, error) {
	q, err := s.repo.Add(ctx, text, category)
	if err != nil {
		logging.FromContext(ctx).InfoContext(ctx, "rejected quote", slog.Any("error", err))
		return domain.Quote{}, err
	}

	s.logger.InfoContext(ctx, "added quote", slog.String("category", q.Category))

	return q, nil
}

// Import decodes r and appends every record without deduplication.
// Nothing is appended when any record is invalid.
func (s *QuoteService) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	quotes, err := s.codec.Decode(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("decoding import: %w", err)
	}

	imported, total := s.repo.Import(ctx, quotes)

	s.logger.InfoContext(ctx, "imported quotes", slog.Int("count", imported), slog.Int("total", total))

	return ImportResult{Imported: imported, Total: total}, nil
}

// Export encodes the whole collection.
func (s *QuoteService) Export(_ context.Context) ([]byte, error) {
	out, err := s.codec.Encode(s.repo.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}

	return out, nil
}

// LastSelectedCategory returns the remembered filter.
func (s *QuoteService) LastSelectedCategory() string {
	return s.prefs.LastSelectedCategory()
}

// SelectCategory remembers category. A persistence failure is logged by
// Preferences and does not fail the call.
func (s *QuoteService) SelectCategory(ctx context.Context, category string) string {
	selected, _ := s.prefs.SelectCategory(ctx, category)
	return selected
}

// Subscribe forwards to the repository's change listeners.
func (s *QuoteService) Subscribe(listener ChangeListener) func() {
	return s.repo.Subscribe(listener)
}

func (s *QuoteService) resolve(filter string) string {
	if filter == "" {
		return s.prefs.LastSelectedCategory()
	}

	return filter
}
