package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

const instrumentationName = "github.com/jsamuelsen/quotesync/internal/app"

// ChangeListener is told the new collection after every mutation.
// Listeners see mutations one at a time, in the order they were applied.
// A listener may read the repository but must not mutate it.
type ChangeListener func(ctx context.Context, quotes []domain.Quote)

// storedQuote is the persisted shape of a quote under ports.KeyQuotes.
type storedQuote struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// QuoteRepository is the in-memory authoritative quote collection.
// Every mutation is persisted before it returns. Persistence failures are
// logged and counted; the in-memory collection stays authoritative.
type QuoteRepository struct {
	store  ports.KeyValueStore
	logger *slog.Logger

	// notifyMu is taken before mu and held until listeners return.
	notifyMu sync.Mutex

	mu         sync.Mutex
	quotes     []domain.Quote
	persistErr error

	listenersMu sync.Mutex
	listeners   map[uint64]ChangeListener
	nextID      uint64

	storageFailures metric.Int64Counter
}

// QuoteRepositoryConfig contains the repository dependencies.
type QuoteRepositoryConfig struct {
	Store  ports.KeyValueStore
	Logger *slog.Logger
}

// NewQuoteRepository loads the persisted collection, or seeds the built-in
// quotes when nothing usable is stored. The seed is not written back.
// Panics if cfg.Store is nil.
func NewQuoteRepository(ctx context.Context, cfg QuoteRepositoryConfig) (*QuoteRepository, error) {
	if cfg.Store == nil {
		panic("app: QuoteRepository requires a Store")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	failures, err := otel.Meter(instrumentationName).Int64Counter(
		"quotesync.storage.failures",
		metric.WithDescription("Persistent store operations that failed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating storage failure counter: %w", err)
	}

	r := &QuoteRepository{
		store:           cfg.Store,
		logger:          logger.With(slog.String("component", "app.QuoteRepository")),
		listeners:       make(map[uint64]ChangeListener),
		storageFailures: failures,
	}

	r.quotes = r.load(ctx)

	return r, nil
}

func (r *QuoteRepository) load(ctx context.Context) []domain.Quote {
	raw, ok, err := r.store.Load(ctx, ports.KeyQuotes)
	if err != nil {
		r.storageFailed(ctx, "load", err)
		return domain.SeedQuotes()
	}

	if !ok {
		r.logger.InfoContext(ctx, "no stored quotes, using seed collection")
		return domain.SeedQuotes()
	}

	var stored []storedQuote
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		r.logger.WarnContext(ctx, "stored quotes are unreadable, using seed collection", slog.Any("error", err))
		return domain.SeedQuotes()
	}

	quotes := make([]domain.Quote, 0, len(stored))

	for i, s := range stored {
		q := domain.Quote{Text: s.Text, Category: s.Category}
		if err := q.Validate(); err != nil {
			r.logger.WarnContext(ctx, "skipping invalid stored quote", slog.Int("index", i), slog.Any("error", err))
			continue
		}

		quotes = append(quotes, q)
	}

	if len(quotes) == 0 {
		r.logger.InfoContext(ctx, "stored collection is empty, using seed collection")
		return domain.SeedQuotes()
	}

	r.logger.InfoContext(ctx, "loaded stored quotes", slog.Int("count", len(quotes)))

	return quotes
}

// Add trims and validates text and category, then appends the quote.
// Returns a *domain.ValidationError and leaves the collection unchanged when
// either field is empty.
func (r *QuoteRepository) Add(ctx context.Context, text, category string) (domain.Quote, error) {
	q, err := domain.NewQuote(text, category)
	if err != nil {
		return domain.Quote{}, err
	}

	r.mutate(ctx, "add", func(current []domain.Quote) []domain.Quote {
		return append(current, q)
	})

	return q, nil
}

// ReplaceAll overwrites the collection.
func (r *QuoteRepository) ReplaceAll(ctx context.Context, quotes []domain.Quote) {
	next := append([]domain.Quote(nil), quotes...)

	r.mutate(ctx, "replace", func([]domain.Quote) []domain.Quote {
		return next
	})
}

// Merge reconciles the collection with remote candidates using domain.Merge
// and returns the resulting collection.
func (r *QuoteRepository) Merge(ctx context.Context, remote []domain.Quote) ([]domain.Quote, domain.MergeStats) {
	var stats domain.MergeStats

	merged := r.mutate(ctx, "merge", func(current []domain.Quote) []domain.Quote {
		var result []domain.Quote
		result, stats = domain.MergeWithStats(current, remote)

		return result
	})

	return merged, stats
}

// Import appends every quote without deduplication. It returns how many
// were added and the size of the collection right after the append.
func (r *QuoteRepository) Import(ctx context.Context, quotes []domain.Quote) (imported, total int) {
	if len(quotes) == 0 {
		return 0, r.Len()
	}

	after := r.mutate(ctx, "import", func(current []domain.Quote) []domain.Quote {
		return append(current, quotes...)
	})

	return len(quotes), len(after)
}

// Categories returns the distinct categories in first-seen order.
func (r *QuoteRepository) Categories() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return domain.Categories(r.quotes)
}

// ByCategory returns every quote for domain.CategoryAll, otherwise the quotes
// whose category matches filter exactly.
func (r *QuoteRepository) ByCategory(filter string) []domain.Quote {
	r.mu.Lock()
	defer r.mu.Unlock()

	return domain.FilterByCategory(r.quotes, filter)
}

// Snapshot returns a copy of the collection.
func (r *QuoteRepository) Snapshot() []domain.Quote {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]domain.Quote(nil), r.quotes...)
}

// Len returns the number of quotes.
func (r *QuoteRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.quotes)
}

// Subscribe registers listener and returns a function that removes it.
func (r *QuoteRepository) Subscribe(listener ChangeListener) (unsubscribe func()) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()

	id := r.nextID
	r.nextID++
	r.listeners[id] = listener

	var once sync.Once

	return func() {
		once.Do(func() {
			r.listenersMu.Lock()
			delete(r.listeners, id)
			r.listenersMu.Unlock()
		})
	}
}

// Name implements ports.HealthChecker.
func (r *QuoteRepository) Name() string {
	return "quote-repository"
}

// Check reports the last persistence failure, if the most recent write failed.
func (r *QuoteRepository) Check(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.persistErr
}

// mutate applies fn and persists the result under one lock, then notifies
// listeners with a copy of the new collection. notifyMu keeps notifications
// in mutation order without holding mu while listeners run.
func (r *QuoteRepository) mutate(ctx context.Context, op string, fn func([]domain.Quote) []domain.Quote) []domain.Quote {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()

	before := len(r.quotes)
	r.quotes = fn(r.quotes)
	r.persistErr = r.persist(ctx)
	snapshot := append([]domain.Quote(nil), r.quotes...)

	r.mu.Unlock()

	logging.FromContext(ctx).DebugContext(ctx, "quote collection changed",
		slog.String("op", op),
		slog.Int("before", before),
		slog.Int("after", len(snapshot)),
	)

	r.notify(ctx, snapshot)

	return snapshot
}

// persist must be called with r.mu held.
func (r *QuoteRepository) persist(ctx context.Context) error {
	stored := make([]storedQuote, len(r.quotes))
	for i, q := range r.quotes {
		stored[i] = storedQuote(q)
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encoding quotes: %w", err)
	}

	if err := r.store.Save(ctx, ports.KeyQuotes, string(raw)); err != nil {
		r.storageFailed(ctx, "save", err)
		return err
	}

	return nil
}

func (r *QuoteRepository) storageFailed(ctx context.Context, op string, err error) {
	r.storageFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("key", ports.KeyQuotes),
	))

	r.logger.ErrorContext(ctx, "persistent store unavailable, keeping in-memory quotes",
		slog.String("op", op),
		slog.Any("error", err),
	)
}

func (r *QuoteRepository) notify(ctx context.Context, quotes []domain.Quote) {
	r.listenersMu.Lock()
	listeners := make([]ChangeListener, 0, len(r.listeners))

	for _, l := range r.listeners {
		listeners = append(listeners, l)
	}
	r.listenersMu.Unlock()

	for _, l := range listeners {
		l(ctx, quotes)
	}
}
