package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/adapters/exchange"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

func newService(t *testing.T, store *storage.MemoryStore, pick func(int) int) *QuoteService {
	t.Helper()

	st, err := LoadState(context.Background(), store, discardLogger())
	require.NoError(t, err)

	return NewQuoteService(QuoteServiceConfig{
		Repository:  st.Repository,
		Preferences: st.Preferences,
		Codec:       exchange.JSONCodec{},
		Logger:      discardLogger(),
		Pick:        pick,
	})
}

func TestNewQuoteService_PanicsWithoutDependencies(t *testing.T) {
	assert.Panics(t, func() {
		NewQuoteService(QuoteServiceConfig{Logger: discardLogger()})
	})
}

func TestNewQuoteService_Defaults(t *testing.T) {
	st, err := LoadState(context.Background(), storage.NewMemoryStore(), nil)
	require.NoError(t, err)

	svc := NewQuoteService(QuoteServiceConfig{
		Repository:  st.Repository,
		Preferences: st.Preferences,
		Codec:       exchange.JSONCodec{},
	})

	require.NotNil(t, svc)

	q, err := svc.RandomQuote(domain.CategoryAll)
	require.NoError(t, err)
	assert.Contains(t, domain.SeedQuotes(), q)
}

func TestQuoteService_RandomQuote(t *testing.T) {
	tests := []struct {
		name    string
		filter  string
		pick    func(int) int
		want    domain.Quote
		wantErr bool
	}{
		{
			name:   "all uses whole collection",
			filter: domain.CategoryAll,
			pick:   func(n int) int { return n - 1 },
			want:   domain.SeedQuotes()[2],
		},
		{
			name:   "category filter",
			filter: "Inspiration",
			pick:   func(int) int { return 0 },
			want:   domain.SeedQuotes()[1],
		},
		{
			name:    "no match",
			filter:  "Nonexistent",
			pick:    func(int) int { return 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(t, storage.NewMemoryStore(), tt.pick)

			got, err := svc.RandomQuote(tt.filter)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, domain.IsNotFound(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuoteService_EmptyFilterUsesPreference(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), ports.KeyLastSelectedCategory, "Resilience"))

	svc := newService(t, store, nil)

	assert.Equal(t, "Resilience", svc.LastSelectedCategory())
	assert.Equal(t, []domain.Quote{domain.SeedQuotes()[2]}, svc.QuotesFor(""))

	svc.SelectCategory(context.Background(), domain.CategoryAll)
	assert.Len(t, svc.QuotesFor(""), 3)
}

func TestQuoteService_SelectCategoryIgnoresStorageFailure(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newService(t, store, nil)
	store.FailWith(errors.New("read-only"))

	assert.Equal(t, "Motivation", svc.SelectCategory(context.Background(), "Motivation"))
	assert.Equal(t, "Motivation", svc.LastSelectedCategory())
}

func TestQuoteService_AddQuote(t *testing.T) {
	svc := newService(t, storage.NewMemoryStore(), nil)

	q, err := svc.AddQuote(context.Background(), "New one", "Fresh")
	require.NoError(t, err)
	assert.Equal(t, domain.Quote{Text: "New one", Category: "Fresh"}, q)
	assert.Equal(t, []string{"Motivation", "Inspiration", "Resilience", "Fresh"}, svc.Categories())

	_, err = svc.AddQuote(context.Background(), "  ", "Fresh")
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Len(t, svc.QuotesFor(domain.CategoryAll), 4)
}

func TestQuoteService_Import(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		want      ImportResult
		wantErr   bool
		wantTotal int
	}{
		{
			name:      "appends without dedup",
			body:      `[{"text":"The best way to get started is to quit talking and begin doing.","category":"Motivation"},{"text":"x","category":"y"}]`,
			want:      ImportResult{Imported: 2, Total: 5},
			wantTotal: 5,
		},
		{
			name:      "invalid record rejects everything",
			body:      `[{"text":"x","category":"y"},{"text":"z"}]`,
			wantErr:   true,
			wantTotal: 3,
		},
		{
			name:      "not an array",
			body:      `{"quotes":[]}`,
			wantErr:   true,
			wantTotal: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(t, storage.NewMemoryStore(), nil)

			got, err := svc.Import(context.Background(), strings.NewReader(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, domain.IsValidation(err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			assert.Len(t, svc.QuotesFor(domain.CategoryAll), tt.wantTotal)
		})
	}
}

func TestQuoteService_ExportThenImportDoublesCollection(t *testing.T) {
	svc := newService(t, storage.NewMemoryStore(), nil)

	out, err := svc.Export(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "[\n  {"))

	res, err := svc.Import(context.Background(), strings.NewReader(string(out)))
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Imported: 3, Total: 6}, res)
}

type failingCodec struct{}

func (failingCodec) Encode([]domain.Quote) ([]byte, error)   { return nil, errors.New("encode") }
func (failingCodec) Decode(io.Reader) ([]domain.Quote, error) { return nil, errors.New("decode") }

func TestQuoteService_CodecErrorsAreWrapped(t *testing.T) {
	st, err := LoadState(context.Background(), storage.NewMemoryStore(), discardLogger())
	require.NoError(t, err)

	svc := NewQuoteService(QuoteServiceConfig{
		Repository:  st.Repository,
		Preferences: st.Preferences,
		Codec:       failingCodec{},
		Logger:      discardLogger(),
	})

	_, err = svc.Export(context.Background())
	require.ErrorContains(t, err, "encoding export")

	_, err = svc.Import(context.Background(), strings.NewReader("[]"))
	require.ErrorContains(t, err, "decoding import")
}

func TestQuoteService_Subscribe(t *testing.T) {
	svc := newService(t, storage.NewMemoryStore(), nil)

	changed := 0
	unsubscribe := svc.Subscribe(func(context.Context, []domain.Quote) { changed++ })

	_, err := svc.AddQuote(context.Background(), "a", "b")
	require.NoError(t, err)

	unsubscribe()

	_, err = svc.AddQuote(context.Background(), "c", "d")
	require.NoError(t, err)

	assert.Equal(t, 1, changed)
}
