package app

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// discardLogger returns a logger that discards all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockFeed is a testify mock of ports.QuoteFeed.
type mockFeed struct {
	mock.Mock
}

func (m *mockFeed) FetchCandidates(ctx context.Context) ([]domain.Quote, error) {
	args := m.Called(ctx)

	quotes, _ := args.Get(0).([]domain.Quote)

	return quotes, args.Error(1)
}

// feedFunc adapts a function to ports.QuoteFeed and counts calls.
type feedFunc struct {
	calls atomic.Int32
	fn    func(ctx context.Context) ([]domain.Quote, error)
}

func (f *feedFunc) FetchCandidates(ctx context.Context) ([]domain.Quote, error) {
	f.calls.Add(1)
	return f.fn(ctx)
}

// manualTicker only ticks when the test sends on ch.
type manualTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time)}
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() { t.stopped.Store(true) }
