package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/quotesync/internal/ports"
)

// State is the loaded in-memory state of the process.
type State struct {
	Repository  *QuoteRepository
	Preferences *Preferences
}

// LoadState reads the quote collection and the category preference from
// store concurrently. Store failures are not returned: both owners fall back
// to their defaults and log.
func LoadState(ctx context.Context, store ports.KeyValueStore, logger *slog.Logger) (*State, error) {
	var st State

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		repo, err := NewQuoteRepository(gctx, QuoteRepositoryConfig{Store: store, Logger: logger})
		if err != nil {
			return err
		}

		st.Repository = repo

		return nil
	})

	g.Go(func() error {
		st.Preferences = NewPreferences(gctx, store, logger)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}

	return &st, nil
}
