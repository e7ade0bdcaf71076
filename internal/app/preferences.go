package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// Preferences owns the last selected category filter.
type Preferences struct {
	store  ports.KeyValueStore
	logger *slog.Logger

	mu       sync.RWMutex
	category string
}

// NewPreferences loads the stored category, defaulting to domain.CategoryAll.
// A store failure is logged and the default is used.
func NewPreferences(ctx context.Context, store ports.KeyValueStore, logger *slog.Logger) *Preferences {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Preferences{
		store:    store,
		logger:   logger.With(slog.String("component", "app.Preferences")),
		category: domain.CategoryAll,
	}

	value, ok, err := store.Load(ctx, ports.KeyLastSelectedCategory)

	switch {
	case err != nil:
		p.logger.ErrorContext(ctx, "persistent store unavailable, using default category", slog.Any("error", err))
	case ok && strings.TrimSpace(value) != "":
		p.category = value
	}

	return p
}

// LastSelectedCategory returns the remembered filter.
func (p *Preferences) LastSelectedCategory() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.category
}

// SelectCategory remembers category and persists it. Blank input selects
// domain.CategoryAll. Categories not present in the collection are accepted.
// The returned error is informational: the in-memory value is already updated.
func (p *Preferences) SelectCategory(ctx context.Context, category string) (string, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		category = domain.CategoryAll
	}

	p.mu.Lock()
	p.category = category
	err := p.store.Save(ctx, ports.KeyLastSelectedCategory, category)
	p.mu.Unlock()

	if err != nil {
		p.logger.ErrorContext(ctx, "failed to persist category preference", slog.Any("error", err))
	}

	return category, err
}
