package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jsamuelsen/quotesync/internal/ports"
)

// Supported driver names.
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
	DriverMemory = "memory"
)

// Config selects and locates a backend.
type Config struct {
	// Driver is one of DriverSQLite, DriverFile or DriverMemory.
	Driver string

	// Path is the database file for sqlite and the directory for file.
	Path string
}

// Store is a KeyValueStore that can also report its health.
type Store interface {
	ports.KeyValueStore
	ports.HealthChecker
}

// Open builds the configured backend. The returned close function is never nil.
func Open(ctx context.Context, cfg Config) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Driver {
	case DriverSQLite:
		path := cfg.Path
		if filepath.Ext(path) == "" && path != ":memory:" {
			path = filepath.Join(path, "quotesync.db")
		}

		s, err := NewSQLiteStore(ctx, path)
		if err != nil {
			return nil, noop, err
		}

		return s, s.Close, nil

	case DriverFile:
		s, err := NewFileStore(cfg.Path)
		if err != nil {
			return nil, noop, err
		}

		return s, noop, nil

	case DriverMemory:
		return NewMemoryStore(), noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
