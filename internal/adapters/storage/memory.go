package storage

import (
	"context"
	"sync"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// MemoryStore keeps values in a map. Nothing survives the process.
type MemoryStore struct {
	mu      sync.RWMutex
	values  map[string]string
	failErr error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Save stores value under key.
func (s *MemoryStore) Save(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStorageError("save", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		return domain.NewStorageError("save", key, s.failErr)
	}

	s.values[key] = value

	return nil
}

// Load returns the value stored under key.
func (s *MemoryStore) Load(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, domain.NewStorageError("load", key, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failErr != nil {
		return "", false, domain.NewStorageError("load", key, s.failErr)
	}

	v, ok := s.values[key]

	return v, ok, nil
}

// Delete removes key. Missing keys are ignored.
func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
}

// FailWith makes every subsequent Save and Load fail with err.
// Passing nil restores normal behavior.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failErr = err
}

// Name implements ports.HealthChecker.
func (s *MemoryStore) Name() string {
	return "memory-store"
}

// Check implements ports.HealthChecker.
func (s *MemoryStore) Check(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failErr != nil {
		return domain.NewStorageError("check", "", s.failErr)
	}

	return nil
}
