package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

const (
	dirPerm  = 0o700
	filePerm = 0o600
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// FileStore writes each key to its own file under a directory.
// Writes go to a temp file first and are renamed into place.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the directory if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	return &FileStore{dir: dir}, nil
}

// Save writes value to the key's file.
func (s *FileStore) Save(ctx context.Context, key, value string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return domain.NewStorageError("save", key, err)
	}

	if err := ctx.Err(); err != nil {
		return domain.NewStorageError("save", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "."+key+".*.tmp")
	if err != nil {
		return domain.NewStorageError("save", key, err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return domain.NewStorageError("save", key, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return domain.NewStorageError("save", key, err)
	}

	if err := os.Chmod(tmpName, filePerm); err != nil {
		_ = os.Remove(tmpName)
		return domain.NewStorageError("save", key, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return domain.NewStorageError("save", key, err)
	}

	return nil
}

// Load reads the key's file. A missing file means the key is absent.
func (s *FileStore) Load(ctx context.Context, key string) (string, bool, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return "", false, domain.NewStorageError("load", key, err)
	}

	if err := ctx.Err(); err != nil {
		return "", false, domain.NewStorageError("load", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}

	if err != nil {
		return "", false, domain.NewStorageError("load", key, err)
	}

	return string(data), true, nil
}

// Name implements ports.HealthChecker.
func (s *FileStore) Name() string {
	return "file-store"
}

// Check verifies the directory still exists and is a directory.
func (s *FileStore) Check(_ context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return domain.NewStorageError("check", "", err)
	}

	if !info.IsDir() {
		return domain.NewStorageError("check", "", fmt.Errorf("%s is not a directory", s.dir))
	}

	return nil
}

func (s *FileStore) pathFor(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid key %q", key)
	}

	return filepath.Join(s.dir, key+".json"), nil
}
