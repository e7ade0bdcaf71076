// Package storage provides ports.KeyValueStore implementations.
//
// Three backends are available:
//   - SQLiteStore: a single kv table in a pure-Go SQLite database
//   - FileStore: one file per key inside a directory
//   - MemoryStore: a process-local map, used by tests and ephemeral runs
//
// Every backend reports failures as *domain.StorageError so callers can detect
// them with domain.IsStorageUnavailable without knowing which backend is wired.
package storage
