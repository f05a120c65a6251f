package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteKV is a KV backed by a single-table SQLite database.
type SQLiteKV struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenSQLite opens (or creates) the cache database at path.
func OpenSQLite(path string) (*SQLiteKV, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// The cache is touched from one goroutine at a time; a single
	// connection avoids SQLITE_BUSY on concurrent write-through.
	db.SetMaxOpenConns(1)

	const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteKV{db: db}, nil
}

// Get returns the stored value for key, with ok=false when absent.
func (s *SQLiteKV) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// Set upserts a value.
func (s *SQLiteKV) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteKV) Close() error { return s.db.Close() }

// MemoryKV is an in-memory KV for tests.
type MemoryKV struct {
	mu sync.Mutex
	m  map[string]string

	// SetErr, when non-nil, is returned from Set to exercise error paths.
	SetErr error
}

// NewMemoryKV returns an empty in-memory store.
func NewMemoryKV() *MemoryKV { return &MemoryKV{m: make(map[string]string)} }

func (s *MemoryKV) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *MemoryKV) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetErr != nil {
		return s.SetErr
	}
	s.m[key] = value
	return nil
}

func (s *MemoryKV) Close() error { return nil }
