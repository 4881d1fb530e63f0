// Package store implements the repositories on SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Register the sqlite driver
	_ "modernc.org/sqlite"
)

// timeFormat is how timestamps are persisted. modernc.org/sqlite does not
// store time.Time in a format SQLite's date functions understand, so all
// writes format explicitly.
const timeFormat = "2006-01-02 15:04:05"

// Store wraps the SQL database connection. The typed sub-stores returned by
// Providers, Usage, Cache, Catalog and Analytics share this one connection
// and implement the corresponding domain repositories.
type Store struct {
	db   *sql.DB
	path string
}

// Providers returns the provider configuration repository.
func (s *Store) Providers() *ProviderStore { return &ProviderStore{db: s.db} }

// Usage returns the usage counter repository.
func (s *Store) Usage() *UsageStore { return &UsageStore{db: s.db} }

// Cache returns the result cache repository.
func (s *Store) Cache() *CacheStore { return &CacheStore{db: s.db} }

// Catalog returns the food catalog repository.
func (s *Store) Catalog() *CatalogStore { return &CatalogStore{db: s.db} }

// Analytics returns the search analytics repository.
func (s *Store) Analytics() *AnalyticsStore { return &AnalyticsStore{db: s.db} }

// Open creates a database connection and initializes the schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single pooled connection keeps the pragmas below in effect for every
	// query and lets SQLite's own locking serialize writers instead of
	// surfacing SQLITE_BUSY to callers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db, path: path}

	if err := s.configure(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	if err := s.createSchema(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// configure sets up database pragmas.
func (s *Store) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}

	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS provider_configs (
			name TEXT PRIMARY KEY,
			enabled INTEGER NOT NULL DEFAULT 0,
			per_hour INTEGER,
			per_day INTEGER,
			per_month INTEGER,
			credentials TEXT NOT NULL DEFAULT '{}',
			is_default INTEGER NOT NULL DEFAULT 0,
			total_calls INTEGER NOT NULL DEFAULT 0,
			last_used_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS usage_counters (
			provider TEXT NOT NULL,
			window_kind TEXT NOT NULL,
			window_start TEXT NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (provider, window_kind, window_start)
		)`,
		`CREATE TABLE IF NOT EXISTS cache_entries (
			provider TEXT NOT NULL,
			query_key TEXT NOT NULL,
			payload TEXT NOT NULL,
			cached_at TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			PRIMARY KEY (provider, query_key)
		)`,
		`CREATE TABLE IF NOT EXISTS catalog_foods (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			brand TEXT NOT NULL DEFAULT '',
			barcode TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			serving_sizes TEXT NOT NULL,
			nutrients_per_100g TEXT NOT NULL,
			nutrients_per_serving TEXT,
			source TEXT NOT NULL,
			external_id TEXT NOT NULL DEFAULT '',
			verified INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_catalog_foods_barcode
			ON catalog_foods (barcode) WHERE barcode != ''`,
		`CREATE INDEX IF NOT EXISTS idx_catalog_foods_name_source
			ON catalog_foods (name, source)`,
		`CREATE TABLE IF NOT EXISTS search_analytics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query TEXT NOT NULL,
			provider_used TEXT NOT NULL,
			result_count INTEGER NOT NULL DEFAULT 0,
			success INTEGER NOT NULL DEFAULT 0,
			reason TEXT NOT NULL DEFAULT '',
			latency_ms INTEGER NOT NULL DEFAULT 0,
			timestamp TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(context.Background(), stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, err := time.ParseInLocation(timeFormat, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}
