package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nutrigate/backend/internal/domain"
)

// CacheStore persists TTL-keyed normalized provider responses.
type CacheStore struct {
	db *sql.DB
}

// Get returns the cached payload for (provider, queryKey), or ErrCacheMiss
// when the entry is absent or already expired at now.
func (s *CacheStore) Get(ctx context.Context, provider, queryKey string, now time.Time) (*domain.CacheEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT provider, query_key, payload, cached_at, expires_at
		FROM cache_entries
		WHERE provider = ? AND query_key = ?`, provider, queryKey)

	var entry domain.CacheEntry
	var payload, cachedAt, expiresAt string
	err := row.Scan(&entry.Provider, &entry.QueryKey, &payload, &cachedAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	entry.CachedAt = parseTime(cachedAt)
	entry.ExpiresAt = parseTime(expiresAt)
	if !now.UTC().Before(entry.ExpiresAt) {
		return nil, domain.ErrCacheMiss
	}

	if err := json.Unmarshal([]byte(payload), &entry.Payload); err != nil {
		// A corrupt payload is as good as absent.
		return nil, domain.ErrCacheMiss
	}
	return &entry, nil
}

// Put upserts a cache entry. Concurrent writers for the same key race
// benignly: entries are idempotent derivations of the same remote truth, so
// last writer wins.
func (s *CacheStore) Put(ctx context.Context, entry *domain.CacheEntry) error {
	if !entry.ExpiresAt.After(entry.CachedAt) {
		return fmt.Errorf("cache entry expires_at must be after cached_at")
	}
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal cache payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (provider, query_key, payload, cached_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(provider, query_key)
		DO UPDATE SET payload = excluded.payload,
		              cached_at = excluded.cached_at,
		              expires_at = excluded.expires_at`,
		entry.Provider, entry.QueryKey, string(payload),
		formatTime(entry.CachedAt), formatTime(entry.ExpiresAt))
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Clear deletes all cache entries and returns how many were dropped.
func (s *CacheStore) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	return res.RowsAffected()
}
