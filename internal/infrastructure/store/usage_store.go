package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nutrigate/backend/internal/domain"
)

// UsageStore holds the per-(provider, window) call counters.
type UsageStore struct {
	db *sql.DB
}

// Reserve atomically claims one call slot in every given window bucket, or
// claims none and returns the reservation that would exceed its ceiling.
//
// Each bucket uses a single conditional upsert whose DO UPDATE only fires
// while count < limit, so two callers racing for the last slot cannot both
// be admitted; the whole set runs in one transaction so a denial in a later
// window rolls back earlier increments.
func (s *UsageStore) Reserve(ctx context.Context, provider string, reservations []domain.CounterReservation) (*domain.CounterReservation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin reservation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range reservations {
		r := reservations[i]
		if r.Limit < 1 {
			return &r, nil
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO usage_counters (provider, window_kind, window_start, count)
			VALUES (?, ?, ?, 1)
			ON CONFLICT(provider, window_kind, window_start)
			DO UPDATE SET count = count + 1 WHERE count < ?`,
			provider, string(r.Kind), formatTime(r.WindowStart), r.Limit)
		if err != nil {
			return nil, fmt.Errorf("failed to reserve %s/%s: %w", provider, r.Kind, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to reserve %s/%s: %w", provider, r.Kind, err)
		}
		if n == 0 {
			// Ceiling reached; rollback drops any earlier increments.
			return &r, nil
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reservation: %w", err)
	}
	return nil, nil
}

// Count returns the current counter for one window bucket, 0 if absent.
func (s *UsageStore) Count(ctx context.Context, provider string, kind domain.WindowKind, windowStart time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(count), 0) FROM usage_counters
		WHERE provider = ? AND window_kind = ? AND window_start = ?`,
		provider, string(kind), formatTime(windowStart)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count usage for %s/%s: %w", provider, kind, err)
	}
	return count, nil
}

// PruneBefore drops counters whose window started before t. Past windows are
// never read again, so this is storage housekeeping only.
func (s *UsageStore) PruneBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM usage_counters WHERE window_start < ?`, formatTime(t))
	if err != nil {
		return 0, fmt.Errorf("failed to prune usage counters: %w", err)
	}
	return res.RowsAffected()
}
