package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nutrigate/backend/internal/domain"
)

// AnalyticsStore appends and reads external-call attempt records.
type AnalyticsStore struct {
	db *sql.DB
}

// Insert appends one attempt record.
func (s *AnalyticsStore) Insert(ctx context.Context, rec *domain.AnalyticsRecord) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO search_analytics (query, provider_used, result_count, success, reason, latency_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Query,
		rec.ProviderUsed,
		rec.ResultCount,
		rec.Success,
		rec.Reason,
		rec.LatencyMs,
		formatTime(rec.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to insert analytics record: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

// Recent returns the newest records, newest first.
func (s *AnalyticsStore) Recent(ctx context.Context, limit int) ([]domain.AnalyticsRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query, provider_used, result_count, success, reason, latency_ms, timestamp
		FROM search_analytics
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analytics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []domain.AnalyticsRecord
	for rows.Next() {
		var rec domain.AnalyticsRecord
		var ts string
		err := rows.Scan(&rec.ID, &rec.Query, &rec.ProviderUsed, &rec.ResultCount,
			&rec.Success, &rec.Reason, &rec.LatencyMs, &ts)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analytics record: %w", err)
		}
		rec.Timestamp = parseTime(ts)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SummaryByProvider aggregates attempts, successes and mean latency per
// provider over all recorded history.
func (s *AnalyticsStore) SummaryByProvider(ctx context.Context) ([]domain.ProviderSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider_used,
		       COUNT(*),
		       COALESCE(SUM(success), 0),
		       COALESCE(AVG(latency_ms), 0)
		FROM search_analytics
		GROUP BY provider_used
		ORDER BY provider_used`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize analytics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []domain.ProviderSummary
	for rows.Next() {
		var s domain.ProviderSummary
		if err := rows.Scan(&s.Provider, &s.Attempts, &s.Successes, &s.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("failed to scan analytics summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
