package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nutrigate/backend/internal/domain"
)

// ProviderStore persists provider configuration rows.
type ProviderStore struct {
	db *sql.DB
}

// List returns all provider configs in name order. Configuration order for
// the aggregator's candidate list is this order.
func (s *ProviderStore) List(ctx context.Context) ([]domain.ProviderConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, enabled, per_hour, per_day, per_month, credentials,
		       is_default, total_calls, last_used_at
		FROM provider_configs
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query providers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var configs []domain.ProviderConfig
	for rows.Next() {
		cfg, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *cfg)
	}
	return configs, rows.Err()
}

// Get returns one provider config, or ErrProviderUnknown.
func (s *ProviderStore) Get(ctx context.Context, name string) (*domain.ProviderConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, enabled, per_hour, per_day, per_month, credentials,
		       is_default, total_calls, last_used_at
		FROM provider_configs
		WHERE name = ?`, name)

	cfg, err := scanProvider(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrProviderUnknown
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Update persists enabled and rate-limit changes for an existing provider.
func (s *ProviderStore) Update(ctx context.Context, cfg *domain.ProviderConfig) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE provider_configs
		SET enabled = ?, per_hour = ?, per_day = ?, per_month = ?
		WHERE name = ?`,
		cfg.Enabled,
		nullInt(cfg.RateLimits.PerHour),
		nullInt(cfg.RateLimits.PerDay),
		nullInt(cfg.RateLimits.PerMonth),
		cfg.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to update provider %s: %w", cfg.Name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrProviderUnknown
	}
	return nil
}

// SetCredentials stores already-encrypted credential fields as a JSON map.
func (s *ProviderStore) SetCredentials(ctx context.Context, name string, encrypted map[string]string) error {
	blob, err := json.Marshal(encrypted)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE provider_configs SET credentials = ? WHERE name = ?`, string(blob), name)
	if err != nil {
		return fmt.Errorf("failed to set credentials for %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrProviderUnknown
	}
	return nil
}

// ClearCredentials removes all stored credential fields for a provider.
func (s *ProviderStore) ClearCredentials(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE provider_configs SET credentials = '{}' WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to clear credentials for %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrProviderUnknown
	}
	return nil
}

// ClearDefault unsets is_default on every provider.
func (s *ProviderStore) ClearDefault(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE provider_configs SET is_default = 0 WHERE is_default = 1`); err != nil {
		return fmt.Errorf("failed to clear default provider: %w", err)
	}
	return nil
}

// SetDefault marks one provider as default. Callers run ClearDefault first;
// this write runs last so a crash between the two leaves the old default in
// place rather than none.
func (s *ProviderStore) SetDefault(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE provider_configs SET is_default = 1 WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to set default provider: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrProviderUnknown
	}
	return nil
}

// Seed inserts a provider row if it does not exist yet. Existing rows are
// left untouched so operator changes survive restarts.
func (s *ProviderStore) Seed(ctx context.Context, cfg *domain.ProviderConfig) error {
	blob, err := json.Marshal(cfg.EncryptedCredentials)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if cfg.EncryptedCredentials == nil {
		blob = []byte("{}")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO provider_configs (name, enabled, per_hour, per_day, per_month, credentials, is_default)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING`,
		cfg.Name,
		cfg.Enabled,
		nullInt(cfg.RateLimits.PerHour),
		nullInt(cfg.RateLimits.PerDay),
		nullInt(cfg.RateLimits.PerMonth),
		string(blob),
		cfg.IsDefault,
	)
	if err != nil {
		return fmt.Errorf("failed to seed provider %s: %w", cfg.Name, err)
	}
	return nil
}

// RecordUse bumps the provider's total-call counter and last-used timestamp.
func (s *ProviderStore) RecordUse(ctx context.Context, name string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE provider_configs
		SET total_calls = total_calls + 1, last_used_at = ?
		WHERE name = ?`, formatTime(at), name)
	if err != nil {
		return fmt.Errorf("failed to record use of %s: %w", name, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProvider(row rowScanner) (*domain.ProviderConfig, error) {
	var cfg domain.ProviderConfig
	var perHour, perDay, perMonth sql.NullInt64
	var credentials string
	var lastUsed sql.NullString

	err := row.Scan(
		&cfg.Name,
		&cfg.Enabled,
		&perHour,
		&perDay,
		&perMonth,
		&credentials,
		&cfg.IsDefault,
		&cfg.TotalCalls,
		&lastUsed,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan provider: %w", err)
	}

	cfg.RateLimits.PerHour = intPtr(perHour)
	cfg.RateLimits.PerDay = intPtr(perDay)
	cfg.RateLimits.PerMonth = intPtr(perMonth)

	if err := json.Unmarshal([]byte(credentials), &cfg.EncryptedCredentials); err != nil {
		return nil, fmt.Errorf("failed to decode credentials for %s: %w", cfg.Name, err)
	}
	if lastUsed.Valid {
		t := parseTime(lastUsed.String)
		cfg.LastUsedAt = &t
	}
	return &cfg, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
