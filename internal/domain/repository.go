package domain

import (
	"context"
	"time"
)

// Cipher encrypts provider credentials at rest. Decrypt fails closed: on any
// malformed or tampered input it returns "" so callers treat the credential
// as absent rather than aborting the request.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) string
	Mask(plaintext string) string
}

// ProviderConfigRepository persists provider configuration rows.
type ProviderConfigRepository interface {
	List(ctx context.Context) ([]ProviderConfig, error)
	Get(ctx context.Context, name string) (*ProviderConfig, error)
	// Update persists enabled/rate-limit changes for an existing provider.
	Update(ctx context.Context, cfg *ProviderConfig) error
	// SetCredentials stores already-encrypted credential fields.
	SetCredentials(ctx context.Context, name string, encrypted map[string]string) error
	ClearCredentials(ctx context.Context, name string) error
	// ClearDefault and SetDefault are two steps; SetDefault runs last so a
	// crash between them leaves the old default intact, never zero defaults.
	ClearDefault(ctx context.Context) error
	SetDefault(ctx context.Context, name string) error
	// Seed inserts a provider row if it does not exist yet.
	Seed(ctx context.Context, cfg *ProviderConfig) error
	// RecordUse bumps total-call and last-used usage stats.
	RecordUse(ctx context.Context, name string, at time.Time) error
}

// CounterReservation identifies one window bucket and its ceiling for a
// quota reservation.
type CounterReservation struct {
	Kind        WindowKind
	WindowStart time.Time
	Limit       int
}

// UsageRepository holds the per-(provider, window) call counters. Reserve
// must be atomic with respect to concurrent callers: when N callers race for
// the last slot, exactly one wins.
type UsageRepository interface {
	// Reserve increments every window counter, or none of them and returns
	// the reservation that would exceed its ceiling.
	Reserve(ctx context.Context, provider string, reservations []CounterReservation) (*CounterReservation, error)
	// Count returns the current count for one window bucket (0 if absent).
	Count(ctx context.Context, provider string, kind WindowKind, windowStart time.Time) (int, error)
	// PruneBefore drops counters whose window started before t. Housekeeping
	// only; correctness never depends on it.
	PruneBefore(ctx context.Context, t time.Time) (int64, error)
}

// ResultCacheRepository stores normalized provider responses with a TTL.
type ResultCacheRepository interface {
	// Get returns ErrCacheMiss for absent or expired entries.
	Get(ctx context.Context, provider, queryKey string, now time.Time) (*CacheEntry, error)
	Put(ctx context.Context, entry *CacheEntry) error
	Clear(ctx context.Context) (int64, error)
}

// CatalogRepository is the durable canonical food catalog. Both finders
// return ErrFoodNotFound for a miss; callers treat that as absence, never as
// a failure.
type CatalogRepository interface {
	Search(ctx context.Context, query string, limit, offset int) ([]CatalogFood, error)
	FindByBarcode(ctx context.Context, barcode string) (*CatalogFood, error)
	FindByNameAndSource(ctx context.Context, name, source string) (*CatalogFood, error)
	Insert(ctx context.Context, food *CatalogFood) error
}

// AnalyticsRepository appends and reads external-call attempt records.
type AnalyticsRepository interface {
	Insert(ctx context.Context, rec *AnalyticsRecord) error
	Recent(ctx context.Context, limit int) ([]AnalyticsRecord, error)
	SummaryByProvider(ctx context.Context) ([]ProviderSummary, error)
}

// ProviderSummary is an aggregate over analytics records for one provider.
type ProviderSummary struct {
	Provider     string  `json:"provider"`
	Attempts     int64   `json:"attempts"`
	Successes    int64   `json:"successes"`
	AvgLatencyMs float64 `json:"avgLatencyMs"`
}

// ProviderAdapter is the capability set every external source implements.
// Adapters own the mapping from their wire schema into NormalizedFood and
// wrap all transport failures in ErrProviderUnavailable; missing credentials
// yield empty results with no error so the aggregator skips transparently.
type ProviderAdapter interface {
	Name() string
	Search(ctx context.Context, query string, limit, offset int) ([]NormalizedFood, error)
	LookupBarcode(ctx context.Context, barcode string) (*NormalizedFood, error)
}

// CredentialSource hands adapters their decrypted credentials. Implemented
// by the configuration service, backed by the vault.
type CredentialSource interface {
	// Credentials returns the decrypted fields for a provider; an empty map
	// means none are stored (or decryption failed closed).
	Credentials(ctx context.Context, provider string) (map[string]string, error)
}
