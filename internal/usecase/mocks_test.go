package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/nutrigate/backend/internal/domain"
)

// MockCatalogRepository is an in-memory domain.CatalogRepository. Like the
// real store, its finders signal a miss with ErrFoodNotFound.
type MockCatalogRepository struct {
	foods     []domain.CatalogFood
	searchErr error
	findErr   error
	insertErr error
}

func NewMockCatalogRepository() *MockCatalogRepository {
	return &MockCatalogRepository{}
}

func (m *MockCatalogRepository) Search(ctx context.Context, query string, limit, offset int) ([]domain.CatalogFood, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	var out []domain.CatalogFood
	for _, f := range m.foods {
		if strings.Contains(strings.ToLower(f.Name), strings.ToLower(query)) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *MockCatalogRepository) FindByBarcode(ctx context.Context, barcode string) (*domain.CatalogFood, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for i := range m.foods {
		if m.foods[i].Barcode == barcode {
			return &m.foods[i], nil
		}
	}
	return nil, domain.ErrFoodNotFound
}

func (m *MockCatalogRepository) FindByNameAndSource(ctx context.Context, name, source string) (*domain.CatalogFood, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for i := range m.foods {
		if m.foods[i].Name == name && m.foods[i].Source == source {
			return &m.foods[i], nil
		}
	}
	return nil, domain.ErrFoodNotFound
}

func (m *MockCatalogRepository) Insert(ctx context.Context, food *domain.CatalogFood) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.foods = append(m.foods, *food)
	return nil
}

// MockResultCache is an in-memory domain.ResultCacheRepository honoring TTL.
type MockResultCache struct {
	entries map[string]*domain.CacheEntry
	puts    int
}

func NewMockResultCache() *MockResultCache {
	return &MockResultCache{entries: make(map[string]*domain.CacheEntry)}
}

func (m *MockResultCache) Get(ctx context.Context, provider, queryKey string, now time.Time) (*domain.CacheEntry, error) {
	entry, ok := m.entries[provider+"|"+queryKey]
	if !ok || !now.Before(entry.ExpiresAt) {
		return nil, domain.ErrCacheMiss
	}
	return entry, nil
}

func (m *MockResultCache) Put(ctx context.Context, entry *domain.CacheEntry) error {
	m.puts++
	m.entries[entry.Provider+"|"+entry.QueryKey] = entry
	return nil
}

func (m *MockResultCache) Clear(ctx context.Context) (int64, error) {
	n := int64(len(m.entries))
	m.entries = make(map[string]*domain.CacheEntry)
	return n, nil
}

// MockAnalyticsRepository records inserts.
type MockAnalyticsRepository struct {
	records []domain.AnalyticsRecord
}

func NewMockAnalyticsRepository() *MockAnalyticsRepository {
	return &MockAnalyticsRepository{}
}

func (m *MockAnalyticsRepository) Insert(ctx context.Context, rec *domain.AnalyticsRecord) error {
	m.records = append(m.records, *rec)
	return nil
}

func (m *MockAnalyticsRepository) Recent(ctx context.Context, limit int) ([]domain.AnalyticsRecord, error) {
	return m.records, nil
}

func (m *MockAnalyticsRepository) SummaryByProvider(ctx context.Context) ([]domain.ProviderSummary, error) {
	return nil, nil
}

// MockProviderRepository is an in-memory domain.ProviderConfigRepository
// preserving insertion order.
type MockProviderRepository struct {
	order   []string
	configs map[string]*domain.ProviderConfig
}

func NewMockProviderRepository(configs ...domain.ProviderConfig) *MockProviderRepository {
	m := &MockProviderRepository{configs: make(map[string]*domain.ProviderConfig)}
	for i := range configs {
		cfg := configs[i]
		m.order = append(m.order, cfg.Name)
		m.configs[cfg.Name] = &cfg
	}
	return m
}

func (m *MockProviderRepository) List(ctx context.Context) ([]domain.ProviderConfig, error) {
	out := make([]domain.ProviderConfig, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, *m.configs[name])
	}
	return out, nil
}

func (m *MockProviderRepository) Get(ctx context.Context, name string) (*domain.ProviderConfig, error) {
	cfg, ok := m.configs[name]
	if !ok {
		return nil, domain.ErrProviderUnknown
	}
	copied := *cfg
	return &copied, nil
}

func (m *MockProviderRepository) Update(ctx context.Context, cfg *domain.ProviderConfig) error {
	stored, ok := m.configs[cfg.Name]
	if !ok {
		return domain.ErrProviderUnknown
	}
	stored.Enabled = cfg.Enabled
	stored.RateLimits = cfg.RateLimits
	return nil
}

func (m *MockProviderRepository) SetCredentials(ctx context.Context, name string, encrypted map[string]string) error {
	m.configs[name].EncryptedCredentials = encrypted
	return nil
}

func (m *MockProviderRepository) ClearCredentials(ctx context.Context, name string) error {
	m.configs[name].EncryptedCredentials = nil
	return nil
}

func (m *MockProviderRepository) ClearDefault(ctx context.Context) error {
	for _, cfg := range m.configs {
		cfg.IsDefault = false
	}
	return nil
}

func (m *MockProviderRepository) SetDefault(ctx context.Context, name string) error {
	cfg, ok := m.configs[name]
	if !ok {
		return domain.ErrProviderUnknown
	}
	cfg.IsDefault = true
	return nil
}

func (m *MockProviderRepository) Seed(ctx context.Context, cfg *domain.ProviderConfig) error {
	if _, ok := m.configs[cfg.Name]; ok {
		return nil
	}
	copied := *cfg
	m.order = append(m.order, cfg.Name)
	m.configs[cfg.Name] = &copied
	return nil
}

func (m *MockProviderRepository) RecordUse(ctx context.Context, name string, at time.Time) error {
	cfg, ok := m.configs[name]
	if !ok {
		return domain.ErrProviderUnknown
	}
	cfg.TotalCalls++
	cfg.LastUsedAt = &at
	return nil
}

// MockUsageRepository reserves against in-memory counters with the same
// all-or-nothing semantics as the store.
type MockUsageRepository struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewMockUsageRepository() *MockUsageRepository {
	return &MockUsageRepository{counts: make(map[string]int)}
}

func usageKey(provider string, kind domain.WindowKind, start time.Time) string {
	return provider + "|" + string(kind) + "|" + start.Format(time.RFC3339)
}

func (m *MockUsageRepository) Reserve(ctx context.Context, provider string, reservations []domain.CounterReservation) (*domain.CounterReservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range reservations {
		r := &reservations[i]
		if m.counts[usageKey(provider, r.Kind, r.WindowStart)] >= r.Limit {
			denied := *r
			return &denied, nil
		}
	}
	for i := range reservations {
		r := &reservations[i]
		m.counts[usageKey(provider, r.Kind, r.WindowStart)]++
	}
	return nil, nil
}

func (m *MockUsageRepository) Count(ctx context.Context, provider string, kind domain.WindowKind, windowStart time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[usageKey(provider, kind, windowStart)], nil
}

func (m *MockUsageRepository) PruneBefore(ctx context.Context, t time.Time) (int64, error) {
	return 0, nil
}

// MockAdapter is a scripted domain.ProviderAdapter counting its calls.
type MockAdapter struct {
	name          string
	searchResults []domain.NormalizedFood
	searchErr     error
	barcodeResult *domain.NormalizedFood
	barcodeErr    error
	searchCalls   int
	barcodeCalls  int
}

func NewMockAdapter(name string) *MockAdapter {
	return &MockAdapter{name: name}
}

func (m *MockAdapter) Name() string { return m.name }

func (m *MockAdapter) Search(ctx context.Context, query string, limit, offset int) ([]domain.NormalizedFood, error) {
	m.searchCalls++
	return m.searchResults, m.searchErr
}

func (m *MockAdapter) LookupBarcode(ctx context.Context, barcode string) (*domain.NormalizedFood, error) {
	m.barcodeCalls++
	return m.barcodeResult, m.barcodeErr
}

// MockCipher is a reversible stand-in for the vault.
type MockCipher struct{}

func (MockCipher) Encrypt(plaintext string) (string, error) {
	return "enc:" + plaintext, nil
}

func (MockCipher) Decrypt(ciphertext string) string {
	if !strings.HasPrefix(ciphertext, "enc:") {
		return ""
	}
	return strings.TrimPrefix(ciphertext, "enc:")
}

func (MockCipher) Mask(plaintext string) string {
	if len(plaintext) < 8 {
		return "********"
	}
	return plaintext[:4] + "****" + plaintext[len(plaintext)-4:]
}
