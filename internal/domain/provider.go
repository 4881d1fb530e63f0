package domain

import "time"

// Provider names seeded at startup. Adding a provider means adding an adapter
// variant plus a seed entry; nothing else branches on these.
const (
	ProviderUSDA          = "usda"
	ProviderFatSecret     = "fatsecret"
	ProviderOpenFoodFacts = "openfoodfacts"
)

// RateLimits holds optional per-window call ceilings. A nil field means the
// window is unlimited.
type RateLimits struct {
	PerHour  *int `json:"perHour,omitempty"`
	PerDay   *int `json:"perDay,omitempty"`
	PerMonth *int `json:"perMonth,omitempty"`
}

// ProviderConfig is the persisted configuration of one external source.
// At most one config has IsDefault=true, and that one must be enabled.
type ProviderConfig struct {
	Name                 string            `json:"name"`
	Enabled              bool              `json:"enabled"`
	RateLimits           RateLimits        `json:"rateLimits"`
	EncryptedCredentials map[string]string `json:"-"`
	IsDefault            bool              `json:"isDefault"`
	TotalCalls           int64             `json:"totalCalls"`
	LastUsedAt           *time.Time        `json:"lastUsedAt,omitempty"`
}

// HasCredentials reports whether any credential field is stored. Read
// endpoints expose this instead of the encrypted bytes.
func (p *ProviderConfig) HasCredentials() bool {
	return len(p.EncryptedCredentials) > 0
}

// ProviderView is the read-side projection of a ProviderConfig. Raw or
// encrypted credentials never leave the configuration service.
type ProviderView struct {
	Name           string     `json:"name"`
	Enabled        bool       `json:"enabled"`
	RateLimits     RateLimits `json:"rateLimits"`
	HasCredentials bool       `json:"hasCredentials"`
	IsDefault      bool       `json:"isDefault"`
}

// ProviderPatch is a partial update to a provider's configuration.
// Credentials are deliberately not patchable here; they go through the
// credential endpoints so they are always encrypted before persisting.
type ProviderPatch struct {
	Enabled    *bool       `json:"enabled,omitempty"`
	RateLimits *RateLimits `json:"rateLimits,omitempty"`
}

// WindowKind is a rate-limit accounting bucket size.
type WindowKind string

const (
	WindowHour  WindowKind = "hour"
	WindowDay   WindowKind = "day"
	WindowMonth WindowKind = "month"
)

// WindowStart truncates t to the start of the window containing it, in UTC.
func (k WindowKind) WindowStart(t time.Time) time.Time {
	t = t.UTC()
	switch k {
	case WindowHour:
		return t.Truncate(time.Hour)
	case WindowDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case WindowMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// CacheEntry is one cached provider response, keyed by provider and
// normalized query key. Expired entries are treated as misses.
type CacheEntry struct {
	Provider  string           `json:"provider"`
	QueryKey  string           `json:"queryKey"`
	Payload   []NormalizedFood `json:"payload"`
	CachedAt  time.Time        `json:"cachedAt"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

// AnalyticsRecord is an append-only log of one external call attempt.
// It is written for observability and never read back by the aggregator.
type AnalyticsRecord struct {
	ID           int64     `json:"id"`
	Query        string    `json:"query"`
	ProviderUsed string    `json:"providerUsed"`
	ResultCount  int       `json:"resultCount"`
	Success      bool      `json:"success"`
	Reason       string    `json:"reason,omitempty"`
	LatencyMs    int64     `json:"latencyMs"`
	Timestamp    time.Time `json:"timestamp"`
}
