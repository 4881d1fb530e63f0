package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nutrigate/backend/internal/domain"
)

// AggregatorConfig holds the aggregator's tunables.
type AggregatorConfig struct {
	// CacheTTL bounds how long a provider response is served from cache.
	CacheTTL time.Duration
	// MinLocalResults is the local hit count at which no provider is asked.
	MinLocalResults int
	// DefaultLimit is the page size applied when the caller gives none.
	DefaultLimit int
}

// Aggregator drives the end-to-end search flow: local catalog first, then an
// ordered walk over external providers gated by cache and quota. Provider
// trouble is never fatal to a request; the worst case is local-only results.
type Aggregator struct {
	catalog   domain.CatalogRepository
	cache     domain.ResultCacheRepository
	analytics domain.AnalyticsRepository
	config    *ConfigService
	quota     *QuotaService
	adapters  map[string]domain.ProviderAdapter

	cacheTTL        time.Duration
	minLocalResults int
	defaultLimit    int

	now func() time.Time
}

// NewAggregator wires the aggregator. Adapters are keyed by provider name;
// a configured provider without a registered adapter is skipped.
func NewAggregator(
	catalog domain.CatalogRepository,
	resultCache domain.ResultCacheRepository,
	analytics domain.AnalyticsRepository,
	config *ConfigService,
	quota *QuotaService,
	adapters []domain.ProviderAdapter,
	cfg AggregatorConfig,
) *Aggregator {
	byName := make(map[string]domain.ProviderAdapter, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
	}

	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	if cfg.MinLocalResults <= 0 {
		cfg.MinLocalResults = 5
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}

	return &Aggregator{
		catalog:         catalog,
		cache:           resultCache,
		analytics:       analytics,
		config:          config,
		quota:           quota,
		adapters:        byName,
		cacheTTL:        cfg.CacheTTL,
		minLocalResults: cfg.MinLocalResults,
		defaultLimit:    cfg.DefaultLimit,
		now:             time.Now,
	}
}

// Search runs one merged local + external food search. Local results always
// come first; external results follow candidate order, each provider's own
// relevance order preserved.
func (a *Aggregator) Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResult, error) {
	if req == nil || req.Query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidRequest)
	}
	if req.Limit < 1 {
		req.Limit = a.defaultLimit
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	local, err := a.catalog.Search(ctx, req.Query, req.Limit, req.Offset)
	if err != nil {
		return nil, fmt.Errorf("local search: %w", err)
	}

	result := &domain.SearchResult{Query: req.Query}
	for i := range local {
		result.Foods = append(result.Foods, domain.FoodResult{
			NormalizedFood: local[i].NormalizedFood,
			ID:             local[i].ID,
		})
	}
	result.Local = len(local)

	if !req.IncludeExternal || result.Local >= a.minLocalResults {
		return result, nil
	}

	candidates, err := a.candidates(ctx, req.Provider)
	if err != nil {
		// Degrade rather than fail: the local half of the answer is intact.
		log.Printf("[aggregator] candidate selection failed: %v", err)
		return result, nil
	}

	key := queryKey(req.Query, req.Limit, req.Offset)
	for i := range candidates {
		if ctx.Err() != nil {
			log.Printf("[aggregator] deadline exhausted, %d candidates unvisited", len(candidates)-i)
			break
		}

		foods := a.fetchFromProvider(ctx, &candidates[i], req.Query, key, func(adapter domain.ProviderAdapter) ([]domain.NormalizedFood, error) {
			return adapter.Search(ctx, req.Query, req.Limit, req.Offset)
		})
		for j := range foods {
			result.Foods = append(result.Foods, domain.FoodResult{
				NormalizedFood: foods[j],
				IsExternal:     true,
			})
		}
		result.External += len(foods)

		if result.External >= req.Limit {
			break
		}
	}

	return result, nil
}

// LookupBarcode resolves a barcode against the catalog first, then walks the
// provider chain. ErrFoodNotFound when nobody knows the code.
func (a *Aggregator) LookupBarcode(ctx context.Context, code string) (*domain.FoodResult, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty barcode", domain.ErrInvalidRequest)
	}

	found, err := a.catalog.FindByBarcode(ctx, code)
	switch {
	case err == nil:
		return &domain.FoodResult{NormalizedFood: found.NormalizedFood, ID: found.ID}, nil
	case !errors.Is(err, domain.ErrFoodNotFound):
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}

	candidates, err := a.candidates(ctx, "")
	if err != nil {
		return nil, err
	}

	key := barcodeKey(code)
	for i := range candidates {
		if ctx.Err() != nil {
			break
		}

		foods := a.fetchFromProvider(ctx, &candidates[i], code, key, func(adapter domain.ProviderAdapter) ([]domain.NormalizedFood, error) {
			food, err := adapter.LookupBarcode(ctx, code)
			if err != nil || food == nil {
				return nil, err
			}
			return []domain.NormalizedFood{*food}, nil
		})
		if len(foods) > 0 {
			return &domain.FoodResult{NormalizedFood: foods[0], IsExternal: true}, nil
		}
	}

	return nil, fmt.Errorf("%w: barcode %s", domain.ErrFoodNotFound, code)
}

// candidates builds the ordered provider list: the default first, then the
// remaining enabled providers in configuration order. A pinned provider
// yields a single-entry list, or none at all if it is disabled or unknown.
func (a *Aggregator) candidates(ctx context.Context, pinned string) ([]domain.ProviderConfig, error) {
	configs, err := a.config.Configs(ctx)
	if err != nil {
		return nil, err
	}

	if pinned != "" {
		for i := range configs {
			if configs[i].Name == pinned && configs[i].Enabled {
				return configs[i : i+1], nil
			}
		}
		return nil, nil
	}

	ordered := make([]domain.ProviderConfig, 0, len(configs))
	for i := range configs {
		if configs[i].Enabled && configs[i].IsDefault {
			ordered = append(ordered, configs[i])
		}
	}
	for i := range configs {
		if configs[i].Enabled && !configs[i].IsDefault {
			ordered = append(ordered, configs[i])
		}
	}
	return ordered, nil
}

// fetchFromProvider runs the cache/quota/remote sequence for one candidate.
// Every path that touches the provider leaves an analytics record; every
// failure returns an empty slice so the caller just advances.
func (a *Aggregator) fetchFromProvider(
	ctx context.Context,
	cfg *domain.ProviderConfig,
	query, key string,
	call func(domain.ProviderAdapter) ([]domain.NormalizedFood, error),
) []domain.NormalizedFood {
	adapter, ok := a.adapters[cfg.Name]
	if !ok {
		log.Printf("[aggregator] no adapter registered for %s", cfg.Name)
		return nil
	}

	now := a.now()
	if entry, err := a.cache.Get(ctx, cfg.Name, key, now); err == nil {
		a.logAttempt(ctx, query, cfg.Name, len(entry.Payload), true, "cache hit", 0)
		return entry.Payload
	} else if !errors.Is(err, domain.ErrCacheMiss) {
		log.Printf("[aggregator] cache read for %s: %v", cfg.Name, err)
	}

	if err := a.quota.CheckAndReserve(ctx, cfg, now); err != nil {
		if domain.IsQuotaExceeded(err) {
			a.logAttempt(ctx, query, cfg.Name, 0, false, err.Error(), 0)
		} else {
			log.Printf("[aggregator] quota check for %s: %v", cfg.Name, err)
		}
		return nil
	}

	start := a.now()
	foods, err := call(adapter)
	latency := a.now().Sub(start).Milliseconds()
	if err != nil {
		a.logAttempt(ctx, query, cfg.Name, 0, false, err.Error(), latency)
		return nil
	}
	if len(foods) == 0 {
		a.logAttempt(ctx, query, cfg.Name, 0, true, "no results", latency)
		return nil
	}

	if err := a.cache.Put(ctx, &domain.CacheEntry{
		Provider:  cfg.Name,
		QueryKey:  key,
		Payload:   foods,
		CachedAt:  now,
		ExpiresAt: now.Add(a.cacheTTL),
	}); err != nil {
		log.Printf("[aggregator] cache write for %s: %v", cfg.Name, err)
	}
	if err := a.quota.RecordUsage(ctx, cfg.Name, a.now()); err != nil {
		log.Printf("[aggregator] usage record for %s: %v", cfg.Name, err)
	}

	a.logAttempt(ctx, query, cfg.Name, len(foods), true, "", latency)
	return foods
}

func (a *Aggregator) logAttempt(ctx context.Context, query, provider string, count int, success bool, reason string, latencyMs int64) {
	rec := &domain.AnalyticsRecord{
		Query:        query,
		ProviderUsed: provider,
		ResultCount:  count,
		Success:      success,
		Reason:       reason,
		LatencyMs:    latencyMs,
		Timestamp:    a.now(),
	}
	if err := a.analytics.Insert(ctx, rec); err != nil {
		log.Printf("[aggregator] analytics write: %v", err)
	}
}
