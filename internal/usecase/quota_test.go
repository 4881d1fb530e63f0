package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nutrigate/backend/internal/domain"
)

func limitedConfig(name string, perHour, perDay, perMonth *int) *domain.ProviderConfig {
	return &domain.ProviderConfig{
		Name:    name,
		Enabled: true,
		RateLimits: domain.RateLimits{
			PerHour: perHour, PerDay: perDay, PerMonth: perMonth,
		},
	}
}

func TestCheckAndReserve_UnlimitedProvider(t *testing.T) {
	quota := NewQuotaService(NewMockUsageRepository(), NewMockProviderRepository())

	cfg := limitedConfig("openfoodfacts", nil, nil, nil)
	for i := 0; i < 100; i++ {
		if err := quota.CheckAndReserve(context.Background(), cfg, time.Now()); err != nil {
			t.Fatalf("call %d denied: %v", i, err)
		}
	}
}

func TestCheckAndReserve_DenialReasonsPerWindow(t *testing.T) {
	two := 2

	tests := []struct {
		name    string
		cfg     *domain.ProviderConfig
		wantErr error
	}{
		{"hourly", limitedConfig("p", &two, nil, nil), domain.ErrHourlyLimitExceeded},
		{"daily", limitedConfig("p", nil, &two, nil), domain.ErrDailyLimitExceeded},
		{"monthly", limitedConfig("p", nil, nil, &two), domain.ErrMonthlyLimitExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quota := NewQuotaService(NewMockUsageRepository(), NewMockProviderRepository())
			now := time.Now()

			for i := 0; i < 2; i++ {
				if err := quota.CheckAndReserve(context.Background(), tt.cfg, now); err != nil {
					t.Fatalf("call %d denied early: %v", i, err)
				}
			}
			err := quota.CheckAndReserve(context.Background(), tt.cfg, now)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if !domain.IsQuotaExceeded(err) {
				t.Error("denial must satisfy IsQuotaExceeded")
			}
		})
	}
}

func TestCheckAndReserve_WindowRollover(t *testing.T) {
	one := 1
	quota := NewQuotaService(NewMockUsageRepository(), NewMockProviderRepository())
	cfg := limitedConfig("usda", &one, nil, nil)

	hour1 := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	if err := quota.CheckAndReserve(context.Background(), cfg, hour1); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := quota.CheckAndReserve(context.Background(), cfg, hour1); !errors.Is(err, domain.ErrHourlyLimitExceeded) {
		t.Fatalf("second call in same hour: %v", err)
	}

	// The next hour has a fresh bucket.
	hour2 := hour1.Add(time.Hour)
	if err := quota.CheckAndReserve(context.Background(), cfg, hour2); err != nil {
		t.Errorf("call in next hour denied: %v", err)
	}
}

func TestCheckAndReserve_NoOverAdmissionUnderConcurrency(t *testing.T) {
	limit := 10
	quota := NewQuotaService(NewMockUsageRepository(), NewMockProviderRepository())
	cfg := limitedConfig("usda", &limit, nil, nil)
	now := time.Now()

	const callers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted, denied := 0, 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := quota.CheckAndReserve(context.Background(), cfg, now)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				admitted++
			} else if errors.Is(err, domain.ErrHourlyLimitExceeded) {
				denied++
			}
		}()
	}
	wg.Wait()

	if admitted != limit {
		t.Errorf("admitted = %d, want exactly %d", admitted, limit)
	}
	if denied != callers-limit {
		t.Errorf("denied = %d, want %d", denied, callers-limit)
	}
}

func TestCheckAndReserve_TightestWindowWins(t *testing.T) {
	one, thousand := 1, 1000
	quota := NewQuotaService(NewMockUsageRepository(), NewMockProviderRepository())
	cfg := limitedConfig("usda", &one, &thousand, nil)
	now := time.Now()

	if err := quota.CheckAndReserve(context.Background(), cfg, now); err != nil {
		t.Fatalf("first call: %v", err)
	}
	err := quota.CheckAndReserve(context.Background(), cfg, now)
	if !errors.Is(err, domain.ErrHourlyLimitExceeded) {
		t.Errorf("err = %v, want hourly denial despite daily headroom", err)
	}
}

func TestRecordUsage_UpdatesProviderStats(t *testing.T) {
	providers := NewMockProviderRepository(domain.ProviderConfig{Name: "usda", Enabled: true})
	quota := NewQuotaService(NewMockUsageRepository(), providers)

	at := time.Now()
	if err := quota.RecordUsage(context.Background(), "usda", at); err != nil {
		t.Fatalf("record usage: %v", err)
	}

	cfg, _ := providers.Get(context.Background(), "usda")
	if cfg.TotalCalls != 1 {
		t.Errorf("total calls = %d, want 1", cfg.TotalCalls)
	}
	if cfg.LastUsedAt == nil || !cfg.LastUsedAt.Equal(at) {
		t.Errorf("last used = %v, want %v", cfg.LastUsedAt, at)
	}
}
