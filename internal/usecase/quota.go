package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/nutrigate/backend/internal/domain"
)

// QuotaService is the admission gate in front of metered provider calls. A
// successful CheckAndReserve IS the quota charge: the underlying reservation
// increments every configured window counter atomically, so concurrent
// callers can never over-admit. RecordUsage only maintains per-provider
// usage statistics and is deliberately not part of the admission decision.
type QuotaService struct {
	usage     domain.UsageRepository
	providers domain.ProviderConfigRepository
}

// NewQuotaService creates a quota service over the given repositories.
func NewQuotaService(usage domain.UsageRepository, providers domain.ProviderConfigRepository) *QuotaService {
	return &QuotaService{usage: usage, providers: providers}
}

// CheckAndReserve admits or denies one call for the provider at the given
// instant. Nil means admitted; a denial returns the sentinel for the first
// exhausted window. Providers with no configured ceilings are always admitted.
func (s *QuotaService) CheckAndReserve(ctx context.Context, cfg *domain.ProviderConfig, now time.Time) error {
	reservations := windowReservations(cfg.RateLimits, now)
	if len(reservations) == 0 {
		return nil
	}

	denied, err := s.usage.Reserve(ctx, cfg.Name, reservations)
	if err != nil {
		return fmt.Errorf("reserving quota for %s: %w", cfg.Name, err)
	}
	if denied != nil {
		return quotaError(denied.Kind)
	}
	return nil
}

// RecordUsage bumps the provider's total-call and last-used statistics after
// a successful remote call.
func (s *QuotaService) RecordUsage(ctx context.Context, provider string, at time.Time) error {
	return s.providers.RecordUse(ctx, provider, at)
}

// Usage reports the current count for one window bucket, for display.
func (s *QuotaService) Usage(ctx context.Context, provider string, kind domain.WindowKind, now time.Time) (int, error) {
	return s.usage.Count(ctx, provider, kind, kind.WindowStart(now))
}

// Prune drops counters from windows that ended before the current month.
// Housekeeping only: expired windows are never read again regardless.
func (s *QuotaService) Prune(ctx context.Context, now time.Time) (int64, error) {
	return s.usage.PruneBefore(ctx, domain.WindowMonth.WindowStart(now))
}

func windowReservations(limits domain.RateLimits, now time.Time) []domain.CounterReservation {
	var out []domain.CounterReservation
	if limits.PerHour != nil {
		out = append(out, domain.CounterReservation{
			Kind: domain.WindowHour, WindowStart: domain.WindowHour.WindowStart(now), Limit: *limits.PerHour,
		})
	}
	if limits.PerDay != nil {
		out = append(out, domain.CounterReservation{
			Kind: domain.WindowDay, WindowStart: domain.WindowDay.WindowStart(now), Limit: *limits.PerDay,
		})
	}
	if limits.PerMonth != nil {
		out = append(out, domain.CounterReservation{
			Kind: domain.WindowMonth, WindowStart: domain.WindowMonth.WindowStart(now), Limit: *limits.PerMonth,
		})
	}
	return out
}

func quotaError(kind domain.WindowKind) error {
	switch kind {
	case domain.WindowHour:
		return domain.ErrHourlyLimitExceeded
	case domain.WindowDay:
		return domain.ErrDailyLimitExceeded
	case domain.WindowMonth:
		return domain.ErrMonthlyLimitExceeded
	}
	return domain.ErrHourlyLimitExceeded
}
