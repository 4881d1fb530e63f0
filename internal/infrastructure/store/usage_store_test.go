package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nutrigate/backend/internal/domain"
)

func TestUsageStore_Reserve_WithinLimit(t *testing.T) {
	s := newTestStore(t)
	usage := s.Usage()
	ctx := context.Background()

	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	res := []domain.CounterReservation{
		{Kind: domain.WindowHour, WindowStart: domain.WindowHour.WindowStart(now), Limit: 3},
	}

	for i := 0; i < 3; i++ {
		denied, err := usage.Reserve(ctx, "usda", res)
		if err != nil {
			t.Fatalf("Reserve() #%d error = %v", i+1, err)
		}
		if denied != nil {
			t.Fatalf("Reserve() #%d denied on %s, want allowed", i+1, denied.Kind)
		}
	}

	denied, err := usage.Reserve(ctx, "usda", res)
	if err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if denied == nil || denied.Kind != domain.WindowHour {
		t.Errorf("4th Reserve() denied = %v, want hour denial", denied)
	}

	count, err := usage.Count(ctx, "usda", domain.WindowHour, domain.WindowHour.WindowStart(now))
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3 (denied attempt must not increment)", count)
	}
}

func TestUsageStore_Reserve_MultiWindowRollback(t *testing.T) {
	s := newTestStore(t)
	usage := s.Usage()
	ctx := context.Background()

	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	res := []domain.CounterReservation{
		{Kind: domain.WindowHour, WindowStart: domain.WindowHour.WindowStart(now), Limit: 10},
		{Kind: domain.WindowDay, WindowStart: domain.WindowDay.WindowStart(now), Limit: 1},
	}

	if denied, err := usage.Reserve(ctx, "usda", res); err != nil || denied != nil {
		t.Fatalf("first Reserve() = (%v, %v), want allowed", denied, err)
	}

	denied, err := usage.Reserve(ctx, "usda", res)
	if err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if denied == nil || denied.Kind != domain.WindowDay {
		t.Fatalf("denied = %v, want day denial", denied)
	}

	// The hour increment from the denied attempt must have rolled back.
	count, _ := usage.Count(ctx, "usda", domain.WindowHour, domain.WindowHour.WindowStart(now))
	if count != 1 {
		t.Errorf("hour count = %d after denied attempt, want 1", count)
	}
}

func TestUsageStore_Reserve_ZeroLimitDeniesImmediately(t *testing.T) {
	s := newTestStore(t)
	usage := s.Usage()

	now := time.Now()
	denied, err := usage.Reserve(context.Background(), "usda", []domain.CounterReservation{
		{Kind: domain.WindowHour, WindowStart: domain.WindowHour.WindowStart(now), Limit: 0},
	})
	if err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if denied == nil {
		t.Error("Reserve() with limit 0 admitted a call")
	}
}

func TestUsageStore_Reserve_NoOverAdmission(t *testing.T) {
	s := newTestStore(t)
	usage := s.Usage()
	ctx := context.Background()

	const limit = 10
	const callers = 50

	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	res := []domain.CounterReservation{
		{Kind: domain.WindowHour, WindowStart: domain.WindowHour.WindowStart(now), Limit: limit},
	}

	var wg sync.WaitGroup
	allowed := make(chan struct{}, callers)
	deniedCh := make(chan domain.WindowKind, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			denied, err := usage.Reserve(ctx, "usda", res)
			if err != nil {
				t.Errorf("Reserve() error = %v", err)
				return
			}
			if denied == nil {
				allowed <- struct{}{}
			} else {
				deniedCh <- denied.Kind
			}
		}()
	}
	wg.Wait()
	close(allowed)
	close(deniedCh)

	if got := len(allowed); got != limit {
		t.Errorf("admitted %d concurrent callers, want exactly %d", got, limit)
	}
	for kind := range deniedCh {
		if kind != domain.WindowHour {
			t.Errorf("denial window = %s, want hour", kind)
		}
	}

	count, _ := usage.Count(ctx, "usda", domain.WindowHour, domain.WindowHour.WindowStart(now))
	if count != limit {
		t.Errorf("final count = %d, want %d", count, limit)
	}
}

func TestUsageStore_WindowIsolation(t *testing.T) {
	s := newTestStore(t)
	usage := s.Usage()
	ctx := context.Background()

	hourA := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	hourB := hourA.Add(time.Hour)

	resA := []domain.CounterReservation{{Kind: domain.WindowHour, WindowStart: hourA, Limit: 1}}
	resB := []domain.CounterReservation{{Kind: domain.WindowHour, WindowStart: hourB, Limit: 1}}

	if denied, _ := usage.Reserve(ctx, "usda", resA); denied != nil {
		t.Fatal("first hour reservation denied")
	}
	if denied, _ := usage.Reserve(ctx, "usda", resA); denied == nil {
		t.Fatal("first hour should now be full")
	}

	// A new window rolls the budget over implicitly.
	if denied, _ := usage.Reserve(ctx, "usda", resB); denied != nil {
		t.Error("next hour reservation denied, want allowed")
	}
}

func TestUsageStore_ProviderIsolation(t *testing.T) {
	s := newTestStore(t)
	usage := s.Usage()
	ctx := context.Background()

	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	res := []domain.CounterReservation{
		{Kind: domain.WindowHour, WindowStart: domain.WindowHour.WindowStart(now), Limit: 1},
	}

	if denied, _ := usage.Reserve(ctx, "usda", res); denied != nil {
		t.Fatal("usda reservation denied")
	}
	if denied, _ := usage.Reserve(ctx, "openfoodfacts", res); denied != nil {
		t.Error("openfoodfacts denied by usda's counter")
	}
}

func TestUsageStore_PruneBefore(t *testing.T) {
	s := newTestStore(t)
	usage := s.Usage()
	ctx := context.Background()

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	for _, ws := range []time.Time{old, recent} {
		res := []domain.CounterReservation{{Kind: domain.WindowHour, WindowStart: ws, Limit: 100}}
		if denied, err := usage.Reserve(ctx, "usda", res); err != nil || denied != nil {
			t.Fatalf("Reserve() = (%v, %v)", denied, err)
		}
	}

	pruned, err := usage.PruneBefore(ctx, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("PruneBefore() error = %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned %d rows, want 1", pruned)
	}

	count, _ := usage.Count(ctx, "usda", domain.WindowHour, recent)
	if count != 1 {
		t.Errorf("recent counter lost by prune: count = %d, want 1", count)
	}
}
