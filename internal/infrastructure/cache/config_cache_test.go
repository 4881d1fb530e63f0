package cache

import (
	"testing"
	"time"

	"github.com/nutrigate/backend/internal/domain"
)

func TestConfigCache_SetAndGet(t *testing.T) {
	c := NewConfigCache(5 * time.Second)
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	if _, ok := c.Get(now); ok {
		t.Error("Get() on empty cache = hit, want miss")
	}

	configs := []domain.ProviderConfig{
		{Name: "usda", Enabled: true},
		{Name: "openfoodfacts", Enabled: true, IsDefault: true},
	}
	c.Set(configs, now)

	got, ok := c.Get(now.Add(time.Second))
	if !ok {
		t.Fatal("Get() within TTL = miss, want hit")
	}
	if len(got) != 2 || got[1].Name != "openfoodfacts" {
		t.Errorf("Get() = %+v", got)
	}
}

func TestConfigCache_TTLExpiry(t *testing.T) {
	c := NewConfigCache(5 * time.Second)
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	c.Set([]domain.ProviderConfig{{Name: "usda"}}, now)

	if _, ok := c.Get(now.Add(4 * time.Second)); !ok {
		t.Error("Get() before TTL = miss, want hit")
	}
	if _, ok := c.Get(now.Add(5 * time.Second)); ok {
		t.Error("Get() at TTL = hit, want miss")
	}
}

func TestConfigCache_Invalidate(t *testing.T) {
	c := NewConfigCache(time.Minute)
	now := time.Now()

	c.Set([]domain.ProviderConfig{{Name: "usda", Enabled: true}}, now)
	c.Invalidate()

	if _, ok := c.Get(now); ok {
		t.Error("Get() after Invalidate = hit, want miss")
	}
}

func TestConfigCache_GetReturnsCopy(t *testing.T) {
	c := NewConfigCache(time.Minute)
	now := time.Now()

	c.Set([]domain.ProviderConfig{{Name: "usda", Enabled: true}}, now)

	got, _ := c.Get(now)
	got[0].Enabled = false

	again, _ := c.Get(now)
	if !again[0].Enabled {
		t.Error("caller mutation leaked into the cached snapshot")
	}
}
