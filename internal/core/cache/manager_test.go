package cache

import (
	"errors"
	"testing"
	"time"

	"pantry-recipes/internal/infrastructure/config"
	"pantry-recipes/internal/pkg/common"
)

func newTestManager(t *testing.T, maxSize int) (*Manager, *time.Time) {
	t.Helper()
	m := NewManager(config.CacheConfig{
		Enabled:         true,
		MaxSize:         maxSize,
		TTL:             time.Minute,
		CleanupInterval: time.Hour,
	})
	t.Cleanup(func() { m.Close() })

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	return m, &clock
}

func result(name string) common.ParseResult {
	return common.ParseResult{
		Ingredients: []common.ParsedIngredient{{Name: name, Quantity: 1, UnitName: "whole"}},
		Notes:       []string{},
	}
}

func TestManagerHitAndMiss(t *testing.T) {
	m, _ := newTestManager(t, 10)

	if _, err := m.Get("2 apples"); !errors.Is(err, common.ErrCacheMiss) {
		t.Fatalf("Get on empty cache err = %v, want ErrCacheMiss", err)
	}
	if err := m.Set("2 apples", result("apples")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := m.Get("2 apples")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Ingredients[0].Name != "apples" {
		t.Errorf("Name = %q, want apples", got.Ingredients[0].Name)
	}

	// 修改回傳值不影響快取
	got.Ingredients[0].Name = "pears"
	again, _ := m.Get("2 apples")
	if again.Ingredients[0].Name != "apples" {
		t.Errorf("cached value was mutated: %q", again.Ingredients[0].Name)
	}

	stats := m.GetStats()
	if stats["hits"].(int64) != 2 || stats["misses"].(int64) != 1 {
		t.Errorf("stats = %v", stats)
	}
}

func TestManagerExpiry(t *testing.T) {
	m, clock := newTestManager(t, 10)

	if err := m.Set("milk", result("milk")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	*clock = clock.Add(2 * time.Minute)

	if _, err := m.Get("milk"); !errors.Is(err, common.ErrCacheMiss) {
		t.Fatalf("Get after ttl err = %v, want ErrCacheMiss", err)
	}
}

func TestManagerEvictsLeastUsed(t *testing.T) {
	m, clock := newTestManager(t, 2)

	m.Set("a", result("a"))
	*clock = clock.Add(time.Second)
	m.Set("b", result("b"))
	m.Get("a")

	if err := m.Set("c", result("c")); err != nil {
		t.Fatalf("Set over capacity: %v", err)
	}
	if _, err := m.Get("b"); !errors.Is(err, common.ErrCacheMiss) {
		t.Errorf("b should have been evicted, err = %v", err)
	}
	if _, err := m.Get("a"); err != nil {
		t.Errorf("a should survive eviction: %v", err)
	}
}

func TestNilManager(t *testing.T) {
	m := NewManager(config.CacheConfig{Enabled: false})
	if m != nil {
		t.Fatal("disabled cache should be nil")
	}
	if _, err := m.Get("x"); !errors.Is(err, common.ErrCacheDisabled) {
		t.Errorf("Get err = %v, want ErrCacheDisabled", err)
	}
	if err := m.Set("x", result("x")); err != nil {
		t.Errorf("Set on nil manager: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close on nil manager: %v", err)
	}
}
