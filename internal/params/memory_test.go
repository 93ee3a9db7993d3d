package params

import (
	"context"
	"errors"
	"testing"

	"github.com/demandcast/demandcast/internal/config"
	"github.com/demandcast/demandcast/internal/forecast"
)

func tunedSet(category string) forecast.HyperparameterSet {
	return forecast.HyperparameterSet{
		Category:            category,
		TrendFlexibility:    0.1,
		SeasonalityStrength: 5,
		HolidayStrength:     2,
		SeasonalityMode:     forecast.ModeMultiplicative,
	}
}

func TestMemoryStoreSeedsDefault(t *testing.T) {
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()

	set, err := store.Get(context.Background(), forecast.DefaultCategory)
	if err != nil {
		t.Fatalf("expected seeded default set, got error: %v", err)
	}
	if set != forecast.DefaultHyperparameters() {
		t.Errorf("seeded set = %+v, want defaults", set)
	}
}

func TestMemoryStoreCRUD(t *testing.T) {
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	want := tunedSet("beverages")
	if err := store.Put(ctx, want); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, "beverages")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != want {
		t.Errorf("Get = %+v, want %+v", got, want)
	}

	sets, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(sets) != 2 {
		t.Fatalf("List returned %d sets, want 2", len(sets))
	}
	// Ordered by category: beverages before default.
	if sets[0].Category != "beverages" || sets[1].Category != forecast.DefaultCategory {
		t.Errorf("List order = [%s, %s]", sets[0].Category, sets[1].Category)
	}

	if err := store.Delete(ctx, "beverages"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "beverages"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()

	_, err := store.Get(context.Background(), "nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreDeleteMissing(t *testing.T) {
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()

	err := store.Delete(context.Background(), "nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStorePutInvalid(t *testing.T) {
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()

	bad := tunedSet("beverages")
	bad.TrendFlexibility = -1
	if err := store.Put(context.Background(), bad); err == nil {
		t.Error("expected validation error for negative trend flexibility")
	}

	bad = tunedSet("beverages")
	bad.SeasonalityMode = "quadratic"
	if err := store.Put(context.Background(), bad); err == nil {
		t.Error("expected validation error for unknown seasonality mode")
	}
}

func TestNewStoreFactory(t *testing.T) {
	store, err := NewStore(config.ParamsConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Errorf("expected *MemoryStore, got %T", store)
	}
	_ = store.Close()

	// Empty type defaults to memory.
	store, err = NewStore(config.ParamsConfig{})
	if err != nil {
		t.Fatalf("default store: %v", err)
	}
	_ = store.Close()

	if _, err := NewStore(config.ParamsConfig{Type: "zookeeper"}); err == nil {
		t.Error("expected error for unsupported store type")
	}
}
