package params

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/demandcast/demandcast/internal/forecast"
)

// MemoryStore keeps hyperparameter sets in process memory. It ships with
// the default set pre-seeded so a fresh deployment can forecast before
// any tuning has run.
type MemoryStore struct {
	mu   sync.RWMutex
	sets map[string]forecast.HyperparameterSet
}

// NewMemoryStore creates an in-memory store seeded with the default set
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sets: map[string]forecast.HyperparameterSet{
			forecast.DefaultCategory: forecast.DefaultHyperparameters(),
		},
	}
}

func (s *MemoryStore) Get(ctx context.Context, category string) (forecast.HyperparameterSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.sets[category]
	if !ok {
		return forecast.HyperparameterSet{}, fmt.Errorf("category %s: %w", category, ErrNotFound)
	}
	return set, nil
}

func (s *MemoryStore) Put(ctx context.Context, set forecast.HyperparameterSet) error {
	if err := set.Validate(); err != nil {
		return fmt.Errorf("invalid hyperparameter set: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sets[set.Category] = set
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]forecast.HyperparameterSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sets := make([]forecast.HyperparameterSet, 0, len(s.sets))
	for _, set := range s.sets {
		sets = append(sets, set)
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].Category < sets[j].Category })

	return sets, nil
}

func (s *MemoryStore) Delete(ctx context.Context, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sets[category]; !ok {
		return fmt.Errorf("category %s: %w", category, ErrNotFound)
	}
	delete(s.sets, category)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
