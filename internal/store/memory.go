package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps transactions in per-product slices under a lock
type MemoryStore struct {
	mu        sync.RWMutex
	byProduct map[string][]Transaction
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byProduct: make(map[string][]Transaction),
	}
}

func (s *MemoryStore) Append(ctx context.Context, txns []Transaction) error {
	if err := validateTransactions(txns); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, txn := range txns {
		s.byProduct[txn.ProductID] = append(s.byProduct[txn.ProductID], txn)
	}
	return nil
}

func (s *MemoryStore) ListByProduct(ctx context.Context, productID string) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.byProduct[productID]
	txns := make([]Transaction, len(stored))
	copy(txns, stored)

	sort.SliceStable(txns, func(i, j int) bool { return txns[i].Date.Before(txns[j].Date) })
	return txns, nil
}

func (s *MemoryStore) Categories(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, txns := range s.byProduct {
		for _, txn := range txns {
			if txn.Category != "" {
				seen[txn.Category] = struct{}{}
			}
		}
	}

	categories := make([]string, 0, len(seen))
	for category := range seen {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	return categories, nil
}

func (s *MemoryStore) ProductsByCategory(ctx context.Context, category string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for productID, txns := range s.byProduct {
		for _, txn := range txns {
			if txn.Category == category {
				seen[productID] = struct{}{}
				break
			}
		}
	}

	products := make([]string, 0, len(seen))
	for productID := range seen {
		products = append(products, productID)
	}
	sort.Strings(products)

	return products, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
