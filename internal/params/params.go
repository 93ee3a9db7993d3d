// Package params stores and resolves forecasting hyperparameters per
// product category. Sets live in etcd so tuning results survive restarts
// and are shared across API replicas; the memory store backs tests and
// single-node deployments.
package params

import (
	"context"
	"errors"
	"fmt"

	"github.com/demandcast/demandcast/internal/config"
	"github.com/demandcast/demandcast/internal/forecast"
)

// ErrNotFound is returned when no hyperparameter set exists for a category.
var ErrNotFound = errors.New("hyperparameter set not found")

// Store persists hyperparameter sets keyed by category
type Store interface {
	// Get returns the set for an exact category, ErrNotFound otherwise
	Get(ctx context.Context, category string) (forecast.HyperparameterSet, error)

	// Put validates and stores a set under its category
	Put(ctx context.Context, set forecast.HyperparameterSet) error

	// List returns all stored sets ordered by category
	List(ctx context.Context) ([]forecast.HyperparameterSet, error)

	// Delete removes a category's set, ErrNotFound if absent
	Delete(ctx context.Context, category string) error

	// Lifecycle
	Close() error
}

// NewStore creates a store based on configuration
func NewStore(cfg config.ParamsConfig) (Store, error) {
	switch cfg.Type {
	case "etcd":
		return NewEtcdStore(cfg)
	case "memory", "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported params store type: %s", cfg.Type)
	}
}
