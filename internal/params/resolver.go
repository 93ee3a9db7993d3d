package params

import (
	"context"
	"errors"
	"fmt"

	"github.com/demandcast/demandcast/internal/forecast"
	"github.com/demandcast/demandcast/internal/logging"
)

// Resolver maps a product category to the hyperparameter set the engine
// should fit with. Untuned categories fall back to the default set; a
// missing default is a deployment fault and surfaces as an error.
type Resolver struct {
	store  Store
	logger *logging.Logger
}

// NewResolver creates a resolver backed by the given store
func NewResolver(store Store, logger *logging.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger.With(logging.String("component", "params_resolver")),
	}
}

// Resolve returns the set for the category, or the default set when the
// category has not been tuned yet
func (r *Resolver) Resolve(ctx context.Context, category string) (forecast.HyperparameterSet, error) {
	if category == "" {
		category = forecast.DefaultCategory
	}

	set, err := r.store.Get(ctx, category)
	if err == nil {
		return set, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return forecast.HyperparameterSet{}, fmt.Errorf("failed to resolve hyperparameters: %w", err)
	}

	if category == forecast.DefaultCategory {
		return forecast.HyperparameterSet{}, &forecast.MissingDefaultParametersError{Category: category}
	}

	r.logger.Debug("no tuned hyperparameters for category, using default",
		"category", category,
	)

	set, err = r.store.Get(ctx, forecast.DefaultCategory)
	if err == nil {
		return set, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return forecast.HyperparameterSet{}, fmt.Errorf("failed to resolve default hyperparameters: %w", err)
	}

	return forecast.HyperparameterSet{}, &forecast.MissingDefaultParametersError{Category: category}
}

// EnsureDefault seeds the default hyperparameter set when the store does
// not have one yet. Called once on startup so a fresh etcd namespace can
// serve forecasts immediately.
func EnsureDefault(ctx context.Context, store Store) error {
	_, err := store.Get(ctx, forecast.DefaultCategory)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	return store.Put(ctx, forecast.DefaultHyperparameters())
}
