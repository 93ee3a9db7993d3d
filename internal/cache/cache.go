// Package cache stores computed forecast results keyed by product,
// request shape, and training-data fingerprint. Entries are immutable:
// a changed series or parameter set produces a new fingerprint, so stale
// data is unreachable even before invalidation lands.
package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/demandcast/demandcast/internal/config"
	"github.com/demandcast/demandcast/internal/forecast"
	"github.com/demandcast/demandcast/internal/logging"
)

const keyPrefix = "demandcast:forecast"

// Cache stores forecast results. Get and Set satisfy the engine's cache
// contract; Set never fails the caller, backend errors are logged.
type Cache interface {
	Get(ctx context.Context, key forecast.CacheKey) (*forecast.Result, bool)
	Set(ctx context.Context, key forecast.CacheKey, result *forecast.Result)

	// InvalidateProduct removes every entry for a product, across all
	// categories, granularities, and horizons
	InvalidateProduct(ctx context.Context, productID string) error

	// Purge removes every entry
	Purge(ctx context.Context) error

	// Stats returns hit/miss counters and backend details
	Stats() map[string]interface{}

	// Lifecycle
	Close() error
}

// New creates a cache based on configuration. Callers should check
// cfg.CacheEnabled() first; type "none" is not a valid backend here.
func New(cfg config.CacheConfig, logger *logging.Logger) (Cache, error) {
	switch cfg.Type {
	case "redis":
		return NewRedisCache(cfg, logger)
	case "memory", "":
		return NewMemoryCache(cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// encodeKey renders a cache key as a flat string. The fingerprint comes
// last so product-prefix scans match every entry for a product.
func encodeKey(key forecast.CacheKey) string {
	return fmt.Sprintf("%s:%s:%s:%s:%d:%s",
		keyPrefix, key.ProductID, key.Category, key.Granularity, key.Periods, key.Fingerprint)
}

// productPrefix is the shared prefix of every key for one product
func productPrefix(productID string) string {
	return fmt.Sprintf("%s:%s:", keyPrefix, productID)
}

func keyMatchesProduct(encoded, productID string) bool {
	return strings.HasPrefix(encoded, productPrefix(productID))
}
