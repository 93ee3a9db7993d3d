// Package store persists raw sales transactions. The Postgres backend is
// the production path; the memory backend serves tests and single-node
// deployments. Aggregation into forecast buckets happens downstream, the
// store keeps rows exactly as ingested.
package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/demandcast/demandcast/internal/config"
)

// Transaction is one sales record as it arrives from a POS export or the
// ingest queue
type Transaction struct {
	ProductID string    `json:"product_id"`
	Category  string    `json:"category,omitempty"`
	Date      time.Time `json:"date"`
	Quantity  float64   `json:"quantity"`
}

// ValidationError reports the first unusable row in a batch. Callers can
// treat it as permanent: retrying the same batch will fail the same way.
type ValidationError struct {
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("transaction %d: %s", e.Index, e.Reason)
}

// Store persists transactions per product
type Store interface {
	// Append validates and stores a batch of transactions
	Append(ctx context.Context, txns []Transaction) error

	// ListByProduct returns a product's transactions ordered by date
	ListByProduct(ctx context.Context, productID string) ([]Transaction, error)

	// Categories returns the distinct categories present, sorted
	Categories(ctx context.Context) ([]string, error)

	// ProductsByCategory returns the distinct product IDs recorded under a
	// category, sorted
	ProductsByCategory(ctx context.Context, category string) ([]string, error)

	// Lifecycle
	Close() error
}

// NewStore creates a store based on configuration
func NewStore(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Type {
	case "postgres":
		return NewPostgresStore(ctx, cfg)
	case "memory", "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}

// validateTransactions rejects rows the aggregator cannot use. The whole
// batch is refused on the first bad row so callers never end up with
// partially applied POS exports.
func validateTransactions(txns []Transaction) error {
	for i, txn := range txns {
		if txn.ProductID == "" {
			return &ValidationError{Index: i, Reason: "product id is required"}
		}
		if txn.Date.IsZero() {
			return &ValidationError{Index: i, Reason: "date is required"}
		}
		if math.IsNaN(txn.Quantity) || math.IsInf(txn.Quantity, 0) {
			return &ValidationError{Index: i, Reason: "quantity must be finite"}
		}
	}
	return nil
}
