// Package ingest consumes recorded-transaction events from the queue and
// lands them in the transaction store. Running it in the API process gives a
// single-binary deployment; running it alone gives a dedicated write worker.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/demandcast/demandcast/internal/cache"
	"github.com/demandcast/demandcast/internal/logging"
	"github.com/demandcast/demandcast/internal/queue"
	"github.com/demandcast/demandcast/internal/store"
	"github.com/demandcast/demandcast/internal/utils"
)

// SubjectTransactionsRecorded carries batches accepted by the transactions
// API. One event per accepted request.
const SubjectTransactionsRecorded = "demandcast.transactions.recorded"

// TransactionEvent is the wire form of an accepted transaction batch.
type TransactionEvent struct {
	RequestID    string              `json:"request_id,omitempty"`
	Transactions []store.Transaction `json:"transactions"`
}

// Consumer subscribes to transaction events, appends them to the store, and
// drops cached forecasts for the affected products.
type Consumer struct {
	queue  queue.Subscriber
	store  store.Store
	cache  cache.Cache
	logger *logging.Logger
}

// NewConsumer wires a consumer. The cache may be nil when caching is
// disabled; invalidation is then skipped.
func NewConsumer(q queue.Subscriber, st store.Store, c cache.Cache, logger *logging.Logger) *Consumer {
	return &Consumer{
		queue:  q,
		store:  st,
		cache:  c,
		logger: logger.With(logging.String("component", "ingest")),
	}
}

// Start subscribes to the transaction subject.
func (c *Consumer) Start() error {
	if err := c.queue.Subscribe(SubjectTransactionsRecorded, c.handleTransactionsRecorded); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", SubjectTransactionsRecorded, err)
	}
	c.logger.Info("subscribed to transaction events", "subject", SubjectTransactionsRecorded)
	return nil
}

// Stop unsubscribes. The queue itself is closed by its owner.
func (c *Consumer) Stop() error {
	if err := c.queue.Unsubscribe(SubjectTransactionsRecorded); err != nil {
		return fmt.Errorf("failed to unsubscribe from %s: %w", SubjectTransactionsRecorded, err)
	}
	return nil
}

// handleTransactionsRecorded processes one event. Undecodable payloads and
// validation failures are dropped after logging: redelivering them cannot
// succeed and would wedge the subject. Store failures are returned so the
// queue redelivers.
func (c *Consumer) handleTransactionsRecorded(data []byte) error {
	var event TransactionEvent
	if err := json.Unmarshal(data, &event); err != nil {
		c.logger.Error("dropping undecodable transaction event",
			"error", err,
			"data_len", len(data))
		return nil
	}

	if len(event.Transactions) == 0 {
		c.logger.Debug("transaction event carried no transactions",
			"request_id", event.RequestID)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), utils.DefaultRequestTimeout)
	defer cancel()

	if err := c.store.Append(ctx, event.Transactions); err != nil {
		var vErr *store.ValidationError
		if errors.As(err, &vErr) {
			c.logger.Error("dropping invalid transaction batch",
				"error", err,
				"request_id", event.RequestID,
				"transactions", len(event.Transactions))
			return nil
		}

		c.logger.Error("failed to store transaction batch",
			"error", err,
			"request_id", event.RequestID,
			"transactions", len(event.Transactions))
		return err
	}

	c.invalidateProducts(ctx, event.Transactions)

	c.logger.Info("stored transaction batch",
		"request_id", event.RequestID,
		"transactions", len(event.Transactions))
	return nil
}

// invalidateProducts drops cached forecasts for each distinct product in the
// batch. Invalidation failures are logged and ignored: fingerprinted keys
// mean stale entries are unreachable anyway once new data lands.
func (c *Consumer) invalidateProducts(ctx context.Context, txns []store.Transaction) {
	if c.cache == nil {
		return
	}

	seen := make(map[string]bool, len(txns))
	for _, txn := range txns {
		if seen[txn.ProductID] {
			continue
		}
		seen[txn.ProductID] = true

		if err := c.cache.InvalidateProduct(ctx, txn.ProductID); err != nil {
			c.logger.Warn("failed to invalidate cached forecasts",
				"error", err,
				"product_id", txn.ProductID)
		}
	}
}
