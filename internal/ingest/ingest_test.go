package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/demandcast/demandcast/internal/cache"
	"github.com/demandcast/demandcast/internal/config"
	"github.com/demandcast/demandcast/internal/forecast"
	"github.com/demandcast/demandcast/internal/logging"
	"github.com/demandcast/demandcast/internal/queue"
	"github.com/demandcast/demandcast/internal/store"
)

func newTestQueue(t *testing.T) queue.Queue {
	t.Helper()
	q, err := queue.NewQueue(config.QueueConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("Failed to create memory queue: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func testEvent(t *testing.T, requestID string, txns ...store.Transaction) []byte {
	t.Helper()
	data, err := json.Marshal(TransactionEvent{RequestID: requestID, Transactions: txns})
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}
	return data
}

func testTxn(productID string, day int, quantity float64) store.Transaction {
	return store.Transaction{
		ProductID: productID,
		Category:  "beverages",
		Date:      time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
		Quantity:  quantity,
	}
}

func cacheKey(productID string) forecast.CacheKey {
	return forecast.CacheKey{
		ProductID:   productID,
		Category:    "beverages",
		Granularity: forecast.Monthly,
		Periods:     3,
		Fingerprint: "abc",
	}
}

func waitForTransactions(t *testing.T, st store.Store, productID string, want int) {
	t.Helper()

	timeout := time.After(3 * time.Second)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			txns, err := st.ListByProduct(context.Background(), productID)
			if err != nil {
				t.Fatalf("ListByProduct failed: %v", err)
			}
			if len(txns) >= want {
				return
			}
		case <-timeout:
			txns, _ := st.ListByProduct(context.Background(), productID)
			t.Fatalf("Timeout: product %s has %d of %d transactions", productID, len(txns), want)
		}
	}
}

func TestConsumerStoresEventBatch(t *testing.T) {
	q := newTestQueue(t)
	st := store.NewMemoryStore()
	resultCache := cache.NewMemoryCache(time.Hour)
	defer func() { _ = resultCache.Close() }()

	ctx := context.Background()
	resultCache.Set(ctx, cacheKey("p1"), &forecast.Result{Periods: 3, Granularity: forecast.Monthly})
	resultCache.Set(ctx, cacheKey("p3"), &forecast.Result{Periods: 3, Granularity: forecast.Monthly})

	consumer := NewConsumer(q, st, resultCache, logging.NewDevelopment())
	if err := consumer.Start(); err != nil {
		t.Fatalf("Failed to start consumer: %v", err)
	}

	event := testEvent(t, "req-1",
		testTxn("p1", 1, 4),
		testTxn("p1", 2, 6),
		testTxn("p2", 1, 3),
	)
	if err := q.Publish(ctx, SubjectTransactionsRecorded, event); err != nil {
		t.Fatalf("Failed to publish event: %v", err)
	}

	waitForTransactions(t, st, "p1", 2)
	waitForTransactions(t, st, "p2", 1)

	// Cached forecasts for written products are invalidated; others survive.
	if _, ok := resultCache.Get(ctx, cacheKey("p1")); ok {
		t.Error("Expected p1 forecast cache to be invalidated")
	}
	if _, ok := resultCache.Get(ctx, cacheKey("p3")); !ok {
		t.Error("Expected p3 forecast cache to survive")
	}
}

func TestConsumerDropsUndecodableEvent(t *testing.T) {
	q := newTestQueue(t)
	st := store.NewMemoryStore()

	consumer := NewConsumer(q, st, nil, logging.NewDevelopment())
	if err := consumer.Start(); err != nil {
		t.Fatalf("Failed to start consumer: %v", err)
	}

	ctx := context.Background()
	if err := q.Publish(ctx, SubjectTransactionsRecorded, []byte("{not json")); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}

	// A later valid event still lands, so the bad one did not wedge the consumer.
	if err := q.Publish(ctx, SubjectTransactionsRecorded, testEvent(t, "req-2", testTxn("p1", 5, 2))); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}

	waitForTransactions(t, st, "p1", 1)
}

func TestConsumerHandlerDropsBadBatches(t *testing.T) {
	q := newTestQueue(t)
	st := store.NewMemoryStore()
	consumer := NewConsumer(q, st, nil, logging.NewDevelopment())

	// Undecodable payload: dropped, not retried.
	if err := consumer.handleTransactionsRecorded([]byte("garbage")); err != nil {
		t.Errorf("Expected nil for undecodable payload, got %v", err)
	}

	// Validation failure: permanent, dropped.
	bad := testEvent(t, "req-3", store.Transaction{Date: time.Now(), Quantity: 1})
	if err := consumer.handleTransactionsRecorded(bad); err != nil {
		t.Errorf("Expected nil for invalid batch, got %v", err)
	}

	// Empty event: nothing to store.
	empty := testEvent(t, "req-4")
	if err := consumer.handleTransactionsRecorded(empty); err != nil {
		t.Errorf("Expected nil for empty event, got %v", err)
	}

	txns, err := st.ListByProduct(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ListByProduct failed: %v", err)
	}
	if len(txns) != 0 {
		t.Errorf("Expected no stored transactions, got %d", len(txns))
	}
}

type failingStore struct {
	store.Store
	err error
}

func (s *failingStore) Append(ctx context.Context, txns []store.Transaction) error {
	return s.err
}

func TestConsumerHandlerReturnsStoreErrors(t *testing.T) {
	q := newTestQueue(t)
	storeErr := errors.New("connection reset")
	st := &failingStore{Store: store.NewMemoryStore(), err: storeErr}
	consumer := NewConsumer(q, st, nil, logging.NewDevelopment())

	event := testEvent(t, "req-5", testTxn("p1", 1, 2))
	err := consumer.handleTransactionsRecorded(event)
	if !errors.Is(err, storeErr) {
		t.Errorf("Expected store error to propagate for redelivery, got %v", err)
	}
}

func TestConsumerStartStop(t *testing.T) {
	q := newTestQueue(t)
	st := store.NewMemoryStore()
	consumer := NewConsumer(q, st, nil, logging.NewDevelopment())

	if err := consumer.Start(); err != nil {
		t.Fatalf("Failed to start: %v", err)
	}
	if err := consumer.Start(); err == nil {
		t.Fatal("Expected error for second start")
	}

	if err := consumer.Stop(); err != nil {
		t.Fatalf("Failed to stop: %v", err)
	}
	if err := consumer.Stop(); err == nil {
		t.Fatal("Expected error for second stop")
	}
}
