package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/demandcast/demandcast/internal/cache"
	"github.com/demandcast/demandcast/internal/config"
	"github.com/demandcast/demandcast/internal/forecast"
	"github.com/demandcast/demandcast/internal/ingest"
	"github.com/demandcast/demandcast/internal/logging"
	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/params"
	"github.com/demandcast/demandcast/internal/queue"
	"github.com/demandcast/demandcast/internal/services"
	"github.com/demandcast/demandcast/internal/store"
	"github.com/demandcast/demandcast/internal/tuning"
)

const testTimeoutMs = 15000

// newTestHandler wires a handler against in-memory backends. The queue
// round-trips through the ingest consumer, so accepted transactions land
// in the store the same way they do in production.
func newTestHandler(t *testing.T) (*Handler, store.Store, cache.Cache) {
	t.Helper()

	logger := logging.NewDevelopment()

	st := store.NewMemoryStore()
	ps := params.NewMemoryStore()
	ca := cache.NewMemoryCache(time.Hour)

	q, err := queue.NewQueue(config.QueueConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("Failed to create queue: %v", err)
	}
	t.Cleanup(func() { q.Close() })

	consumer := ingest.NewConsumer(q, st, ca, logger)
	if err := consumer.Start(); err != nil {
		t.Fatalf("Failed to start ingest consumer: %v", err)
	}
	t.Cleanup(func() { consumer.Stop() })

	engine := forecast.NewEngine(
		services.StoreTransactionSource{Store: st},
		params.NewResolver(ps, logger),
		ca,
		forecast.DefaultOptions(),
		logger,
	)

	pool := services.NewFitPool(2, 8, logger)
	pool.Start()
	t.Cleanup(pool.Stop)

	manager := tuning.NewManager(st, ps, tuning.Config{Workers: 1}, logger)
	manager.Start()
	t.Cleanup(manager.Stop)

	return New(logger, st, ps, ca, engine, pool, manager, q), st, ca
}

// newTestApp registers the handler's routes the way the router does,
// minus the auth middleware
func newTestApp(h *Handler) *fiber.App {
	app := fiber.New()

	app.Get("/health", h.Health)

	v1 := app.Group("/v1")
	v1.Get("/products/:product_id/forecast", h.Forecast)
	v1.Post("/forecast", h.ForecastPost)
	v1.Get("/products/:product_id/stock-limits", h.StockLimits)
	v1.Post("/transactions", h.RecordTransaction)
	v1.Post("/transactions/batch", h.RecordTransactionsBatch)
	v1.Get("/categories", h.Categories)
	v1.Get("/parameters", h.ListParameters)
	v1.Get("/parameters/:category", h.GetParameters)
	v1.Put("/parameters/:category", h.PutParameters)
	v1.Delete("/parameters/:category", h.DeleteParameters)
	v1.Post("/tuning/jobs", h.SubmitTuningJob)
	v1.Get("/tuning/jobs", h.ListTuningJobs)
	v1.Get("/tuning/jobs/:job_id", h.GetTuningJob)

	admin := app.Group("/admin")
	admin.Post("/cache/purge", h.CachePurge)
	admin.Get("/cache/stats", h.CacheStats)

	app.Use(h.NotFound)
	return app
}

// seedMonthlySales stores steady monthly sales starting January 2022
func seedMonthlySales(t *testing.T, st store.Store, productID, category string, months int) {
	t.Helper()

	base := time.Date(2022, 1, 15, 0, 0, 0, 0, time.UTC)
	txns := make([]store.Transaction, 0, months)
	for i := 0; i < months; i++ {
		txns = append(txns, store.Transaction{
			ProductID: productID,
			Category:  category,
			Date:      base.AddDate(0, i, 0),
			Quantity:  100 + float64(i%4),
		})
	}
	if err := st.Append(context.Background(), txns); err != nil {
		t.Fatalf("Failed to seed transactions: %v", err)
	}
}

// doRequest performs one request against the app, encoding body as JSON
// when it is non-nil
func doRequest(t *testing.T, app *fiber.App, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, testTimeoutMs)
	if err != nil {
		t.Fatalf("Failed to perform request: %v", err)
	}
	return resp
}

// newRawJSONRequest builds a request with a raw body, for malformed
// payload cases doRequest cannot produce
func newRawJSONRequest(t *testing.T, method, path, body string) *http.Request {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// decodeBody decodes the response body into out
func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		t.Fatalf("Failed to unmarshal response %q: %v", body, err)
	}
}

// decodeError decodes an error envelope
func decodeError(t *testing.T, resp *http.Response) models.ErrorResponse {
	t.Helper()

	var errResp models.ErrorResponse
	decodeBody(t, resp, &errResp)
	return errResp
}

// waitForTransactions polls until the product has at least want stored rows
func waitForTransactions(t *testing.T, st store.Store, productID string, want int) []store.Transaction {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		txns, err := st.ListByProduct(context.Background(), productID)
		if err != nil {
			t.Fatalf("Failed to list transactions: %v", err)
		}
		if len(txns) >= want {
			return txns
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %d transactions of %s", want, productID)
	return nil
}
