package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/demandcast/demandcast/internal/forecast"
	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/store"
)

// seedRecentMonthlySales stores monthly sales ending in the current
// month, so the stock limit lookup finds a bucket covering today
func seedRecentMonthlySales(t *testing.T, st store.Store, productID, category string, months int) {
	t.Helper()

	end := forecast.Monthly.BucketStart(time.Now().UTC())
	base := end.AddDate(0, -(months - 1), 0)

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

func TestHandler_StockLimits(t *testing.T) {
	// Setup
	handler, st, _ := newTestHandler(t)
	seedRecentMonthlySales(t, st, "P-100", "beverages", 24)
	app := newTestApp(handler)

	// Test
	resp := doRequest(t, app, "GET", "/v1/products/P-100/stock-limits?category=beverages", nil)

	// Assertions
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status %d, got %d", fiber.StatusOK, resp.StatusCode)
	}

	var limits models.StockLimitsResponse
	decodeBody(t, resp, &limits)

	if limits.ProductID != "P-100" {
		t.Errorf("Expected product_id 'P-100', got '%s'", limits.ProductID)
	}

	wantBucket := forecast.Monthly.BucketStart(time.Now().UTC()).Format(models.DateLayout)
	if limits.BucketDate != wantBucket {
		t.Errorf("Expected bucket_date '%s', got '%s'", wantBucket, limits.BucketDate)
	}

	if limits.MinStock < 0 {
		t.Errorf("Expected non-negative min_stock, got %v", limits.MinStock)
	}
	if limits.MaxStock < limits.MinStock {
		t.Errorf("Expected max_stock >= min_stock, got %v < %v", limits.MaxStock, limits.MinStock)
	}
}

func TestHandler_StockLimitsUnknownProduct(t *testing.T) {
	// Setup
	handler, _, _ := newTestHandler(t)
	app := newTestApp(handler)

	// Test
	resp := doRequest(t, app, "GET", "/v1/products/P-404/stock-limits", nil)

	// Assertions
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("Expected status %d, got %d", fiber.StatusUnprocessableEntity, resp.StatusCode)
	}

	errResp := decodeError(t, resp)
	if errResp.Error.Code != "INSUFFICIENT_HISTORY" {
		t.Errorf("Expected error code 'INSUFFICIENT_HISTORY', got '%s'", errResp.Error.Code)
	}
}

func TestHandler_StockLimitsStaleHistory(t *testing.T) {
	// Setup: history ends years before today, so no bucket covers now
	handler, st, _ := newTestHandler(t)
	seedMonthlySales(t, st, "P-100", "beverages", 24)
	app := newTestApp(handler)

	// Test
	resp := doRequest(t, app, "GET", "/v1/products/P-100/stock-limits", nil)

	// Assertions
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("Expected status %d, got %d", fiber.StatusNotFound, resp.StatusCode)
	}

	errResp := decodeError(t, resp)
	if errResp.Error.Code != "NOT_FOUND" {
		t.Errorf("Expected error code 'NOT_FOUND', got '%s'", errResp.Error.Code)
	}
}
