package handlers

import (
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/demandcast/demandcast/internal/models"
)

func TestHandler_Forecast(t *testing.T) {
	// Setup
	handler, st, _ := newTestHandler(t)
	seedMonthlySales(t, st, "P-100", "beverages", 24)
	app := newTestApp(handler)

	// Test
	resp := doRequest(t, app, "GET", "/v1/products/P-100/forecast?category=beverages", nil)

	// Assertions
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status %d, got %d", fiber.StatusOK, resp.StatusCode)
	}

	var forecastResp models.ForecastResponse
	decodeBody(t, resp, &forecastResp)

	if forecastResp.ProductID != "P-100" {
		t.Errorf("Expected product_id 'P-100', got '%s'", forecastResp.ProductID)
	}
	if forecastResp.Granularity != "monthly" {
		t.Errorf("Expected granularity 'monthly', got '%s'", forecastResp.Granularity)
	}
	if forecastResp.Periods != 3 {
		t.Errorf("Expected default periods 3, got %d", forecastResp.Periods)
	}

	future := 0
	for _, p := range forecastResp.Forecast {
		if p.DS == "" {
			t.Fatal("Expected every point to carry a date")
		}
		if !p.IsHistorical {
			future++
		}
	}
	if future != 3 {
		t.Errorf("Expected 3 future points, got %d", future)
	}

	if forecastResp.MAPE == nil {
		t.Error("Expected MAPE to be defined for 24 months of history")
	}
}

func TestHandler_ForecastQueryParameters(t *testing.T) {
	// Setup
	handler, st, _ := newTestHandler(t)
	seedMonthlySales(t, st, "P-100", "beverages", 24)
	app := newTestApp(handler)

	// Test
	resp := doRequest(t, app, "GET", "/v1/products/P-100/forecast?periods=6&granularity=monthly&region=us", nil)

	// Assertions
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status %d, got %d", fiber.StatusOK, resp.StatusCode)
	}

	var forecastResp models.ForecastResponse
	decodeBody(t, resp, &forecastResp)

	if forecastResp.Periods != 6 {
		t.Errorf("Expected periods 6, got %d", forecastResp.Periods)
	}
}

func TestHandler_ForecastPost(t *testing.T) {
	// Setup
	handler, st, _ := newTestHandler(t)
	seedMonthlySales(t, st, "P-100", "beverages", 24)
	app := newTestApp(handler)

	// Test
	resp := doRequest(t, app, "POST", "/v1/forecast", models.ForecastBodyRequest{
		ProductID: "P-100",
		Category:  "beverages",
		Periods:   6,
	})

	// Assertions
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status %d, got %d", fiber.StatusOK, resp.StatusCode)
	}

	var forecastResp models.ForecastResponse
	decodeBody(t, resp, &forecastResp)

	if forecastResp.Periods != 6 {
		t.Errorf("Expected periods 6, got %d", forecastResp.Periods)
	}
	if forecastResp.Category != "beverages" {
		t.Errorf("Expected category 'beverages', got '%s'", forecastResp.Category)
	}
}

func TestHandler_ForecastPostInvalidJSON(t *testing.T) {
	// Setup
	handler, _, _ := newTestHandler(t)
	app := newTestApp(handler)

	// Test
	req := newRawJSONRequest(t, "POST", "/v1/forecast", "{not json")
	resp, err := app.Test(req, testTimeoutMs)
	if err != nil {
		t.Fatalf("Failed to perform request: %v", err)
	}

	// Assertions
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("Expected status %d, got %d", fiber.StatusBadRequest, resp.StatusCode)
	}

	errResp := decodeError(t, resp)
	if errResp.Error.Code != "INVALID_JSON" {
		t.Errorf("Expected error code 'INVALID_JSON', got '%s'", errResp.Error.Code)
	}
}

func TestHandler_ForecastInvalidPeriods(t *testing.T) {
	// Setup
	handler, st, _ := newTestHandler(t)
	seedMonthlySales(t, st, "P-100", "beverages", 24)
	app := newTestApp(handler)

	tests := []struct {
		name         string
		path         string
		expectedCode string
	}{
		{"unsupported periods", "/v1/products/P-100/forecast?periods=12", "INVALID_PERIODS"},
		{"non-integer periods", "/v1/products/P-100/forecast?periods=soon", "INVALID_REQUEST"},
		{"unknown granularity", "/v1/products/P-100/forecast?granularity=hourly", "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, app, "GET", tt.path, nil)

			if resp.StatusCode != fiber.StatusBadRequest {
				t.Fatalf("Expected status %d, got %d", fiber.StatusBadRequest, resp.StatusCode)
			}
			errResp := decodeError(t, resp)
			if errResp.Error.Code != tt.expectedCode {
				t.Errorf("Expected error code '%s', got '%s'", tt.expectedCode, errResp.Error.Code)
			}
		})
	}
}

func TestHandler_ForecastInsufficientHistory(t *testing.T) {
	// Setup
	handler, st, _ := newTestHandler(t)
	seedMonthlySales(t, st, "P-100", "beverages", 4)
	app := newTestApp(handler)

	// Test
	resp := doRequest(t, app, "GET", "/v1/products/P-100/forecast", nil)

	// Assertions
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("Expected status %d, got %d", fiber.StatusUnprocessableEntity, resp.StatusCode)
	}

	errResp := decodeError(t, resp)
	if errResp.Error.Code != "INSUFFICIENT_HISTORY" {
		t.Errorf("Expected error code 'INSUFFICIENT_HISTORY', got '%s'", errResp.Error.Code)
	}
	if errResp.Error.Details["got"] == nil || errResp.Error.Details["need"] == nil {
		t.Errorf("Expected got/need details, got %v", errResp.Error.Details)
	}
}

func TestHandler_ForecastUnknownProduct(t *testing.T) {
	// Setup
	handler, _, _ := newTestHandler(t)
	app := newTestApp(handler)

	// Test
	resp := doRequest(t, app, "GET", "/v1/products/P-404/forecast", nil)

	// Assertions
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("Expected status %d, got %d", fiber.StatusUnprocessableEntity, resp.StatusCode)
	}
}

func TestHandler_ForecastMissingProductID(t *testing.T) {
	// Setup
	handler, _, _ := newTestHandler(t)
	app := newTestApp(handler)

	// Test
	resp := doRequest(t, app, "POST", "/v1/forecast", models.ForecastBodyRequest{Category: "beverages"})

	// Assertions
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("Expected status %d, got %d", fiber.StatusBadRequest, resp.StatusCode)
	}

	errResp := decodeError(t, resp)
	if errResp.Error.Code != "INVALID_REQUEST" {
		t.Errorf("Expected error code 'INVALID_REQUEST', got '%s'", errResp.Error.Code)
	}
}
