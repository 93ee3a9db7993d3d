// Package models holds the request and response DTOs of the HTTP API.
// Conversions between wire shapes and domain types live here so handlers
// stay thin.
package models

import (
	"github.com/demandcast/demandcast/internal/forecast"
	"github.com/demandcast/demandcast/internal/services"
	"github.com/demandcast/demandcast/internal/tuning"
)

// DateLayout is how bucket dates serialize in API payloads
const DateLayout = "2006-01-02"

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ForecastPoint is one bucket of a forecast payload
type ForecastPoint struct {
	DS           string  `json:"ds"`
	Yhat         float64 `json:"yhat"`
	YhatLower    float64 `json:"yhat_lower"`
	YhatUpper    float64 `json:"yhat_upper"`
	IsHistorical bool    `json:"is_historical"`
}

// ForecastResponse represents a forecast response. MAPE serializes as null
// when the backtest was undefined (every holdout actual was zero).
type ForecastResponse struct {
	ProductID      string          `json:"product_id"`
	Category       string          `json:"category,omitempty"`
	Granularity    string          `json:"granularity"`
	Forecast       []ForecastPoint `json:"forecast"`
	MAPE           *float64        `json:"mape"`
	ExcludedPoints int             `json:"excluded_points"`
	Periods        int             `json:"periods"`
}

// NewForecastResponse converts an engine result into the wire shape
func NewForecastResponse(productID, category string, res *forecast.Result) ForecastResponse {
	points := make([]ForecastPoint, len(res.Points))
	for i, p := range res.Points {
		points[i] = ForecastPoint{
			DS:           p.Date.Format(DateLayout),
			Yhat:         p.Yhat,
			YhatLower:    p.YhatLower,
			YhatUpper:    p.YhatUpper,
			IsHistorical: p.Historical,
		}
	}

	resp := ForecastResponse{
		ProductID:      productID,
		Category:       category,
		Granularity:    string(res.Granularity),
		Forecast:       points,
		ExcludedPoints: res.Evaluation.Excluded,
		Periods:        res.Periods,
	}
	if res.Evaluation.Defined {
		mape := res.Evaluation.MAPE
		resp.MAPE = &mape
	}
	return resp
}

// StockLimitsResponse represents stock advice derived from the forecast
// bucket covering now
type StockLimitsResponse struct {
	ProductID  string  `json:"product_id"`
	BucketDate string  `json:"bucket_date"`
	MinStock   float64 `json:"min_stock"`
	MaxStock   float64 `json:"max_stock"`
}

// NewStockLimitsResponse converts derived stock limits into the wire shape
func NewStockLimitsResponse(limits *services.StockLimits) StockLimitsResponse {
	return StockLimitsResponse{
		ProductID:  limits.ProductID,
		BucketDate: limits.BucketDate.Format(DateLayout),
		MinStock:   limits.MinStock,
		MaxStock:   limits.MaxStock,
	}
}

// CategoriesResponse lists the distinct product categories in the store
type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// ParameterListResponse lists stored hyperparameter sets
type ParameterListResponse struct {
	Parameters []forecast.HyperparameterSet `json:"parameters"`
}

// TuningJobListResponse lists tuning jobs, newest first
type TuningJobListResponse struct {
	Jobs []*tuning.Job `json:"jobs"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
