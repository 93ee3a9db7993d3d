package models

import (
	"time"

	"github.com/demandcast/demandcast/internal/forecast"
	"github.com/demandcast/demandcast/internal/store"
)

// dateLayouts are the accepted date encodings, tried in order
var dateLayouts = []string{time.RFC3339, DateLayout}

// ParseDate parses an API date value, accepting RFC3339 or YYYY-MM-DD
func ParseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// TransactionRequest is one sales record as submitted over HTTP
type TransactionRequest struct {
	ProductID string  `json:"product_id"`
	Category  string  `json:"category,omitempty"`
	Date      string  `json:"date"`
	Quantity  float64 `json:"quantity"`
}

// Transaction converts the wire row into a store row. A malformed date
// maps to the zero time so row validation reports it like a missing one.
func (r TransactionRequest) Transaction() store.Transaction {
	date, err := ParseDate(r.Date)
	if err != nil {
		date = time.Time{}
	}
	return store.Transaction{
		ProductID: r.ProductID,
		Category:  r.Category,
		Date:      date,
		Quantity:  r.Quantity,
	}
}

// BatchTransactionsRequest represents a batch ingest request
type BatchTransactionsRequest struct {
	Transactions []TransactionRequest `json:"transactions"`
}

// Rows converts every wire row, preserving order
func (r BatchTransactionsRequest) Rows() []store.Transaction {
	rows := make([]store.Transaction, len(r.Transactions))
	for i, txn := range r.Transactions {
		rows[i] = txn.Transaction()
	}
	return rows
}

// ForecastBodyRequest carries forecast parameters in a POST body
type ForecastBodyRequest struct {
	ProductID   string `json:"product_id"`
	Category    string `json:"category,omitempty"`
	Periods     int    `json:"periods,omitempty"`
	Granularity string `json:"granularity,omitempty"`
	Region      string `json:"region,omitempty"`
}

// TuningJobRequest submits a grid search for a category
type TuningJobRequest struct {
	Category    string `json:"category"`
	Granularity string `json:"granularity,omitempty"`
}

// ParameterUpsertRequest creates or replaces a category's hyperparameter
// set. The category itself comes from the URL path.
type ParameterUpsertRequest struct {
	TrendFlexibility    float64 `json:"trend_flexibility"`
	SeasonalityStrength float64 `json:"seasonality_strength"`
	HolidayStrength     float64 `json:"holiday_strength"`
	SeasonalityMode     string  `json:"seasonality_mode"`
}

// Set builds the domain hyperparameter set for a category
func (r ParameterUpsertRequest) Set(category string) forecast.HyperparameterSet {
	return forecast.HyperparameterSet{
		Category:            category,
		TrendFlexibility:    r.TrendFlexibility,
		SeasonalityStrength: r.SeasonalityStrength,
		HolidayStrength:     r.HolidayStrength,
		SeasonalityMode:     forecast.SeasonalityMode(r.SeasonalityMode),
	}
}
