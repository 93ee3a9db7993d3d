// Package forecast implements the demand forecasting engine: transaction
// aggregation into regular bucketed series, holiday calendars, decomposition
// model fitting (trend + seasonality + holiday effects), backtested accuracy
// metrics, and the orchestrator that ties them into one request cycle.
package forecast

import (
	"fmt"
	"time"
)

// Granularity is the bucket width used to aggregate transactions
type Granularity string

const (
	// Weekly buckets start on the ISO week's Monday
	Weekly Granularity = "weekly"

	// Monthly buckets start on the first day of the calendar month
	Monthly Granularity = "monthly"
)

// Yearly seasonal period lengths expressed in buckets
const (
	weeksPerYear  = 52.1775
	monthsPerYear = 12.0
)

// Minimum non-zero buckets required before a fit is attempted
const (
	MinWeeklyBuckets  = 24
	MinMonthlyBuckets = 12
)

// ParseGranularity parses a granularity string, defaulting to Monthly
// when empty
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case "":
		return Monthly, nil
	case Weekly:
		return Weekly, nil
	case Monthly:
		return Monthly, nil
	default:
		return "", fmt.Errorf("unknown granularity: %q", s)
	}
}

// Valid reports whether the granularity is a supported bucket width
func (g Granularity) Valid() bool {
	return g == Weekly || g == Monthly
}

// MinBuckets returns the minimum non-zero bucket count required for fitting
func (g Granularity) MinBuckets() int {
	if g == Weekly {
		return MinWeeklyBuckets
	}
	return MinMonthlyBuckets
}

// Period returns the yearly seasonal period length in buckets
func (g Granularity) Period() float64 {
	if g == Weekly {
		return weeksPerYear
	}
	return monthsPerYear
}

// BucketStart truncates a timestamp to the start of its bucket in UTC
func (g Granularity) BucketStart(t time.Time) time.Time {
	t = t.UTC()
	if g == Weekly {
		// Monday of the ISO week
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the start of the bucket following b
func (g Granularity) Next(b time.Time) time.Time {
	if g == Weekly {
		return b.AddDate(0, 0, 7)
	}
	return b.AddDate(0, 1, 0)
}

// AddBuckets returns the bucket start n buckets after b
func (g Granularity) AddBuckets(b time.Time, n int) time.Time {
	if g == Weekly {
		return b.AddDate(0, 0, 7*n)
	}
	return b.AddDate(0, n, 0)
}

// Index returns the number of whole buckets between start and t.
// Both must already be bucket starts; t before start yields a negative index.
func (g Granularity) Index(start, t time.Time) int {
	if g == Weekly {
		return int(t.Sub(start).Hours() / (24 * 7))
	}
	return (t.Year()-start.Year())*12 + int(t.Month()) - int(start.Month())
}

// Transaction is a single sales line item
type Transaction struct {
	Date      time.Time
	ProductID string
	Quantity  float64
}

// TimeSeriesPoint is one aggregated bucket of a product's demand series
type TimeSeriesPoint struct {
	Bucket time.Time
	Value  float64
}

// Series is an ordered, gap-free bucketed demand series
type Series []TimeSeriesPoint

// Values extracts just the values from the series
func (s Series) Values() []float64 {
	values := make([]float64, len(s))
	for i, p := range s {
		values[i] = p.Value
	}
	return values
}

// Buckets extracts just the bucket start dates from the series
func (s Series) Buckets() []time.Time {
	buckets := make([]time.Time, len(s))
	for i, p := range s {
		buckets[i] = p.Bucket
	}
	return buckets
}

// Start returns the first bucket date; zero time for an empty series
func (s Series) Start() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[0].Bucket
}

// End returns the last bucket date; zero time for an empty series
func (s Series) End() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[len(s)-1].Bucket
}
