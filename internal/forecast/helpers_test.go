package forecast

import (
	"math"
	"time"
)

// Common test data and helpers for all forecast tests

var testBaseMonth = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

// monthlySeries builds a gap-free monthly series with values from fn(i)
func monthlySeries(n int, fn func(i int) float64) Series {
	series := make(Series, n)
	for i := 0; i < n; i++ {
		series[i] = TimeSeriesPoint{
			Bucket: testBaseMonth.AddDate(0, i, 0),
			Value:  fn(i),
		}
	}
	return series
}

// flatSeries builds a constant-valued monthly series
func flatSeries(n int, value float64) Series {
	return monthlySeries(n, func(int) float64 { return value })
}

// seasonalSeries builds a monthly series with a yearly sine pattern on a
// constant level
func seasonalSeries(n int, level, amplitude float64) Series {
	return monthlySeries(n, func(i int) float64 {
		return level * (1 + amplitude*math.Sin(2*math.Pi*float64(i)/12))
	})
}

// monthlyTransactions builds one mid-month transaction per bucket for a
// product, with quantities from fn(i)
func monthlyTransactions(productID string, n int, fn func(i int) float64) []Transaction {
	txns := make([]Transaction, n)
	for i := 0; i < n; i++ {
		txns[i] = Transaction{
			Date:      testBaseMonth.AddDate(0, i, 14),
			ProductID: productID,
			Quantity:  fn(i),
		}
	}
	return txns
}

// almostEqual reports whether two floats agree within tol
func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
