package forecast

import (
	"fmt"
	"sort"
	"time"
)

// Aggregate converts raw transaction line items into a regular bucketed
// demand series for one product. Transactions for other products are
// ignored, quantities within a bucket are summed, and gaps between the
// first and last observed bucket are zero-filled so the seasonal phase of
// the series is preserved.
//
// Returns InsufficientHistoryError when fewer non-zero buckets exist than
// the granularity's minimum.
func Aggregate(transactions []Transaction, productID string, g Granularity) (Series, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("unknown granularity: %q", g)
	}

	sums := make(map[time.Time]float64)
	for _, tx := range transactions {
		if tx.ProductID != productID {
			continue
		}
		sums[g.BucketStart(tx.Date)] += tx.Quantity
	}

	if len(sums) == 0 {
		return nil, &InsufficientHistoryError{Got: 0, Need: g.MinBuckets(), Granularity: g}
	}

	buckets := make([]time.Time, 0, len(sums))
	for b := range sums {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Before(buckets[j]) })

	first := buckets[0]
	last := buckets[len(buckets)-1]

	series := make(Series, 0, g.Index(first, last)+1)
	nonZero := 0
	for b := first; !b.After(last); b = g.Next(b) {
		v := sums[b]
		if v != 0 {
			nonZero++
		}
		series = append(series, TimeSeriesPoint{Bucket: b, Value: v})
	}

	if nonZero < g.MinBuckets() {
		return nil, &InsufficientHistoryError{Got: nonZero, Need: g.MinBuckets(), Granularity: g}
	}

	return series, nil
}
