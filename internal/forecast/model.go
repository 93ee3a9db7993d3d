package forecast

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// Prediction is one predicted bucket with its interval bounds.
// Bounds assume approximately normal residuals: yhat plus/minus
// z times the in-sample residual standard deviation, so the interval
// width is constant across the horizon. This is an approximation.
type Prediction struct {
	Date  time.Time
	Yhat  float64
	Lower float64
	Upper float64
}

// Model is the transient result of one fit. It is immutable after
// construction and safe for concurrent Predict calls.
type Model struct {
	granularity Granularity
	mode        SeasonalityMode
	trainStart  time.Time
	trainEnd    time.Time
	n           int
	yScale      float64

	design    *design
	trendCoef []float64
	seasCoef  []float64

	fitted    []float64
	residuals []float64
	sigma     float64
	z         float64
}

// finalize computes in-sample fitted values, residuals, and the residual
// standard deviation backing the prediction intervals
func (m *Model) finalize(actual []float64) {
	m.fitted = make([]float64, m.n)
	m.residuals = make([]float64, m.n)
	for i := 0; i < m.n; i++ {
		m.fitted[i] = m.valueAt(i)
		m.residuals[i] = actual[i] - m.fitted[i]
	}

	if m.n >= 2 {
		_, stddev := stat.MeanStdDev(m.residuals, nil)
		m.sigma = stddev
	}
}

// valueAt evaluates the decomposition at a bucket index, in original units
func (m *Model) valueAt(i int) float64 {
	trow := make([]float64, m.design.trendWidth())
	m.design.trendRow(trow, i)
	trend := dot(trow, m.trendCoef)

	seas := 0.0
	if sw := m.design.seasonalWidth(); sw > 0 {
		srow := make([]float64, sw)
		m.design.seasonalRow(srow, i)
		seas = dot(srow, m.seasCoef)
	}

	if m.mode == ModeMultiplicative {
		return trend * (1 + seas) * m.yScale
	}
	return (trend + seas) * m.yScale
}

// Predict evaluates the model over the given dates. Dates are truncated
// to their bucket start; dates beyond the training range extrapolate the
// trend linearly and reuse the learned seasonal and holiday effects.
func (m *Model) Predict(dates []time.Time) []Prediction {
	margin := m.z * m.sigma
	preds := make([]Prediction, len(dates))
	for k, d := range dates {
		b := m.granularity.BucketStart(d)
		yhat := m.valueAt(m.granularity.Index(m.trainStart, b))
		preds[k] = Prediction{
			Date:  b,
			Yhat:  yhat,
			Lower: yhat - margin,
			Upper: yhat + margin,
		}
	}
	return preds
}

// FutureDates returns the periods bucket starts immediately after the
// training range
func (m *Model) FutureDates(periods int) []time.Time {
	dates := make([]time.Time, periods)
	for i := 0; i < periods; i++ {
		dates[i] = m.granularity.AddBuckets(m.trainEnd, i+1)
	}
	return dates
}

// Fitted returns the in-sample fitted values in training order
func (m *Model) Fitted() []float64 {
	out := make([]float64, len(m.fitted))
	copy(out, m.fitted)
	return out
}

// Residuals returns actual minus fitted in training order
func (m *Model) Residuals() []float64 {
	out := make([]float64, len(m.residuals))
	copy(out, m.residuals)
	return out
}

// Sigma returns the in-sample residual standard deviation
func (m *Model) Sigma() float64 { return m.sigma }

// Granularity returns the bucket width the model was trained on
func (m *Model) Granularity() Granularity { return m.granularity }

// TrainStart returns the first training bucket
func (m *Model) TrainStart() time.Time { return m.trainStart }

// TrainEnd returns the last training bucket
func (m *Model) TrainEnd() time.Time { return m.trainEnd }

// Mode returns the seasonality mode the model was fitted with
func (m *Model) Mode() SeasonalityMode { return m.mode }

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
