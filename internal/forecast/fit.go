package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// FitOptions holds structural fitting knobs shared by every category.
// Per-category behavior (regularization strengths, seasonality mode)
// comes from HyperparameterSet instead.
type FitOptions struct {
	MaxChangepoints  int     // Trend changepoint candidates (default: 25)
	ChangepointRange float64 // Share of history eligible for changepoints (default: 0.8)
	FourierOrder     int     // Seasonal harmonics before the Nyquist cap (default: 10)
	HolidayWindow    int     // Buckets around a holiday its effect covers (default: 1)
	IntervalWidth    float64 // Prediction interval coverage (default: 0.95)
	MaxIter          int     // Iteration budget for the multiplicative fit (default: 50)
	Tolerance        float64 // Convergence tolerance on fitted values (default: 1e-8)
}

// DefaultFitOptions returns the default fitting configuration
func DefaultFitOptions() FitOptions {
	return FitOptions{
		MaxChangepoints:  25,
		ChangepointRange: 0.8,
		FourierOrder:     10,
		HolidayWindow:    1,
		IntervalWidth:    0.95,
		MaxIter:          50,
		Tolerance:        1e-8,
	}
}

// Fit estimates a decomposition model over the bucketed series.
//
// Additive mode solves all components jointly by ridge regression in one
// pass. Multiplicative mode alternates between the trend block and the
// seasonal+holiday block until fitted values stop moving, and fails with
// ModelFitError when the iteration budget runs out. Both paths are fully
// deterministic for a fixed input.
func Fit(series Series, granularity Granularity, params HyperparameterSet, holidays []HolidayEvent, opts FitOptions) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid hyperparameters: %w", err)
	}
	if !granularity.Valid() {
		return nil, fmt.Errorf("unknown granularity: %q", granularity)
	}

	n := len(series)
	if n < 2 {
		return nil, &InsufficientHistoryError{Got: n, Need: 2, Granularity: granularity}
	}

	// Scale by the series magnitude only; an additive shift would break
	// the multiplicative decomposition.
	y := series.Values()
	yScale := 0.0
	for _, v := range y {
		if a := math.Abs(v); a > yScale {
			yScale = a
		}
	}
	if yScale == 0 {
		yScale = 1
	}
	yNorm := make([]float64, n)
	for i, v := range y {
		yNorm[i] = v / yScale
	}

	d := newDesign(n, granularity, series.Start(), holidays, opts)

	var trendCoef, seasCoef []float64
	var err error
	if params.SeasonalityMode == ModeMultiplicative {
		trendCoef, seasCoef, err = fitMultiplicative(d, yNorm, params, opts)
	} else {
		trendCoef, seasCoef, err = fitAdditive(d, yNorm, params)
	}
	if err != nil {
		return nil, err
	}

	model := &Model{
		granularity: granularity,
		mode:        params.SeasonalityMode,
		trainStart:  series.Start(),
		trainEnd:    series.End(),
		n:           n,
		yScale:      yScale,
		design:      d,
		trendCoef:   trendCoef,
		seasCoef:    seasCoef,
		z:           zScore(opts.IntervalWidth),
	}
	model.finalize(y)

	return model, nil
}

// fitAdditive solves trend, seasonal, and holiday coefficients jointly
func fitAdditive(d *design, y []float64, params HyperparameterSet) (trendCoef, seasCoef []float64, err error) {
	tw, sw := d.trendWidth(), d.seasonalWidth()
	p := tw + sw

	X := mat.NewDense(d.n, p, nil)
	row := make([]float64, p)
	for i := 0; i < d.n; i++ {
		d.trendRow(row[:tw], i)
		d.seasonalRow(row[tw:], i)
		X.SetRow(i, row)
	}

	beta, err := ridgeSolve(X, y, d.penalties(params))
	if err != nil {
		return nil, nil, &ModelFitError{Reason: err.Error()}
	}
	return beta[:tw], beta[tw:], nil
}

// fitMultiplicative alternates two ridge solves: the trend given the
// current seasonal factor, then the seasonal+holiday coefficients given
// the current trend. Each step is linear in its block, and the loop stops
// once fitted values change by less than the tolerance.
func fitMultiplicative(d *design, y []float64, params HyperparameterSet, opts FitOptions) (trendCoef, seasCoef []float64, err error) {
	tw, sw := d.trendWidth(), d.seasonalWidth()
	pen := d.penalties(params)
	trendPen, seasPen := pen[:tw], pen[tw:]

	T := mat.NewDense(d.n, tw, nil)
	trow := make([]float64, tw)
	for i := 0; i < d.n; i++ {
		d.trendRow(trow, i)
		T.SetRow(i, trow)
	}

	// Without seasonal or holiday columns the model is trend-only and a
	// single solve is exact.
	if sw == 0 {
		trendCoef, err = ridgeSolve(T, y, trendPen)
		if err != nil {
			return nil, nil, &ModelFitError{Reason: err.Error()}
		}
		return trendCoef, nil, nil
	}

	S := mat.NewDense(d.n, sw, nil)
	srow := make([]float64, sw)
	for i := 0; i < d.n; i++ {
		d.seasonalRow(srow, i)
		S.SetRow(i, srow)
	}

	Tw := mat.NewDense(d.n, tw, nil)
	Sw := mat.NewDense(d.n, sw, nil)
	trendVals := make([]float64, d.n)
	seasVals := make([]float64, d.n)
	resid := make([]float64, d.n)
	fitted := make([]float64, d.n)
	prev := make([]float64, d.n)

	for iter := 0; iter < opts.MaxIter; iter++ {
		// Trend step: y_i ~ (1 + s_i) * trendRow_i . a
		for i := 0; i < d.n; i++ {
			f := 1 + seasVals[i]
			for j := 0; j < tw; j++ {
				Tw.Set(i, j, T.At(i, j)*f)
			}
		}
		trendCoef, err = ridgeSolve(Tw, y, trendPen)
		if err != nil {
			return nil, nil, &ModelFitError{Reason: err.Error(), Iterations: iter}
		}
		for i := 0; i < d.n; i++ {
			v := 0.0
			for j := 0; j < tw; j++ {
				v += T.At(i, j) * trendCoef[j]
			}
			trendVals[i] = v
		}

		// Seasonal step: y_i - trend_i ~ trend_i * seasonalRow_i . g
		for i := 0; i < d.n; i++ {
			for j := 0; j < sw; j++ {
				Sw.Set(i, j, S.At(i, j)*trendVals[i])
			}
			resid[i] = y[i] - trendVals[i]
		}
		seasCoef, err = ridgeSolve(Sw, resid, seasPen)
		if err != nil {
			return nil, nil, &ModelFitError{Reason: err.Error(), Iterations: iter}
		}
		for i := 0; i < d.n; i++ {
			v := 0.0
			for j := 0; j < sw; j++ {
				v += S.At(i, j) * seasCoef[j]
			}
			seasVals[i] = v
		}

		copy(fitted, seasVals)
		floats.AddConst(1, fitted)
		floats.Mul(fitted, trendVals)

		if iter > 0 && floats.Distance(fitted, prev, math.Inf(1)) < opts.Tolerance {
			return trendCoef, seasCoef, nil
		}
		copy(prev, fitted)
	}

	return nil, nil, &ModelFitError{
		Reason:     "multiplicative decomposition did not converge",
		Iterations: opts.MaxIter,
	}
}

// ridgeSolve solves (X'X + diag(penalties)) b = X'y by Cholesky
// factorization of the penalized normal equations
func ridgeSolve(X *mat.Dense, y, penalties []float64) ([]float64, error) {
	n, p := X.Dims()

	var xtx mat.Dense
	xtx.Mul(X.T(), X)

	sym := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			v := xtx.At(i, j)
			if i == j {
				v += penalties[i]
			}
			sym.SetSym(i, j, v)
		}
	}

	var xty mat.VecDense
	xty.MulVec(X.T(), mat.NewVecDense(n, y))

	var chol mat.Cholesky
	if !chol.Factorize(sym) {
		return nil, fmt.Errorf("normal equations are not positive definite")
	}

	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &xty); err != nil {
		return nil, fmt.Errorf("solving normal equations: %w", err)
	}

	coef := make([]float64, p)
	for i := range coef {
		coef[i] = beta.AtVec(i)
	}
	return coef, nil
}

// zScore maps an interval coverage level to its normal quantile
func zScore(confidence float64) float64 {
	switch {
	case confidence >= 0.99:
		return 2.576
	case confidence >= 0.95:
		return 1.96
	case confidence >= 0.90:
		return 1.645
	default:
		return 1.96
	}
}
