package forecast

import (
	"encoding/json"
	"math"
)

// Evaluation is the backtested accuracy of a model configuration.
// MAPE is a percentage. Buckets whose actual value is zero carry an
// undefined percentage error and are excluded from the average; Excluded
// reports how many. When every holdout actual is zero the metric itself
// is undefined and Defined is false with MAPE NaN, never silently zero.
type Evaluation struct {
	MAPE     float64
	Defined  bool
	Excluded int
	RMSE     float64
	Holdout  int
}

// Evaluate backtests one hyperparameter set: it fits on all but the last
// holdout buckets, predicts the held-out range, and scores the prediction
// against the actuals. Holdout sizes that leave nothing to train on or
// nothing to test fail with InsufficientHistoryError.
func Evaluate(series Series, granularity Granularity, params HyperparameterSet, holidays []HolidayEvent, holdout int, opts FitOptions) (Evaluation, error) {
	n := len(series)
	if holdout < 1 {
		return Evaluation{}, &InsufficientHistoryError{Got: holdout, Need: 1, Granularity: granularity}
	}
	if holdout >= n {
		return Evaluation{}, &InsufficientHistoryError{Got: n, Need: holdout + 1, Granularity: granularity}
	}

	train, test := series[:n-holdout], series[n-holdout:]

	model, err := Fit(train, granularity, params, holidays, opts)
	if err != nil {
		return Evaluation{}, err
	}
	preds := model.Predict(test.Buckets())

	return score(test, preds, holdout), nil
}

// evaluationJSON keeps the undefined-MAPE state representable: JSON has
// no NaN, so an undefined metric serializes as null
type evaluationJSON struct {
	MAPE     *float64 `json:"mape"`
	Defined  bool     `json:"defined"`
	Excluded int      `json:"excluded"`
	RMSE     float64  `json:"rmse"`
	Holdout  int      `json:"holdout"`
}

// MarshalJSON serializes an undefined MAPE as null
func (e Evaluation) MarshalJSON() ([]byte, error) {
	out := evaluationJSON{
		Defined:  e.Defined,
		Excluded: e.Excluded,
		RMSE:     e.RMSE,
		Holdout:  e.Holdout,
	}
	if e.Defined {
		mape := e.MAPE
		out.MAPE = &mape
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores NaN for a null MAPE
func (e *Evaluation) UnmarshalJSON(data []byte) error {
	var in evaluationJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	e.Defined = in.Defined
	e.Excluded = in.Excluded
	e.RMSE = in.RMSE
	e.Holdout = in.Holdout
	if in.MAPE != nil {
		e.MAPE = *in.MAPE
	} else {
		e.MAPE = math.NaN()
	}
	return nil
}

// score computes MAPE and RMSE of predictions against held-out actuals
func score(test Series, preds []Prediction, holdout int) Evaluation {
	ev := Evaluation{Holdout: holdout}

	sumPct := 0.0
	defined := 0
	sumSq := 0.0
	for i, p := range test {
		diff := p.Value - preds[i].Yhat
		sumSq += diff * diff

		if p.Value == 0 {
			ev.Excluded++
			continue
		}
		sumPct += math.Abs(diff / p.Value)
		defined++
	}

	ev.RMSE = math.Sqrt(sumSq / float64(len(test)))
	if defined > 0 {
		ev.MAPE = sumPct / float64(defined) * 100
		ev.Defined = true
	} else {
		ev.MAPE = math.NaN()
	}
	return ev
}
