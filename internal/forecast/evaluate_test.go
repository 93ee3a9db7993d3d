package forecast

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestEvaluateFlatSeries(t *testing.T) {
	series := flatSeries(24, 100)

	eval, err := Evaluate(series, Monthly, DefaultHyperparameters(), nil, 3, DefaultFitOptions())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if !eval.Defined {
		t.Fatal("MAPE should be defined for non-zero actuals")
	}
	if eval.MAPE < 0 {
		t.Errorf("MAPE = %v, must be non-negative", eval.MAPE)
	}
	if eval.MAPE > 2 {
		t.Errorf("MAPE = %v, want near zero for a flat series", eval.MAPE)
	}
	if eval.Excluded != 0 {
		t.Errorf("Excluded = %d, want 0", eval.Excluded)
	}
	if eval.Holdout != 3 {
		t.Errorf("Holdout = %d, want 3", eval.Holdout)
	}
}

func TestEvaluateHoldoutBounds(t *testing.T) {
	series := flatSeries(12, 100)

	tests := []struct {
		name    string
		holdout int
	}{
		{"zero holdout", 0},
		{"negative holdout", -1},
		{"holdout equals length", 12},
		{"holdout exceeds length", 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(series, Monthly, DefaultHyperparameters(), nil, tt.holdout, DefaultFitOptions())
			var insufficient *InsufficientHistoryError
			if !errors.As(err, &insufficient) {
				t.Errorf("expected InsufficientHistoryError, got %v", err)
			}
		})
	}
}

func TestEvaluateZeroActualsExcluded(t *testing.T) {
	// Last three buckets: 0, non-zero, 0. Only the middle one scores.
	series := monthlySeries(24, func(i int) float64 {
		switch i {
		case 21, 23:
			return 0
		default:
			return 100 + 20*math.Sin(2*math.Pi*float64(i)/12)
		}
	})

	eval, err := Evaluate(series, Monthly, DefaultHyperparameters(), nil, 3, DefaultFitOptions())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if !eval.Defined {
		t.Fatal("one non-zero actual should keep MAPE defined")
	}
	if eval.Excluded != 2 {
		t.Errorf("Excluded = %d, want 2", eval.Excluded)
	}
	if eval.RMSE <= 0 {
		t.Errorf("RMSE = %v, want positive (zero actuals still count)", eval.RMSE)
	}
}

func TestEvaluateAllZeroActualsUndefined(t *testing.T) {
	series := monthlySeries(24, func(i int) float64 {
		if i >= 21 {
			return 0
		}
		return 100
	})

	eval, err := Evaluate(series, Monthly, DefaultHyperparameters(), nil, 3, DefaultFitOptions())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if eval.Defined {
		t.Error("MAPE must be undefined when every holdout actual is zero")
	}
	if !math.IsNaN(eval.MAPE) {
		t.Errorf("MAPE = %v, want NaN (not coerced to 0)", eval.MAPE)
	}
	if eval.Excluded != 3 {
		t.Errorf("Excluded = %d, want 3", eval.Excluded)
	}
}

func TestEvaluationJSONRoundTrip(t *testing.T) {
	t.Run("defined", func(t *testing.T) {
		in := Evaluation{MAPE: 12.5, Defined: true, Excluded: 1, RMSE: 4.2, Holdout: 3}
		data, err := json.Marshal(in)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}

		var out Evaluation
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if out != in {
			t.Errorf("round trip changed value: %+v vs %+v", out, in)
		}
	})

	t.Run("undefined serializes as null", func(t *testing.T) {
		in := Evaluation{MAPE: math.NaN(), Defined: false, Excluded: 3, RMSE: 1, Holdout: 3}
		data, err := json.Marshal(in)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		if !strings.Contains(string(data), `"mape":null`) {
			t.Errorf("expected null mape, got %s", data)
		}

		var out Evaluation
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if out.Defined || !math.IsNaN(out.MAPE) {
			t.Errorf("expected undefined NaN MAPE after round trip, got %+v", out)
		}
	})
}
