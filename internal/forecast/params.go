package forecast

import "fmt"

// SeasonalityMode selects how seasonal and holiday effects combine with
// the trend
type SeasonalityMode string

const (
	// ModeAdditive models value = trend + seasonal + holiday
	ModeAdditive SeasonalityMode = "additive"

	// ModeMultiplicative models value = trend * (1 + seasonal + holiday)
	ModeMultiplicative SeasonalityMode = "multiplicative"
)

// DefaultCategory is the category key of the system-wide fallback set
const DefaultCategory = "default"

// HyperparameterSet controls fitting behavior for one product category.
// Strength values scale the inverse regularization penalty: higher means
// the corresponding component bends more readily to the data.
type HyperparameterSet struct {
	Category            string          `json:"category"`
	TrendFlexibility    float64         `json:"trend_flexibility"`
	SeasonalityStrength float64         `json:"seasonality_strength"`
	HolidayStrength     float64         `json:"holiday_strength"`
	SeasonalityMode     SeasonalityMode `json:"seasonality_mode"`
}

// DefaultHyperparameters returns the system default set
func DefaultHyperparameters() HyperparameterSet {
	return HyperparameterSet{
		Category:            DefaultCategory,
		TrendFlexibility:    0.05,
		SeasonalityStrength: 10.0,
		HolidayStrength:     10.0,
		SeasonalityMode:     ModeAdditive,
	}
}

// Validate validates the hyperparameter set
func (h *HyperparameterSet) Validate() error {
	if h.Category == "" {
		return fmt.Errorf("category cannot be empty")
	}

	if h.TrendFlexibility <= 0 {
		return fmt.Errorf("trend_flexibility must be positive, got %g", h.TrendFlexibility)
	}

	if h.SeasonalityStrength <= 0 {
		return fmt.Errorf("seasonality_strength must be positive, got %g", h.SeasonalityStrength)
	}

	if h.HolidayStrength <= 0 {
		return fmt.Errorf("holiday_strength must be positive, got %g", h.HolidayStrength)
	}

	if h.SeasonalityMode != ModeAdditive && h.SeasonalityMode != ModeMultiplicative {
		return fmt.Errorf("seasonality_mode must be %q or %q, got %q", ModeAdditive, ModeMultiplicative, h.SeasonalityMode)
	}

	return nil
}
