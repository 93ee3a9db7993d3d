package forecast

import (
	"fmt"
	"strings"
)

// InsufficientHistoryError indicates the product's transaction history is
// too short or too sparse to fit or to backtest a model
type InsufficientHistoryError struct {
	Got         int
	Need        int
	Granularity Granularity
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history: got %d usable %s buckets, need at least %d", e.Got, e.Granularity, e.Need)
}

// UnsupportedRegionError indicates no holiday calendar is registered for
// the requested region. Callers degrade to an empty holiday set rather
// than aborting the forecast.
type UnsupportedRegionError struct {
	Region string
}

func (e *UnsupportedRegionError) Error() string {
	return fmt.Sprintf("unsupported holiday region: %q", e.Region)
}

// MissingDefaultParametersError indicates the system default hyperparameter
// set is absent. This is a configuration defect, not a per-request failure.
type MissingDefaultParametersError struct {
	Category string
}

func (e *MissingDefaultParametersError) Error() string {
	return fmt.Sprintf("no default hyperparameters configured (requested category %q)", e.Category)
}

// ModelFitError indicates the optimization did not converge within its
// iteration budget
type ModelFitError struct {
	Reason     string
	Iterations int
}

func (e *ModelFitError) Error() string {
	if e.Iterations > 0 {
		return fmt.Sprintf("model fit failed after %d iterations: %s", e.Iterations, e.Reason)
	}
	return fmt.Sprintf("model fit failed: %s", e.Reason)
}

// InvalidPeriodsError indicates the caller requested a forecast horizon
// outside the allowed set
type InvalidPeriodsError struct {
	Periods int
	Allowed []int
}

func (e *InvalidPeriodsError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, p := range e.Allowed {
		allowed[i] = fmt.Sprintf("%d", p)
	}
	return fmt.Sprintf("invalid periods %d, allowed: [%s]", e.Periods, strings.Join(allowed, ", "))
}
