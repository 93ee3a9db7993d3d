// Package tuning runs background grid searches that pick the
// hyperparameter set with the best backtested accuracy for a product
// category. A job scores every grid cell against all of the category's
// products over rolling-origin folds and persists the winner to the
// parameter store, where the next forecast request picks it up.
package tuning

import (
	"fmt"
	"time"

	"github.com/demandcast/demandcast/internal/forecast"
)

// Status is a tuning job's lifecycle state
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is one grid-search run over a category. The manager owns the live
// record; everything it hands out is a detached snapshot, so readers never
// race with a running worker.
type Job struct {
	ID          string                      `json:"id"`
	Category    string                      `json:"category"`
	Granularity forecast.Granularity        `json:"granularity"`
	Status      Status                      `json:"status"`
	Progress    int                         `json:"progress"`
	Best        *forecast.HyperparameterSet `json:"best,omitempty"`
	BestMAPE    float64                     `json:"best_mape"`
	Error       string                      `json:"error,omitempty"`
	CreatedAt   time.Time                   `json:"created_at"`
	StartedAt   *time.Time                  `json:"started_at,omitempty"`
	FinishedAt  *time.Time                  `json:"finished_at,omitempty"`
}

// Active reports whether the job still holds its category's tuning slot
func (j *Job) Active() bool {
	return j.Status == StatusPending || j.Status == StatusRunning
}

// TuningConflictError rejects a submission while another job for the same
// category is still pending or running
type TuningConflictError struct {
	Category string
	JobID    string
}

func (e *TuningConflictError) Error() string {
	return fmt.Sprintf("tuning job %s already active for category %q", e.JobID, e.Category)
}

// Candidate values swept by the grid search. The defaults sit inside every
// dimension so tuning can only match or beat them.
var (
	gridTrendFlexibility    = []float64{0.01, 0.05, 0.1, 0.5}
	gridSeasonalityStrength = []float64{0.1, 1, 10}
	gridHolidayStrength     = []float64{0.1, 1, 10}
	gridModes               = []forecast.SeasonalityMode{forecast.ModeAdditive, forecast.ModeMultiplicative}
)

// Grid enumerates every candidate set for a category in a fixed order.
// Score ties break toward the earlier cell, so the ordering is part of the
// contract: a rerun over unchanged data picks the same winner.
func Grid(category string) []forecast.HyperparameterSet {
	cells := make([]forecast.HyperparameterSet, 0,
		len(gridTrendFlexibility)*len(gridSeasonalityStrength)*len(gridHolidayStrength)*len(gridModes))

	for _, tf := range gridTrendFlexibility {
		for _, ss := range gridSeasonalityStrength {
			for _, hs := range gridHolidayStrength {
				for _, mode := range gridModes {
					cells = append(cells, forecast.HyperparameterSet{
						Category:            category,
						TrendFlexibility:    tf,
						SeasonalityStrength: ss,
						HolidayStrength:     hs,
						SeasonalityMode:     mode,
					})
				}
			}
		}
	}
	return cells
}
