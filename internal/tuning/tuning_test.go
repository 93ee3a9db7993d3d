package tuning

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demandcast/demandcast/internal/forecast"
	"github.com/demandcast/demandcast/internal/logging"
	"github.com/demandcast/demandcast/internal/params"
	"github.com/demandcast/demandcast/internal/store"
)

func newTestManager(t *testing.T, st store.Store, ps params.Store, cfg Config) *Manager {
	t.Helper()

	m := NewManager(st, ps, cfg, logging.NewDevelopment())
	m.Start()
	t.Cleanup(m.Stop)
	return m
}

// seedSeasonal writes one transaction per month: an upward trend with a
// yearly sine swing, so the backtest has real structure to score against
func seedSeasonal(t *testing.T, st store.Store, productID, category string, months int) {
	t.Helper()

	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	txns := make([]store.Transaction, 0, months)
	for i := 0; i < months; i++ {
		qty := 100 + 2*float64(i) + 20*math.Sin(2*math.Pi*float64(i)/12)
		txns = append(txns, store.Transaction{
			ProductID: productID,
			Category:  category,
			Date:      start.AddDate(0, i, 0),
			Quantity:  qty,
		})
	}
	require.NoError(t, st.Append(context.Background(), txns))
}

func waitForFinished(t *testing.T, m *Manager, jobID string) *Job {
	t.Helper()

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := m.Get(jobID)
		require.True(t, ok, "job %s disappeared", jobID)
		if job.Status == StatusCompleted || job.Status == StatusFailed {
			return job
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish in time", jobID)
	return nil
}

func TestGrid(t *testing.T) {
	cells := Grid("beverages")

	assert.Len(t, cells, 72)

	// First cell is the lowest corner of every dimension
	assert.Equal(t, 0.01, cells[0].TrendFlexibility)
	assert.Equal(t, 0.1, cells[0].SeasonalityStrength)
	assert.Equal(t, 0.1, cells[0].HolidayStrength)
	assert.Equal(t, forecast.ModeAdditive, cells[0].SeasonalityMode)

	// Mode is the innermost dimension
	assert.Equal(t, forecast.ModeMultiplicative, cells[1].SeasonalityMode)
	assert.Equal(t, cells[0].HolidayStrength, cells[1].HolidayStrength)

	for _, cell := range cells {
		assert.Equal(t, "beverages", cell.Category)
		assert.NoError(t, cell.Validate())
	}

	// Enumeration order is stable between calls
	assert.Equal(t, cells, Grid("beverages"))
}

func TestManagerSubmitRequiresHistory(t *testing.T) {
	st := store.NewMemoryStore()
	ps := params.NewMemoryStore()
	m := NewManager(st, ps, Config{}, logging.NewDevelopment())

	// Unknown category
	_, err := m.Submit(context.Background(), "beverages", forecast.Monthly)
	var insufficient *forecast.InsufficientHistoryError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 0, insufficient.Got)

	// Category exists but is far too short
	seedSeasonal(t, st, "p1", "beverages", 4)
	_, err = m.Submit(context.Background(), "beverages", forecast.Monthly)
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 4, insufficient.Got)
}

func TestManagerSubmitValidation(t *testing.T) {
	st := store.NewMemoryStore()
	m := NewManager(st, params.NewMemoryStore(), Config{}, logging.NewDevelopment())

	_, err := m.Submit(context.Background(), "", forecast.Monthly)
	require.Error(t, err)

	_, err = m.Submit(context.Background(), "beverages", "hourly")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "granularity")
}

func TestManagerRunsJobToCompletion(t *testing.T) {
	st := store.NewMemoryStore()
	ps := params.NewMemoryStore()
	seedSeasonal(t, st, "p1", "beverages", 24)

	m := newTestManager(t, st, ps, Config{Workers: 1})

	job, err := m.Submit(context.Background(), "beverages", forecast.Monthly)
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "beverages", job.Category)
	assert.True(t, job.Active())

	done := waitForFinished(t, m, job.ID)
	require.Equal(t, StatusCompleted, done.Status, "job error: %s", done.Error)
	assert.Equal(t, 100, done.Progress)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.FinishedAt)

	require.NotNil(t, done.Best)
	assert.Equal(t, "beverages", done.Best.Category)
	assert.NoError(t, done.Best.Validate())
	assert.False(t, math.IsNaN(done.BestMAPE))
	assert.GreaterOrEqual(t, done.BestMAPE, 0.0)

	// The winner was persisted where the forecast path resolves from
	stored, err := ps.Get(context.Background(), "beverages")
	require.NoError(t, err)
	assert.Equal(t, *done.Best, stored)

	// Finished jobs free the category for resubmission
	again, err := m.Submit(context.Background(), "beverages", forecast.Monthly)
	require.NoError(t, err)
	assert.NotEqual(t, job.ID, again.ID)
	waitForFinished(t, m, again.ID)
}

func TestManagerRejectsSecondActiveJob(t *testing.T) {
	st := store.NewMemoryStore()
	seedSeasonal(t, st, "p1", "beverages", 24)
	seedSeasonal(t, st, "p2", "snacks", 24)

	// Workers never started, so submitted jobs stay pending
	m := NewManager(st, params.NewMemoryStore(), Config{}, logging.NewDevelopment())

	first, err := m.Submit(context.Background(), "beverages", forecast.Monthly)
	require.NoError(t, err)

	_, err = m.Submit(context.Background(), "beverages", forecast.Monthly)
	var conflict *TuningConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "beverages", conflict.Category)
	assert.Equal(t, first.ID, conflict.JobID)

	// A different category is unaffected
	_, err = m.Submit(context.Background(), "snacks", forecast.Monthly)
	require.NoError(t, err)
}

func TestManagerFailsWhenEveryFoldIsUndefined(t *testing.T) {
	st := store.NewMemoryStore()
	ps := params.NewMemoryStore()

	// Enough non-zero months to qualify, but the last five are all zero,
	// so every rolling-origin holdout contains only zeros and MAPE is
	// undefined in every cell.
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	txns := make([]store.Transaction, 0, 20)
	for i := 0; i < 20; i++ {
		qty := 50.0 + float64(i)
		if i >= 15 {
			qty = 0
		}
		txns = append(txns, store.Transaction{
			ProductID: "p1",
			Category:  "beverages",
			Date:      start.AddDate(0, i, 0),
			Quantity:  qty,
		})
	}
	require.NoError(t, st.Append(context.Background(), txns))

	m := newTestManager(t, st, ps, Config{Workers: 1})

	job, err := m.Submit(context.Background(), "beverages", forecast.Monthly)
	require.NoError(t, err)

	done := waitForFinished(t, m, job.ID)
	require.Equal(t, StatusFailed, done.Status)
	assert.Contains(t, done.Error, "no grid cell")
	assert.Nil(t, done.Best)

	// Nothing was persisted for the category
	_, err = ps.Get(context.Background(), "beverages")
	assert.ErrorIs(t, err, params.ErrNotFound)
}

type failingSink struct {
	err error
}

func (s *failingSink) Put(ctx context.Context, set forecast.HyperparameterSet) error {
	return s.err
}

func TestManagerFailsWhenPersistFails(t *testing.T) {
	st := store.NewMemoryStore()
	seedSeasonal(t, st, "p1", "beverages", 24)

	sink := &failingSink{err: fmt.Errorf("etcd unavailable")}
	m := NewManager(st, sink, Config{Workers: 1}, logging.NewDevelopment())
	m.Start()
	t.Cleanup(m.Stop)

	job, err := m.Submit(context.Background(), "beverages", forecast.Monthly)
	require.NoError(t, err)

	done := waitForFinished(t, m, job.ID)
	require.Equal(t, StatusFailed, done.Status)
	assert.Contains(t, done.Error, "persisting tuned parameters")

	// The failed job released its category slot
	_, err = m.Submit(context.Background(), "beverages", forecast.Monthly)
	require.NoError(t, err)
}

func TestManagerGetAndList(t *testing.T) {
	st := store.NewMemoryStore()
	seedSeasonal(t, st, "p1", "beverages", 24)
	seedSeasonal(t, st, "p2", "snacks", 24)

	m := NewManager(st, params.NewMemoryStore(), Config{}, logging.NewDevelopment())

	_, ok := m.Get("no-such-job")
	assert.False(t, ok)
	assert.Empty(t, m.List())

	first, err := m.Submit(context.Background(), "beverages", forecast.Monthly)
	require.NoError(t, err)
	second, err := m.Submit(context.Background(), "snacks", forecast.Monthly)
	require.NoError(t, err)

	got, ok := m.Get(first.ID)
	require.True(t, ok)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, StatusPending, got.Status)

	// Snapshots are detached from the live record
	got.Status = StatusFailed
	again, ok := m.Get(first.ID)
	require.True(t, ok)
	assert.Equal(t, StatusPending, again.Status)

	jobs := m.List()
	require.Len(t, jobs, 2)
	ids := []string{jobs[0].ID, jobs[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
	assert.False(t, jobs[0].CreatedAt.Before(jobs[1].CreatedAt))
}

func TestManagerDefaultsGranularity(t *testing.T) {
	st := store.NewMemoryStore()
	seedSeasonal(t, st, "p1", "beverages", 24)

	m := NewManager(st, params.NewMemoryStore(), Config{}, logging.NewDevelopment())

	job, err := m.Submit(context.Background(), "beverages", "")
	require.NoError(t, err)
	assert.Equal(t, forecast.Monthly, job.Granularity)
}
