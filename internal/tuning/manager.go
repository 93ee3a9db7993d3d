package tuning

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/demandcast/demandcast/internal/forecast"
	"github.com/demandcast/demandcast/internal/logging"
	"github.com/demandcast/demandcast/internal/store"
)

// jobQueueCapacity bounds how many submitted jobs can wait for a worker
const jobQueueCapacity = 32

// TransactionSource lists the products recorded under a category and each
// product's raw history
type TransactionSource interface {
	ProductsByCategory(ctx context.Context, category string) ([]string, error)
	ListByProduct(ctx context.Context, productID string) ([]store.Transaction, error)
}

// ParameterSink persists the winning hyperparameter set
type ParameterSink interface {
	Put(ctx context.Context, set forecast.HyperparameterSet) error
}

// Config holds tuning manager configuration
type Config struct {
	// Workers is the number of concurrent tuning jobs (default: 2)
	Workers int

	// Folds is the number of rolling-origin backtest folds per grid cell
	// (default: 3)
	Folds int

	// Holdout is the number of held-out buckets per fold (default: 3)
	Holdout int

	// Region selects the holiday calendar used during backtests (default: id)
	Region string

	// Fit carries the structural fitting knobs shared with the serving path
	Fit forecast.FitOptions
}

// Manager owns the tuning job registry and the small worker pool the jobs
// run on. Jobs are in-memory only: a restart forgets history but the tuned
// parameter sets themselves live in the parameter store.
type Manager struct {
	transactions TransactionSource
	params       ParameterSink
	cfg          Config
	logger       *logging.Logger

	mu     sync.RWMutex
	jobs   map[string]*Job
	active map[string]string // category -> active job ID

	queue  chan string
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewManager creates a tuning manager. Call Start to launch the workers.
func NewManager(transactions TransactionSource, params ParameterSink, cfg Config, logger *logging.Logger) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Folds <= 0 {
		cfg.Folds = 3
	}
	if cfg.Holdout <= 0 {
		cfg.Holdout = 3
	}
	if cfg.Region == "" {
		cfg.Region = "id"
	}
	if cfg.Fit == (forecast.FitOptions{}) {
		cfg.Fit = forecast.DefaultFitOptions()
	}

	return &Manager{
		transactions: transactions,
		params:       params,
		cfg:          cfg,
		logger:       logger.With(logging.String("component", "tuning")),
		jobs:         make(map[string]*Job),
		active:       make(map[string]string),
		queue:        make(chan string, jobQueueCapacity),
		stopCh:       make(chan struct{}),
	}
}

// Start launches the job workers
func (m *Manager) Start() {
	for i := 0; i < m.cfg.Workers; i++ {
		m.wg.Add(1)
		go m.runWorker()
	}
	m.logger.Info("tuning manager started",
		"workers", m.cfg.Workers,
		"folds", m.cfg.Folds,
		"holdout", m.cfg.Holdout,
	)
}

// Stop signals the workers and waits for them to wind down. A job caught
// mid-search is marked failed; its category frees up for resubmission.
func (m *Manager) Stop() {
	close(m.stopCh)
	m.wg.Wait()
	m.logger.Info("tuning manager stopped")
}

// Submit validates that a category has tunable history, registers a job,
// and queues it for the next free worker. A second submission for a
// category whose job is still pending or running is rejected.
func (m *Manager) Submit(ctx context.Context, category string, g forecast.Granularity) (*Job, error) {
	if category == "" {
		return nil, fmt.Errorf("category is required")
	}
	if g == "" {
		g = forecast.Monthly
	}
	if !g.Valid() {
		return nil, fmt.Errorf("unknown granularity: %q", g)
	}

	m.mu.RLock()
	activeID, busy := m.active[category]
	m.mu.RUnlock()
	if busy {
		return nil, &TuningConflictError{Category: category, JobID: activeID}
	}

	// Gate on data before registering: a category where no product
	// aggregates would only fail in the worker moments later.
	if _, err := m.loadCategorySeries(ctx, category, g); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-check after the data gate dropped the lock
	if activeID, busy := m.active[category]; busy {
		return nil, &TuningConflictError{Category: category, JobID: activeID}
	}

	job := &Job{
		ID:          uuid.NewString(),
		Category:    category,
		Granularity: g,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	m.jobs[job.ID] = job
	m.active[category] = job.ID

	select {
	case m.queue <- job.ID:
	default:
		delete(m.jobs, job.ID)
		delete(m.active, category)
		return nil, fmt.Errorf("tuning queue is full (%d jobs waiting)", len(m.queue))
	}

	m.logger.Info("tuning job submitted",
		"job_id", job.ID,
		"category", category,
		"granularity", string(g),
	)

	snapshot := *job
	return &snapshot, nil
}

// Get returns a snapshot of one job
func (m *Manager) Get(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	snapshot := *job
	return &snapshot, true
}

// List returns snapshots of all jobs, newest first
func (m *Manager) List() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		snapshot := *job
		jobs = append(jobs, &snapshot)
	}

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs
}

func (m *Manager) runWorker() {
	defer m.wg.Done()

	for {
		select {
		case <-m.stopCh:
			return
		case jobID := <-m.queue:
			m.runJob(jobID)
		}
	}
}

func (m *Manager) runJob(jobID string) {
	m.mu.Lock()
	job, ok := m.jobs[jobID]
	if !ok {
		m.mu.Unlock()
		return
	}
	now := time.Now().UTC()
	job.Status = StatusRunning
	job.StartedAt = &now
	category, g := job.Category, job.Granularity
	m.mu.Unlock()

	start := time.Now()
	best, bestMAPE, err := m.search(jobID, category, g)
	if err != nil {
		m.finishJob(jobID, func(j *Job) {
			j.Status = StatusFailed
			j.Error = err.Error()
		})
		m.logger.Error("tuning job failed",
			"job_id", jobID,
			"category", category,
			"error", err,
		)
		return
	}

	m.finishJob(jobID, func(j *Job) {
		j.Status = StatusCompleted
		j.Progress = 100
		j.Best = best
		j.BestMAPE = bestMAPE
	})
	m.logger.Info("tuning job completed",
		"job_id", jobID,
		"category", category,
		"best_mape", bestMAPE,
		"trend_flexibility", best.TrendFlexibility,
		"seasonality_strength", best.SeasonalityStrength,
		"holiday_strength", best.HolidayStrength,
		"seasonality_mode", string(best.SeasonalityMode),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// finishJob applies final mutations, stamps the finish time, and releases
// the category for new submissions
func (m *Manager) finishJob(jobID string, mutate func(*Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return
	}
	mutate(job)
	now := time.Now().UTC()
	job.FinishedAt = &now
	delete(m.active, job.Category)
}

func (m *Manager) setProgress(jobID string, pct int) {
	m.mu.Lock()
	if job, ok := m.jobs[jobID]; ok {
		job.Progress = pct
	}
	m.mu.Unlock()
}

// search runs the full grid for one category and persists the winner.
// Jobs run detached from the submitting request, so storage calls use a
// background context.
func (m *Manager) search(jobID, category string, g forecast.Granularity) (*forecast.HyperparameterSet, float64, error) {
	ctx := context.Background()

	series, err := m.loadCategorySeries(ctx, category, g)
	if err != nil {
		return nil, 0, err
	}

	holidays := m.resolveHolidays(series)

	cells := Grid(category)
	best := -1
	bestScore := math.Inf(1)
	scored := 0

	for i, cell := range cells {
		select {
		case <-m.stopCh:
			return nil, 0, fmt.Errorf("tuning manager stopped before the grid finished")
		default:
		}

		score, ok := m.scoreCell(series, g, cell, holidays)
		if ok {
			scored++
			if score < bestScore {
				bestScore = score
				best = i
			}
		}

		m.setProgress(jobID, (i+1)*100/len(cells))
	}

	if best < 0 {
		return nil, 0, fmt.Errorf("no grid cell produced a defined backtest score over %d products", len(series))
	}

	m.logger.Debug("grid search scored",
		"job_id", jobID,
		"category", category,
		"cells", len(cells),
		"qualified", scored,
	)

	winner := cells[best]
	if err := m.params.Put(ctx, winner); err != nil {
		return nil, 0, fmt.Errorf("persisting tuned parameters for %s: %w", category, err)
	}

	return &winner, bestScore, nil
}

// productSeries pairs a product with its aggregated demand series
type productSeries struct {
	productID string
	series    forecast.Series
}

// loadCategorySeries aggregates every product recorded under the category
// and keeps the ones with enough history to backtest. When none qualifies
// the last aggregation error, an InsufficientHistoryError, is returned.
func (m *Manager) loadCategorySeries(ctx context.Context, category string, g forecast.Granularity) ([]productSeries, error) {
	products, err := m.transactions.ProductsByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("listing products for %s: %w", category, err)
	}
	if len(products) == 0 {
		return nil, &forecast.InsufficientHistoryError{Got: 0, Need: g.MinBuckets(), Granularity: g}
	}

	var qualified []productSeries
	var lastErr error
	for _, productID := range products {
		txns, err := m.transactions.ListByProduct(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("loading transactions for %s: %w", productID, err)
		}

		series, err := forecast.Aggregate(toForecastTransactions(txns), productID, g)
		if err != nil {
			lastErr = err
			continue
		}
		qualified = append(qualified, productSeries{productID: productID, series: series})
	}

	if len(qualified) == 0 {
		return nil, lastErr
	}
	return qualified, nil
}

// resolveHolidays covers the full historical span of the category's
// series, degrading to none when the region has no calendar
func (m *Manager) resolveHolidays(series []productSeries) []forecast.HolidayEvent {
	fromYear := series[0].series.Start().Year()
	toYear := series[0].series.End().Year()
	for _, ps := range series[1:] {
		if y := ps.series.Start().Year(); y < fromYear {
			fromYear = y
		}
		if y := ps.series.End().Year(); y > toYear {
			toYear = y
		}
	}

	holidays, err := forecast.HolidaysFor(m.cfg.Region, fromYear, toYear)
	if err != nil {
		m.logger.Warn("tuning without holiday effects",
			"region", m.cfg.Region,
			"error", err,
		)
		return nil
	}
	return holidays
}

// scoreCell backtests one candidate set over every qualified product and
// every rolling-origin fold: fold f evaluates the series truncated by f
// buckets. Folds whose MAPE is undefined are skipped, as are folds a
// truncated series is too short for. A model fit failure disqualifies the
// whole cell. The second return is false when no fold scored.
func (m *Manager) scoreCell(series []productSeries, g forecast.Granularity, cell forecast.HyperparameterSet, holidays []forecast.HolidayEvent) (float64, bool) {
	sum := 0.0
	count := 0

	for _, ps := range series {
		n := len(ps.series)
		for fold := 0; fold < m.cfg.Folds && fold < n; fold++ {
			eval, err := forecast.Evaluate(ps.series[:n-fold], g, cell, holidays, m.cfg.Holdout, m.cfg.Fit)
			if err != nil {
				var insufficient *forecast.InsufficientHistoryError
				if errors.As(err, &insufficient) {
					continue
				}
				m.logger.Debug("grid cell disqualified",
					"product_id", ps.productID,
					"trend_flexibility", cell.TrendFlexibility,
					"seasonality_strength", cell.SeasonalityStrength,
					"holiday_strength", cell.HolidayStrength,
					"seasonality_mode", string(cell.SeasonalityMode),
					"error", err,
				)
				return 0, false
			}
			if !eval.Defined {
				continue
			}
			sum += eval.MAPE
			count++
		}
	}

	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// toForecastTransactions adapts store rows to the aggregator's input type
func toForecastTransactions(txns []store.Transaction) []forecast.Transaction {
	out := make([]forecast.Transaction, len(txns))
	for i, t := range txns {
		out[i] = forecast.Transaction{Date: t.Date, ProductID: t.ProductID, Quantity: t.Quantity}
	}
	return out
}
