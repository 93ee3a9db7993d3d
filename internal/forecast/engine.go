package forecast

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/demandcast/demandcast/internal/logging"
)

// TransactionSource supplies a product's raw transaction history
type TransactionSource interface {
	ListByProduct(ctx context.Context, productID string) ([]Transaction, error)
}

// ParameterSource resolves the hyperparameter set for a category,
// falling back to the system default on a category miss
type ParameterSource interface {
	Resolve(ctx context.Context, category string) (HyperparameterSet, error)
}

// CacheKey identifies one cached forecast result. The fingerprint covers
// the aggregated series and the resolved hyperparameters, so entries for
// superseded training data become unreachable on their own.
type CacheKey struct {
	ProductID   string
	Category    string
	Granularity Granularity
	Periods     int
	Fingerprint string
}

// ResultCache stores completed forecast results. Implementations treat
// failures as misses; caching is an optimization, never a correctness
// requirement.
type ResultCache interface {
	Get(ctx context.Context, key CacheKey) (*Result, bool)
	Set(ctx context.Context, key CacheKey, result *Result)
}

// Point is one bucket of the assembled forecast payload. Historical
// buckets carry the model's fitted value rather than the raw actual, so
// callers can judge fit quality against their own records.
type Point struct {
	Date       time.Time `json:"date"`
	Yhat       float64   `json:"yhat"`
	YhatLower  float64   `json:"yhat_lower"`
	YhatUpper  float64   `json:"yhat_upper"`
	Historical bool      `json:"is_historical"`
}

// Result is the complete outcome of one forecast request, immutable
// after construction
type Result struct {
	Points      []Point     `json:"points"`
	Evaluation  Evaluation  `json:"evaluation"`
	Periods     int         `json:"periods"`
	Granularity Granularity `json:"granularity"`
}

// Request identifies what to forecast
type Request struct {
	ProductID   string
	Category    string
	Periods     int
	Granularity Granularity
	Region      string
}

// Options holds engine-wide forecasting policy
type Options struct {
	AllowedPeriods     []int
	DefaultPeriods     int
	DefaultGranularity Granularity
	Holdout            int
	Region             string
	Fit                FitOptions
}

// DefaultOptions returns the default engine policy
func DefaultOptions() Options {
	return Options{
		AllowedPeriods:     []int{3, 6},
		DefaultPeriods:     3,
		DefaultGranularity: Monthly,
		Holdout:            3,
		Region:             "id",
		Fit:                DefaultFitOptions(),
	}
}

// Engine composes aggregation, parameter resolution, holiday lookup,
// fitting, and backtesting into a single request cycle
type Engine struct {
	transactions TransactionSource
	params       ParameterSource
	cache        ResultCache
	opts         Options
	logger       *logging.Logger
}

// NewEngine creates a forecasting engine. cache may be nil to disable
// result caching.
func NewEngine(transactions TransactionSource, params ParameterSource, cache ResultCache, opts Options, logger *logging.Logger) *Engine {
	if len(opts.AllowedPeriods) == 0 {
		opts.AllowedPeriods = DefaultOptions().AllowedPeriods
	}
	if opts.DefaultPeriods == 0 {
		opts.DefaultPeriods = opts.AllowedPeriods[0]
	}
	if opts.DefaultGranularity == "" {
		opts.DefaultGranularity = Monthly
	}
	if opts.Holdout == 0 {
		opts.Holdout = DefaultOptions().Holdout
	}

	return &Engine{
		transactions: transactions,
		params:       params,
		cache:        cache,
		opts:         opts,
		logger:       logger.With(logging.String("component", "forecast_engine")),
	}
}

// Forecast runs one end-to-end forecast request. Every failure except an
// unknown holiday region aborts the request; an unknown region degrades
// to fitting without holiday effects.
func (e *Engine) Forecast(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	periods := req.Periods
	if periods == 0 {
		periods = e.opts.DefaultPeriods
	}
	if !e.periodsAllowed(periods) {
		return nil, &InvalidPeriodsError{Periods: periods, Allowed: e.opts.AllowedPeriods}
	}

	granularity := req.Granularity
	if granularity == "" {
		granularity = e.opts.DefaultGranularity
	}
	if !granularity.Valid() {
		return nil, fmt.Errorf("unknown granularity: %q", granularity)
	}

	transactions, err := e.transactions.ListByProduct(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("loading transactions for %s: %w", req.ProductID, err)
	}

	series, err := Aggregate(transactions, req.ProductID, granularity)
	if err != nil {
		return nil, err
	}

	params, err := e.params.Resolve(ctx, req.Category)
	if err != nil {
		return nil, err
	}

	var key CacheKey
	if e.cache != nil {
		key = CacheKey{
			ProductID:   req.ProductID,
			Category:    req.Category,
			Granularity: granularity,
			Periods:     periods,
			Fingerprint: Fingerprint(series, params),
		}
		if cached, ok := e.cache.Get(ctx, key); ok {
			e.logger.Debug("forecast cache hit",
				"product_id", req.ProductID,
				"category", req.Category,
			)
			return cached, nil
		}
	}

	holidays := e.resolveHolidays(req, series, granularity, periods)

	model, err := Fit(series, granularity, params, holidays, e.opts.Fit)
	if err != nil {
		return nil, err
	}

	eval, err := Evaluate(series, granularity, params, holidays, e.opts.Holdout, e.opts.Fit)
	if err != nil {
		return nil, err
	}

	historical := model.Predict(series.Buckets())
	future := model.Predict(model.FutureDates(periods))

	points := make([]Point, 0, len(historical)+len(future))
	for _, p := range historical {
		points = append(points, Point{Date: p.Date, Yhat: p.Yhat, YhatLower: p.Lower, YhatUpper: p.Upper, Historical: true})
	}
	for _, p := range future {
		points = append(points, Point{Date: p.Date, Yhat: p.Yhat, YhatLower: p.Lower, YhatUpper: p.Upper})
	}

	result := &Result{
		Points:      points,
		Evaluation:  eval,
		Periods:     periods,
		Granularity: granularity,
	}

	if e.cache != nil {
		e.cache.Set(ctx, key, result)
	}

	e.logger.Info("forecast computed",
		"product_id", req.ProductID,
		"category", req.Category,
		"granularity", string(granularity),
		"periods", periods,
		"buckets", len(series),
		"mape_defined", eval.Defined,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}

// resolveHolidays looks up the holiday set spanning the training range
// plus the forecast horizon, degrading to none for unknown regions
func (e *Engine) resolveHolidays(req Request, series Series, granularity Granularity, periods int) []HolidayEvent {
	region := req.Region
	if region == "" {
		region = e.opts.Region
	}

	lastFuture := granularity.AddBuckets(series.End(), periods)
	holidays, err := HolidaysFor(region, series.Start().Year(), lastFuture.Year())
	if err != nil {
		var unsupported *UnsupportedRegionError
		if errors.As(err, &unsupported) {
			e.logger.Warn("no holiday calendar for region, fitting without holiday effects",
				"region", region,
			)
			return nil
		}
		e.logger.Warn("holiday lookup failed, fitting without holiday effects",
			"region", region,
			"error", err,
		)
		return nil
	}
	return holidays
}

func (e *Engine) periodsAllowed(periods int) bool {
	for _, p := range e.opts.AllowedPeriods {
		if p == periods {
			return true
		}
	}
	return false
}

// Fingerprint digests the aggregated series and resolved hyperparameters
// into a stable hex key component. Any new transaction for the product
// changes the aggregated series and therefore the fingerprint.
func Fingerprint(series Series, params HyperparameterSet) string {
	h := sha256.New()
	buf := make([]byte, 8)
	for _, p := range series {
		binary.BigEndian.PutUint64(buf, uint64(p.Bucket.Unix()))
		h.Write(buf)
		binary.BigEndian.PutUint64(buf, math.Float64bits(p.Value))
		h.Write(buf)
	}
	fmt.Fprintf(h, "%s|%g|%g|%g|%s",
		params.Category,
		params.TrendFlexibility,
		params.SeasonalityStrength,
		params.HolidayStrength,
		params.SeasonalityMode,
	)
	return hex.EncodeToString(h.Sum(nil))
}
