package services

import (
	"context"
	"time"

	"github.com/demandcast/demandcast/internal/forecast"
	"github.com/demandcast/demandcast/internal/logging"
)

// ForecastService handles forecast business logic
type ForecastService struct {
	logger *logging.Logger
	engine *forecast.Engine
	pool   *FitPool
}

// NewForecastService creates a new ForecastService
func NewForecastService(logger *logging.Logger, engine *forecast.Engine, pool *FitPool) *ForecastService {
	return &ForecastService{
		logger: logger,
		engine: engine,
		pool:   pool,
	}
}

// ForecastRequest represents a forecast request
type ForecastRequest struct {
	ProductID   string
	Category    string
	Periods     int
	Granularity forecast.Granularity
	Region      string
}

// Forecast produces the demand forecast for one product. The fit runs on
// the pool; concurrent requests for the same product coalesce onto a
// single fit and the rest are served from the warmed cache.
func (s *ForecastService) Forecast(ctx context.Context, req *ForecastRequest) (*forecast.Result, error) {
	startExec := time.Now()

	if req.ProductID == "" {
		return nil, NewServiceError(CodeInvalidRequest, "product_id is required")
	}

	result, err := s.pool.Do(ctx, req.ProductID, func(ctx context.Context) (*forecast.Result, error) {
		return s.engine.Forecast(ctx, forecast.Request{
			ProductID:   req.ProductID,
			Category:    req.Category,
			Periods:     req.Periods,
			Granularity: req.Granularity,
			Region:      req.Region,
		})
	})
	if err != nil {
		return nil, ToServiceError(err)
	}

	latency := time.Since(startExec)
	s.logger.Info("forecast completed",
		"product_id", req.ProductID,
		"category", req.Category,
		"granularity", string(result.Granularity),
		"periods", result.Periods,
		"mape_defined", result.Evaluation.Defined,
		"latency_ms", latency.Milliseconds())

	return result, nil
}
