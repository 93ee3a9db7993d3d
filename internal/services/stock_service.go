package services

import (
	"context"
	"fmt"
	"time"

	"github.com/demandcast/demandcast/internal/forecast"
	"github.com/demandcast/demandcast/internal/logging"
)

// StockLimits is reorder advice for one product, derived from the forecast
// interval of the bucket covering a point in time.
type StockLimits struct {
	ProductID  string    `json:"product_id"`
	BucketDate time.Time `json:"bucket_date"`
	MinStock   float64   `json:"min_stock"`
	MaxStock   float64   `json:"max_stock"`
}

// StockLimitsFor derives stock limits from the forecast bucket containing
// now. Bounds are clipped at zero and swapped if the interval is inverted.
func StockLimitsFor(res *forecast.Result, now time.Time) (StockLimits, error) {
	bucket := res.Granularity.BucketStart(now)

	for _, p := range res.Points {
		if !p.Date.Equal(bucket) {
			continue
		}

		lower := p.YhatLower
		if lower < 0 {
			lower = 0
		}
		upper := p.YhatUpper
		if upper < 0 {
			upper = 0
		}
		if lower > upper {
			lower, upper = upper, lower
		}

		return StockLimits{BucketDate: p.Date, MinStock: lower, MaxStock: upper}, nil
	}

	return StockLimits{}, fmt.Errorf("forecast has no bucket covering %s", bucket.Format("2006-01-02"))
}

// StockService derives stock limits from forecasts
type StockService struct {
	logger    *logging.Logger
	forecasts *ForecastService
	now       func() time.Time
}

// NewStockService creates a new StockService
func NewStockService(logger *logging.Logger, forecasts *ForecastService) *StockService {
	return &StockService{
		logger:    logger,
		forecasts: forecasts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// StockLimits forecasts the product and reads the limits off the current
// bucket. A forecast whose range does not cover the current bucket maps to
// NOT_FOUND: the product's history ended too long ago for stock advice.
func (s *StockService) StockLimits(ctx context.Context, req *ForecastRequest) (*StockLimits, error) {
	result, err := s.forecasts.Forecast(ctx, req)
	if err != nil {
		return nil, err
	}

	limits, err := StockLimitsFor(result, s.now())
	if err != nil {
		return nil, NewServiceError(CodeNotFound, err.Error())
	}
	limits.ProductID = req.ProductID

	s.logger.Debug("stock limits derived",
		"product_id", req.ProductID,
		"bucket", limits.BucketDate.Format("2006-01-02"),
		"min_stock", limits.MinStock,
		"max_stock", limits.MaxStock)

	return &limits, nil
}
