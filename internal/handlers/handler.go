package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/demandcast/demandcast/internal/cache"
	"github.com/demandcast/demandcast/internal/forecast"
	"github.com/demandcast/demandcast/internal/logging"
	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/params"
	"github.com/demandcast/demandcast/internal/queue"
	"github.com/demandcast/demandcast/internal/services"
	"github.com/demandcast/demandcast/internal/store"
	"github.com/demandcast/demandcast/internal/tuning"
)

// Handler contains all HTTP handlers
type Handler struct {
	logger   *logging.Logger
	store    store.Store
	params   params.Store
	resolver *params.Resolver
	cache    cache.Cache
	tuning   *tuning.Manager
	// Services
	forecastService    *services.ForecastService
	transactionService *services.TransactionService
	stockService       *services.StockService
}

// New creates a new handler instance
func New(logger *logging.Logger, st store.Store, ps params.Store, c cache.Cache,
	engine *forecast.Engine, pool *services.FitPool, manager *tuning.Manager,
	publisher queue.Publisher,
) *Handler {
	// Create services
	forecastService := services.NewForecastService(logger, engine, pool)
	transactionService := services.NewTransactionService(logger, publisher)
	stockService := services.NewStockService(logger, forecastService)

	return &Handler{
		logger:             logger,
		store:              st,
		params:             ps,
		resolver:           params.NewResolver(ps, logger),
		cache:              c,
		tuning:             manager,
		forecastService:    forecastService,
		transactionService: transactionService,
		stockService:       stockService,
	}
}

// statusForCode maps service error codes to HTTP status codes
func statusForCode(code string) int {
	switch code {
	case services.CodeInvalidRequest, services.CodeInvalidPeriods, services.CodeUnsupportedRegion:
		return fiber.StatusBadRequest
	case services.CodeNotFound:
		return fiber.StatusNotFound
	case services.CodeTuningConflict:
		return fiber.StatusConflict
	case services.CodeInsufficientHistory:
		return fiber.StatusUnprocessableEntity
	case services.CodeIngestFailed:
		return fiber.StatusBadGateway
	case services.CodePoolSaturated:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// serviceError writes any service or domain error as a JSON error response
func (h *Handler) serviceError(c *fiber.Ctx, err error) error {
	svcErr := services.ToServiceError(err)
	return c.Status(statusForCode(svcErr.Code)).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    svcErr.Code,
			Message: svcErr.Message,
			Details: svcErr.Details,
		},
	})
}

// invalidRequest writes a 400 response without going through the service layer
func (h *Handler) invalidRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    services.CodeInvalidRequest,
			Message: message,
		},
	})
}
