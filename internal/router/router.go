package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/demandcast/demandcast/internal/cache"
	"github.com/demandcast/demandcast/internal/config"
	"github.com/demandcast/demandcast/internal/forecast"
	"github.com/demandcast/demandcast/internal/handlers"
	"github.com/demandcast/demandcast/internal/logging"
	"github.com/demandcast/demandcast/internal/middleware"
	"github.com/demandcast/demandcast/internal/params"
	"github.com/demandcast/demandcast/internal/queue"
	"github.com/demandcast/demandcast/internal/services"
	"github.com/demandcast/demandcast/internal/store"
	"github.com/demandcast/demandcast/internal/tuning"
)

// Setup configures all routes and middlewares
func Setup(app *fiber.App, logger *logging.Logger, st store.Store, ps params.Store,
	c cache.Cache, engine *forecast.Engine, pool *services.FitPool,
	manager *tuning.Manager, q queue.Publisher, cfg config.Config,
) *handlers.Handler {
	// Create handler instance
	h := handlers.New(logger, st, ps, c, engine, pool, manager, q)

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger))

	// Health check (no auth required)
	app.Get("/health", h.Health)

	// API key authentication middleware
	authMiddleware := middleware.APIKeyAuth(logger, cfg.Auth)

	// API v1 routes (protected by API key)
	v1 := app.Group("/v1", authMiddleware)

	// Forecast Routes
	v1.Get("/products/:product_id/forecast", h.Forecast)
	v1.Post("/forecast", h.ForecastPost)
	v1.Get("/products/:product_id/stock-limits", h.StockLimits)

	// Ingestion Routes
	v1.Post("/transactions", h.RecordTransaction)
	v1.Post("/transactions/batch", h.RecordTransactionsBatch)

	// Catalog Routes
	v1.Get("/categories", h.Categories)

	// Hyperparameter Routes
	v1.Get("/parameters", h.ListParameters)
	v1.Get("/parameters/:category", h.GetParameters)
	v1.Put("/parameters/:category", h.PutParameters)
	v1.Delete("/parameters/:category", h.DeleteParameters)

	// Tuning Routes
	v1.Post("/tuning/jobs", h.SubmitTuningJob)
	v1.Get("/tuning/jobs", h.ListTuningJobs)
	v1.Get("/tuning/jobs/:job_id", h.GetTuningJob)

	// Admin Routes (protected by API key)
	admin := app.Group("/admin", authMiddleware)
	admin.Post("/cache/purge", h.CachePurge)
	admin.Get("/cache/stats", h.CacheStats)

	// 404 handler
	app.Use(h.NotFound)

	return h
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, st store.Store, ps params.Store, c cache.Cache,
	engine *forecast.Engine, pool *services.FitPool, manager *tuning.Manager,
	q queue.Publisher, cfg config.Config,
) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "DemandCast API",
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, st, ps, c, engine, pool, manager, q, cfg)

	return app
}
