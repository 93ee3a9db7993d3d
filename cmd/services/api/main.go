package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/demandcast/demandcast/internal/cache"
	"github.com/demandcast/demandcast/internal/config"
	"github.com/demandcast/demandcast/internal/forecast"
	"github.com/demandcast/demandcast/internal/ingest"
	"github.com/demandcast/demandcast/internal/logging"
	"github.com/demandcast/demandcast/internal/params"
	"github.com/demandcast/demandcast/internal/queue"
	"github.com/demandcast/demandcast/internal/router"
	"github.com/demandcast/demandcast/internal/services"
	"github.com/demandcast/demandcast/internal/store"
	"github.com/demandcast/demandcast/internal/tuning"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("API service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	// Create context for dependency setup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to transaction store
	logger.Info("Connecting to transaction store", "type", cfg.Store.Type)
	st, err := store.NewStore(ctx, cfg.Store)
	if err != nil {
		logger.Fatal("Failed to connect to transaction store", "error", err)
	}
	defer func() { _ = st.Close() }()

	// Connect to parameter store and seed the default set
	logger.Info("Connecting to parameter store", "type", cfg.Params.Type)
	ps, err := params.NewStore(cfg.Params)
	if err != nil {
		logger.Fatal("Failed to connect to parameter store", "error", err)
	}
	defer func() { _ = ps.Close() }()

	if err := params.EnsureDefault(ctx, ps); err != nil {
		logger.Fatal("Failed to seed default parameters", "error", err)
	}

	// Connect to Queue (configurable backend)
	logger.Info("Connecting to Queue", "type", cfg.Queue.Type, "url", cfg.Queue.URL)
	queueClient, err := queue.NewQueue(cfg.Queue)
	if err != nil {
		logger.Fatal("Failed to connect to Queue", "error", err)
	}
	defer func() { _ = queueClient.Close() }()
	logger.Info("Queue connection established")

	// Open the forecast result cache
	var resultCache cache.Cache
	if cfg.CacheEnabled() {
		resultCache, err = cache.New(cfg.Cache, logger)
		if err != nil {
			logger.Fatal("Failed to open forecast cache", "error", err)
		}
		defer func() { _ = resultCache.Close() }()
	} else {
		logger.Warn("Forecast result cache DISABLED - every request refits the model")
	}

	// Build the forecasting engine from the configured policy
	opts := engineOptions(cfg.Forecast)
	engine := forecast.NewEngine(
		services.StoreTransactionSource{Store: st},
		params.NewResolver(ps, logger),
		resultCache,
		opts,
		logger,
	)

	// Start the fit pool that bounds concurrent model fits
	pool := services.NewFitPool(cfg.Forecast.Workers, cfg.Forecast.QueueDepth, logger)
	pool.Start()

	// Start the ingest consumer so recorded transactions land in the store
	consumer := ingest.NewConsumer(queueClient, st, resultCache, logger)
	if err := consumer.Start(); err != nil {
		logger.Fatal("Failed to start ingest consumer", "error", err)
	}

	// Start the tuning manager
	manager := tuning.NewManager(st, ps, tuning.Config{
		Workers: cfg.Tuning.Workers,
		Folds:   cfg.Tuning.Folds,
		Holdout: cfg.Forecast.Holdout,
		Region:  cfg.Forecast.Region,
		Fit:     opts.Fit,
	}, logger)
	manager.Start()

	// Log authentication status
	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	// Initialize router
	app := router.New(logger, st, ps, resultCache, engine, pool, manager, queueClient, *cfg)

	// Start server in goroutine
	go func() {
		addr := cfg.GetServerAddress()
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with 10 second timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Stop background workers after the listener drains
	manager.Stop()
	pool.Stop()
	if err := consumer.Stop(); err != nil {
		logger.Error("Failed to stop ingest consumer", "error", err)
	}

	logger.Info("Server exited")
}

// engineOptions maps the forecast section of the config onto engine policy.
// Fit knobs the config does not expose keep their defaults.
func engineOptions(fc config.ForecastConfig) forecast.Options {
	opts := forecast.DefaultOptions()
	opts.AllowedPeriods = fc.AllowedPeriods
	opts.DefaultPeriods = fc.AllowedPeriods[0]
	opts.DefaultGranularity = forecast.Granularity(fc.Granularity)
	opts.Holdout = fc.Holdout
	opts.Region = fc.Region
	opts.Fit.MaxChangepoints = fc.MaxChangepoints
	opts.Fit.HolidayWindow = fc.HolidayWindow
	opts.Fit.IntervalWidth = fc.IntervalWidth
	return opts
}
