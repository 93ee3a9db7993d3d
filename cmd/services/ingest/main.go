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
	"github.com/demandcast/demandcast/internal/ingest"
	"github.com/demandcast/demandcast/internal/logging"
	"github.com/demandcast/demandcast/internal/queue"
	"github.com/demandcast/demandcast/internal/store"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

// The ingest service is a standalone write worker. It consumes recorded
// transaction events from the queue and appends them to the transaction
// store, so API replicas can stay read-mostly while writes scale
// independently. Deployments that run the consumer inside the API process
// do not need it.
func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)

	logger.Info("Ingest service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	// 3. Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Connect to transaction store
	logger.Info("Connecting to transaction store", "type", cfg.Store.Type)
	st, err := store.NewStore(ctx, cfg.Store)
	if err != nil {
		logger.Fatal("Failed to connect to transaction store", "error", err)
	}
	defer func() { _ = st.Close() }()

	// 5. Open the forecast result cache so writes invalidate stale entries.
	// A memory cache is process-local and useless here, so only a shared
	// backend is wired.
	var resultCache cache.Cache
	if cfg.CacheEnabled() && cfg.Cache.Type == "redis" {
		resultCache, err = cache.New(cfg.Cache, logger)
		if err != nil {
			logger.Fatal("Failed to open forecast cache", "error", err)
		}
		defer func() { _ = resultCache.Close() }()
	} else {
		logger.Info("Cache invalidation disabled", "cache_type", cfg.Cache.Type)
	}

	// 6. Connect to Queue (configurable backend)
	logger.Info("Connecting to Queue", "type", cfg.Queue.Type, "url", cfg.Queue.URL)
	queueClient, err := queue.NewSubscriber(cfg.Queue)
	if err != nil {
		logger.Fatal("Failed to connect to Queue", "error", err)
	}
	defer func() { _ = queueClient.Close() }()

	// 7. Start the consumer
	consumer := ingest.NewConsumer(queueClient, st, resultCache, logger)
	if err := consumer.Start(); err != nil {
		logger.Fatal("Failed to start ingest consumer", "error", err)
	}

	logger.Info("Ingest service started successfully",
		"store_type", cfg.Store.Type,
		"queue_type", cfg.Queue.Type,
		"queue_url", cfg.Queue.URL,
	)

	// 8. Wait for shutdown signal
	waitForShutdown(logger, cancel)

	if err := consumer.Stop(); err != nil {
		logger.Error("Failed to stop ingest consumer", "error", err)
	}

	logger.Info("Ingest service stopped")
}

// waitForShutdown waits for interrupt signal and triggers graceful shutdown
func waitForShutdown(logger *logging.Logger, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Received shutdown signal", "signal", sig.String())
	// Trigger context cancellation
	cancel()

	// Give in-flight batches time to land before unsubscribing
	time.Sleep(2 * time.Second)
}
