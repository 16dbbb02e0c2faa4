/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Warp Costing Engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (file, then COSTING_* environment, then flags)
  2. Initialize logger and SQLite store
  3. Load the operation catalog and sync it into the store
  4. Connect the report cache (Redis, optional) and start its warmer
  5. Build the Reporter, API handler and router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Path to a YAML/JSON/TOML config file (optional)
  -port    HTTP server port, overrides http.port
  -db      SQLite database path, overrides db.path
           Use ":memory:" for in-memory database

CATALOG:
  catalog.path set:   the file wins and is written to the store
  store has a catalog: the stored catalog is used
  otherwise:          the built-in ten-operation catalog is written

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close cache and database connections
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/costing.db"

  # Run with a config file and Redis from the environment
  COSTING_REDIS_ADDR=localhost:6379 ./server -config=./costing.yaml

SEE ALSO:
  - config/config.go: Configuration keys and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/costing-engine/api"
	"github.com/warp/costing-engine/cache"
	"github.com/warp/costing-engine/config"
	"github.com/warp/costing-engine/costing"
	"github.com/warp/costing-engine/factory"
	"github.com/warp/costing-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "Config file path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}
	if *dbPath != "" {
		cfg.DB.Path = *dbPath
	}

	logger := config.NewLogger(cfg.Log.Level, cfg.Log.Format)

	// Initialize store
	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	ctx := context.Background()

	ops, err := loadCatalog(ctx, store, cfg.Catalog.Path, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to load operation catalog")
	}

	// Initialize reporter
	reporter := costing.NewReporter(store, ops)
	reporter.RevenueMode = costing.RevenueResolution(cfg.Revenue.Resolution)
	reporter.SlowThreshold = cfg.SlowThreshold()
	reporter.DefaultPageSize = cfg.Report.PageSize
	reporter.Logger = logger

	if cfg.Redis.Addr != "" {
		client, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.WithError(err).WithField("addr", cfg.Redis.Addr).Warn("redis unavailable, reports are not cached")
		} else {
			defer client.Close()
			reporter.Cache = cache.NewRedis(client, cfg.Report.CacheTTL)

			if cfg.Report.WarmInterval > 0 {
				warmer := api.NewCacheWarmer(store, reporter, logger)
				warmer.CheckInterval = cfg.Report.WarmInterval
				warmer.Start()
				defer warmer.Stop()
			}
		}
	}

	handler := api.NewHandler(store, reporter, logger)
	router := api.NewRouter(handler, cfg.CORS.AllowedOrigins)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.WithFields(logrus.Fields{
			"port":       cfg.HTTP.Port,
			"db":         cfg.DB.Path,
			"operations": ops.Len(),
			"revenue":    cfg.Revenue.Resolution,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
		return
	}

	logger.Info("server stopped")
}

// loadCatalog decides which operation catalog the engine runs with and
// keeps the operations table in step with it.
func loadCatalog(ctx context.Context, store *sqlite.Store, path string, logger logrus.FieldLogger) (*costing.OperationRegistry, error) {
	if path == "" {
		stored, err := store.ListOperations(ctx)
		if err != nil {
			return nil, err
		}
		if len(stored) > 0 {
			logger.WithField("operations", len(stored)).Info("using stored operation catalog")
			return costing.NewOperationRegistry(stored...)
		}
	}

	ops, err := factory.NewCatalogFactory().LoadFile(path)
	if err != nil {
		return nil, err
	}
	for _, op := range ops.All() {
		if err := store.SaveOperation(ctx, op); err != nil {
			return nil, err
		}
	}
	return ops, nil
}
