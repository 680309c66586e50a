package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"defectinsight/internal/analytics"
	"defectinsight/internal/config"
	"defectinsight/internal/database"
	"defectinsight/internal/handlers"
	"defectinsight/internal/logging"
	"defectinsight/internal/observability"
	"defectinsight/internal/services"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.json", "Path to config file (.json or .yaml)")
	dbPath := flag.String("db", "", "Path to SQLite database file (overrides config)")
	port := flag.String("port", "", "Server port (overrides config)")
	seed := flag.Bool("seed", true, "Load the seed file when the store is empty")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfigWithDefaults(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Override with command line flags if provided
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	logger := logging.Init(cfg.Logging.Format, logging.ParseLevel(cfg.Logging.Level))

	if err := run(cfg, logger, *seed); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, seed bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	store, err := database.Open(ctx, cfg.Database.Driver, cfg.DSN(),
		cfg.Database.MaxConnections, cfg.Database.ConnectTimeout.Std())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	logger.Info("database initialized", slog.String("driver", cfg.Database.Driver))

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	// Corpus snapshot
	aggregator := analytics.NewAggregator(store, analytics.AggregatorConfig{
		TopN:         cfg.Analytics.TopN,
		RecentWindow: cfg.Analytics.RecentWindow.Std(),
		Logger:       logger,
	})
	cache := analytics.NewSnapshotCache(aggregator.Compute, cfg.Analytics.CacheTTL.Std(),
		analytics.WithCacheObserver(metrics))

	// Initialize services
	loader := services.NewLoader(store, cache, metrics, logger)
	queryService := services.NewQueryService(store, logger)
	insightService := services.NewInsightService(cache, metrics, logger)
	uploadService := services.NewUploadService(loader, logger)
	generator := services.NewGenerator(loader, logger, 0)

	if seed {
		seedStore(ctx, store, loader, cfg.Data.SeedFile, logger)
	}

	var metricsHandler http.Handler
	if cfg.MetricsOn() {
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}

	generateDefaults := services.GenerateOptions{
		Count:         cfg.Data.GenerateCount,
		AircraftCount: cfg.Data.AircraftCount,
		Days:          cfg.Data.GenerateDays,
	}

	// Setup router
	router := handlers.NewRouter(handlers.Handlers{
		Query:     handlers.NewQueryHandler(queryService, logger),
		Insights:  handlers.NewInsightsHandler(insightService, logger),
		Load:      handlers.NewLoadHandler(loader, cfg.Data.RawDataFolder, logger),
		Upload:    handlers.NewUploadHandler(uploadService, logger),
		Generator: handlers.NewGeneratorHandler(generator, generateDefaults, logger),
		Config:    handlers.NewConfigHandler(cfg),
		Health:    handlers.NewHealthHandler(store),
		Metrics:   metricsHandler,
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.TimeoutHandler(router, cfg.Server.RequestTimeout.Std(), `{"error":"request timed out"}`),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", addr), slog.Bool("metrics", cfg.MetricsOn()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// seedStore loads the seed file into an empty store. A missing file is not an error.
func seedStore(ctx context.Context, store database.Store, loader *services.Loader, seedFile string, logger *slog.Logger) {
	total, err := store.CountDefects(ctx)
	if err != nil {
		logger.Warn("skipping seed, cannot count defects", slog.Any("error", err))
		return
	}
	if total > 0 {
		return
	}
	if _, err := os.Stat(seedFile); errors.Is(err, os.ErrNotExist) {
		logger.Info("no seed file", slog.String("file", seedFile))
		return
	}

	res, err := loader.LoadFromFile(ctx, seedFile)
	if err != nil {
		logger.Warn("seed load failed", slog.String("file", seedFile), slog.Any("error", err))
		return
	}
	logger.Info("seeded store",
		slog.String("file", seedFile),
		slog.Int("inserted", res.Inserted),
		slog.Int("skipped", res.Skipped))
}
