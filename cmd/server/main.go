package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/city-weather-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/city-weather-service/internal/adapter/postgres"
	"github.com/couchcryptid/city-weather-service/internal/api"
	"github.com/couchcryptid/city-weather-service/internal/config"
	"github.com/couchcryptid/city-weather-service/internal/observability"
	"github.com/couchcryptid/city-weather-service/internal/pipeline"
	"github.com/couchcryptid/city-weather-service/internal/scheduler"
	"github.com/couchcryptid/city-weather-service/internal/service"
)

// ingestRunTimeout bounds a scheduled ingestion pass end to end.
const ingestRunTimeout = 15 * time.Minute

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using system environment")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := pgxpool.New(connectCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := postgres.New(pool, logger)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("schema setup failed", "error", err)
		os.Exit(1)
	}

	source := openmeteo.NewClient(cfg, logger)
	p := pipeline.New(source, store, pipeline.Config{
		Workers:      cfg.IngestWorkers,
		WindowDays:   cfg.FetchWindowDays,
		FetchRetries: cfg.FetchRetries,
		FetchBackoff: cfg.FetchBackoff,
		FetchTimeout: cfg.FetchTimeout,
	}, logger, metrics)

	queries := service.NewQuery(store, logger)
	stats := service.NewCachedStats(queries, cfg.StatsCacheTTL, nil, metrics)

	sched := scheduler.New(p, cfg.IngestInterval, ingestRunTimeout, logger)
	if err := sched.Start(); err != nil {
		logger.Error("scheduler start failed", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	srv := api.New(cfg.HTTPAddr, queries, stats, p, store, logger)

	// fiber's Listen returns nil after a graceful Shutdown.
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if err := srv.Shutdown(cfg.ShutdownTimeout); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
