// Command collector performs one complete ingestion pass and exits. It is
// the entrypoint for an external scheduler (cron, a timer unit, a CI job):
// run-to-completion, restart-safe, no internal loop.
//
// With -geocode it instead resolves a city name to coordinates, for
// preparing new seed entries.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/city-weather-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/city-weather-service/internal/adapter/postgres"
	"github.com/couchcryptid/city-weather-service/internal/config"
	"github.com/couchcryptid/city-weather-service/internal/observability"
	"github.com/couchcryptid/city-weather-service/internal/pipeline"
)

func main() {
	geocode := flag.String("geocode", "", "resolve a city name to coordinates and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using system environment")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *geocode != "" {
		runGeocode(ctx, cfg, logger, *geocode)
		return
	}

	metrics := observability.NewMetrics()

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

	report, err := p.Run(ctx)
	for _, o := range report.Outcomes {
		if o.Failed() {
			logger.Warn("city failed", "city", o.CityName, "error", o.Err)
		} else {
			logger.Info("city ingested", "city", o.CityName, "days", o.DaysWritten)
		}
	}
	if err != nil {
		logger.Error("ingestion run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("ingestion run complete", "succeeded", report.Succeeded(), "failed", report.Failed())
}

func runGeocode(ctx context.Context, cfg *config.Config, logger *slog.Logger, name string) {
	client := openmeteo.NewClient(cfg, logger)

	lookupCtx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
	defer cancel()

	info, err := client.Geocode(lookupCtx, name)
	if err != nil {
		logger.Error("geocode failed", "city", name, "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s, %s: latitude=%.5f longitude=%.5f\n", info.Name, info.Country, info.Latitude, info.Longitude)
}
