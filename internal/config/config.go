package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatabaseURL     string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Open-Meteo endpoints. Overridable for tests and proxies.
	OpenMeteoBaseURL    string
	OpenMeteoGeocodeURL string

	// Ingestion tuning.
	FetchTimeout    time.Duration
	FetchRetries    int
	FetchBackoff    time.Duration
	FetchWindowDays int
	IngestWorkers   int
	IngestInterval  time.Duration // 0 disables the in-process schedule

	StatsCacheTTL time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset. Invalid values are startup-fatal; nothing here is retried.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	fetchBackoff, err := parseDuration("FETCH_BACKOFF", "1s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("STATS_CACHE_TTL", "60s")
	if err != nil {
		return nil, err
	}

	ingestInterval, err := parseIngestInterval()
	if err != nil {
		return nil, err
	}

	fetchRetries, err := parseBoundedInt("FETCH_RETRIES", 3, 1, 10)
	if err != nil {
		return nil, err
	}
	windowDays, err := parseBoundedInt("FETCH_WINDOW_DAYS", 30, 1, 365)
	if err != nil {
		return nil, err
	}
	workers, err := parseBoundedInt("INGEST_WORKERS", 4, 1, 32)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		OpenMeteoBaseURL:    envOrDefault("OPENMETEO_BASE_URL", "https://archive-api.open-meteo.com/v1/archive"),
		OpenMeteoGeocodeURL: envOrDefault("OPENMETEO_GEOCODE_URL", "https://geocoding-api.open-meteo.com/v1/search"),

		FetchTimeout:    fetchTimeout,
		FetchRetries:    fetchRetries,
		FetchBackoff:    fetchBackoff,
		FetchWindowDays: windowDays,
		IngestWorkers:   workers,
		IngestInterval:  ingestInterval,

		StatsCacheTTL: cacheTTL,
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

// parseIngestInterval allows 0 (schedule disabled) unlike parseDuration.
func parseIngestInterval() (time.Duration, error) {
	s := envOrDefault("INGEST_INTERVAL", "6h")
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid INGEST_INTERVAL: %q", s)
	}
	return d, nil
}

func parseBoundedInt(key string, def, min, max int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("invalid %s: %q (must be %d..%d)", key, s, min, max)
	}
	return n, nil
}
