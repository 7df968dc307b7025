// Package pipeline orchestrates the per-city fetch → normalize → upsert
// ingestion run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/city-weather-service/internal/domain"
	"github.com/couchcryptid/city-weather-service/internal/observability"
)

// ErrAllCitiesFailed is returned when a non-empty run wrote nothing.
// Individual city failures never abort a run; only total failure does.
var ErrAllCitiesFailed = errors.New("ingestion failed for every city")

// Source fetches normalized daily observations for a coordinate pair.
type Source interface {
	FetchDaily(ctx context.Context, lat, lon float64, windowDays int) ([]domain.DailyObservation, error)
}

// Store lists the cities to ingest and persists observation days.
type Store interface {
	ListCitiesByID(ctx context.Context) ([]domain.City, error)
	UpsertObservation(ctx context.Context, cityID int, day domain.DailyObservation) error
}

// Config tunes one pipeline instance. Zero values take conservative defaults.
type Config struct {
	Workers      int           // concurrent per-city workers (default 4)
	WindowDays   int           // trailing days to request (default 30)
	FetchRetries int           // attempts per city per run (default 3)
	FetchBackoff time.Duration // initial backoff between attempts (default 1s)
	MaxBackoff   time.Duration // backoff cap (default 10s)
	FetchTimeout time.Duration // per-attempt deadline (default 10s)
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.WindowDays <= 0 {
		c.WindowDays = 30
	}
	if c.FetchRetries <= 0 {
		c.FetchRetries = 3
	}
	if c.FetchBackoff <= 0 {
		c.FetchBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 10 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	return c
}

// Pipeline runs ingestion for every known city. All writes are idempotent
// upserts keyed by (city_id, date), so overlapping runs converge without
// locking.
type Pipeline struct {
	source  Source
	store   Store
	logger  *slog.Logger
	metrics *observability.Metrics
	cfg     Config

	ran     atomic.Bool
	mu      sync.Mutex
	lastRun domain.RunReport
}

// New creates a Pipeline with the given stages and observability.
func New(source Source, store Store, cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:  source,
		store:   store,
		logger:  logger,
		metrics: metrics,
		cfg:     cfg.withDefaults(),
	}
}

// Run executes one complete ingestion pass and returns the per-city report.
// A failure for one city never aborts the others; the returned error is
// non-nil only when listing cities fails or every city failed.
func (p *Pipeline) Run(ctx context.Context) (domain.RunReport, error) {
	start := time.Now()
	p.metrics.IngestRunning.Set(1)
	defer p.metrics.IngestRunning.Set(0)

	cities, err := p.store.ListCitiesByID(ctx)
	if err != nil {
		return domain.RunReport{}, fmt.Errorf("list cities: %w", err)
	}

	p.logger.Info("ingestion run started", "cities", len(cities), "workers", p.cfg.Workers)

	outcomes := make([]domain.CityOutcome, len(cities))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < p.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = p.processCity(ctx, cities[i])
			}
		}()
	}
	for i := range cities {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	report := domain.RunReport{
		StartedAt:  start.UTC(),
		FinishedAt: time.Now().UTC(),
		Outcomes:   outcomes,
	}

	for _, o := range outcomes {
		if o.Failed() {
			p.metrics.CitiesProcessed.WithLabelValues("failed").Inc()
			p.logger.Warn("city ingestion failed", "city", o.CityName, "city_id", o.CityID, "error", o.Err)
		} else {
			p.metrics.CitiesProcessed.WithLabelValues("success").Inc()
			p.metrics.DaysUpserted.Add(float64(o.DaysWritten))
		}
	}
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())

	p.mu.Lock()
	p.lastRun = report
	p.mu.Unlock()
	p.ran.Store(true)

	if report.AllFailed() {
		return report, ErrAllCitiesFailed
	}
	if report.Succeeded() > 0 {
		p.metrics.LastRunSuccess.Set(float64(report.FinishedAt.Unix()))
	}
	p.logger.Info("ingestion run finished",
		"succeeded", report.Succeeded(),
		"failed", report.Failed(),
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	return report, nil
}

// Ready reports whether at least one run has completed.
func (p *Pipeline) Ready() bool { return p.ran.Load() }

// LastRun returns the most recent run report, if any run has completed.
func (p *Pipeline) LastRun() (domain.RunReport, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastRun, p.ran.Load()
}

// processCity fetches a city's recent observations and upserts them in
// source order. Duplicate dates in the response collapse onto the same
// (city_id, date) row, last value wins.
func (p *Pipeline) processCity(ctx context.Context, city domain.City) domain.CityOutcome {
	outcome := domain.CityOutcome{CityID: city.ID, CityName: city.Name}

	days, err := p.fetchWithRetry(ctx, city)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	for _, day := range days {
		if err := p.store.UpsertObservation(ctx, city.ID, day); err != nil {
			outcome.Err = fmt.Errorf("upsert %s: %w", day.Date.Format("2006-01-02"), err)
			return outcome
		}
		outcome.DaysWritten++
	}

	return outcome
}

// fetchWithRetry attempts the upstream fetch up to FetchRetries times with
// exponential backoff. The final failure is wrapped in a domain.FetchError
// so the report carries the city identity with the cause.
func (p *Pipeline) fetchWithRetry(ctx context.Context, city domain.City) ([]domain.DailyObservation, error) {
	backoff := p.cfg.FetchBackoff
	var lastErr error

	for attempt := 1; attempt <= p.cfg.FetchRetries; attempt++ {
		fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
		start := time.Now()
		days, err := p.source.FetchDaily(fetchCtx, city.Latitude, city.Longitude, p.cfg.WindowDays)
		p.metrics.FetchDuration.Observe(time.Since(start).Seconds())
		cancel()

		if err == nil {
			return days, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if attempt < p.cfg.FetchRetries {
			p.metrics.FetchRetries.Inc()
			p.logger.Debug("fetch retry", "city", city.Name, "attempt", attempt, "backoff", backoff, "error", err)
			if !sleepWithContext(ctx, backoff) {
				break
			}
			backoff = nextBackoff(backoff, p.cfg.MaxBackoff)
		}
	}

	return nil, &domain.FetchError{CityID: city.ID, CityName: city.Name, Err: lastErr}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
