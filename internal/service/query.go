// Package service exposes the read-side lookups consumed by the HTTP
// boundary: city queries, observation history, rolling statistics, and
// the superlative (hottest/coldest/windiest) queries. Nothing in here
// mutates state.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/city-weather-service/internal/domain"
)

// DefaultWindowDays is used when a caller does not bound a history or
// stats window.
const DefaultWindowDays = 7

// MaxWindowDays caps the trailing window a caller can request.
const MaxWindowDays = 365

// Store is the read-side slice of the relational store.
type Store interface {
	ListCities(ctx context.Context) ([]domain.City, error)
	GetCity(ctx context.Context, id int) (domain.City, error)
	ObservationsSince(ctx context.Context, cityID int, since time.Time) ([]domain.Observation, error)
	LatestObservations(ctx context.Context) ([]domain.Observation, error)
}

// Query answers read-only lookups against the store. Safe for arbitrary
// concurrent use; it tolerates reading a partially updated city during an
// in-flight ingestion run.
type Query struct {
	store  Store
	logger *slog.Logger
}

// NewQuery creates a Query service over the store.
func NewQuery(store Store, logger *slog.Logger) *Query {
	return &Query{store: store, logger: logger}
}

// ListCities returns all cities sorted by name.
func (q *Query) ListCities(ctx context.Context) ([]domain.City, error) {
	return q.store.ListCities(ctx)
}

// GetCity returns one city, or domain.ErrNotFound.
func (q *Query) GetCity(ctx context.Context, id int) (domain.City, error) {
	return q.store.GetCity(ctx, id)
}

// Observations returns a city's observation history within the trailing
// window, newest first. The city must exist.
func (q *Query) Observations(ctx context.Context, cityID, windowDays int) (domain.City, []domain.Observation, error) {
	city, err := q.store.GetCity(ctx, cityID)
	if err != nil {
		return domain.City{}, nil, err
	}

	obs, err := q.store.ObservationsSince(ctx, cityID, domain.WindowStart(ClampWindow(windowDays)))
	if err != nil {
		return domain.City{}, nil, err
	}
	return city, obs, nil
}

// Stats computes min/max/avg per metric over the trailing window. Purely
// derived from observation rows; nil metric values are excluded rather
// than counted as zero, and an empty window yields explicit no-data
// markers per metric.
func (q *Query) Stats(ctx context.Context, cityID, windowDays int) (domain.Stats, error) {
	if _, err := q.store.GetCity(ctx, cityID); err != nil {
		return domain.Stats{}, err
	}

	obs, err := q.store.ObservationsSince(ctx, cityID, domain.WindowStart(ClampWindow(windowDays)))
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.ComputeStats(obs), nil
}

// Hottest returns the city with the highest maximum temperature on its
// most recent observation. Ties resolve to the lowest city id.
func (q *Query) Hottest(ctx context.Context) (domain.CityReading, error) {
	return q.superlative(ctx,
		func(o domain.Observation) *float64 { return o.TemperatureMax },
		func(candidate, best float64) bool { return candidate > best },
	)
}

// Coldest returns the city with the lowest minimum temperature on its
// most recent observation.
func (q *Query) Coldest(ctx context.Context) (domain.CityReading, error) {
	return q.superlative(ctx,
		func(o domain.Observation) *float64 { return o.TemperatureMin },
		func(candidate, best float64) bool { return candidate < best },
	)
}

// Windiest returns the city with the highest wind speed on its most
// recent observation.
func (q *Query) Windiest(ctx context.Context) (domain.CityReading, error) {
	return q.superlative(ctx,
		func(o domain.Observation) *float64 { return o.WindSpeed },
		func(candidate, best float64) bool { return candidate > best },
	)
}

// superlative scans each city's latest observation and keeps the best by
// the given comparison. Observations arrive ordered by city id and only a
// strictly better value displaces the current best, so ties resolve to
// the lowest city id. Cities whose deciding metric is nil are skipped.
func (q *Query) superlative(
	ctx context.Context,
	metric func(domain.Observation) *float64,
	better func(candidate, best float64) bool,
) (domain.CityReading, error) {
	latest, err := q.store.LatestObservations(ctx)
	if err != nil {
		return domain.CityReading{}, err
	}

	cities, err := q.store.ListCities(ctx)
	if err != nil {
		return domain.CityReading{}, err
	}
	byID := make(map[int]domain.City, len(cities))
	for _, c := range cities {
		byID[c.ID] = c
	}

	var (
		best      domain.CityReading
		bestValue float64
		found     bool
	)
	for _, o := range latest {
		v := metric(o)
		if v == nil {
			continue
		}
		city, ok := byID[o.CityID]
		if !ok {
			continue
		}
		if !found || better(*v, bestValue) {
			best = domain.CityReading{City: city, Observation: o}
			bestValue = *v
			found = true
		}
	}
	if !found {
		return domain.CityReading{}, fmt.Errorf("superlative: %w", domain.ErrNoData)
	}
	return best, nil
}

// ClampWindow normalizes a requested window to the served one: zero and
// negative values take the default, oversized values cap at the maximum.
// The boundary layer uses it to report the window actually aggregated.
func ClampWindow(windowDays int) int {
	if windowDays <= 0 {
		return DefaultWindowDays
	}
	if windowDays > MaxWindowDays {
		return MaxWindowDays
	}
	return windowDays
}
