// Package postgres implements the relational store behind the ingestion
// pipeline and the read path, using parameterized SQL over a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/city-weather-service/internal/domain"
)

// Store wraps a pgx connection pool. One observation row exists per
// (city_id, date); all writes go through idempotent upserts.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a Store backed by the given pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

const cityColumns = "id, name, country, latitude, longitude, created_at"

// ListCities returns all cities sorted by name, for display.
func (s *Store) ListCities(ctx context.Context) ([]domain.City, error) {
	return s.queryCities(ctx, "SELECT "+cityColumns+" FROM cities ORDER BY name, id")
}

// ListCitiesByID returns all cities ordered by id, for deterministic
// ingestion runs.
func (s *Store) ListCitiesByID(ctx context.Context) ([]domain.City, error) {
	return s.queryCities(ctx, "SELECT "+cityColumns+" FROM cities ORDER BY id")
}

func (s *Store) queryCities(ctx context.Context, query string) ([]domain.City, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, wrapErr("query cities", err)
	}
	defer rows.Close()

	var cities []domain.City
	for rows.Next() {
		var c domain.City
		if err := rows.Scan(&c.ID, &c.Name, &c.Country, &c.Latitude, &c.Longitude, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan city: %w", err)
		}
		cities = append(cities, c)
	}
	return cities, rows.Err()
}

// GetCity fetches one city by id, returning domain.ErrNotFound when absent.
func (s *Store) GetCity(ctx context.Context, id int) (domain.City, error) {
	var c domain.City
	err := s.pool.QueryRow(ctx,
		"SELECT "+cityColumns+" FROM cities WHERE id = $1", id,
	).Scan(&c.ID, &c.Name, &c.Country, &c.Latitude, &c.Longitude, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.City{}, fmt.Errorf("city %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.City{}, wrapErr("get city", err)
	}
	return c, nil
}

// UpsertObservation writes one day of weather for a city. The insert path
// sets created_at; the update path leaves it untouched, so re-running an
// unchanged ingestion leaves rows byte-identical. Conflicting concurrent
// writers converge on last-write-wins for the same day.
func (s *Store) UpsertObservation(ctx context.Context, cityID int, day domain.DailyObservation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO weather_data (
			city_id, date, temperature, feels_like, temperature_min,
			temperature_max, pressure, humidity, wind_speed,
			wind_direction, weather_condition, weather_description
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (city_id, date) DO UPDATE SET
			temperature         = EXCLUDED.temperature,
			feels_like          = EXCLUDED.feels_like,
			temperature_min     = EXCLUDED.temperature_min,
			temperature_max     = EXCLUDED.temperature_max,
			pressure            = EXCLUDED.pressure,
			humidity            = EXCLUDED.humidity,
			wind_speed          = EXCLUDED.wind_speed,
			wind_direction      = EXCLUDED.wind_direction,
			weather_condition   = EXCLUDED.weather_condition,
			weather_description = EXCLUDED.weather_description
	`,
		cityID, day.Date, day.Temperature, day.FeelsLike, day.TemperatureMin,
		day.TemperatureMax, day.Pressure, day.Humidity, day.WindSpeed,
		day.WindDirection, day.WeatherCondition, day.WeatherDescription,
	)
	if err != nil {
		return wrapErr("upsert observation", err)
	}
	return nil
}

const observationColumns = `id, city_id, date, temperature, feels_like,
	temperature_min, temperature_max, pressure, humidity, wind_speed,
	wind_direction, weather_condition, weather_description, created_at`

// ObservationsSince returns a city's observations with date >= since,
// newest first.
func (s *Store) ObservationsSince(ctx context.Context, cityID int, since time.Time) ([]domain.Observation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+observationColumns+`
		FROM weather_data
		WHERE city_id = $1 AND date >= $2
		ORDER BY date DESC
	`, cityID, since)
	if err != nil {
		return nil, wrapErr("query observations", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// LatestObservations returns each city's most recent observation, ordered
// by city id. Feeds the superlative queries.
func (s *Store) LatestObservations(ctx context.Context) ([]domain.Observation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (city_id) `+observationColumns+`
		FROM weather_data
		ORDER BY city_id, date DESC
	`)
	if err != nil {
		return nil, wrapErr("query latest observations", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

func scanObservations(rows pgx.Rows) ([]domain.Observation, error) {
	var obs []domain.Observation
	for rows.Next() {
		var o domain.Observation
		if err := rows.Scan(
			&o.ID, &o.CityID, &o.Date, &o.Temperature, &o.FeelsLike,
			&o.TemperatureMin, &o.TemperatureMax, &o.Pressure, &o.Humidity,
			&o.WindSpeed, &o.WindDirection, &o.WeatherCondition,
			&o.WeatherDescription, &o.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan observation: %w", err)
		}
		obs = append(obs, o)
	}
	return obs, rows.Err()
}

// wrapErr maps driver errors onto the domain taxonomy. Reads and writes
// against absent tables become ErrSchemaMissing so callers know schema
// setup has not run.
func wrapErr(op string, err error) error {
	if isUndefinedTable(err) {
		return fmt.Errorf("postgres: %s: %w", op, domain.ErrSchemaMissing)
	}
	return fmt.Errorf("postgres: %s: %w", op, err)
}

// undefinedTableCode is PostgreSQL SQLSTATE 42P01 (undefined_table).
const undefinedTableCode = "42P01"

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode
}
