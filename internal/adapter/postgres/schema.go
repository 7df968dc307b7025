package postgres

import (
	"context"
	"fmt"

	"github.com/couchcryptid/city-weather-service/internal/domain"
)

// Table definitions. The (name, country) and (city_id, date) unique
// constraints are what make seeding and ingestion idempotent; every writer
// relies on them instead of pre-check-then-insert.
const (
	createCities = `
		CREATE TABLE IF NOT EXISTS cities (
			id         SERIAL PRIMARY KEY,
			name       VARCHAR(100) NOT NULL,
			country    VARCHAR(100) NOT NULL,
			latitude   DECIMAL(9,6) NOT NULL,
			longitude  DECIMAL(9,6) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT uc_cities_name_country UNIQUE (name, country)
		)`

	createWeatherData = `
		CREATE TABLE IF NOT EXISTS weather_data (
			id                  SERIAL PRIMARY KEY,
			city_id             INT NOT NULL REFERENCES cities(id),
			date                DATE NOT NULL,
			temperature         DECIMAL(5,2),
			feels_like          DECIMAL(5,2),
			temperature_min     DECIMAL(5,2),
			temperature_max     DECIMAL(5,2),
			pressure            INT,
			humidity            INT,
			wind_speed          DECIMAL(5,2),
			wind_direction      INT,
			weather_condition   VARCHAR(100),
			weather_description VARCHAR(255),
			created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT uc_weather_city_date UNIQUE (city_id, date)
		)`
)

// seedCities is the fixed initial city list. Coordinates were resolved
// once via the Open-Meteo geocoding API (see cmd/collector -geocode) and
// pinned so schema setup needs no network access.
var seedCities = []domain.CityInfo{
	{Name: "Tel Aviv", Country: "Israel", Latitude: 32.08088, Longitude: 34.78057},
	{Name: "Jerusalem", Country: "Israel", Latitude: 31.76904, Longitude: 35.21633},
	{Name: "New York", Country: "United States", Latitude: 40.71427, Longitude: -74.00597},
	{Name: "London", Country: "United Kingdom", Latitude: 51.50853, Longitude: -0.12574},
	{Name: "Tokyo", Country: "Japan", Latitude: 35.6895, Longitude: 139.69171},
	{Name: "Paris", Country: "France", Latitude: 48.85341, Longitude: 2.3488},
	{Name: "Berlin", Country: "Germany", Latitude: 52.52437, Longitude: 13.41053},
	{Name: "Sydney", Country: "Australia", Latitude: -33.86785, Longitude: 151.20732},
	{Name: "Rio de Janeiro", Country: "Brazil", Latitude: -22.90642, Longitude: -43.18223},
	{Name: "Cape Town", Country: "South Africa", Latitude: -33.92584, Longitude: 18.42322},
}

// EnsureSchema creates the cities and weather_data tables if absent and
// seeds the fixed city list. Idempotent and safe to call concurrently
// from multiple initializers: duplicate seed inserts land on the
// (name, country) constraint and are dropped by ON CONFLICT DO NOTHING.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, ddl := range []string{createCities, createWeatherData} {
		if _, err := s.pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("postgres: create table: %w", err)
		}
	}

	for _, city := range seedCities {
		tag, err := s.pool.Exec(ctx, `
			INSERT INTO cities (name, country, latitude, longitude)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (name, country) DO NOTHING
		`, city.Name, city.Country, city.Latitude, city.Longitude)
		if err != nil {
			return fmt.Errorf("postgres: seed city %s: %w", city.Name, err)
		}
		if tag.RowsAffected() > 0 {
			s.logger.Info("seeded city", "name", city.Name, "country", city.Country)
		}
	}

	return nil
}

// CitiesSeeded reports whether the seed list is present. Diagnostic only.
func (s *Store) CitiesSeeded(ctx context.Context) (bool, error) {
	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM cities").Scan(&count); err != nil {
		return false, wrapErr("count cities", err)
	}
	return count >= len(seedCities), nil
}
