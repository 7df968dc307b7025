package domain

import (
	"fmt"
	"time"
)

// City is a reference-data row seeded at schema setup. Coordinates are
// WGS-84 decimal degrees.
type City struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Country   string    `json:"country"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"-"`
}

// CityInfo is a geocoding lookup result used when adding seed cities.
type CityInfo struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DailyObservation is one normalized day of weather for a coordinate pair,
// as produced by the source adapter. Optional metrics are pointers; nil
// means the source did not measure the value.
type DailyObservation struct {
	Date               time.Time
	Temperature        *float64 // daily mean, °C
	FeelsLike          *float64
	TemperatureMin     *float64
	TemperatureMax     *float64
	Pressure           *int     // hPa
	Humidity           *int     // percent
	WindSpeed          *float64 // km/h
	WindDirection      *int     // degrees
	WeatherCondition   string
	WeatherDescription string
}

// Observation is a persisted DailyObservation bound to a city.
type Observation struct {
	ID     int
	CityID int
	DailyObservation
	CreatedAt time.Time
}

// CityReading pairs a city with its most recent observation. Superlative
// queries (hottest/coldest/windiest) return these.
type CityReading struct {
	City        City
	Observation Observation
}

// CityOutcome records how one city fared during an ingestion run.
type CityOutcome struct {
	CityID      int
	CityName    string
	DaysWritten int
	Err         error
}

// Failed reports whether the city's fetch-and-upsert step failed.
func (o CityOutcome) Failed() bool { return o.Err != nil }

// RunReport summarizes a single ingestion run. Outcomes are ordered by
// city id.
type RunReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []CityOutcome
}

// Succeeded returns the number of cities processed without error.
func (r RunReport) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Failed() {
			n++
		}
	}
	return n
}

// Failed returns the number of cities whose step failed.
func (r RunReport) Failed() int { return len(r.Outcomes) - r.Succeeded() }

// AllFailed reports whether every city in a non-empty run failed. A run
// with no cities is not a failure.
func (r RunReport) AllFailed() bool {
	return len(r.Outcomes) > 0 && r.Succeeded() == 0
}

// ValidateCoordinates rejects latitude/longitude pairs outside the WGS-84
// range before they reach the upstream API.
func ValidateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", lon)
	}
	return nil
}

// Float64 returns a pointer to v. Convenience for building observations.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
