package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by read queries for an unknown city id.
	ErrNotFound = errors.New("not found")

	// ErrNoData is returned when a query window or superlative has zero
	// qualifying observations. Explicit marker, never reported as 0 or NaN.
	ErrNoData = errors.New("no data")

	// ErrSchemaMissing signals a read or write against absent tables.
	// Fatal: EnsureSchema must run first.
	ErrSchemaMissing = errors.New("schema missing")
)

// FetchError wraps a failed weather fetch with the city it was for.
// The pipeline retries these within a run before recording the city failed.
type FetchError struct {
	CityID   int
	CityName string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch weather for %s (city %d): %v", e.CityName, e.CityID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
