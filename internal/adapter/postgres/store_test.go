package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/city-weather-service/internal/domain"
)

func TestWrapErr_UndefinedTable(t *testing.T) {
	pgErr := &pgconn.PgError{Code: undefinedTableCode, Message: `relation "weather_data" does not exist`}

	err := wrapErr("query observations", fmt.Errorf("exec: %w", pgErr))

	assert.ErrorIs(t, err, domain.ErrSchemaMissing)
}

func TestWrapErr_OtherErrorsPassThrough(t *testing.T) {
	cause := errors.New("connection refused")

	err := wrapErr("ping", cause)

	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, domain.ErrSchemaMissing)

	// Other SQLSTATEs are not schema errors.
	err = wrapErr("query", &pgconn.PgError{Code: "23505"})
	assert.NotErrorIs(t, err, domain.ErrSchemaMissing)
}

func TestSeedCities(t *testing.T) {
	seen := make(map[string]bool, len(seedCities))
	for _, city := range seedCities {
		assert.NotEmpty(t, city.Name)
		assert.NotEmpty(t, city.Country)
		assert.NoError(t, domain.ValidateCoordinates(city.Latitude, city.Longitude))

		key := city.Name + "|" + city.Country
		assert.False(t, seen[key], "duplicate seed city %s", key)
		seen[key] = true
	}
}
