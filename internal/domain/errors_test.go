package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/city-weather-service/internal/domain"
)

func TestFetchError_Unwrap(t *testing.T) {
	fetchErr := &domain.FetchError{CityID: 3, CityName: "Tokyo", Err: domain.ErrNotFound}

	assert.ErrorIs(t, fetchErr, domain.ErrNotFound)
	assert.Contains(t, fetchErr.Error(), "Tokyo")

	var target *domain.FetchError
	assert.True(t, errors.As(error(fetchErr), &target))
	assert.Equal(t, 3, target.CityID)
}
