package openmeteo

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/city-weather-service/internal/domain"
)

func newTestClient(archiveURL, geocodeURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 2 * time.Second},
		baseURL:    archiveURL,
		geocodeURL: geocodeURL,
		breaker:    gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "test"}),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

const archiveBody = `{
	"daily": {
		"time": ["2026-03-01", "2026-03-02", "2026-03-03"],
		"temperature_2m_mean": [10.0, null, 5.0],
		"temperature_2m_min": [6.0, 2.0, 1.0],
		"temperature_2m_max": [14.0, 12.0, 9.0],
		"apparent_temperature_max": [13.0, 11.0, null],
		"apparent_temperature_min": [5.0, 1.0, 0.0],
		"precipitation_sum": [0.0, 3.0, 12.5],
		"rain_sum": [0.0, 3.0, 12.5],
		"snowfall_sum": [0.0, 0.0, 0.0],
		"windspeed_10m_max": [18.4, 22.0, null],
		"winddirection_10m_dominant": [247.6, 180.0, 90.0],
		"relative_humidity_2m_max": [90.0, 95.0, 88.0],
		"relative_humidity_2m_min": [60.0, 71.0, 50.0],
		"pressure_msl_max": [1021.0, 1015.0, 1008.0],
		"pressure_msl_min": [1013.0, 1009.0, 1002.0]
	}
}`

func TestFetchDaily_Normalizes(t *testing.T) {
	var query url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Write([]byte(archiveBody))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")
	days, err := client.FetchDaily(context.Background(), 51.5, -0.12, 7)

	require.NoError(t, err)
	// Day 2 has a null mean temperature and is dropped.
	require.Len(t, days, 2)

	want := domain.DailyObservation{
		Date:               time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		Temperature:        domain.Float64(10),
		FeelsLike:          domain.Float64(9), // midpoint of apparent extremes
		TemperatureMin:     domain.Float64(6),
		TemperatureMax:     domain.Float64(14),
		Pressure:           domain.Int(1017),
		Humidity:           domain.Int(75),
		WindSpeed:          domain.Float64(18.4),
		WindDirection:      domain.Int(248),
		WeatherCondition:   "Clear",
		WeatherDescription: "Clear sky",
	}
	if diff := cmp.Diff(want, days[0]); diff != "" {
		t.Errorf("first day mismatch (-want +got):\n%s", diff)
	}

	second := days[1]
	assert.Equal(t, 5.0, *second.Temperature)
	// Apparent max is null, so feels-like falls back to the mean.
	assert.Equal(t, 5.0, *second.FeelsLike)
	assert.Nil(t, second.WindSpeed)
	assert.Equal(t, "Heavy Rain", second.WeatherCondition)
	assert.Equal(t, "Heavy rain", second.WeatherDescription)

	assert.Equal(t, "51.500000", query.Get("latitude"))
	assert.Equal(t, "-0.120000", query.Get("longitude"))
	assert.Equal(t, "UTC", query.Get("timezone"))
	assert.NotEmpty(t, query.Get("start_date"))
	assert.NotEmpty(t, query.Get("end_date"))
}

func TestFetchDaily_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"daily": {"time": []}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")
	days, err := client.FetchDaily(context.Background(), 0, 0, 7)

	require.NoError(t, err)
	assert.Empty(t, days)
}

func TestFetchDaily_InvalidCoordinates(t *testing.T) {
	client := newTestClient("http://unused", "")

	_, err := client.FetchDaily(context.Background(), 91, 0, 7)
	assert.Error(t, err)

	_, err = client.FetchDaily(context.Background(), 0, 181, 7)
	assert.Error(t, err)
}

func TestFetchDaily_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")
	_, err := client.FetchDaily(context.Background(), 0, 0, 7)

	assert.ErrorIs(t, err, errServerError)
}

func TestFetchDaily_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")
	_, err := client.FetchDaily(context.Background(), 0, 0, 7)

	assert.ErrorIs(t, err, errRateLimited)
}

func TestFetchDaily_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"daily": [`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")
	_, err := client.FetchDaily(context.Background(), 0, 0, 7)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode archive response")
}

func TestFetchDaily_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(archiveBody))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")
	client.httpClient.Timeout = 20 * time.Millisecond

	_, err := client.FetchDaily(context.Background(), 0, 0, 7)
	assert.Error(t, err)
}

func TestFetchDaily_BadDate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"daily": {
			"time": ["not-a-date"],
			"temperature_2m_mean": [10.0],
			"temperature_2m_min": [5.0],
			"temperature_2m_max": [15.0]
		}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")
	_, err := client.FetchDaily(context.Background(), 0, 0, 7)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse date")
}

func TestFetchDaily_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")
	client.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "test",
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 2
		},
	})

	for i := 0; i < 2; i++ {
		_, err := client.FetchDaily(context.Background(), 0, 0, 7)
		assert.ErrorIs(t, err, errServerError)
	}

	_, err := client.FetchDaily(context.Background(), 0, 0, 7)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestGeocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Lisbon", r.URL.Query().Get("name"))
		w.Write([]byte(`{"results": [
			{"name": "Lisbon", "country": "Portugal", "latitude": 38.72, "longitude": -9.13},
			{"name": "Lisbon", "country": "United States", "latitude": 44.03, "longitude": -70.1}
		]}`))
	}))
	defer server.Close()

	client := newTestClient("", server.URL)
	info, err := client.Geocode(context.Background(), "Lisbon")

	require.NoError(t, err)
	assert.Equal(t, domain.CityInfo{
		Name:      "Lisbon",
		Country:   "Portugal",
		Latitude:  38.72,
		Longitude: -9.13,
	}, info)
}

func TestGeocode_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"results": []}`))
	}))
	defer server.Close()

	client := newTestClient("", server.URL)
	_, err := client.Geocode(context.Background(), "Atlantis")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWeatherCondition(t *testing.T) {
	cases := []struct {
		name                           string
		precipitation, rain, snowfall  float64
		wantCondition, wantDescription string
	}{
		{"clear", 0, 0, 0, "Clear", "Clear sky"},
		{"snow wins over rain", 5, 5, 1, "Snow", "Light snow"},
		{"heavy snow", 20, 0, 6, "Snow", "Heavy snow"},
		{"light rain", 1, 1, 0, "Rain", "Light rain"},
		{"moderate rain", 5, 5, 0, "Rain", "Moderate rain"},
		{"heavy rain", 12, 12, 0, "Heavy Rain", "Heavy rain"},
		{"non-rain precipitation", 2, 0, 0, "Precipitation", "Precipitation"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantCondition, weatherCondition(tc.precipitation, tc.rain, tc.snowfall))
			assert.Equal(t, tc.wantDescription, weatherDescription(tc.precipitation, tc.rain, tc.snowfall))
		})
	}
}
