// Package openmeteo fetches daily weather history from the Open-Meteo
// archive API and normalizes it into domain observations. The variable
// shape of the upstream response (parallel metric arrays with nulls) is
// resolved here, once, at the edge.
package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/couchcryptid/city-weather-service/internal/config"
	"github.com/couchcryptid/city-weather-service/internal/domain"
)

// dailyParams is the metric set requested from the archive endpoint.
const dailyParams = "temperature_2m_max,temperature_2m_min,temperature_2m_mean," +
	"apparent_temperature_max,apparent_temperature_min," +
	"precipitation_sum,rain_sum,snowfall_sum," +
	"windspeed_10m_max,winddirection_10m_dominant," +
	"relative_humidity_2m_max,relative_humidity_2m_min," +
	"pressure_msl_max,pressure_msl_min"

var (
	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")
)

// Client talks to the Open-Meteo archive and geocoding APIs. It performs
// no persistence and no retries; retry policy belongs to the caller.
type Client struct {
	httpClient *http.Client
	baseURL    string
	geocodeURL string
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo client with a circuit breaker around
// upstream calls. The breaker trips independently of the pipeline's
// per-run retry budget, shedding load during sustained outages.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
		baseURL:    cfg.OpenMeteoBaseURL,
		geocodeURL: cfg.OpenMeteoGeocodeURL,
		breaker:    cb,
		logger:     logger,
	}
}

// FetchDaily returns normalized observations for the trailing windowDays
// ending today, in source (chronological) order. A response with no days
// is not an error; the result is simply empty.
func (c *Client) FetchDaily(ctx context.Context, lat, lon float64, windowDays int) ([]domain.DailyObservation, error) {
	if err := domain.ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	if windowDays <= 0 {
		windowDays = 30
	}

	end := domain.Today()
	start := end.AddDate(0, 0, -windowDays)

	params := url.Values{
		"latitude":   {strconv.FormatFloat(lat, 'f', 6, 64)},
		"longitude":  {strconv.FormatFloat(lon, 'f', 6, 64)},
		"start_date": {start.Format("2006-01-02")},
		"end_date":   {end.Format("2006-01-02")},
		"daily":      {dailyParams},
		"timezone":   {"UTC"},
	}

	body, err := c.get(ctx, c.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp archiveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode archive response: %w", err)
	}

	return normalizeDaily(resp.Daily)
}

// Geocode resolves a city name to coordinates using the Open-Meteo
// geocoding API. Used when preparing seed data, not on the ingest path.
func (c *Client) Geocode(ctx context.Context, name string) (domain.CityInfo, error) {
	params := url.Values{
		"name":     {name},
		"count":    {"1"},
		"language": {"en"},
		"format":   {"json"},
	}

	body, err := c.get(ctx, c.geocodeURL+"?"+params.Encode())
	if err != nil {
		return domain.CityInfo{}, err
	}

	var resp geocodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.CityInfo{}, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(resp.Results) == 0 {
		return domain.CityInfo{}, fmt.Errorf("city %q: %w", name, domain.ErrNotFound)
	}

	r := resp.Results[0]
	return domain.CityInfo{
		Name:      r.Name,
		Country:   r.Country,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
	}, nil
}

func (c *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("open-meteo request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, errRateLimited
		}
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: status %d", errServerError, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("open-meteo circuit open: %w", err)
		}
		return nil, err
	}

	return result.([]byte), nil
}

// Open-Meteo API response types.

type archiveResponse struct {
	Daily archiveDaily `json:"daily"`
}

// archiveDaily carries parallel arrays aligned with Time. Pointer elements
// preserve upstream nulls.
type archiveDaily struct {
	Time             []string   `json:"time"`
	TemperatureMean  []*float64 `json:"temperature_2m_mean"`
	TemperatureMin   []*float64 `json:"temperature_2m_min"`
	TemperatureMax   []*float64 `json:"temperature_2m_max"`
	ApparentTempMax  []*float64 `json:"apparent_temperature_max"`
	ApparentTempMin  []*float64 `json:"apparent_temperature_min"`
	PrecipitationSum []*float64 `json:"precipitation_sum"`
	RainSum          []*float64 `json:"rain_sum"`
	SnowfallSum      []*float64 `json:"snowfall_sum"`
	WindSpeedMax     []*float64 `json:"windspeed_10m_max"`
	WindDirection    []*float64 `json:"winddirection_10m_dominant"`
	HumidityMax      []*float64 `json:"relative_humidity_2m_max"`
	HumidityMin      []*float64 `json:"relative_humidity_2m_min"`
	PressureMax      []*float64 `json:"pressure_msl_max"`
	PressureMin      []*float64 `json:"pressure_msl_min"`
}

type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}
