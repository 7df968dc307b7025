package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/couchcryptid/city-weather-service/internal/domain"
	"github.com/couchcryptid/city-weather-service/internal/pipeline"
	"github.com/couchcryptid/city-weather-service/internal/service"
)

type handler struct {
	queries Queries
	stats   StatsProvider
	ingest  IngestRunner
	health  HealthChecker
	logger  *slog.Logger
}

func (h *handler) index(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "City Weather API",
		"endpoints": []fiber.Map{
			{"path": "/cities", "method": "GET", "description": "List all cities"},
			{"path": "/cities/:id", "method": "GET", "description": "Get city details"},
			{"path": "/weather/:id", "method": "GET", "description": "Get weather history for a city"},
			{"path": "/stats/:id", "method": "GET", "description": "Get weather statistics for a city"},
			{"path": "/hottest", "method": "GET", "description": "Get the hottest city"},
			{"path": "/coldest", "method": "GET", "description": "Get the coldest city"},
			{"path": "/windiest", "method": "GET", "description": "Get the windiest city"},
			{"path": "/ingest/run", "method": "POST", "description": "Trigger an ingestion run"},
		},
	})
}

func (h *handler) healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy"})
}

func (h *handler) readyz(c *fiber.Ctx) error {
	ctx := c.Context()

	if err := h.health.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not ready",
			"error":  err.Error(),
		})
	}
	seeded, err := h.health.CitiesSeeded(ctx)
	if err != nil || !seeded {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not ready",
			"error":  "cities not seeded",
		})
	}
	// Informational: the service serves reads before the first run, they
	// just may find an empty window.
	return c.JSON(fiber.Map{"status": "ready", "ingested": h.ingest.Ready()})
}

type cityResponse struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func toCityResponse(c domain.City) cityResponse {
	return cityResponse{
		ID:        c.ID,
		Name:      c.Name,
		Country:   c.Country,
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
	}
}

func (h *handler) listCities(c *fiber.Ctx) error {
	cities, err := h.queries.ListCities(c.Context())
	if err != nil {
		return h.mapError(c, err)
	}

	// Bare array for simpler client handling.
	out := make([]cityResponse, 0, len(cities))
	for _, city := range cities {
		out = append(out, toCityResponse(city))
	}
	return c.JSON(out)
}

func (h *handler) getCity(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid city id")
	}

	city, err := h.queries.GetCity(c.Context(), id)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(toCityResponse(city))
}

type observationResponse struct {
	Date               string   `json:"date"`
	Temperature        *float64 `json:"temperature"`
	TemperatureMin     *float64 `json:"temperature_min"`
	TemperatureMax     *float64 `json:"temperature_max"`
	FeelsLike          *float64 `json:"feels_like"`
	Pressure           *int     `json:"pressure"`
	Humidity           *int     `json:"humidity"`
	WindSpeed          *float64 `json:"wind_speed"`
	WindDirection      *int     `json:"wind_direction"`
	WeatherCondition   string   `json:"weather_condition"`
	WeatherDescription string   `json:"weather_description"`
}

func (h *handler) getWeather(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid city id")
	}
	days := c.QueryInt("days", service.DefaultWindowDays)

	city, obs, err := h.queries.Observations(c.Context(), id, days)
	if err != nil {
		return h.mapError(c, err)
	}

	out := make([]observationResponse, 0, len(obs))
	for _, o := range obs {
		out = append(out, observationResponse{
			Date:               o.Date.Format("2006-01-02"),
			Temperature:        o.Temperature,
			TemperatureMin:     o.TemperatureMin,
			TemperatureMax:     o.TemperatureMax,
			FeelsLike:          o.FeelsLike,
			Pressure:           o.Pressure,
			Humidity:           o.Humidity,
			WindSpeed:          o.WindSpeed,
			WindDirection:      o.WindDirection,
			WeatherCondition:   o.WeatherCondition,
			WeatherDescription: o.WeatherDescription,
		})
	}

	return c.JSON(fiber.Map{
		"city":         city.Name,
		"country":      city.Country,
		"weather_data": out,
	})
}

func (h *handler) getStats(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid city id")
	}
	// Report the window actually aggregated, not the raw query value.
	days := service.ClampWindow(c.QueryInt("days", service.DefaultWindowDays))

	city, err := h.queries.GetCity(c.Context(), id)
	if err != nil {
		return h.mapError(c, err)
	}

	stats, err := h.stats.Stats(c.Context(), id, days)
	if err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(fiber.Map{
		"city":        city.Name,
		"country":     city.Country,
		"window_days": days,
		"stats":       stats,
	})
}

func (h *handler) hottest(c *fiber.Ctx) error {
	reading, err := h.queries.Hottest(c.Context())
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(superlativeResponse(reading, "temperature_max", reading.Observation.TemperatureMax))
}

func (h *handler) coldest(c *fiber.Ctx) error {
	reading, err := h.queries.Coldest(c.Context())
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(superlativeResponse(reading, "temperature_min", reading.Observation.TemperatureMin))
}

func (h *handler) windiest(c *fiber.Ctx) error {
	reading, err := h.queries.Windiest(c.Context())
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(superlativeResponse(reading, "wind_speed", reading.Observation.WindSpeed))
}

func superlativeResponse(r domain.CityReading, metric string, value *float64) fiber.Map {
	return fiber.Map{
		"id":                r.City.ID,
		"name":              r.City.Name,
		"country":           r.City.Country,
		"date":              r.Observation.Date.Format("2006-01-02"),
		metric:              value,
		"weather_condition": r.Observation.WeatherCondition,
	}
}

type runReportResponse struct {
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	Succeeded  int                   `json:"succeeded"`
	Failed     int                   `json:"failed"`
	Outcomes   []cityOutcomeResponse `json:"outcomes"`
}

type cityOutcomeResponse struct {
	CityID      int    `json:"city_id"`
	City        string `json:"city"`
	DaysWritten int    `json:"days_written"`
	Error       string `json:"error,omitempty"`
}

func toRunReportResponse(r domain.RunReport) runReportResponse {
	out := runReportResponse{
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Succeeded:  r.Succeeded(),
		Failed:     r.Failed(),
		Outcomes:   make([]cityOutcomeResponse, 0, len(r.Outcomes)),
	}
	for _, o := range r.Outcomes {
		oc := cityOutcomeResponse{
			CityID:      o.CityID,
			City:        o.CityName,
			DaysWritten: o.DaysWritten,
		}
		if o.Err != nil {
			oc.Error = o.Err.Error()
		}
		out.Outcomes = append(out.Outcomes, oc)
	}
	return out
}

// runIngestion triggers an on-demand run and blocks until it completes.
// Overlap with the scheduled run is tolerated: writes are idempotent
// upserts, concurrent runs converge.
func (h *handler) runIngestion(c *fiber.Ctx) error {
	report, err := h.ingest.Run(c.Context())
	if err != nil {
		if errors.Is(err, pipeline.ErrAllCitiesFailed) {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error":  err.Error(),
				"report": toRunReportResponse(report),
			})
		}
		return h.mapError(c, err)
	}
	return c.JSON(toRunReportResponse(report))
}

func (h *handler) lastRun(c *fiber.Ctx) error {
	report, ok := h.ingest.LastRun()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No ingestion run yet"})
	}
	return c.JSON(toRunReportResponse(report))
}

// mapError translates domain errors into user-visible responses. Missing
// rows are explicit not-found results, never 500s.
func (h *handler) mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "City not found"})
	case errors.Is(err, domain.ErrNoData):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No data"})
	case errors.Is(err, domain.ErrSchemaMissing):
		h.logger.Error("schema missing", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Service not initialized"})
	default:
		h.logger.Error("request failed", "path", c.Path(), "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Internal Server Error")
	}
}
