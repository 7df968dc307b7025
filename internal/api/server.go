// Package api exposes the dashboard-facing HTTP boundary over the query
// service and ingestion pipeline. Route and JSON field names match the
// existing dashboard client.
package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/city-weather-service/internal/domain"
)

// Queries is the read-side surface consumed by the handlers.
type Queries interface {
	ListCities(ctx context.Context) ([]domain.City, error)
	GetCity(ctx context.Context, id int) (domain.City, error)
	Observations(ctx context.Context, cityID, windowDays int) (domain.City, []domain.Observation, error)
	Hottest(ctx context.Context) (domain.CityReading, error)
	Coldest(ctx context.Context) (domain.CityReading, error)
	Windiest(ctx context.Context) (domain.CityReading, error)
}

// StatsProvider computes (possibly cached) window statistics.
type StatsProvider interface {
	Stats(ctx context.Context, cityID, windowDays int) (domain.Stats, error)
}

// IngestRunner triggers and reports on ingestion runs.
type IngestRunner interface {
	Run(ctx context.Context) (domain.RunReport, error)
	LastRun() (domain.RunReport, bool)
	Ready() bool
}

// HealthChecker reports store connectivity and seed state.
type HealthChecker interface {
	Ping(ctx context.Context) error
	CitiesSeeded(ctx context.Context) (bool, error)
}

// Server wires the fiber app.
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger
}

// New builds the HTTP server with all routes registered.
func New(addr string, queries Queries, stats StatsProvider, ingest IngestRunner, health HealthChecker, logger *slog.Logger) *Server {
	// No WriteTimeout: POST /ingest/run blocks for a full ingestion pass,
	// which can take minutes. The run itself is bounded by the caller's
	// context, not by a connection deadline.
	app := fiber.New(fiber.Config{
		AppName:      "city-weather-service",
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  time.Minute,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New())

	h := &handler{
		queries: queries,
		stats:   stats,
		ingest:  ingest,
		health:  health,
		logger:  logger,
	}

	app.Get("/", h.index)
	app.Get("/healthz", h.healthz)
	app.Get("/readyz", h.readyz)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/cities", h.listCities)
	app.Get("/cities/:id", h.getCity)
	app.Get("/weather/:id", h.getWeather)
	app.Get("/stats/:id", h.getStats)
	app.Get("/hottest", h.hottest)
	app.Get("/coldest", h.coldest)
	app.Get("/windiest", h.windiest)

	app.Post("/ingest/run", h.runIngestion)
	app.Get("/ingest/last", h.lastRun)

	return &Server{app: app, addr: addr, logger: logger}
}

// Start begins listening. Blocks until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// Shutdown gracefully drains connections within the timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{"error": message})
}
