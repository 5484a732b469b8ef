// Package api exposes filterable tables over HTTP with Fiber
package api

import (
	"context"

	"github.com/fluxbase-eu/filterable/internal/catalog"
	"github.com/fluxbase-eu/filterable/internal/config"
	"github.com/fluxbase-eu/filterable/internal/database"
	"github.com/fluxbase-eu/filterable/internal/middleware"
	"github.com/fluxbase-eu/filterable/internal/observability"
	"github.com/fluxbase-eu/filterable/internal/query"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

// Server is the HTTP server of the filterable tables
type Server struct {
	app     *fiber.App
	config  *config.Config
	records *RecordsHandler
	metrics *observability.Metrics
}

// NewServer wires routes and middleware. metrics may be nil.
func NewServer(cfg *config.Config, cat *catalog.Catalog, exec database.Executor, metrics *observability.Metrics) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "filterable",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BodyLimit:    cfg.Server.BodyLimit,
		ErrorHandler: errorHandler,
	})

	var bindOpts []BindOption
	if metrics != nil {
		exec = database.NewInstrumentedExecutor(exec, metrics)
		bindOpts = append(bindOpts, WithRecorder(metrics))
	}

	s := &Server{
		app:    app,
		config: cfg,
		records: NewRecordsHandler(cat, exec, query.PageOptions{
			DefaultPageSize: cfg.API.DefaultPageSize,
			MaxPageSize:     cfg.API.MaxPageSize,
		}, bindOpts...),
		metrics: metrics,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.app.Use(RequestID())
	s.app.Use(RequestLogger())
	if s.metrics != nil {
		s.app.Use(s.metrics.Middleware())
		s.app.Get("/metrics", s.metrics.Handler())
	}

	s.app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := s.app.Group("/api/v1")
	v1.Get("/tables", s.records.Tables)

	if s.config.API.RateLimitPerMin <= 0 {
		v1.Get("/tables/:table", s.records.List)
		return
	}
	var recorder middleware.HitRecorder
	if s.metrics != nil {
		recorder = s.metrics
	}
	v1.Get("/tables/:table", middleware.ListLimiter(s.config.API.RateLimitPerMin, recorder), s.records.List)
}

// App returns the underlying Fiber application
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured address until Shutdown
func (s *Server) Start() error {
	log.Info().Str("address", s.config.Server.Address).Msg("Starting HTTP server")
	return s.app.Listen(s.config.Server.Address, fiber.ListenConfig{
		DisableStartupMessage: true,
	})
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
