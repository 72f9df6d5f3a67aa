// Package server exposes the agent and the snapshot store over HTTP
package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/sicko7947/taskflow"
	"github.com/sicko7947/taskflow/agent"
)

// Agent is what the request endpoints need from *agent.Agent
type Agent interface {
	Handle(ctx context.Context, req agent.Request) (agent.Response, error)
	History(ctx context.Context) (agent.History, error)
}

// Server wires the HTTP routes
type Server struct {
	app    *fiber.App
	agent  Agent
	store  taskflow.SnapshotStore
	logger zerolog.Logger

	service string
	version string
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStore enables the workflow snapshot endpoints
func WithStore(store taskflow.SnapshotStore) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithVersion sets the version reported by the health endpoint
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// New creates the server and registers every route
func New(a Agent, opts ...Option) *Server {
	s := &Server{
		agent:   a,
		logger:  zerolog.Nop(),
		service: "taskflow",
		version: "dev",
	}

	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName: s.service,
	})
	s.app.Use(recoverer.New())
	s.app.Use(cors.New())
	s.app.Use(s.requestLogger)

	s.registerRoutes()
	return s
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called
func (s *Server) Listen(addr string) error {
	s.logger.Info().Str("address", addr).Msg("Starting HTTP server")
	return s.app.Listen(addr, fiber.ListenConfig{
		DisableStartupMessage: true,
	})
}

// Shutdown stops accepting connections and waits up to timeout for in-flight requests
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", s.handleHealth)

	v1 := s.app.Group("/api/v1")
	v1.Post("/requests", s.handleSubmitRequest)
	v1.Get("/history", s.handleHistory)

	if s.store != nil {
		workflows := v1.Group("/workflows")
		workflows.Get("/", s.handleListWorkflows)
		workflows.Get("/:id", s.handleGetWorkflow)
		workflows.Delete("/:id", s.handleDeleteWorkflow)
	}
}

func (s *Server) requestLogger(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	s.logger.Debug().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("duration", time.Since(start)).
		Msg("HTTP request")

	return err
}
