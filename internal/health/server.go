package health

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/bakkerme/salewatch/internal/runner"
)

// StatusProvider reports the runner's current state.
type StatusProvider interface {
	Status() runner.Status
}

// RunTrigger queues a manual poll cycle.
type RunTrigger interface {
	Fire(source string) bool
}

type Server struct {
	status  StatusProvider
	trigger RunTrigger
	logger  *slog.Logger
	echo    *echo.Echo
}

func NewServer(status StatusProvider, trigger RunTrigger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("http request", "method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))

	server := &Server{
		status:  status,
		trigger: trigger,
		logger:  logger,
		echo:    e,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.echo.GET("/", s.handleAlive)

	api := s.echo.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/status", s.handleStatus)
	api.POST("/run", s.handleRun)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until Shutdown. A clean shutdown returns nil.
func (s *Server) Start(addr string) error {
	s.logger.Info("health server listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleAlive(c echo.Context) error {
	return c.String(http.StatusOK, "alive")
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "salewatch",
	})
}

func (s *Server) handleStatus(c echo.Context) error {
	if s.status == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"message": "runner not attached",
		})
	}
	return c.JSON(http.StatusOK, s.status.Status())
}

func (s *Server) handleRun(c echo.Context) error {
	if s.trigger == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"message": "manual runs are disabled",
		})
	}
	if !s.trigger.Fire("api") {
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"message": "a run is already queued",
		})
	}
	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"message": "poll cycle queued",
	})
}
