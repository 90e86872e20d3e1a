// Package http provides the HTTP surface of a running hook registry:
// health, Prometheus metrics, stage inspection and remote stage execution.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/programhooks/internal/hooks"
)

// Registry is the part of hooks.HookManager the server needs.
type Registry interface {
	Stages() []hooks.Stage
	Count(stage hooks.Stage) int
	Execute(ctx context.Context, stage hooks.Stage, args hooks.Args) (hooks.Result, error)
}

// Server serves the registry over HTTP.
type Server struct {
	echo     *echo.Echo
	registry Registry
	logger   *zap.Logger
	addr     string
}

// NewServer creates a server listening on addr once started.
func NewServer(registry Registry, logger *zap.Logger, addr string) (*Server, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if addr == "" {
		addr = ":9102"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Debug("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:     e,
		registry: registry,
		logger:   logger,
		addr:     addr,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/stages", s.handleStages)
	v1.POST("/stages/:stage/execute", s.handleExecute)
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// StageInfo describes one stage in GET /api/v1/stages.
type StageInfo struct {
	Stage string `json:"stage"`
	Hooks int    `json:"hooks"`
}

// ExecuteRequest is the body of POST /api/v1/stages/:stage/execute.
type ExecuteRequest struct {
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs"`
}

// ExecuteResponse reports the outcome of a remote stage execution.
type ExecuteResponse struct {
	Stage   string `json:"stage"`
	Outcome string `json:"outcome"`
	Called  int    `json:"called"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleStages(c echo.Context) error {
	stages := s.registry.Stages()
	out := make([]StageInfo, 0, len(stages))
	for _, stage := range stages {
		out = append(out, StageInfo{Stage: string(stage), Hooks: s.registry.Count(stage)})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleExecute(c echo.Context) error {
	var req ExecuteRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			s.logger.Warn("invalid execute request", zap.Error(err))
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}

	stage := hooks.Stage(c.Param("stage"))
	result, err := s.registry.Execute(c.Request().Context(), stage, hooks.Args{
		Positional: req.Args,
		Keyword:    req.Kwargs,
	})

	resp := ExecuteResponse{
		Stage:   string(result.Stage),
		Outcome: result.Outcome.String(),
		Called:  result.Called,
	}

	switch {
	case err != nil:
		resp.Error = err.Error()
		return c.JSON(http.StatusInternalServerError, resp)
	case result.Outcome == hooks.OutcomeInvalidStage:
		return c.JSON(http.StatusNotFound, resp)
	default:
		return c.JSON(http.StatusOK, resp)
	}
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.addr))
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}
