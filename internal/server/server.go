// Package server provides the HTTP API for researchd.
package server

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

	"github.com/fyrsmithlabs/researchd/internal/ingest"
	"github.com/fyrsmithlabs/researchd/internal/orchestrator"
	"github.com/fyrsmithlabs/researchd/internal/planner"
	"github.com/fyrsmithlabs/researchd/internal/report"
	"github.com/fyrsmithlabs/researchd/internal/retrieval"
)

const sessionCookie = "session_id"

// Ingester runs an ingestion sweep over a directory.
type Ingester interface {
	Ingest(ctx context.Context, dir string) (ingest.Summary, error)
}

// Retriever serves similarity queries.
type Retriever interface {
	Retrieve(ctx context.Context, query string, opts retrieval.Options) ([]retrieval.Result, error)
}

// Researcher plans and executes research runs.
type Researcher interface {
	Plan(ctx context.Context, topic string) (*planner.Plan, error)
	Execute(ctx context.Context, plan *planner.Plan) (string, []report.Source, error)
}

// Server provides HTTP endpoints for researchd.
type Server struct {
	echo       *echo.Echo
	ingester   Ingester
	retriever  Retriever
	researcher Researcher
	sessions   orchestrator.SessionStore
	corpusDir  string
	logger     *zap.Logger
	config     *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(ingester Ingester, retriever Retriever, researcher Researcher, sessions orchestrator.SessionStore, corpusDir string, logger *zap.Logger, cfg *Config) (*Server, error) {
	if ingester == nil || retriever == nil || researcher == nil || sessions == nil {
		return nil, fmt.Errorf("all service dependencies are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8080,
		}
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
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:       e,
		ingester:   ingester,
		retriever:  retriever,
		researcher: researcher,
		sessions:   sessions,
		corpusDir:  corpusDir,
		logger:     logger,
		config:     cfg,
	}

	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/ingest", s.handleIngest)
	v1.POST("/retrieve", s.handleRetrieve)
	v1.POST("/plan", s.handlePlan)
	v1.POST("/execute", s.handleExecute)
}

// HealthResponse is the response body for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// RetrieveRequest is the request body for POST /api/v1/retrieve.
type RetrieveRequest struct {
	Query    string   `json:"query"`
	TopK     int      `json:"top_k,omitempty"`
	MinScore *float32 `json:"min_score,omitempty"`
}

// RetrieveResponse is the response body for POST /api/v1/retrieve.
type RetrieveResponse struct {
	Results []retrieval.Result `json:"results"`
}

// PlanRequest is the request body for POST /api/v1/plan.
type PlanRequest struct {
	Topic string `json:"topic"`
}

// PlanResponse is the response body for POST /api/v1/plan.
type PlanResponse struct {
	Plan *planner.Plan `json:"plan"`
}

// ExecuteRequest is the request body for POST /api/v1/execute. The plan
// is optional; when omitted the session's stored plan is used.
type ExecuteRequest struct {
	Plan *planner.Plan `json:"plan,omitempty"`
}

// ExecuteResponse is the response body for POST /api/v1/execute.
type ExecuteResponse struct {
	Report  string          `json:"report"`
	Sources []report.Source `json:"sources"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleIngest runs a sweep over the configured corpus directory.
func (s *Server) handleIngest(c echo.Context) error {
	summary, err := s.ingester.Ingest(c.Request().Context(), s.corpusDir)
	if err != nil {
		s.logger.Error("ingestion sweep failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "ingestion failed")
	}
	return c.JSON(http.StatusOK, summary)
}

func (s *Server) handleRetrieve(c echo.Context) error {
	var req RetrieveRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid retrieve request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query field is required")
	}

	opts := retrieval.Options{TopK: req.TopK}
	if req.MinScore != nil {
		opts = opts.WithMinScore(*req.MinScore)
	}

	results, err := s.retriever.Retrieve(c.Request().Context(), req.Query, opts)
	if err != nil {
		if errors.Is(err, retrieval.ErrEmptyQuery) {
			return echo.NewHTTPError(http.StatusBadRequest, "query field is required")
		}
		s.logger.Error("retrieval failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "retrieval failed")
	}

	return c.JSON(http.StatusOK, RetrieveResponse{Results: results})
}

// handlePlan generates a plan and stores it in the caller's session.
func (s *Server) handlePlan(c echo.Context) error {
	var req PlanRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid plan request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Topic == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "topic field is required")
	}

	plan, err := s.researcher.Plan(c.Request().Context(), req.Topic)
	if err != nil {
		if errors.Is(err, planner.ErrMalformedPlan) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		s.logger.Error("planning failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "planning failed")
	}

	session := s.session(c)
	session.Topic = req.Topic
	session.Plan = plan
	if err := s.sessions.Put(c.Request().Context(), session); err != nil {
		s.logger.Error("storing session failed", zap.Error(err))
	}

	return c.JSON(http.StatusOK, PlanResponse{Plan: plan})
}

// handleExecute runs a plan from the request body, falling back to the
// plan stored in the caller's session.
func (s *Server) handleExecute(c echo.Context) error {
	var req ExecuteRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid execute request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	plan := req.Plan
	if plan == nil {
		session := s.session(c)
		plan = session.Plan
	}
	if plan == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no plan found, generate a plan first")
	}

	body, sources, err := s.researcher.Execute(c.Request().Context(), plan)
	if err != nil {
		if errors.Is(err, planner.ErrMalformedPlan) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		s.logger.Error("plan execution failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "execution failed")
	}

	return c.JSON(http.StatusOK, ExecuteResponse{Report: body, Sources: sources})
}

// session resolves the caller's session from the session_id cookie,
// creating a new session (and setting the cookie) when the cookie is
// missing or stale.
func (s *Server) session(c echo.Context) *orchestrator.Session {
	ctx := c.Request().Context()

	if cookie, err := c.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		if session, err := s.sessions.Get(ctx, cookie.Value); err == nil {
			return session
		}
	}

	session, err := s.sessions.Create(ctx)
	if err != nil {
		// The in-memory store never fails here; a future backed store
		// might, in which case the request proceeds with a transient
		// session that is simply not persisted.
		s.logger.Error("creating session failed", zap.Error(err))
		return &orchestrator.Session{}
	}

	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return session
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
