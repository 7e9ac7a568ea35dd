// Package http exposes the query pipeline, session history and operational
// endpoints over a gin router.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/couchcryptid/float-query-service/internal/domain"
	"github.com/couchcryptid/float-query-service/internal/history"
	"github.com/couchcryptid/float-query-service/internal/pipeline"
)

// ServiceName labels the server spans.
const ServiceName = "float-query-service"

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Answerer runs one query through the pipeline.
type Answerer interface {
	Answer(ctx context.Context, req pipeline.Request) domain.Answer
}

// HistoryReader serves the session history endpoints.
type HistoryReader interface {
	SessionHistory(ctx context.Context, sessionID string, limit int) ([]domain.HistoryRecord, error)
	Get(ctx context.Context, queryID string) (domain.HistoryRecord, error)
	DeleteSession(ctx context.Context, sessionID string) (int, error)
	Stats(ctx context.Context, sessionID string) (history.SessionStats, error)
}

// Deps are the collaborators behind the routes.
type Deps struct {
	Answerer     Answerer
	History      HistoryReader
	Profiles     *domain.Store
	Ready        ReadinessChecker
	QueryTimeout time.Duration
}

// Server exposes the query API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the query, history and operational routes.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(otelgin.Middleware(ServiceName))
	engine.Use(requestLogger(logger))

	if deps.QueryTimeout <= 0 {
		deps.QueryTimeout = 15 * time.Second
	}

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      engine,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: deps.QueryTimeout + 5*time.Second,
			IdleTimeout:  60 * time.Second,
		},
		engine: engine,
		deps:   deps,
		logger: logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.POST("/query", s.handleQuery)
	s.engine.GET("/sessions/:id/history", s.handleSessionHistory)
	s.engine.GET("/sessions/:id/stats", s.handleSessionStats)
	s.engine.DELETE("/sessions/:id", s.handleDeleteSession)
	s.engine.GET("/queries/:id", s.handleGetQuery)
	s.engine.GET("/export/:id", s.handleExport)
	s.engine.GET("/variables", s.handleVariables)
	s.engine.GET("/profiles", s.handleProfiles)

	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/readyz", s.handleReady)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

type queryRequest struct {
	Query     string `json:"query" binding:"required,max=2000"`
	SessionID string `json:"session_id" binding:"omitempty,max=128"`
	UserID    string `json:"user_id" binding:"omitempty,max=128"`
}

func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.deps.QueryTimeout)
	defer cancel()

	ans := s.deps.Answerer.Answer(ctx, pipeline.Request{
		Query:     req.Query,
		SessionID: req.SessionID,
		UserID:    req.UserID,
	})
	c.JSON(http.StatusOK, ans)
}

func (s *Server) handleSessionHistory(c *gin.Context) {
	limit := history.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 1000"})
			return
		}
		limit = n
	}

	sessionID := c.Param("id")
	recs, err := s.deps.History.SessionHistory(c.Request.Context(), sessionID, limit)
	if err != nil {
		s.internalError(c, "session history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "count": len(recs), "history": recs})
}

func (s *Server) handleSessionStats(c *gin.Context) {
	st, err := s.deps.History.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.internalError(c, "session stats", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	sessionID := c.Param("id")
	n, err := s.deps.History.DeleteSession(c.Request.Context(), sessionID)
	if err != nil {
		s.internalError(c, "delete session", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "deleted": n})
}

func (s *Server) handleGetQuery(c *gin.Context) {
	rec, err := s.deps.History.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, history.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "query not found"})
		return
	}
	if err != nil {
		s.internalError(c, "get query", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type variableInfo struct {
	Name        domain.Variable `json:"name"`
	Unit        string          `json:"unit"`
	Description string          `json:"description"`
}

func (s *Server) handleVariables(c *gin.Context) {
	out := make([]variableInfo, 0, len(domain.MeasuredVariables))
	for _, v := range domain.MeasuredVariables {
		out = append(out, variableInfo{Name: v, Unit: v.Unit(), Description: v.Description()})
	}
	c.JSON(http.StatusOK, gin.H{"variables": out})
}

func (s *Server) handleProfiles(c *gin.Context) {
	if s.deps.Profiles == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": domain.ErrStoreUnavailable.Error()})
		return
	}
	activeOnly := c.Query("active") == "true"
	summaries := s.deps.Profiles.Summaries(activeOnly)
	c.JSON(http.StatusOK, gin.H{"count": len(summaries), "profiles": summaries})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.deps.Ready.CheckReadiness(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) internalError(c *gin.Context, op string, err error) {
	s.logger.Error("request failed", "op", op, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// requestLogger logs one line per request through slog.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
