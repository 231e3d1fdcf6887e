// Package httpapi exposes the assessment pipeline over HTTP: the streaming
// and blocking risk-check endpoints, per-user alert history, and the
// operational health, readiness, and metrics routes.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pollenguard/allergy-risk/internal/domain"
	"github.com/pollenguard/allergy-risk/internal/pipeline"
)

var validate = validator.New()

// AssessmentRunner executes assessment runs on behalf of the handlers.
type AssessmentRunner interface {
	Stream(ctx context.Context, input pipeline.Input, emit pipeline.EmitFunc) error
	Run(ctx context.Context, input pipeline.Input) (domain.AssessmentResult, error)
}

// AlertHistory is the persistence surface the API reads. A nil history
// disables the alerts endpoint and the persistence readiness check.
type AlertHistory interface {
	ListAlerts(ctx context.Context, userID string, limit int) ([]domain.AlertEntry, error)
	Ping(ctx context.Context) error
}

// Server serves the assessment API.
type Server struct {
	httpServer *http.Server
	runner     AssessmentRunner
	history    AlertHistory
	logger     *slog.Logger
}

// NewServer wires the routes and middleware. origins feeds the CORS policy;
// a single "*" entry allows all. history may be nil when persistence is
// disabled.
func NewServer(addr string, origins []string, runner AssessmentRunner, history AlertHistory, logger *slog.Logger) *Server {
	s := &Server{
		runner:  runner,
		history: history,
		logger:  logger,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"*"},
	}))
	engine.Use(requestLogger(logger))

	engine.GET("/", s.handleRoot)
	api := engine.Group("/api")
	{
		api.POST("/check-risk-stream", s.handleCheckRiskStream)
		api.POST("/check-risk", s.handleCheckRisk)
		api.GET("/users/:id/alerts", s.handleListAlerts)
	}
	engine.GET("/healthz", s.handleHealth)
	engine.GET("/readyz", s.handleReady)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     engine,
		ReadTimeout: 10 * time.Second,
		// WriteTimeout stays zero: the stream endpoint holds its
		// response open for the full length of a run.
		IdleTimeout: 60 * time.Second,
	}
	return s
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
	s.httpServer.Handler.ServeHTTP(w, r)
}

// riskCheckRequest is the body of both risk-check endpoints.
type riskCheckRequest struct {
	Location  string   `json:"location" validate:"required"`
	UserID    string   `json:"user_id"`
	Allergies []string `json:"allergies" validate:"max=20,dive,min=1"`
}

func (r riskCheckRequest) toInput() pipeline.Input {
	return pipeline.Input{
		Location:  r.Location,
		UserID:    r.UserID,
		Allergies: r.Allergies,
	}
}

// bindRiskCheck decodes and validates the request body, writing the 400
// itself on failure.
func bindRiskCheck(c *gin.Context) (riskCheckRequest, bool) {
	var req riskCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return req, false
	}
	req.Location = strings.TrimSpace(req.Location)
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return req, false
	}
	return req, true
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Allergy risk assessment service is running"})
}

// handleCheckRiskStream runs one assessment and relays its progress as
// server-sent events. Each frame is one event JSON-encoded on a data line.
// The terminal result or error frame arrives on the stream itself, so the
// HTTP status is always 200 once the first frame is written.
func (s *Server) handleCheckRiskStream(c *gin.Context) {
	req, ok := bindRiskCheck(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	emit := func(event domain.ProgressEvent) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	if err := s.runner.Stream(c.Request.Context(), req.toInput(), emit); err != nil {
		// The terminal error frame is already on the wire (or the
		// client is gone); nothing useful left to send.
		s.logger.Debug("stream ended with error", "location", req.Location, "error", err)
	}
}

// handleCheckRisk is the blocking form for clients that cannot consume SSE.
func (s *Server) handleCheckRisk(c *gin.Context) {
	req, ok := bindRiskCheck(c)
	if !ok {
		return
	}

	result, err := s.runner.Run(c.Request.Context(), req.toInput())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListAlerts(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alert history requires persistence to be configured"})
		return
	}

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	userID := c.Param("id")
	entries, err := s.history.ListAlerts(c.Request.Context(), userID, limit)
	if err != nil {
		s.logger.Error("alert history query failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list alerts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": entries})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// handleReady reports ready once the store answers a ping; without
// persistence there is nothing to wait on.
func (s *Server) handleReady(c *gin.Context) {
	if s.history != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.history.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// requestLogger emits one structured line per request after the handler
// chain completes.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if query != "" {
			attrs = append(attrs, "query", query)
		}
		logger.Info("http request", attrs...)
	}
}
