// Package server provides the HTTP API for recalld.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/logging"
	"github.com/fyrsmithlabs/recalld/internal/tenant"
)

// Inserter stores documents for a tenant. Implemented by tenant.Manager.
type Inserter interface {
	Insert(ctx context.Context, tenantID string, texts []string) (int, error)
}

// Answerer resolves a chat query for a tenant. Implemented by rag.Orchestrator.
type Answerer interface {
	Answer(ctx context.Context, tenantID, query, conversationContext string) (string, error)
}

// Server provides HTTP endpoints for recalld.
type Server struct {
	echo     *echo.Echo
	inserter Inserter
	answerer Answerer
	logger   *logging.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(inserter Inserter, answerer Answerer, logger *logging.Logger, cfg *Config) (*Server, error) {
	if inserter == nil {
		return nil, fmt.Errorf("inserter cannot be nil")
	}
	if answerer == nil {
		return nil, fmt.Errorf("answerer cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8081,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Propagate the request id into the handler context so every
			// log line downstream carries it.
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := logging.ContextWithRequestID(c.Request().Context(), requestID)
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)

			logger.Info(ctx, "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		inserter: inserter,
		answerer: answerer,
		logger:   logger.Named("server"),
		config:   cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/documents", s.handleInsertDocuments)
	v1.POST("/chat", s.handleChat)
}

// InsertDocument is one document in an insert request. Text accepts either a
// JSON string or a JSON object; objects are serialized to indented JSON
// before storage.
type InsertDocument struct {
	Text json.RawMessage `json:"text"`
}

// InsertRequest is the request body for POST /api/v1/documents.
type InsertRequest struct {
	TenantID  string           `json:"tenant_id"`
	Documents []InsertDocument `json:"documents"`
}

// InsertResponse is the response body for POST /api/v1/documents.
type InsertResponse struct {
	Inserted int `json:"inserted"`
}

// ChatRequest is the request body for POST /api/v1/chat.
type ChatRequest struct {
	TenantID            string `json:"tenant_id"`
	Query               string `json:"query"`
	ConversationContext string `json:"conversation_context"`
}

// ChatResponse is the response body for POST /api/v1/chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleInsertDocuments stores a batch of documents for a tenant.
func (s *Server) handleInsertDocuments(c echo.Context) error {
	ctx := c.Request().Context()

	var req InsertRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(ctx, "invalid insert request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if strings.TrimSpace(req.TenantID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "tenant_id field is required")
	}
	if len(req.Documents) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "documents field is required")
	}

	texts := make([]string, 0, len(req.Documents))
	for i, doc := range req.Documents {
		text, err := normalizeDocumentText(doc.Text)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("document %d: %v", i, err))
		}
		texts = append(texts, text)
	}

	ctx = logging.ContextWithTenant(ctx, req.TenantID)
	inserted, err := s.inserter.Insert(ctx, req.TenantID, texts)
	if err != nil {
		if errors.Is(err, tenant.ErrMissingTenant) || errors.Is(err, tenant.ErrInvalidTenant) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid tenant_id")
		}
		s.logger.Error(ctx, "insert failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store documents")
	}

	return c.JSON(http.StatusOK, InsertResponse{Inserted: inserted})
}

// handleChat answers a chat query for a tenant.
func (s *Server) handleChat(c echo.Context) error {
	ctx := c.Request().Context()

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(ctx, "invalid chat request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if strings.TrimSpace(req.TenantID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "tenant_id field is required")
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query field is required")
	}

	ctx = logging.ContextWithTenant(ctx, req.TenantID)
	answer, err := s.answerer.Answer(ctx, req.TenantID, req.Query, req.ConversationContext)
	if err != nil {
		if errors.Is(err, tenant.ErrMissingTenant) || errors.Is(err, tenant.ErrInvalidTenant) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid tenant_id")
		}
		s.logger.Error(ctx, "chat failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to answer query")
	}

	return c.JSON(http.StatusOK, ChatResponse{Response: answer})
}

// normalizeDocumentText coerces a document's text field into the stored
// string form. Non-empty JSON strings pass through; JSON objects are
// re-serialized to indented JSON so structured payloads embed
// deterministically.
func normalizeDocumentText(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("text field is required")
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if str == "" {
			return "", fmt.Errorf("text must not be empty")
		}
		return str, nil
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		pretty, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return "", fmt.Errorf("serializing structured text: %w", err)
		}
		return string(pretty), nil
	}

	return "", fmt.Errorf("text must be a string or an object")
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
