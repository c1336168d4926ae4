// Package server provides the HTTP API for contract classification and audit.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/contraudit/contraudit/internal/classifier"
	"github.com/contraudit/contraudit/internal/config"
	"github.com/contraudit/contraudit/internal/storage"
)

// Server is the HTTP server for the classification API.
type Server struct {
	classifier *classifier.Classifier
	storage    storage.Storage
	config     *config.Config
	logger     *zap.Logger
	server     *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	c *classifier.Classifier,
	store storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		classifier: c,
		storage:    store,
		config:     cfg,
		logger:     logger,
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/classify", s.handleClassify)
	r.Post("/api/v1/audit", s.handleAudit)
	r.Post("/api/v1/templates", s.handleIndexTemplate)
	r.Get("/api/v1/templates", s.handleListTemplates)
	r.Put("/api/v1/templates/{id}/active", s.handleSetTemplateActive)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Put("/api/v1/documents/{id}/choice", s.handleUserChoice)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.routes(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
