// Package server provides the HTTP API for policynav.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/orieg/edu-policy-navigator-sub001/internal/config"
	"github.com/orieg/edu-policy-navigator-sub001/internal/corpus"
	"github.com/orieg/edu-policy-navigator-sub001/internal/embedding"
)

// Server is the HTTP server for the policynav API. It reads whatever corpus
// snapshot the manager currently holds; it never mutates one.
type Server struct {
	manager  *corpus.Manager
	embedder embedding.Embedder
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	manager *corpus.Manager,
	embedder embedding.Embedder,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		manager:  manager,
		embedder: embedder,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/lookup", s.handleLookup)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Get("/api/v1/status", s.handleStatus)
	r.Post("/api/v1/reload", s.handleReload)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
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
