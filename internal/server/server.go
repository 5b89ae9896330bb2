// Package server provides the HTTP API for shirabe.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/shirabe/internal/config"
	"github.com/hyperjump/shirabe/internal/tool"
	"go.uber.org/zap"
)

// indexTimeout bounds an index request; large folders embed many batches.
const indexTimeout = 10 * time.Minute

// WatchService follows the indexed folder so it can be re-indexed on change.
type WatchService interface {
	Watch(root string) error
	Root() string
}

// Server is the HTTP server for the shirabe API.
type Server struct {
	tool    *tool.Tool
	config  *config.ServerConfig
	logger  *zap.Logger
	watcher WatchService
	server  *http.Server
}

// NewServer creates a server with the given dependencies. watcher may be nil.
func NewServer(
	t *tool.Tool,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	watcher WatchService,
) *Server {
	return &Server{
		tool:    t,
		config:  cfg,
		logger:  logger,
		watcher: watcher,
	}
}

// Router returns the HTTP handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.Timeout(indexTimeout)).Post("/index", s.handleIndex)
		r.Delete("/index", s.handleClear)
		r.Get("/status", s.handleStatus)
		r.With(middleware.Timeout(60*time.Second)).Post("/search", s.handleSearch)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
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
