// Package server provides the HTTP API for promptrepo.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hyperjump/promptrepo/internal/config"
	"github.com/hyperjump/promptrepo/internal/indexer"
	"github.com/hyperjump/promptrepo/internal/search"
	"github.com/hyperjump/promptrepo/internal/storage"
)

// Server is the HTTP server for the promptrepo API.
type Server struct {
	engine  *search.Engine
	indexer *indexer.Indexer
	storage storage.Storage
	config  *config.Config
	logger  *zap.Logger

	mu     sync.Mutex
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *search.Engine,
	idx *indexer.Indexer,
	storage storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:  engine,
		indexer: idx,
		storage: storage,
		config:  cfg,
		logger:  logger,
	}
}

// Routes returns the API handler with its middleware stack.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/prompts", s.handleCreatePrompt)
		r.Get("/prompts", s.handleListPrompts)
		r.Get("/prompts/{id}", s.handleGetPrompt)
		r.Delete("/prompts/{id}", s.handleDeletePrompt)
		r.Post("/prompts/{id}/reindex", s.handleReindexPrompt)
		r.Get("/search", s.handleSearchGet)
		r.Post("/search", s.handleSearch)
		r.Get("/status", s.handleStatus)
	})

	// unversioned routes used by the existing web frontend
	r.Post("/prompts", s.handleCreatePrompt)
	r.Get("/prompts", s.handleListPrompts)
	r.Get("/search", s.handleSearchGet)

	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()
	s.logger.Info("Starting server", zap.String("addr", addr))
	return srv.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}
