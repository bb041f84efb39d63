// Package server provides the HTTP API for Kioku.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/keyword"
	"github.com/hyperjump/kioku/internal/rag"
	"github.com/hyperjump/kioku/internal/store"
	"go.uber.org/zap"
)

// WatchService is the subset of the directory watcher the API needs.
// It is an interface so handler tests can substitute a fake.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the Kioku API.
type Server struct {
	store    *store.Store
	rag      *rag.Service
	keyword  keyword.Index
	watch    WatchService
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	configMu sync.Mutex
	// configPath, when set, is where watch directory changes are persisted.
	configPath string
}

// New creates a server with the given dependencies. keyword index and watch
// may be nil; the corresponding endpoints then report not-enabled.
func New(
	st *store.Store,
	ragSvc *rag.Service,
	kw keyword.Index,
	watch WatchService,
	cfg *config.Config,
	configPath string,
	logger *zap.Logger,
) *Server {
	return &Server{
		store:      st,
		rag:        ragSvc,
		keyword:    kw,
		watch:      watch,
		config:     cfg,
		configPath: configPath,
		logger:     logger,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", s.handleCreateDocument)
		r.Get("/documents", s.handleListDocuments)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Delete("/documents/{id}", s.handleDeleteDocument)

		r.Post("/search/semantic", s.handleSemanticSearch)
		r.Post("/search/keyword", s.handleKeywordSearch)
		r.Post("/context", s.handleContext)

		r.Post("/agents", s.handleCreateAgent)
		r.Get("/agents", s.handleListAgents)
		r.Get("/agents/{id}", s.handleGetAgent)
		r.Post("/agents/{id}/usage", s.handleAgentUsage)

		r.Post("/conversations", s.handleCreateConversation)
		r.Get("/conversations/{id}", s.handleGetConversation)
		r.Post("/conversations/{id}/messages", s.handleAddMessage)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)

		r.Get("/status", s.handleStatus)
		r.Post("/compact", s.handleCompact)

		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	})

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
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
