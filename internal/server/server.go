// Package server provides the HTTP API for TrendLens.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/trendlens/internal/backend"
	"github.com/hyperjump/trendlens/internal/config"
	"github.com/hyperjump/trendlens/internal/export"
	"github.com/hyperjump/trendlens/internal/session"
	"github.com/hyperjump/trendlens/internal/storage"
	"github.com/hyperjump/trendlens/internal/suggest"
)

// Server is the HTTP server for the TrendLens API.
type Server struct {
	session  *session.Controller
	exporter *export.Exporter
	storage  storage.Storage
	suggest  *suggest.Index
	backend  *backend.Generator
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// Option configures optional server collaborators.
type Option func(*Server)

// WithSuggestions enables /api/v1/suggest and feeds idx with every analysis.
func WithSuggestions(idx *suggest.Index) Option {
	return func(s *Server) {
		s.suggest = idx
	}
}

// WithBackend serves g on POST /analyze.
func WithBackend(g *backend.Generator) Option {
	return func(s *Server) {
		s.backend = g
	}
}

// NewServer creates a server with the given dependencies.
func NewServer(
	sess *session.Controller,
	exporter *export.Exporter,
	store storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		session:  sess,
		exporter: exporter,
		storage:  store,
		config:   cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	if s.backend != nil {
		s.backend.Routes(r)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/results", s.handleResults)
		r.Get("/dataset", s.handleDataset)
		r.Get("/history", s.handleHistory)
		r.Delete("/history", s.handleClearHistory)
		r.Get("/export/csv", s.handleExportCSV)
		r.Get("/export/xlsx", s.handleExportWorkbook)
		r.Post("/export/raster", s.handleExportRaster)
		r.Get("/suggest", s.handleSuggest)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
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
