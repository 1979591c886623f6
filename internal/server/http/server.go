// Package httpserver provides the HTTP JSON API for paper lookup, search and
// citation graphs.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/scholarsphere/citegraph-service/internal/domain"
	"github.com/scholarsphere/citegraph-service/internal/observability"
	"github.com/scholarsphere/citegraph-service/internal/service"
)

// PaperService resolves batches of papers.
type PaperService interface {
	GetPapers(ctx context.Context, rawIDs []string) ([]domain.Paper, error)
}

// GraphService assembles a paper with its references and citations.
type GraphService interface {
	Assemble(ctx context.Context, rawID string) (*domain.PaperGraph, error)
}

// SearchService runs keyword searches.
type SearchService interface {
	Search(ctx context.Context, params service.SearchParams) (*service.SearchResult, error)
}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	papers     PaperService
	graphs     GraphService
	search     SearchService
	cache      HealthChecker
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new HTTP server with all dependencies.
// metrics may be nil.
func NewServer(
	cfg Config,
	papers PaperService,
	graphs GraphService,
	search SearchService,
	cache HealthChecker,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		papers:  papers,
		graphs:  graphs,
		search:  search,
		cache:   cache,
		metrics: metrics,
		logger:  observability.WithComponent(logger, "http-server"),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(s.requestLogger)
	r.Use(jsonContentTypeMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.searchPapers)
		r.Get("/paper", s.getPaper)
		r.Get("/paper/", s.getPaper)
		r.Get("/paper/{id}", s.getPaper)
		r.Get("/papers", s.getPapers)
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports ready once the cache backend answers.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if s.cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.cache.Ping(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("cache not ready")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"cache":  "unavailable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"cache":  "ok",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
