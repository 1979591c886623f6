package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/scholarsphere/citegraph-service/internal/domain"
	"github.com/scholarsphere/citegraph-service/internal/observability"
	"github.com/scholarsphere/citegraph-service/internal/service"
)

// maxQueryLength bounds the q parameter.
const maxQueryLength = 1000

// searchPapers handles GET /api/search?q=&per_page=&cursor=.
func (s *Server) searchPapers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "Search query is required")
		return
	}
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "Search query is too long")
		return
	}

	params := service.SearchParams{Query: query, Cursor: q.Get("cursor")}
	if raw := q.Get("per_page"); raw != "" {
		perPage, err := strconv.Atoi(raw)
		if err != nil || perPage < 1 {
			writeError(w, http.StatusBadRequest, "Invalid per_page parameter")
			return
		}
		params.PerPage = perPage
	}

	result, err := s.search.Search(r.Context(), params)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeDomainError(w, err)
		case errors.Is(err, service.ErrSearchFailed):
			writeError(w, http.StatusInternalServerError, "Failed to fetch search results")
		default:
			s.logError(r, err, "search failed")
			writeError(w, http.StatusInternalServerError, "Error processing search")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// getPaper handles GET /api/paper/{id}. The response carries the paper with
// its references and citations materialized.
func (s *Server) getPaper(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "No paper ID provided")
		return
	}

	graph, err := s.graphs.Assemble(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "Paper not found")
		case errors.Is(err, domain.ErrInvalidInput):
			writeDomainError(w, err)
		default:
			s.logError(r, err, "graph assembly failed")
			writeError(w, http.StatusInternalServerError, "Error processing paper")
		}
		return
	}

	writeJSON(w, http.StatusOK, graph)
}

// getPapers handles GET /api/papers?ids=a,b,c.
func (s *Server) getPapers(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ids")
	if strings.TrimSpace(raw) == "" {
		writeError(w, http.StatusBadRequest, "No paper IDs provided")
		return
	}

	papers, err := s.papers.GetPapers(r.Context(), strings.Split(raw, ","))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeDomainError(w, err)
			return
		}
		s.logError(r, err, "batch lookup failed")
		writeError(w, http.StatusInternalServerError, "Error processing papers")
		return
	}

	writeJSON(w, http.StatusOK, papers)
}

func (s *Server) logError(r *http.Request, err error, msg string) {
	logger := observability.LoggerFromContext(r.Context(), s.logger)
	logger.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
}

// writeDomainError maps domain errors to appropriate HTTP status codes and
// writes a JSON error response. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Message)
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
