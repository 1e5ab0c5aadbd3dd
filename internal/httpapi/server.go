// Package httpapi exposes the query and catalog endpoints consumed by web
// frontends, plus health checking and a landing page.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mike-a-ellis/course-rag/internal/course"
	"github.com/mike-a-ellis/course-rag/internal/rag"
)

// QueryService answers questions and reports index analytics. *rag.System
// satisfies it.
type QueryService interface {
	Query(ctx context.Context, text, sessionID string) (string, []course.Source, string, error)
	Stats(ctx context.Context) (*rag.Analytics, error)
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	system QueryService
	logger *slog.Logger
}

// New creates the API server.
func New(system QueryService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{system: system, logger: logger}
}

// Routes registers all endpoints on the given mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/query", s.handleQuery)
	mux.HandleFunc("GET /api/courses", s.handleCourses)
	mux.HandleFunc("GET /", NewLandingHandler())
}

// QueryRequest is the body of POST /api/query. SessionID is optional; when
// empty a new session is created and returned.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// SourceRef is one citation in a query response.
type SourceRef struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

// QueryResponse is the body of a successful POST /api/query.
type QueryResponse struct {
	Answer    string      `json:"answer"`
	Sources   []SourceRef `json:"sources"`
	SessionID string      `json:"session_id"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	answer, sources, sessionID, err := s.system.Query(r.Context(), req.Query, req.SessionID)
	if err != nil {
		s.logger.Error("query failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	refs := make([]SourceRef, 0, len(sources))
	for _, src := range sources {
		refs = append(refs, SourceRef{Text: src.Label(), Link: src.Link})
	}

	writeJSON(w, http.StatusOK, QueryResponse{
		Answer:    answer,
		Sources:   refs,
		SessionID: sessionID,
	})
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	stats, err := s.system.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
