// Package rag wires retrieval and generation together: it owns the
// per-query flow of session history, tool-assisted generation and source
// collection.
package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mike-a-ellis/course-rag/internal/course"
	"github.com/mike-a-ellis/course-rag/internal/generation"
)

// Catalog is the slice of the vector store the system reads analytics from.
type Catalog interface {
	ListCourses(ctx context.Context) ([]course.CourseSummary, error)
	ChunkCount(ctx context.Context) (int, error)
}

// Generator produces an answer for a query, optionally using tools.
type Generator interface {
	Generate(ctx context.Context, query, history string, tools generation.ToolRunner) (string, error)
}

// ToolRegistry dispatches tool calls and tracks the sources they touched.
// *search.Registry satisfies it.
type ToolRegistry interface {
	generation.ToolRunner
	LastSources() []course.Source
	ResetSources()
}

// Sessions keeps bounded conversation history per session.
type Sessions interface {
	Create() string
	History(id string) string
	AddExchange(id, query, answer string)
}

// Analytics summarizes what is currently indexed.
type Analytics struct {
	TotalCourses int      `json:"total_courses"`
	TotalChunks  int      `json:"total_chunks"`
	CourseTitles []string `json:"course_titles"`
}

// System answers questions about course materials.
type System struct {
	catalog   Catalog
	generator Generator
	registry  ToolRegistry
	sessions  Sessions
	logger    *slog.Logger
}

// New creates the system from its components.
func New(catalog Catalog, generator Generator, registry ToolRegistry, sessions Sessions, logger *slog.Logger) *System {
	if logger == nil {
		logger = slog.Default()
	}
	return &System{
		catalog:   catalog,
		generator: generator,
		registry:  registry,
		sessions:  sessions,
		logger:    logger,
	}
}

// Query answers one question. An empty sessionID starts a new session; the
// returned id identifies the session for follow-up questions. Sources are
// the course/lesson citations the search tools touched while answering.
func (s *System) Query(ctx context.Context, text, sessionID string) (string, []course.Source, string, error) {
	if sessionID == "" {
		sessionID = s.sessions.Create()
	}
	history := s.sessions.History(sessionID)

	prompt := fmt.Sprintf("Answer this question about course materials: %s", text)
	answer, err := s.generator.Generate(ctx, prompt, history, s.registry)
	if err != nil {
		return "", nil, sessionID, fmt.Errorf("generate answer: %w", err)
	}

	sources := s.registry.LastSources()
	s.registry.ResetSources()

	s.sessions.AddExchange(sessionID, text, answer)
	s.logger.Debug("answered query", "session", sessionID, "sources", len(sources))
	return answer, sources, sessionID, nil
}

// Stats reports what is currently indexed.
func (s *System) Stats(ctx context.Context) (*Analytics, error) {
	courses, err := s.catalog.ListCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	chunks, err := s.catalog.ChunkCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}

	titles := make([]string, 0, len(courses))
	for _, c := range courses {
		titles = append(titles, c.Title)
	}
	return &Analytics{
		TotalCourses: len(courses),
		TotalChunks:  chunks,
		CourseTitles: titles,
	}, nil
}
