// Package ingest turns course documents into indexed vector-store entries:
// fetch, parse, chunk, embed and store, with per-document failure isolation.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mike-a-ellis/course-rag/internal/chunker"
	"github.com/mike-a-ellis/course-rag/internal/course"
	"github.com/mike-a-ellis/course-rag/internal/parser"
	"github.com/mike-a-ellis/course-rag/internal/storage"
)

// Result contains statistics about one ingestion run.
type Result struct {
	TotalDocs      int
	AddedCourses   int
	SkippedCourses int
	TotalChunks    int
	FailedDocs     []FailedDoc
	Duration       time.Duration
}

// FailedDoc records a document that could not be ingested.
type FailedDoc struct {
	Name   string
	Reason string
}

// CourseStore is the slice of the vector store the pipeline writes to.
type CourseStore interface {
	AddCourse(ctx context.Context, c *course.Course, chunks []course.Chunk) error
}

// Pipeline orchestrates ingestion from a document source into the store.
type Pipeline struct {
	source  Source
	chunker *chunker.Chunker
	store   CourseStore
	logger  *slog.Logger
}

// NewPipeline creates an ingestion pipeline with the given components.
func NewPipeline(source Source, ck *chunker.Chunker, store CourseStore, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{source: source, chunker: ck, store: store, logger: logger}
}

// Run ingests every document the source offers. A malformed document or a
// storage failure skips that document only; already-indexed courses are
// counted as skipped. Returns statistics about the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}

	names, err := p.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	result.TotalDocs = len(names)
	p.logger.Info("Starting ingestion", "documents", len(names))

	for _, name := range names {
		chunks, err := p.processDocument(ctx, name)
		if errors.Is(err, storage.ErrDuplicateCourse) {
			p.logger.Info("Course already indexed, skipping", "document", name)
			result.SkippedCourses++
			continue
		}
		if err != nil {
			p.logger.Warn("Failed to ingest document", "document", name, "error", err)
			result.FailedDocs = append(result.FailedDocs, FailedDoc{Name: name, Reason: err.Error()})
			continue
		}
		result.AddedCourses++
		result.TotalChunks += chunks
	}

	result.Duration = time.Since(start)
	p.logger.Info("Ingestion complete",
		"added", result.AddedCourses,
		"skipped", result.SkippedCourses,
		"failed", len(result.FailedDocs),
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)
	return result, nil
}

// processDocument handles one document end to end. Returns the number of
// chunks stored for it.
func (p *Pipeline) processDocument(ctx context.Context, name string) (int, error) {
	text, err := p.source.Fetch(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}

	c, err := parser.Parse(text)
	if err != nil {
		return 0, fmt.Errorf("parse: %w", err)
	}
	p.logger.Debug("Parsed course", "document", name, "course", c.Title, "lessons", len(c.Lessons))

	chunks := p.buildChunks(c)
	if err := p.store.AddCourse(ctx, c, chunks); err != nil {
		return 0, err
	}

	p.logger.Info("Ingested course", "course", c.Title, "lessons", len(c.Lessons), "chunks", len(chunks))
	return len(chunks), nil
}

// buildChunks splits every lesson body and assigns chunk indexes that are
// sequential across the whole course, so each chunk has a stable identity.
func (p *Pipeline) buildChunks(c *course.Course) []course.Chunk {
	var chunks []course.Chunk
	index := 0
	for _, lesson := range c.Lessons {
		for _, text := range p.chunker.Split(lesson.Body) {
			chunks = append(chunks, course.Chunk{
				Text:         text,
				CourseTitle:  c.Title,
				LessonNumber: lesson.Number,
				ChunkIndex:   index,
			})
			index++
		}
	}
	return chunks
}
