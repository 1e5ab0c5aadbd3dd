// Package search exposes the retrieval capabilities offered to the
// generation service: fuzzy course resolution, content search and course
// outlines, behind a static tool registry.
package search

import (
	"context"
	"fmt"

	"github.com/mike-a-ellis/course-rag/internal/course"
	"github.com/mike-a-ellis/course-rag/internal/storage"
)

// Store is the slice of the vector store the search tools depend on.
// *storage.Store implements it; tests use fakes.
type Store interface {
	SearchContent(ctx context.Context, query, courseTitle string, lessonNumber *int, limit int) ([]course.SearchResult, error)
	ResolveCourse(ctx context.Context, fragment string) (string, float64, error)
	GetCourseMetadata(ctx context.Context, title string) (*course.CourseMetadata, error)
}

// Resolver disambiguates a possibly partial course name into the exact
// catalog title. Matches below the minimum similarity score are reported as
// storage.ErrNoMatch instead of a low-confidence guess.
type Resolver struct {
	store    Store
	minScore float64
}

// NewResolver creates a resolver with the given similarity threshold.
func NewResolver(store Store, minScore float64) *Resolver {
	return &Resolver{store: store, minScore: minScore}
}

// Resolve returns the canonical catalog title for the given name fragment.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	title, score, err := r.store.ResolveCourse(ctx, name)
	if err != nil {
		return "", err
	}
	if score < r.minScore {
		return "", fmt.Errorf("%w: best candidate %q scored %.2f, below threshold %.2f",
			storage.ErrNoMatch, title, score, r.minScore)
	}
	return title, nil
}
