package storage

import "errors"

var (
	// ErrQdrantUnreachable is returned when the startup health check fails.
	ErrQdrantUnreachable = errors.New("qdrant server unreachable")

	// ErrDuplicateCourse signals that a course title is already in the
	// catalog. Ingestion treats it as a skip, not a failure.
	ErrDuplicateCourse = errors.New("course already exists")

	// ErrNoMatch is returned by ResolveCourse when the catalog is empty.
	ErrNoMatch = errors.New("no matching course")

	// ErrCourseNotFound is returned when a catalog lookup by exact title
	// finds nothing.
	ErrCourseNotFound = errors.New("course not found")
)
