// Package course defines the domain model shared by the parser, chunker,
// vector store and query pipeline.
package course

import "fmt"

// Course represents one parsed course document. The title is the unique
// identifier across the store; re-ingesting a known title is a no-op.
type Course struct {
	Title      string   // Unique identifier
	Link       string   // Optional course URL
	Instructor string   // Optional instructor name
	Lessons    []Lesson // Ordered by appearance in the document
}

// Lesson is a single lesson within a course. Numbers are unique within the
// course but need not be contiguous.
type Lesson struct {
	Number int    // Non-negative, unique within the course
	Title  string
	Link   string // Optional lesson URL
	Body   string // Raw lesson text; not stored in the catalog payload
}

// Chunk is the embeddable unit of lesson text. Text holds the raw chunk
// content; the contextual prefix naming its course and lesson exists only in
// EmbeddingText so citations never carry it.
type Chunk struct {
	Text         string
	CourseTitle  string // Back-reference, not ownership
	LessonNumber int
	ChunkIndex   int // Zero-based, sequential across the whole course
}

// EmbeddingText returns the chunk text with its course/lesson context
// prefix. Only this form is embedded; the stored payload keeps Text.
func (c Chunk) EmbeddingText() string {
	return fmt.Sprintf("Course %s Lesson %d content: %s", c.CourseTitle, c.LessonNumber, c.Text)
}

// SearchResult is one content-collection hit with its similarity score.
type SearchResult struct {
	Text         string
	CourseTitle  string
	LessonNumber int
	ChunkIndex   int
	Score        float64
}

// Source identifies the course material a search result was drawn from,
// attached to the final answer for citation.
type Source struct {
	CourseTitle  string `json:"course_title"`
	LessonNumber int    `json:"lesson_number"`
	Link         string `json:"link,omitempty"`
}

// Label renders the source as displayed to users.
func (s Source) Label() string {
	return fmt.Sprintf("%s - Lesson %d", s.CourseTitle, s.LessonNumber)
}

// CourseSummary is one catalog entry as reported by statistics queries.
type CourseSummary struct {
	Title       string
	LessonCount int
}

// LessonRef is the per-lesson structural metadata serialized into the
// catalog payload (no body text).
type LessonRef struct {
	Number int    `json:"lesson_number"`
	Title  string `json:"lesson_title"`
	Link   string `json:"lesson_link,omitempty"`
}

// CourseMetadata is the full catalog payload for one course, used by the
// outline tool and for source-link resolution.
type CourseMetadata struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []LessonRef
}

// LessonLink returns the link for the given lesson number, or the empty
// string if the lesson is unknown or has no link.
func (m *CourseMetadata) LessonLink(number int) string {
	for _, l := range m.Lessons {
		if l.Number == number {
			return l.Link
		}
	}
	return ""
}
