package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"

	"github.com/mike-a-ellis/course-rag/internal/course"
	"github.com/mike-a-ellis/course-rag/internal/storage"
)

// DefaultMaxResults bounds how many chunks one search returns.
const DefaultMaxResults = 5

// CourseSearchTool searches course content with fuzzy course-name matching
// and optional lesson filtering. It records the (course, lesson) pairs of
// returned chunks as citation sources, read once per query via the registry.
type CourseSearchTool struct {
	store      Store
	resolver   *Resolver
	maxResults int

	lastSources []course.Source
}

// NewCourseSearchTool creates the search tool. A non-positive maxResults
// selects DefaultMaxResults.
func NewCourseSearchTool(store Store, resolver *Resolver, maxResults int) *CourseSearchTool {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &CourseSearchTool{store: store, resolver: resolver, maxResults: maxResults}
}

type searchArgs struct {
	Query        string `json:"query"`
	CourseName   string `json:"course_name"`
	LessonNumber *int   `json:"lesson_number"`
}

// Definition declares the tool schema sent to the generation service.
func (t *CourseSearchTool) Definition() openai.ChatCompletionFunctionToolParam {
	return openai.ChatCompletionFunctionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        "search_course_content",
			Description: openai.String("Search course materials with smart course name matching and lesson filtering"),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "What to search for in the course content",
					},
					"course_name": map[string]any{
						"type":        "string",
						"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
					},
					"lesson_number": map[string]any{
						"type":        "integer",
						"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

// Execute runs one search. An unresolved course name or an empty result set
// comes back as a descriptive string, never an error, so the generation
// service can recover conversationally.
func (t *CourseSearchTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var params searchArgs
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("invalid search arguments: %w", err)
	}
	if params.Query == "" {
		return "", fmt.Errorf("query is required")
	}

	courseTitle := ""
	if params.CourseName != "" {
		resolved, err := t.resolver.Resolve(ctx, params.CourseName)
		if errors.Is(err, storage.ErrNoMatch) {
			return fmt.Sprintf("No course found matching '%s'", params.CourseName), nil
		}
		if err != nil {
			return "", err
		}
		courseTitle = resolved
	}

	hits, err := t.store.SearchContent(ctx, params.Query, courseTitle, params.LessonNumber, t.maxResults)
	if err != nil {
		return "", err
	}

	if len(hits) == 0 {
		var filters string
		if params.CourseName != "" {
			filters += fmt.Sprintf(" in course '%s'", params.CourseName)
		}
		if params.LessonNumber != nil {
			filters += fmt.Sprintf(" in lesson %d", *params.LessonNumber)
		}
		return fmt.Sprintf("No relevant content found%s.", filters), nil
	}

	return t.formatResults(ctx, hits), nil
}

// formatResults renders hits with their course/lesson context header and
// records deduplicated citation sources.
func (t *CourseSearchTool) formatResults(ctx context.Context, hits []course.SearchResult) string {
	formatted := make([]string, 0, len(hits))
	seen := make(map[string]bool)
	metaCache := make(map[string]*course.CourseMetadata)

	for _, hit := range hits {
		formatted = append(formatted,
			fmt.Sprintf("[%s - Lesson %d]\n%s", hit.CourseTitle, hit.LessonNumber, hit.Text))

		key := fmt.Sprintf("%s\x00%d", hit.CourseTitle, hit.LessonNumber)
		if seen[key] {
			continue
		}
		seen[key] = true
		t.lastSources = append(t.lastSources, course.Source{
			CourseTitle:  hit.CourseTitle,
			LessonNumber: hit.LessonNumber,
			Link:         t.sourceLink(ctx, metaCache, hit.CourseTitle, hit.LessonNumber),
		})
	}

	return strings.Join(formatted, "\n\n")
}

// sourceLink resolves the lesson link for a citation, falling back to the
// course link. Lookup failures leave the link empty rather than failing the
// search.
func (t *CourseSearchTool) sourceLink(ctx context.Context, cache map[string]*course.CourseMetadata, title string, lesson int) string {
	meta, ok := cache[title]
	if !ok {
		var err error
		meta, err = t.store.GetCourseMetadata(ctx, title)
		if err != nil {
			meta = nil
		}
		cache[title] = meta
	}
	if meta == nil {
		return ""
	}
	if link := meta.LessonLink(lesson); link != "" {
		return link
	}
	return meta.Link
}

// LastSources returns the sources recorded since the last reset.
func (t *CourseSearchTool) LastSources() []course.Source {
	return t.lastSources
}

// ResetSources clears the recorded sources.
func (t *CourseSearchTool) ResetSources() {
	t.lastSources = nil
}
