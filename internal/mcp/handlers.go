package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mike-a-ellis/course-rag/internal/search"
	"github.com/mike-a-ellis/course-rag/internal/storage"
)

// makeSearchHandler creates the search_course_content tool handler.
// An unresolvable course name is reported in the output message, not as a
// protocol error, so clients can relay it conversationally.
func makeSearchHandler(store Store, resolver *search.Resolver, defaultMax int) func(
	context.Context, *mcp.CallToolRequest, SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (
		*mcp.CallToolResult, SearchOutput, error,
	) {
		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = defaultMax
		}
		if maxResults <= 0 {
			maxResults = search.DefaultMaxResults
		}

		courseTitle := ""
		if input.CourseName != "" {
			resolved, err := resolver.Resolve(ctx, input.CourseName)
			if errors.Is(err, storage.ErrNoMatch) {
				return nil, SearchOutput{
					Results: []SearchHit{},
					Message: fmt.Sprintf("No course found matching '%s'", input.CourseName),
				}, nil
			}
			if err != nil {
				return nil, SearchOutput{}, fmt.Errorf("resolve course: %w", err)
			}
			courseTitle = resolved
		}

		hits, err := store.SearchContent(ctx, input.Query, courseTitle, input.LessonNumber, maxResults)
		if err != nil {
			return nil, SearchOutput{}, fmt.Errorf("search failed: %w", err)
		}

		results := make([]SearchHit, 0, len(hits))
		for _, hit := range hits {
			results = append(results, SearchHit{
				CourseTitle:  hit.CourseTitle,
				LessonNumber: hit.LessonNumber,
				Text:         hit.Text,
				Score:        hit.Score,
			})
		}

		out := SearchOutput{Results: results}
		if len(results) == 0 {
			out.Message = "No relevant content found."
		}
		return nil, out, nil
	}
}

// makeOutlineHandler creates the get_course_outline tool handler.
func makeOutlineHandler(store Store, resolver *search.Resolver) func(
	context.Context, *mcp.CallToolRequest, OutlineInput,
) (*mcp.CallToolResult, OutlineOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input OutlineInput) (
		*mcp.CallToolResult, OutlineOutput, error,
	) {
		title, err := resolver.Resolve(ctx, input.CourseName)
		if errors.Is(err, storage.ErrNoMatch) {
			return nil, OutlineOutput{
				Found:   false,
				Message: fmt.Sprintf("No course found matching '%s'", input.CourseName),
			}, nil
		}
		if err != nil {
			return nil, OutlineOutput{}, fmt.Errorf("resolve course: %w", err)
		}

		meta, err := store.GetCourseMetadata(ctx, title)
		if err != nil {
			return nil, OutlineOutput{}, fmt.Errorf("get course metadata: %w", err)
		}

		lessons := make([]OutlineLesson, 0, len(meta.Lessons))
		for _, l := range meta.Lessons {
			lessons = append(lessons, OutlineLesson{
				Number: l.Number,
				Title:  l.Title,
				Link:   l.Link,
			})
		}

		return nil, OutlineOutput{
			Found:       true,
			CourseTitle: meta.Title,
			CourseLink:  meta.Link,
			Instructor:  meta.Instructor,
			Lessons:     lessons,
		}, nil
	}
}

// makeStatsHandler creates the get_course_stats tool handler.
func makeStatsHandler(store Store) func(
	context.Context, *mcp.CallToolRequest, StatsInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatsInput) (
		*mcp.CallToolResult, StatsOutput, error,
	) {
		courses, err := store.ListCourses(ctx)
		if err != nil {
			return nil, StatsOutput{}, fmt.Errorf("list courses: %w", err)
		}
		chunks, err := store.ChunkCount(ctx)
		if err != nil {
			return nil, StatsOutput{}, fmt.Errorf("count chunks: %w", err)
		}

		titles := make([]string, 0, len(courses))
		for _, c := range courses {
			titles = append(titles, c.Title)
		}
		return nil, StatsOutput{
			TotalCourses: len(courses),
			TotalChunks:  chunks,
			CourseTitles: titles,
		}, nil
	}
}
