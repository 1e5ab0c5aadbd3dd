package search

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/course-rag/internal/course"
	"github.com/mike-a-ellis/course-rag/internal/storage"
)

// fakeStore is an in-memory Store for tool tests.
type fakeStore struct {
	resolveTitle string
	resolveScore float64
	resolveErr   error

	hits      []course.SearchResult
	searchErr error

	metadata map[string]*course.CourseMetadata

	// Captured filter arguments from the last SearchContent call.
	gotQuery  string
	gotCourse string
	gotLesson *int
}

func (f *fakeStore) SearchContent(_ context.Context, query, courseTitle string, lessonNumber *int, _ int) ([]course.SearchResult, error) {
	f.gotQuery = query
	f.gotCourse = courseTitle
	f.gotLesson = lessonNumber
	return f.hits, f.searchErr
}

func (f *fakeStore) ResolveCourse(_ context.Context, _ string) (string, float64, error) {
	return f.resolveTitle, f.resolveScore, f.resolveErr
}

func (f *fakeStore) GetCourseMetadata(_ context.Context, title string) (*course.CourseMetadata, error) {
	if meta, ok := f.metadata[title]; ok {
		return meta, nil
	}
	return nil, storage.ErrCourseNotFound
}

func TestResolver_BelowThresholdIsNoMatch(t *testing.T) {
	store := &fakeStore{resolveTitle: "Advanced X", resolveScore: 0.1}
	r := NewResolver(store, 0.3)

	_, err := r.Resolve(context.Background(), "unrelated query")
	assert.ErrorIs(t, err, storage.ErrNoMatch)
}

func TestResolver_AboveThreshold(t *testing.T) {
	store := &fakeStore{resolveTitle: "Advanced X", resolveScore: 0.92}
	r := NewResolver(store, 0.3)

	title, err := r.Resolve(context.Background(), "advanced x")
	require.NoError(t, err)
	assert.Equal(t, "Advanced X", title)
}

func TestSearchTool_FormatsResultsAndRecordsSources(t *testing.T) {
	store := &fakeStore{
		hits: []course.SearchResult{
			{Text: "First chunk.", CourseTitle: "Test Course", LessonNumber: 0, Score: 0.9},
			{Text: "Second chunk.", CourseTitle: "Test Course", LessonNumber: 0, Score: 0.8},
			{Text: "Other lesson.", CourseTitle: "Test Course", LessonNumber: 3, Score: 0.7},
		},
		metadata: map[string]*course.CourseMetadata{
			"Test Course": {
				Title: "Test Course",
				Link:  "https://example.com/course",
				Lessons: []course.LessonRef{
					{Number: 0, Title: "Intro", Link: "https://example.com/l0"},
					{Number: 3, Title: "More"},
				},
			},
		},
	}
	tool := NewCourseSearchTool(store, NewResolver(store, 0.3), 5)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"what is chunking"}`))
	require.NoError(t, err)

	assert.Contains(t, out, "[Test Course - Lesson 0]\nFirst chunk.")
	assert.Contains(t, out, "[Test Course - Lesson 3]\nOther lesson.")

	// Sources deduplicated by (course, lesson), order preserved.
	sources := tool.LastSources()
	require.Len(t, sources, 2)
	assert.Equal(t, course.Source{CourseTitle: "Test Course", LessonNumber: 0, Link: "https://example.com/l0"}, sources[0])
	// Lesson 3 has no lesson link, falls back to the course link.
	assert.Equal(t, "https://example.com/course", sources[1].Link)

	tool.ResetSources()
	assert.Empty(t, tool.LastSources())
}

func TestSearchTool_CourseNameResolution(t *testing.T) {
	store := &fakeStore{
		resolveTitle: "Building Towards Computer Use",
		resolveScore: 0.88,
		hits: []course.SearchResult{
			{Text: "content", CourseTitle: "Building Towards Computer Use", LessonNumber: 1},
		},
	}
	tool := NewCourseSearchTool(store, NewResolver(store, 0.3), 5)

	lesson := 1
	args, _ := json.Marshal(searchArgs{Query: "tools", CourseName: "computer use", LessonNumber: &lesson})
	_, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)

	// The resolved exact title is what reaches the content search.
	assert.Equal(t, "Building Towards Computer Use", store.gotCourse)
	require.NotNil(t, store.gotLesson)
	assert.Equal(t, 1, *store.gotLesson)
}

func TestSearchTool_NoMatchIsDescriptiveString(t *testing.T) {
	store := &fakeStore{resolveErr: storage.ErrNoMatch}
	tool := NewCourseSearchTool(store, NewResolver(store, 0.3), 5)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"q","course_name":"Nonexistent"}`))
	require.NoError(t, err)
	assert.Equal(t, "No course found matching 'Nonexistent'", out)
	assert.Empty(t, tool.LastSources())
}

func TestSearchTool_EmptyResults(t *testing.T) {
	store := &fakeStore{resolveTitle: "Test Course", resolveScore: 0.9}
	tool := NewCourseSearchTool(store, NewResolver(store, 0.3), 5)

	lesson := 2
	args, _ := json.Marshal(searchArgs{Query: "q", CourseName: "Test", LessonNumber: &lesson})
	out, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, "No relevant content found in course 'Test' in lesson 2.", out)
}

func TestSearchTool_MissingQuery(t *testing.T) {
	tool := NewCourseSearchTool(&fakeStore{}, NewResolver(&fakeStore{}, 0.3), 5)

	_, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestOutlineTool(t *testing.T) {
	store := &fakeStore{
		resolveTitle: "Test Course",
		resolveScore: 0.95,
		metadata: map[string]*course.CourseMetadata{
			"Test Course": {
				Title:      "Test Course",
				Link:       "https://example.com/course",
				Instructor: "Pat Jones",
				Lessons: []course.LessonRef{
					{Number: 0, Title: "Introduction"},
					{Number: 1, Title: "Deep Dive"},
				},
			},
		},
	}
	tool := NewCourseOutlineTool(store, NewResolver(store, 0.3))

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"course_name":"test"}`))
	require.NoError(t, err)

	assert.Contains(t, out, "**Course:** Test Course")
	assert.Contains(t, out, "**Instructor:** Pat Jones")
	assert.Contains(t, out, "- Lesson 0: Introduction")
	assert.Contains(t, out, "- Lesson 1: Deep Dive")
}

func TestOutlineTool_NoMatch(t *testing.T) {
	store := &fakeStore{resolveErr: storage.ErrNoMatch}
	tool := NewCourseOutlineTool(store, NewResolver(store, 0.3))

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"course_name":"ghost"}`))
	require.NoError(t, err)
	assert.Equal(t, "No course found matching 'ghost'", out)
}

func TestRegistry(t *testing.T) {
	store := &fakeStore{
		hits: []course.SearchResult{{Text: "chunk", CourseTitle: "C", LessonNumber: 0}},
	}
	resolver := NewResolver(store, 0.3)
	reg := NewRegistry(
		NewCourseSearchTool(store, resolver, 5),
		NewCourseOutlineTool(store, resolver),
	)

	defs := reg.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "search_course_content", defs[0].Function.Name)
	assert.Equal(t, "get_course_outline", defs[1].Function.Name)

	// Unknown names become failure strings, never panics or errors.
	out := reg.Execute(context.Background(), "no_such_tool", json.RawMessage(`{}`))
	assert.Equal(t, "Tool 'no_such_tool' not found", out)

	// Tool errors become failure strings too.
	out = reg.Execute(context.Background(), "search_course_content", json.RawMessage(`{"query":""}`))
	assert.Contains(t, out, "Tool execution failed")

	// Successful execution records sources readable through the registry.
	out = reg.Execute(context.Background(), "search_course_content", json.RawMessage(`{"query":"q"}`))
	assert.Contains(t, out, "[C - Lesson 0]")
	require.Len(t, reg.LastSources(), 1)

	reg.ResetSources()
	assert.Empty(t, reg.LastSources())
}

// Compile-time interface checks.
var (
	_ Tool          = (*CourseSearchTool)(nil)
	_ Tool          = (*CourseOutlineTool)(nil)
	_ sourceTracker = (*CourseSearchTool)(nil)
)
