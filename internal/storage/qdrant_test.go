//go:build integration

package storage

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/course-rag/internal/course"
)

// hashEmbedder is a deterministic bag-of-words embedder. Token overlap maps
// to cosine similarity, which is enough to exercise resolution and search
// without OpenAI access.
type hashEmbedder struct{}

func (hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, VectorDimension)
		for _, token := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			h.Write([]byte(strings.Trim(token, ".,!?:")))
			vec[h.Sum32()%VectorDimension]++
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if norm > 0 {
			scale := float32(1 / math.Sqrt(norm))
			for j := range vec {
				vec[j] *= scale
			}
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// setupTestStore connects to a local Qdrant and resets both collections.
// Skips the test if Qdrant is not running.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := New("localhost", 6334, hashEmbedder{})
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.EnsureCollections(ctx))
	require.NoError(t, store.Clear(ctx))

	return store
}

func testCourse(title string) (*course.Course, []course.Chunk) {
	c := &course.Course{
		Title:      title,
		Link:       "https://example.com/" + strings.ReplaceAll(strings.ToLower(title), " ", "-"),
		Instructor: "Pat Jones",
		Lessons: []course.Lesson{
			{Number: 0, Title: "Introduction", Link: "https://example.com/l0"},
			{Number: 1, Title: "Deep Dive"},
		},
	}
	chunks := []course.Chunk{
		{Text: "Retrieval systems combine search with generation.", CourseTitle: title, LessonNumber: 0, ChunkIndex: 0},
		{Text: "Vector stores answer nearest neighbor queries.", CourseTitle: title, LessonNumber: 0, ChunkIndex: 1},
		{Text: "Lesson one covers chunking and overlap budgets.", CourseTitle: title, LessonNumber: 1, ChunkIndex: 0},
	}
	return c, chunks
}

func TestAddCourse_DuplicateIsRejected(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	c, chunks := testCourse("Duplicate Course")
	require.NoError(t, store.AddCourse(ctx, c, chunks))

	err := store.AddCourse(ctx, c, chunks)
	assert.ErrorIs(t, err, ErrDuplicateCourse)
}

func TestIngestionIdempotency(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	c, chunks := testCourse("Idempotent Course")
	require.NoError(t, store.AddCourse(ctx, c, chunks))

	firstCourses, err := store.ListCourses(ctx)
	require.NoError(t, err)
	firstChunks, err := store.ChunkCount(ctx)
	require.NoError(t, err)

	// Second ingestion is rejected at the title gate and changes nothing.
	require.ErrorIs(t, store.AddCourse(ctx, c, chunks), ErrDuplicateCourse)

	secondCourses, err := store.ListCourses(ctx)
	require.NoError(t, err)
	secondChunks, err := store.ChunkCount(ctx)
	require.NoError(t, err)

	assert.Equal(t, firstCourses, secondCourses)
	assert.Equal(t, firstChunks, secondChunks)
}

func TestSearchContent_FilterSemantics(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"Filter Course A", "Filter Course B"} {
		c, chunks := testCourse(title)
		require.NoError(t, store.AddCourse(ctx, c, chunks))
	}

	// Both filters: only chunks matching course AND lesson.
	lesson := 0
	hits, err := store.SearchContent(ctx, "vector search retrieval", "Filter Course A", &lesson, 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, hit := range hits {
		assert.Equal(t, "Filter Course A", hit.CourseTitle)
		assert.Equal(t, 0, hit.LessonNumber)
	}

	// Course filter only: lesson unconstrained.
	hits, err = store.SearchContent(ctx, "chunking overlap", "Filter Course B", nil, 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	lessonsSeen := make(map[int]bool)
	for _, hit := range hits {
		assert.Equal(t, "Filter Course B", hit.CourseTitle)
		lessonsSeen[hit.LessonNumber] = true
	}
	assert.True(t, lessonsSeen[1], "lesson filter must not be implied by course filter")

	// No filters: results may span courses.
	hits, err = store.SearchContent(ctx, "nearest neighbor queries", "", nil, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
}

func TestSearchContent_EmptyResultIsNotAnError(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	c, chunks := testCourse("Lonely Course")
	require.NoError(t, store.AddCourse(ctx, c, chunks))

	hits, err := store.SearchContent(ctx, "anything", "No Such Course", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestResolveCourse(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"Intro to X", "Advanced X"} {
		c, chunks := testCourse(title)
		require.NoError(t, store.AddCourse(ctx, c, chunks))
	}

	title, score, err := store.ResolveCourse(ctx, "advanced x")
	require.NoError(t, err)
	assert.Equal(t, "Advanced X", title)
	assert.Greater(t, score, 0.5)
}

func TestResolveCourse_EmptyCatalog(t *testing.T) {
	store := setupTestStore(t)

	_, _, err := store.ResolveCourse(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestGetCourseMetadata(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	c, chunks := testCourse("Metadata Course")
	require.NoError(t, store.AddCourse(ctx, c, chunks))

	meta, err := store.GetCourseMetadata(ctx, "Metadata Course")
	require.NoError(t, err)
	assert.Equal(t, "Metadata Course", meta.Title)
	assert.Equal(t, "Pat Jones", meta.Instructor)
	require.Len(t, meta.Lessons, 2)
	assert.Equal(t, "Introduction", meta.Lessons[0].Title)
	assert.Equal(t, "https://example.com/l0", meta.LessonLink(0))
	assert.Empty(t, meta.LessonLink(1))

	_, err = store.GetCourseMetadata(ctx, "Unknown Course")
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestListCourses(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	titles := []string{"List Course One", "List Course Two"}
	for _, title := range titles {
		c, chunks := testCourse(title)
		require.NoError(t, store.AddCourse(ctx, c, chunks))
	}

	summaries, err := store.ListCourses(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	seen := make(map[string]int)
	for _, s := range summaries {
		seen[s.Title] = s.LessonCount
	}
	for _, title := range titles {
		assert.Equal(t, 2, seen[title])
	}
}
