//go:build integration

package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/course-rag/internal/chunker"
	"github.com/mike-a-ellis/course-rag/internal/generation"
	"github.com/mike-a-ellis/course-rag/internal/ingest"
	"github.com/mike-a-ellis/course-rag/internal/search"
	"github.com/mike-a-ellis/course-rag/internal/session"
	"github.com/mike-a-ellis/course-rag/internal/storage"
)

// wordHashEmbedder is a deterministic bag-of-words embedder: token overlap
// maps to cosine similarity, enough to drive resolution and search against a
// real Qdrant without OpenAI access.
type wordHashEmbedder struct{}

func (wordHashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, storage.VectorDimension)
		for _, token := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			h.Write([]byte(strings.Trim(token, ".,!?:")))
			vec[h.Sum32()%storage.VectorDimension]++
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

// cannedCompletions replays scripted chat completions in order.
type cannedCompletions struct {
	responses []*openai.ChatCompletion
}

func (c *cannedCompletions) New(_ context.Context, _ openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	if len(c.responses) == 0 {
		return nil, errors.New("no scripted response left")
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return resp, nil
}

func cannedText(t *testing.T, text string) *openai.ChatCompletion {
	t.Helper()
	raw := fmt.Sprintf(`{"choices":[{"message":{"role":"assistant","content":%q}}]}`, text)
	var resp openai.ChatCompletion
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	return &resp
}

func cannedToolCall(t *testing.T, id, name, args string) *openai.ChatCompletion {
	t.Helper()
	raw := fmt.Sprintf(
		`{"choices":[{"message":{"role":"assistant","tool_calls":[{"id":%q,"type":"function","function":{"name":%q,"arguments":%q}}]}}]}`,
		id, name, args)
	var resp openai.ChatCompletion
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	return &resp
}

// testCourseDocument builds a course file whose lesson 0 body is long enough
// to split into several chunks at the default budgets.
func testCourseDocument() string {
	var body strings.Builder
	for i := 0; body.Len() < 2000; i++ {
		fmt.Fprintf(&body,
			"Section %d explains how embeddings and retrieval work together in lesson zero. ", i)
	}

	return "Course Title: Test Course\n" +
		"Course Link: https://example.com/test-course\n" +
		"Course Instructor: Alex Kim\n" +
		"\n" +
		"Lesson 0: Retrieval Foundations\n" +
		"Lesson Link: https://example.com/test-course/lesson-0\n" +
		body.String() + "\n" +
		"\n" +
		"Lesson 1: Generation\n" +
		"The second lesson covers turning retrieved chunks into answers.\n"
}

// TestQuery_EndToEnd runs the whole flow against a local Qdrant: parse and
// chunk a course document, ingest it, then answer a question through the
// tool-dispatch loop and check the cited sources. Skips if Qdrant is not
// running.
func TestQuery_EndToEnd(t *testing.T) {
	ctx := context.Background()

	store, err := storage.New("localhost", 6334, wordHashEmbedder{})
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.EnsureCollections(ctx))
	require.NoError(t, store.Clear(ctx))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test_course.txt"), []byte(testCourseDocument()), 0o644))

	pipeline := ingest.NewPipeline(ingest.NewDirSource(dir), chunker.New(800, 100), store, nil)
	result, err := pipeline.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.AddedCourses)
	require.GreaterOrEqual(t, result.TotalChunks, 3, "lesson 0 should split into multiple chunks")

	resolver := search.NewResolver(store, 0.3)
	registry := search.NewRegistry(
		search.NewCourseSearchTool(store, resolver, 5),
		search.NewCourseOutlineTool(store, resolver),
	)
	completions := &cannedCompletions{
		responses: []*openai.ChatCompletion{
			cannedToolCall(t, "call_1", "search_course_content",
				`{"query":"embeddings and retrieval","course_name":"Test Course","lesson_number":0}`),
			cannedText(t, "Lesson 0 covers how embeddings drive retrieval."),
		},
	}
	system := New(store, generation.New(completions, "", 2), registry, session.NewStore(2), nil)

	answer, sources, sessionID, err := system.Query(ctx, "explain lesson 0 of Test Course", "")
	require.NoError(t, err)
	assert.Equal(t, "Lesson 0 covers how embeddings drive retrieval.", answer)
	assert.NotEmpty(t, sessionID)

	require.NotEmpty(t, sources, "search tool hits must surface as sources")
	found := false
	for _, src := range sources {
		if src.CourseTitle == "Test Course" && src.LessonNumber == 0 {
			found = true
			assert.Equal(t, "https://example.com/test-course/lesson-0", src.Link)
		}
	}
	assert.True(t, found, "sources should cite Test Course lesson 0, got %v", sources)

	// Source tracking resets between queries.
	assert.Empty(t, registry.LastSources())
}
