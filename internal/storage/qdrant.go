// Package storage persists course material in two Qdrant collections: a
// catalog with one vector per course (used for fuzzy name resolution) and a
// content collection with one vector per chunk (used for semantic search).
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/mike-a-ellis/course-rag/internal/course"
)

const (
	// CatalogCollection holds one point per course.
	CatalogCollection = "course_catalog"

	// ContentCollection holds one point per chunk.
	ContentCollection = "course_content"

	// VectorDimension is the embedding size for text-embedding-3-small.
	VectorDimension = 1536
)

// Embedder maps texts to fixed-dimension vectors. Implemented by
// embedding.Embedder; tests substitute a deterministic fake.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Store wraps the Qdrant client with the two-collection course schema.
// Concurrent reads are safe; writes are expected to happen during the
// startup ingestion phase only.
type Store struct {
	client   *qdrant.Client
	embedder Embedder
	host     string
	port     int
}

// New creates a Store and validates connectivity. The health check retries
// with exponential backoff and fails fast if Qdrant stays unreachable.
func New(host string, port int, embedder Embedder) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	s := &Store{
		client:   client,
		embedder: embedder,
		host:     host,
		port:     port,
	}

	if err := s.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return s, nil
}

// healthCheckWithRetry performs the startup health check with exponential
// backoff. Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *Store) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, b)
}

// Health performs a single health check against Qdrant.
func (s *Store) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollections creates both collections and their payload indexes if
// absent. Idempotent, safe to call on every startup.
func (s *Store) EnsureCollections(ctx context.Context) error {
	existing, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[name] = true
	}

	if !present[CatalogCollection] {
		if err := s.createCollection(ctx, CatalogCollection); err != nil {
			return err
		}
		if err := s.createKeywordIndex(ctx, CatalogCollection, "title"); err != nil {
			return err
		}
	}

	if !present[ContentCollection] {
		if err := s.createCollection(ctx, ContentCollection); err != nil {
			return err
		}
		// Without these indexes filtered search degrades badly.
		if err := s.createKeywordIndex(ctx, ContentCollection, "course_title"); err != nil {
			return err
		}
		if err := s.createIntegerIndex(ctx, ContentCollection, "lesson_number"); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) createCollection(ctx context.Context, name string) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     VectorDimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return nil
}

func (s *Store) createKeywordIndex(ctx context.Context, collection, field string) error {
	_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: collection,
		FieldName:      field,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for %s.%s: %w", collection, field, err)
	}
	return nil
}

func (s *Store) createIntegerIndex(ctx context.Context, collection, field string) error {
	_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: collection,
		FieldName:      field,
		FieldType:      qdrant.FieldType_FieldTypeInteger.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for %s.%s: %w", collection, field, err)
	}
	return nil
}

// Clear deletes all catalog and content entries and recreates the schema.
func (s *Store) Clear(ctx context.Context) error {
	for _, name := range []string{CatalogCollection, ContentCollection} {
		if err := s.client.DeleteCollection(ctx, name); err != nil {
			return fmt.Errorf("failed to delete collection %s: %w", name, err)
		}
	}
	return s.EnsureCollections(ctx)
}

// Close closes the Qdrant client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// pointID derives a stable UUID from a logical key, so re-ingesting the
// same course overwrites points instead of duplicating them.
func pointID(key string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// CourseExists reports whether a course with the exact title is in the
// catalog. This title lookup is the sole idempotency gate for ingestion.
func (s *Store) CourseExists(ctx context.Context, title string) (bool, error) {
	results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: CatalogCollection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("title", title)},
		},
		Limit: qdrant.PtrOf(uint32(1)),
	})
	if err != nil {
		return false, fmt.Errorf("failed to check for course %q: %w", title, err)
	}
	return len(results) > 0, nil
}

// AddCourse inserts one catalog entry and all chunk entries. Returns
// ErrDuplicateCourse if the title is already present. All embeddings are
// generated before any write, and the catalog entry (the visibility gate) is
// written last, so a failed call leaves no course visible.
func (s *Store) AddCourse(ctx context.Context, c *course.Course, chunks []course.Chunk) error {
	exists, err := s.CourseExists(ctx, c.Title)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %q", ErrDuplicateCourse, c.Title)
	}

	texts := make([]string, 0, len(chunks)+1)
	texts = append(texts, catalogText(c))
	for _, chunk := range chunks {
		texts = append(texts, chunk.EmbeddingText())
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed course %q: %w", c.Title, err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}

	if err := s.upsertChunks(ctx, chunks, vectors[1:]); err != nil {
		return fmt.Errorf("store chunks for %q: %w", c.Title, err)
	}
	if err := s.upsertCatalogEntry(ctx, c, vectors[0]); err != nil {
		return fmt.Errorf("store catalog entry for %q: %w", c.Title, err)
	}

	return nil
}

// catalogText is the embedded representation of a course in the catalog,
// enriched with the instructor name when present.
func catalogText(c *course.Course) string {
	if c.Instructor == "" {
		return c.Title
	}
	return c.Title + " " + c.Instructor
}

func (s *Store) upsertCatalogEntry(ctx context.Context, c *course.Course, vector []float32) error {
	refs := make([]course.LessonRef, len(c.Lessons))
	for i, l := range c.Lessons {
		refs[i] = course.LessonRef{Number: l.Number, Title: l.Title, Link: l.Link}
	}
	lessonsJSON, err := json.Marshal(refs)
	if err != nil {
		return fmt.Errorf("marshal lessons: %w", err)
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(pointID("course:" + c.Title)),
		Vectors: qdrant.NewVectors(vector...),
		Payload: qdrant.NewValueMap(map[string]any{
			"title":        c.Title,
			"course_link":  c.Link,
			"instructor":   c.Instructor,
			"lesson_count": len(c.Lessons),
			"lessons_json": string(lessonsJSON),
		}),
	}

	return s.upsertWithRetry(ctx, CatalogCollection, []*qdrant.PointStruct{point})
}

func (s *Store) upsertChunks(ctx context.Context, chunks []course.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}

	batchSize := 100
	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))

		points := make([]*qdrant.PointStruct, 0, end-i)
		for j := i; j < end; j++ {
			chunk := chunks[j]
			key := fmt.Sprintf("chunk:%s:%d:%d", chunk.CourseTitle, chunk.LessonNumber, chunk.ChunkIndex)
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(pointID(key)),
				Vectors: qdrant.NewVectors(vectors[j]...),
				Payload: qdrant.NewValueMap(map[string]any{
					"course_title":  chunk.CourseTitle,
					"lesson_number": chunk.LessonNumber,
					"chunk_index":   chunk.ChunkIndex,
					"content":       chunk.Text,
				}),
			})
		}

		if err := s.upsertWithRetry(ctx, ContentCollection, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// upsertWithRetry performs an upsert with exponential backoff retry.
func (s *Store) upsertWithRetry(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         points,
		})
		return err
	}, b)
}

// SearchContent embeds the query and returns up to limit chunks ordered by
// descending similarity, restricted by the optional course-title and
// lesson-number filters. An empty result is a valid outcome.
func (s *Store) SearchContent(ctx context.Context, query, courseTitle string, lessonNumber *int, limit int) ([]course.SearchResult, error) {
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var must []*qdrant.Condition
	if courseTitle != "" {
		must = append(must, qdrant.NewMatch("course_title", courseTitle))
	}
	if lessonNumber != nil {
		must = append(must, qdrant.NewMatchInt("lesson_number", int64(*lessonNumber)))
	}
	var filter *qdrant.Filter
	if len(must) > 0 {
		filter = &qdrant.Filter{Must: must}
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: ContentCollection,
		Query:          qdrant.NewQuery(vectors[0]...),
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search content: %w", err)
	}

	hits := make([]course.SearchResult, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		hits = append(hits, course.SearchResult{
			Text:         payload["content"].GetStringValue(),
			CourseTitle:  payload["course_title"].GetStringValue(),
			LessonNumber: int(payload["lesson_number"].GetIntegerValue()),
			ChunkIndex:   int(payload["chunk_index"].GetIntegerValue()),
			Score:        float64(result.Score),
		})
	}

	return hits, nil
}

// ResolveCourse embeds the name fragment and returns the best-matching
// catalog title with its similarity score. Returns ErrNoMatch when the
// catalog is empty.
func (s *Store) ResolveCourse(ctx context.Context, fragment string) (string, float64, error) {
	vectors, err := s.embedder.Embed(ctx, []string{fragment})
	if err != nil {
		return "", 0, fmt.Errorf("embed course name: %w", err)
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CatalogCollection,
		Query:          qdrant.NewQuery(vectors[0]...),
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to query catalog: %w", err)
	}

	if len(results) == 0 {
		return "", 0, ErrNoMatch
	}

	return results[0].Payload["title"].GetStringValue(), float64(results[0].Score), nil
}

// GetCourseMetadata returns the full catalog payload for an exact title.
func (s *Store) GetCourseMetadata(ctx context.Context, title string) (*course.CourseMetadata, error) {
	results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: CatalogCollection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("title", title)},
		},
		Limit:       qdrant.PtrOf(uint32(1)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get course %q: %w", title, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrCourseNotFound, title)
	}

	payload := results[0].Payload
	meta := &course.CourseMetadata{
		Title:      payload["title"].GetStringValue(),
		Link:       payload["course_link"].GetStringValue(),
		Instructor: payload["instructor"].GetStringValue(),
	}

	var refs []course.LessonRef
	if raw := payload["lessons_json"].GetStringValue(); raw != "" {
		if err := json.Unmarshal([]byte(raw), &refs); err != nil {
			return nil, fmt.Errorf("parse lessons for %q: %w", title, err)
		}
	}
	meta.Lessons = refs

	return meta, nil
}

// ListCourses returns all catalog titles with their lesson counts, for
// statistics reporting. Uses the Scroll API to page through the catalog.
func (s *Store) ListCourses(ctx context.Context) ([]course.CourseSummary, error) {
	var summaries []course.CourseSummary
	var offset *qdrant.PointId

	batchSize := uint32(100)
	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: CatalogCollection,
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayloadInclude("title", "lesson_count"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll catalog: %w", err)
		}

		for _, result := range results {
			summaries = append(summaries, course.CourseSummary{
				Title:       result.Payload["title"].GetStringValue(),
				LessonCount: int(result.Payload["lesson_count"].GetIntegerValue()),
			})
		}

		if uint32(len(results)) < batchSize {
			break
		}
		offset = results[len(results)-1].Id
	}

	return summaries, nil
}

// ChunkCount returns the number of points in the content collection.
func (s *Store) ChunkCount(ctx context.Context) (int, error) {
	info, err := s.client.GetCollectionInfo(ctx, ContentCollection)
	if err != nil {
		return 0, fmt.Errorf("failed to get collection info: %w", err)
	}
	return int(info.GetPointsCount()), nil
}
