// Package main provides the ingestion CLI for course materials.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mike-a-ellis/course-rag/internal/chunker"
	"github.com/mike-a-ellis/course-rag/internal/config"
	"github.com/mike-a-ellis/course-rag/internal/embedding"
	ghclient "github.com/mike-a-ellis/course-rag/internal/github"
	"github.com/mike-a-ellis/course-rag/internal/ingest"
	"github.com/mike-a-ellis/course-rag/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "course-ingest",
	Short: "Course materials indexing tool",
	Long:  "CLI tool for managing the course materials index in Qdrant",
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Index course documents into the vector store",
	Long: `Parses, chunks and indexes all course documents. Courses that are
already indexed are skipped; use clear first for a full rebuild.

Documents are read from the local docs folder, or from a GitHub
repository when GITHUB_OWNER and GITHUB_REPO are set.

Environment variables:
  QDRANT_HOST    Qdrant hostname (default: localhost)
  QDRANT_PORT    Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY OpenAI API key for embeddings (required)
  DOCS_PATH      Local course documents folder (default: ./docs)
  GITHUB_OWNER   GitHub repository owner (optional)
  GITHUB_REPO    GitHub repository name (optional)
  GITHUB_PATH    Path to course documents within the repository
  GITHUB_TOKEN   GitHub token for higher rate limits (optional)`,
	RunE: runSync,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all indexed courses and content",
	RunE:  runClear,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show what is currently indexed",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// connect opens the vector store with a real embedder attached.
func connect(ctx context.Context, cfg *config.Config) (*storage.Store, error) {
	openaiClient, err := embedding.NewClient()
	if err != nil {
		return nil, fmt.Errorf("create OpenAI client: %w", err)
	}
	embedder := embedding.NewEmbedder(openaiClient, cfg.EmbeddingModel, 0)

	fmt.Printf("Connecting to Qdrant at %s:%d...\n", cfg.QdrantHost, cfg.QdrantPort)
	store, err := storage.New(cfg.QdrantHost, cfg.QdrantPort, embedder)
	if err != nil {
		return nil, fmt.Errorf("connect to Qdrant: %w", err)
	}

	if err := store.Health(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("Qdrant health check failed: %w", err)
	}
	if err := store.EnsureCollections(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ensure collections: %w", err)
	}
	return store, nil
}

// documentSource selects GitHub when configured, the local folder otherwise.
func documentSource(cfg *config.Config) (ingest.Source, string, error) {
	owner := os.Getenv("GITHUB_OWNER")
	repo := os.Getenv("GITHUB_REPO")
	if owner != "" && repo != "" {
		client, err := ghclient.NewClient()
		if err != nil {
			return nil, "", fmt.Errorf("create GitHub client: %w", err)
		}
		basePath := os.Getenv("GITHUB_PATH")
		return ghclient.NewRepoSource(client, owner, repo, basePath),
			fmt.Sprintf("github.com/%s/%s/%s", owner, repo, basePath), nil
	}
	return ingest.NewDirSource(cfg.DocsPath), cfg.DocsPath, nil
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()
	cfg := config.Load()

	store, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	fmt.Println("Qdrant healthy")

	source, origin, err := documentSource(cfg)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("Indexing course documents from %s...\n", origin)
	pipeline := ingest.NewPipeline(source, chunker.New(cfg.ChunkSize, cfg.ChunkOverlap), store, nil)

	result, err := pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Sync complete!")
	fmt.Printf("  Documents: %d\n", result.TotalDocs)
	fmt.Printf("  Courses added: %d\n", result.AddedCourses)
	fmt.Printf("  Courses skipped: %d\n", result.SkippedCourses)
	fmt.Printf("  Chunks: %d\n", result.TotalChunks)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Second))

	if len(result.FailedDocs) > 0 {
		fmt.Println()
		fmt.Println("Failed documents:")
		for _, failed := range result.FailedDocs {
			fmt.Printf("  - %s: %s\n", failed.Name, failed.Reason)
		}
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Second))
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	store, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Println("Clearing indexed courses and content...")
	// Clear drops and recreates both collections, schema included.
	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("clear collections: %w", err)
	}
	fmt.Println("Index cleared")
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	store, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	courses, err := store.ListCourses(ctx)
	if err != nil {
		return fmt.Errorf("list courses: %w", err)
	}
	chunks, err := store.ChunkCount(ctx)
	if err != nil {
		return fmt.Errorf("count chunks: %w", err)
	}

	fmt.Printf("Courses: %d\n", len(courses))
	fmt.Printf("Chunks:  %d\n", chunks)
	if len(courses) > 0 {
		fmt.Println()
		for _, c := range courses {
			fmt.Printf("  - %s (%d lessons)\n", c.Title, c.LessonCount)
		}
	}
	return nil
}
