// Package main provides the course materials RAG server: REST API, MCP
// endpoint and health checking.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mike-a-ellis/course-rag/internal/chunker"
	"github.com/mike-a-ellis/course-rag/internal/config"
	"github.com/mike-a-ellis/course-rag/internal/embedding"
	"github.com/mike-a-ellis/course-rag/internal/generation"
	"github.com/mike-a-ellis/course-rag/internal/httpapi"
	"github.com/mike-a-ellis/course-rag/internal/ingest"
	mcpserver "github.com/mike-a-ellis/course-rag/internal/mcp"
	"github.com/mike-a-ellis/course-rag/internal/rag"
	"github.com/mike-a-ellis/course-rag/internal/search"
	"github.com/mike-a-ellis/course-rag/internal/session"
	"github.com/mike-a-ellis/course-rag/internal/storage"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg := config.Load()

	// OpenAI client, shared by embeddings and generation
	openaiClient, err := embedding.NewClient()
	if err != nil {
		log.Fatalf("failed to create OpenAI client: %v", err)
	}
	embedder := embedding.NewEmbedder(openaiClient, cfg.EmbeddingModel, 0)

	store, err := storage.New(cfg.QdrantHost, cfg.QdrantPort, embedder)
	if err != nil {
		log.Fatalf("failed to connect to Qdrant: %v", err)
	}
	defer store.Close()

	if err := store.EnsureCollections(ctx); err != nil {
		log.Fatalf("failed to ensure collections: %v", err)
	}

	// Index any course documents present before serving. A missing folder
	// is fine: ingestion can also happen through the ingest CLI.
	if _, err := os.Stat(cfg.DocsPath); err != nil {
		log.Printf("Docs folder %s not found, skipping startup ingestion", cfg.DocsPath)
	} else {
		pipeline := ingest.NewPipeline(
			ingest.NewDirSource(cfg.DocsPath),
			chunker.New(cfg.ChunkSize, cfg.ChunkOverlap),
			store, nil,
		)
		res, err := pipeline.Run(ctx)
		if err != nil {
			log.Fatalf("startup ingestion failed: %v", err)
		}
		log.Printf("Loaded %d courses (%d chunks), skipped %d already indexed",
			res.AddedCourses, res.TotalChunks, res.SkippedCourses)
	}

	// Retrieval and generation wiring
	resolver := search.NewResolver(store, cfg.ResolverMinScore)
	registry := search.NewRegistry(
		search.NewCourseSearchTool(store, resolver, cfg.MaxResults),
		search.NewCourseOutlineTool(store, resolver),
	)
	generator := generation.New(&openaiClient.Client().Chat.Completions, cfg.ChatModel, cfg.MaxToolRounds)
	sessions := session.NewStore(cfg.MaxHistory)
	system := rag.New(store, generator, registry, sessions, nil)

	// MCP server exposing the same retrieval tools
	server := mcpserver.NewServer(&mcpserver.Config{
		Store:      store,
		Resolver:   resolver,
		MaxResults: cfg.MaxResults,
	})

	mux := http.NewServeMux()
	httpapi.New(system, nil).Routes(mux)
	mux.HandleFunc("GET /health", httpapi.NewHealthHandler(store))
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, nil))

	// Check if running in server mode (HTTP) or stdio mode (local MCP clients)
	stdioMode := getEnv("MCP_STDIO", "false") == "true"

	addr := "0.0.0.0:" + cfg.Port
	if stdioMode {
		// Stdio mode: run MCP over stdin/stdout, HTTP endpoints in background
		go func() {
			log.Printf("Starting HTTP server on %s", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("HTTP server error: %v", err)
			}
		}()

		log.Println("Starting course RAG MCP server (stdio mode)...")
		if err := server.Run(ctx); err != nil {
			log.Printf("server error: %v", err)
			os.Exit(1)
		}
		return
	}

	log.Printf("Starting HTTP server on %s (API at /api, MCP at /mcp, health at /health)", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("HTTP server error: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
