// Package config collects the environment configuration shared by the
// server and the ingestion CLI.
package config

import (
	"fmt"
	"os"

	"github.com/mike-a-ellis/course-rag/internal/chunker"
	"github.com/mike-a-ellis/course-rag/internal/generation"
	"github.com/mike-a-ellis/course-rag/internal/search"
	"github.com/mike-a-ellis/course-rag/internal/session"
)

// DefaultResolverMinScore is the minimum similarity for fuzzy course-name
// resolution; lower-scoring candidates are treated as no match.
const DefaultResolverMinScore = 0.3

// Config holds all runtime settings, populated from the environment.
type Config struct {
	QdrantHost string
	QdrantPort int
	Port       string

	ChatModel      string
	EmbeddingModel string

	ChunkSize     int
	ChunkOverlap  int
	MaxResults    int
	MaxHistory    int
	MaxToolRounds int

	ResolverMinScore float64

	DocsPath string
}

// Load reads configuration from the environment, applying defaults for
// anything unset.
func Load() *Config {
	return &Config{
		QdrantHost: getEnv("QDRANT_HOST", "localhost"),
		QdrantPort: getEnvInt("QDRANT_PORT", 6334),
		Port:       getEnv("PORT", "8000"),

		ChatModel:      getEnv("CHAT_MODEL", string(generation.DefaultModel)),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", ""),

		ChunkSize:     getEnvInt("CHUNK_SIZE", chunker.DefaultChunkSize),
		ChunkOverlap:  getEnvInt("CHUNK_OVERLAP", chunker.DefaultOverlap),
		MaxResults:    getEnvInt("MAX_RESULTS", search.DefaultMaxResults),
		MaxHistory:    getEnvInt("MAX_HISTORY", session.DefaultMaxHistory),
		MaxToolRounds: getEnvInt("MAX_TOOL_ROUNDS", generation.DefaultMaxRounds),

		ResolverMinScore: getEnvFloat("RESOLVER_MIN_SCORE", DefaultResolverMinScore),

		DocsPath: getEnv("DOCS_PATH", "./docs"),
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		var f float64
		if _, err := fmt.Sscanf(v, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}
