package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mike-a-ellis/course-rag/internal/course"
	"github.com/mike-a-ellis/course-rag/internal/search"
)

// Store is the slice of the vector store the MCP tools read from.
// *storage.Store satisfies it.
type Store interface {
	search.Store
	ListCourses(ctx context.Context) ([]course.CourseSummary, error)
	ChunkCount(ctx context.Context) (int, error)
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
	store  Store
}

// Config holds server dependencies.
type Config struct {
	Store    Store
	Resolver *search.Resolver
	// MaxResults bounds search results per call when the client does not
	// ask for a specific number.
	MaxResults int
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "course-rag-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_course_content",
		Description: "Search course materials with smart course name matching and optional lesson filtering. Returns matching content chunks with scores.",
	}, makeSearchHandler(cfg.Store, cfg.Resolver, cfg.MaxResults))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_course_outline",
		Description: "Get a complete course outline including course title, link, instructor and all lessons.",
	}, makeOutlineHandler(cfg.Store, cfg.Resolver))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_course_stats",
		Description: "Get statistics about the indexed course materials: course count, chunk count and course titles.",
	}, makeStatsHandler(cfg.Store))

	return &Server{server: server, store: cfg.Store}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
