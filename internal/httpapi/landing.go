package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// landingMarkdown is the API guide served at /. It is rendered to HTML with
// a generated table of contents on first request.
const landingMarkdown = `# Course Materials RAG Server

Ask questions about indexed course materials and get answers grounded in
the actual lesson content, with citations.

## Querying

Send a question to the query endpoint. Omit ` + "`session_id`" + ` to start a new
conversation; reuse the returned id for follow-up questions.

    POST /api/query
    {"query": "What is covered in lesson 5 of the MCP course?"}

The response contains the answer, the course/lesson sources it was drawn
from, and the session id.

## Catalog

    GET /api/courses

Returns the indexed course titles and chunk counts.

## MCP

The same search tools are exposed over the Model Context Protocol at
` + "`/mcp`" + ` (Streamable HTTP), for use from MCP clients:

    claude mcp add course-rag --transport streamable-http <server>/mcp

## Health

    GET /health

Reports vector store connectivity.
`

const landingShell = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Course Materials RAG Server</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #0f172a; color: #e2e8f0; max-width: 720px; margin: 0 auto; padding: 2.5rem 1.5rem; line-height: 1.6; }
  h1, h2 { color: #f8fafc; }
  a { color: #38bdf8; text-decoration: none; }
  a:hover { text-decoration: underline; }
  pre { background: #1e293b; border: 1px solid #334155; border-radius: 8px; padding: 1rem; overflow-x: auto; font-size: 0.85rem; }
  code { font-family: "SF Mono", "Fira Code", Menlo, monospace; }
  nav { background: #1e293b; border-radius: 8px; padding: 0.75rem 1.5rem; margin-bottom: 1.5rem; }
</style>
</head>
<body>
<nav>%s</nav>
%s
</body>
</html>`

var (
	landingOnce sync.Once
	landingPage []byte
)

// renderLanding converts the markdown guide to HTML with a table of
// contents. Render failures fall back to the raw markdown in a <pre> block.
func renderLanding() []byte {
	source := []byte(landingMarkdown)
	md := goldmark.New(
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)

	doc := md.Parser().Parse(text.NewReader(source))

	var tocHTML bytes.Buffer
	tree, err := toc.Inspect(doc, source, toc.MinDepth(2), toc.MaxDepth(2), toc.Compact(true))
	if err == nil {
		if list := toc.RenderList(tree); list != nil {
			_ = md.Renderer().Render(&tocHTML, source, list)
		}
	}

	var body bytes.Buffer
	if err := md.Renderer().Render(&body, source, doc); err != nil {
		return []byte(fmt.Sprintf(landingShell, "", "<pre>"+landingMarkdown+"</pre>"))
	}

	return []byte(fmt.Sprintf(landingShell, tocHTML.String(), body.String()))
}

// NewLandingHandler serves the rendered API guide at /.
func NewLandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		landingOnce.Do(func() { landingPage = renderLanding() })
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(landingPage)
	}
}
