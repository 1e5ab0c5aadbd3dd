package search

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v2"

	"github.com/mike-a-ellis/course-rag/internal/course"
)

// Tool is one capability offered to the generation service. Execute returns
// either a result string or an error; the registry converts errors into
// tool-result strings so a failure never breaks the dispatch loop.
type Tool interface {
	Definition() openai.ChatCompletionFunctionToolParam
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// sourceTracker is implemented by tools that record citation sources.
type sourceTracker interface {
	LastSources() []course.Source
	ResetSources()
}

// Registry is the static name-to-handler mapping for tool dispatch.
// Unknown tool names are rejected with a failure string, never a dynamic
// lookup.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry registers the given tools by their declared names.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		name := t.Definition().Function.Name
		if _, dup := r.tools[name]; dup {
			continue
		}
		r.tools[name] = t
		r.order = append(r.order, name)
	}
	return r
}

// Definitions returns the declared schemas of all registered tools, in
// registration order.
func (r *Registry) Definitions() []openai.ChatCompletionFunctionToolParam {
	defs := make([]openai.ChatCompletionFunctionToolParam, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute runs the named tool. Failures of any kind come back as a
// descriptive result string for the generation service to explain.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) string {
	tool, ok := r.tools[name]
	if !ok {
		return fmt.Sprintf("Tool '%s' not found", name)
	}

	result, err := tool.Execute(ctx, args)
	if err != nil {
		return fmt.Sprintf("Tool execution failed: %v", err)
	}
	return result
}

// LastSources returns the citation sources recorded by tools since the last
// reset.
func (r *Registry) LastSources() []course.Source {
	var sources []course.Source
	for _, name := range r.order {
		if tracker, ok := r.tools[name].(sourceTracker); ok {
			sources = append(sources, tracker.LastSources()...)
		}
	}
	return sources
}

// ResetSources clears recorded sources on all tools. Called once per query
// after the sources have been read.
func (r *Registry) ResetSources() {
	for _, t := range r.tools {
		if tracker, ok := t.(sourceTracker); ok {
			tracker.ResetSources()
		}
	}
}
