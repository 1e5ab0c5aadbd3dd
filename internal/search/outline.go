package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"

	"github.com/mike-a-ellis/course-rag/internal/course"
	"github.com/mike-a-ellis/course-rag/internal/storage"
)

// CourseOutlineTool returns a course's structure: title, link, instructor
// and the full lesson list from the catalog metadata.
type CourseOutlineTool struct {
	store    Store
	resolver *Resolver
}

// NewCourseOutlineTool creates the outline tool.
func NewCourseOutlineTool(store Store, resolver *Resolver) *CourseOutlineTool {
	return &CourseOutlineTool{store: store, resolver: resolver}
}

type outlineArgs struct {
	CourseName string `json:"course_name"`
}

// Definition declares the tool schema sent to the generation service.
func (t *CourseOutlineTool) Definition() openai.ChatCompletionFunctionToolParam {
	return openai.ChatCompletionFunctionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        "get_course_outline",
			Description: openai.String("Get complete course outline including course title, link, and all lessons"),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"course_name": map[string]any{
						"type":        "string",
						"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
					},
				},
				"required": []string{"course_name"},
			},
		},
	}
}

// Execute resolves the course name and formats its outline.
func (t *CourseOutlineTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var params outlineArgs
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("invalid outline arguments: %w", err)
	}
	if params.CourseName == "" {
		return "", fmt.Errorf("course_name is required")
	}

	title, err := t.resolver.Resolve(ctx, params.CourseName)
	if errors.Is(err, storage.ErrNoMatch) {
		return fmt.Sprintf("No course found matching '%s'", params.CourseName), nil
	}
	if err != nil {
		return "", err
	}

	meta, err := t.store.GetCourseMetadata(ctx, title)
	if err != nil {
		return fmt.Sprintf("Could not retrieve metadata for course '%s'", title), nil
	}

	return formatOutline(meta), nil
}

func formatOutline(meta *course.CourseMetadata) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**Course:** %s\n", meta.Title)
	if meta.Instructor != "" {
		fmt.Fprintf(&b, "**Instructor:** %s\n", meta.Instructor)
	}
	if meta.Link != "" {
		fmt.Fprintf(&b, "**Course Link:** %s\n", meta.Link)
	}
	b.WriteString("\n**Lessons:**\n")

	if len(meta.Lessons) == 0 {
		b.WriteString("- No lessons found\n")
		return strings.TrimRight(b.String(), "\n")
	}
	for _, l := range meta.Lessons {
		fmt.Fprintf(&b, "- Lesson %d: %s\n", l.Number, l.Title)
	}
	return strings.TrimRight(b.String(), "\n")
}
