// Package mcp exposes the course search tools over the Model Context
// Protocol, for clients that want direct retrieval without the generation
// loop.
package mcp

// SearchInput defines the input parameters for the search_course_content tool.
type SearchInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"required,description=What to search for in the course content"`
	// CourseName optionally narrows the search to one course. Partial titles work.
	CourseName string `json:"course_name,omitempty" jsonschema:"description=Course title to search within (partial matches work)"`
	// LessonNumber optionally narrows the search to one lesson.
	LessonNumber *int `json:"lesson_number,omitempty" jsonschema:"description=Specific lesson number to search within"`
	// MaxResults is the maximum number of chunks to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"minimum=1,maximum=20,default=5,description=Maximum number of chunks to return"`
}

// SearchHit is one matching chunk.
type SearchHit struct {
	// CourseTitle is the exact title of the course the chunk belongs to.
	CourseTitle string `json:"course_title"`
	// LessonNumber is the lesson the chunk belongs to.
	LessonNumber int `json:"lesson_number"`
	// Text is the chunk content.
	Text string `json:"text"`
	// Score is the similarity score (0-1).
	Score float64 `json:"score"`
}

// SearchOutput contains the search results.
type SearchOutput struct {
	// Results is the list of matching chunks, best first.
	Results []SearchHit `json:"results"`
	// Message provides informational context (e.g. no matching course).
	Message string `json:"message,omitempty"`
}

// OutlineInput defines the input parameters for the get_course_outline tool.
type OutlineInput struct {
	// CourseName is the course to describe. Partial titles work.
	CourseName string `json:"course_name" jsonschema:"required,description=Course title (partial matches work)"`
}

// OutlineLesson is one lesson in a course outline.
type OutlineLesson struct {
	Number int    `json:"lesson_number"`
	Title  string `json:"lesson_title"`
	Link   string `json:"lesson_link,omitempty"`
}

// OutlineOutput contains the course structure.
type OutlineOutput struct {
	// Found indicates whether a matching course exists.
	Found bool `json:"found"`
	// CourseTitle is the exact catalog title.
	CourseTitle string `json:"course_title,omitempty"`
	// CourseLink is the course landing page.
	CourseLink string `json:"course_link,omitempty"`
	// Instructor is the course instructor, if known.
	Instructor string `json:"instructor,omitempty"`
	// Lessons lists the course's lessons in order.
	Lessons []OutlineLesson `json:"lessons,omitempty"`
	// Message provides informational context when no course matched.
	Message string `json:"message,omitempty"`
}

// StatsInput defines the input parameters for the get_course_stats tool.
// The tool takes no parameters.
type StatsInput struct{}

// StatsOutput summarizes what is currently indexed.
type StatsOutput struct {
	// TotalCourses is the number of indexed courses.
	TotalCourses int `json:"total_courses"`
	// TotalChunks is the number of indexed content chunks.
	TotalChunks int `json:"total_chunks"`
	// CourseTitles lists the indexed course titles.
	CourseTitles []string `json:"course_titles"`
}
