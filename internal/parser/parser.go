// Package parser turns raw course documents into Course records.
//
// Document format: fixed-key metadata lines first (Course Title is required
// and must be the first non-blank line; Course Link and Course Instructor are
// optional), followed by zero or more lesson blocks starting with a
// "Lesson <number>: <title>" header, optionally followed by a "Lesson Link:"
// line, with everything up to the next lesson header as the lesson body.
package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mike-a-ellis/course-rag/internal/course"
)

// ErrMalformedDocument marks documents that cannot be parsed. Callers skip
// the document and continue ingesting others.
var ErrMalformedDocument = errors.New("malformed course document")

var lessonHeaderRe = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

const (
	titleKey      = "Course Title:"
	linkKey       = "Course Link:"
	instructorKey = "Course Instructor:"
	lessonLinkKey = "Lesson Link:"
)

// Parse reads one course document and returns its Course with all lessons.
// A document with zero lessons is valid. Duplicate lesson numbers and a
// missing Course Title header are ErrMalformedDocument.
func Parse(text string) (*course.Course, error) {
	lines := strings.Split(text, "\n")

	c := &course.Course{}
	i := parseMetadata(lines, c)
	if c.Title == "" {
		return nil, fmt.Errorf("%w: missing Course Title header", ErrMalformedDocument)
	}

	seen := make(map[int]bool)
	var cur *course.Lesson
	var body []string

	flush := func() {
		if cur == nil {
			return
		}
		cur.Body = strings.TrimSpace(strings.Join(body, "\n"))
		c.Lessons = append(c.Lessons, *cur)
		cur = nil
		body = nil
	}

	for ; i < len(lines); i++ {
		line := lines[i]

		if m := lessonHeaderRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			flush()
			number, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, fmt.Errorf("%w: invalid lesson number %q", ErrMalformedDocument, m[1])
			}
			if seen[number] {
				return nil, fmt.Errorf("%w: duplicate lesson number %d", ErrMalformedDocument, number)
			}
			seen[number] = true
			cur = &course.Lesson{Number: number, Title: strings.TrimSpace(m[2])}

			// Optional Lesson Link on the line directly after the header.
			if i+1 < len(lines) {
				if link, ok := keyValue(lines[i+1], lessonLinkKey); ok {
					cur.Link = link
					i++
				}
			}
			continue
		}

		if cur != nil {
			body = append(body, line)
		}
	}
	flush()

	return c, nil
}

// parseMetadata consumes the leading fixed-key metadata lines and returns
// the index of the first line past them. Blank lines before and between
// metadata keys are tolerated; the first non-blank line must carry the
// Course Title key.
func parseMetadata(lines []string, c *course.Course) int {
	i := 0
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, titleKey):
			c.Title = strings.TrimSpace(strings.TrimPrefix(line, titleKey))
		case c.Title != "" && strings.HasPrefix(line, linkKey):
			c.Link = strings.TrimSpace(strings.TrimPrefix(line, linkKey))
		case c.Title != "" && strings.HasPrefix(line, instructorKey):
			c.Instructor = strings.TrimSpace(strings.TrimPrefix(line, instructorKey))
		default:
			return i
		}
	}
	return i
}

// keyValue returns the value of a "Key: value" line if it carries the given
// key.
func keyValue(line, key string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, key) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(trimmed, key)), true
}
