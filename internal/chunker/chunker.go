// Package chunker splits lesson text into overlapping, sentence-aligned
// chunks sized for embedding.
package chunker

import (
	"regexp"
	"strings"
)

const (
	// DefaultChunkSize is the character budget per chunk.
	DefaultChunkSize = 800

	// DefaultOverlap is the character budget of trailing sentences shared
	// between consecutive chunks.
	DefaultOverlap = 100
)

// boundaryRe marks sentence boundaries: a terminator run followed by
// whitespace. Locale-agnostic by construction.
var boundaryRe = regexp.MustCompile(`[.!?]+\s+`)

// whitespaceRe collapses whitespace runs during normalization.
var whitespaceRe = regexp.MustCompile(`\s+`)

// Chunker accumulates sentences greedily up to the chunk budget and carries
// a bounded suffix of sentences into the next chunk as overlap.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New creates a chunker with the given character budgets. Non-positive
// values fall back to the defaults.
func New(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Split returns the ordered chunk texts covering the whole input. Chunk
// boundaries never fall inside a sentence; a single sentence longer than the
// budget becomes its own oversized chunk. Returns nil for blank input.
func (c *Chunker) Split(text string) []string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var cur []string
	curLen := 0

	for _, s := range sentences {
		if len(cur) > 0 && curLen+1+len(s) > c.chunkSize {
			chunks = append(chunks, strings.Join(cur, " "))
			cur, curLen = c.carryOverlap(cur)
			// Overlap is duplicated context and yields to the budget:
			// drop carried sentences, oldest first, until s fits.
			for len(cur) > 0 && curLen+1+len(s) > c.chunkSize {
				dropped := len(cur[0])
				cur = cur[1:]
				if len(cur) > 0 {
					curLen -= dropped + 1
				} else {
					curLen = 0
				}
			}
		}
		if curLen > 0 {
			curLen++ // Joining space
		}
		cur = append(cur, s)
		curLen += len(s)
	}
	if len(cur) > 0 {
		chunks = append(chunks, strings.Join(cur, " "))
	}

	return chunks
}

// carryOverlap returns the trailing sentences of the finished chunk whose
// total length fits the overlap budget, to seed the next chunk.
func (c *Chunker) carryOverlap(cur []string) ([]string, int) {
	var keep []string
	total := 0
	for i := len(cur) - 1; i >= 0; i-- {
		add := len(cur[i])
		if total > 0 {
			add++ // Joining space
		}
		if total+add > c.overlap {
			break
		}
		keep = append([]string{cur[i]}, keep...)
		total += add
	}
	return keep, total
}

// SplitSentences normalizes whitespace and splits the text into sentences.
// Text without terminal punctuation becomes a single trailing sentence.
func SplitSentences(text string) []string {
	normalized := strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	if normalized == "" {
		return nil
	}

	boundaries := boundaryRe.FindAllStringIndex(normalized, -1)
	sentences := make([]string, 0, len(boundaries)+1)
	prev := 0
	for _, loc := range boundaries {
		if s := strings.TrimSpace(normalized[prev:loc[1]]); s != "" {
			sentences = append(sentences, s)
		}
		prev = loc[1]
	}
	if s := strings.TrimSpace(normalized[prev:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
