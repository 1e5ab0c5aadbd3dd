// Package session keeps short-lived conversation history for follow-up
// questions. History is bounded per session so prompts stay small.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DefaultMaxHistory is how many user/assistant exchanges a session retains.
const DefaultMaxHistory = 2

type exchange struct {
	query  string
	answer string
}

// Store holds conversation sessions in memory. Safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	sessions   map[string][]exchange
	maxHistory int
}

// NewStore creates a session store. A non-positive maxHistory selects
// DefaultMaxHistory.
func NewStore(maxHistory int) *Store {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Store{
		sessions:   make(map[string][]exchange),
		maxHistory: maxHistory,
	}
}

// Create starts a new empty session and returns its id.
func (s *Store) Create() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = nil
	s.mu.Unlock()
	return id
}

// AddExchange records one query/answer pair, evicting the oldest exchange
// once the session exceeds its history bound. Unknown session ids are
// created implicitly.
func (s *Store) AddExchange(id, query, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.sessions[id], exchange{query: query, answer: answer})
	if len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}
	s.sessions[id] = history
}

// History returns the session's retained exchanges formatted for prompt
// injection, or "" for an unknown or empty session.
func (s *Store) History(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.sessions[id]
	if len(history) == 0 {
		return ""
	}

	lines := make([]string, 0, len(history)*2)
	for _, ex := range history {
		lines = append(lines, fmt.Sprintf("User: %s", ex.query))
		lines = append(lines, fmt.Sprintf("Assistant: %s", ex.answer))
	}
	return strings.Join(lines, "\n")
}

// Clear removes a session's history.
func (s *Store) Clear(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}
