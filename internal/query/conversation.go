package query

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/passbi/passbi_planner/internal/models"
)

// Conversation is the ordered history of one session
type Conversation struct {
	ID string

	mu       sync.Mutex
	turns    []models.Turn
	lastUsed time.Time
}

// NewConversation creates an empty conversation with a fresh id
func NewConversation() *Conversation {
	return &Conversation{ID: uuid.New().String(), lastUsed: time.Now()}
}

// History returns a copy of the turns, oldest first
func (c *Conversation) History() []models.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Append records an answered question
func (c *Conversation) Append(query, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.turns = append(c.turns, models.Turn{Query: query, Answer: answer, At: now})
	c.lastUsed = now
}

// Len returns the number of turns
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

func (c *Conversation) touch(now time.Time) {
	c.mu.Lock()
	c.lastUsed = now
	c.mu.Unlock()
}

func (c *Conversation) idleSince(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.lastUsed)
}

// SessionStore scopes conversations per session. Nothing survives a restart.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Conversation
	idleTTL  time.Duration
}

// NewSessionStore creates a store that forgets sessions idle longer than idleTTL.
// A zero idleTTL keeps sessions for the process lifetime.
func NewSessionStore(idleTTL time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Conversation),
		idleTTL:  idleTTL,
	}
}

// Get returns the conversation for id. Empty or unknown ids get a new
// conversation under a server-generated id; clients never choose session ids.
// The returned conversation's ID is the session id to hand back to the client.
func (s *SessionStore) Get(id string) *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv, ok := s.sessions[id]; ok && id != "" {
		conv.touch(time.Now())
		return conv
	}

	conv := NewConversation()
	s.sessions[conv.ID] = conv
	return conv
}

// Delete forgets a session; it reports whether the session existed
func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Prune drops idle sessions and returns how many were removed
func (s *SessionStore) Prune() int {
	if s.idleTTL <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, conv := range s.sessions {
		if conv.idleSince(now) > s.idleTTL {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
