package history

import (
	"sync"

	"github.com/google/uuid"
)

// Session owns one conversation buffer. The turn lock serializes whole
// turns for a session: history append order determines the correctness
// of future prompts, so voice and text turns for the same session must
// never interleave.
type Session struct {
	id      string
	mu      sync.Mutex
	History *Buffer
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Lock acquires the session's turn lock.
func (s *Session) Lock() {
	s.mu.Lock()
}

// Unlock releases the session's turn lock.
func (s *Session) Unlock() {
	s.mu.Unlock()
}

// Store maps session identifiers to independently owned buffers.
// Concurrent requests for different sessions never contend beyond the
// brief map lookup.
type Store struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	historyCap int
}

// NewStore creates a session store whose sessions hold at most
// historyCap turns each.
func NewStore(historyCap int) *Store {
	return &Store{
		sessions:   make(map[string]*Session),
		historyCap: historyCap,
	}
}

// Get returns the session with the given id, if it exists.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// GetOrCreate returns the session with the given id, creating it if
// needed. An empty id mints a fresh UUIDv7 identifier.
func (st *Store) GetOrCreate(id string) *Session {
	if id != "" {
		if s, ok := st.Get(id); ok {
			return s
		}
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
	} else if s, ok := st.sessions[id]; ok {
		return s
	}
	s := &Session{
		id:      id,
		History: NewBuffer(st.historyCap),
	}
	st.sessions[id] = s
	return s
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
