package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Note is a single thread annotation attached to a chat message. "Thread" is
// the UI feature name; it has nothing to do with execution threads.
type Note struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ThreadStore keeps thread annotations keyed by message id. Annotations for
// messages trimmed out of the log become unreachable and are swept by the
// governor, so the store's growth stays coupled to the visible log.
type ThreadStore struct {
	mu      sync.RWMutex
	threads map[string][]Note
}

// NewThreadStore returns an empty store.
func NewThreadStore() *ThreadStore {
	return &ThreadStore{threads: make(map[string][]Note)}
}

// Add appends a note to the thread for msgID.
func (s *ThreadStore) Add(msgID, text string) Note {
	n := Note{ID: uuid.NewString(), Text: text, CreatedAt: time.Now()}
	s.mu.Lock()
	s.threads[msgID] = append(s.threads[msgID], n)
	s.mu.Unlock()
	return n
}

// Get returns a copy of the thread for msgID.
func (s *ThreadStore) Get(msgID string) []Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	notes := s.threads[msgID]
	out := make([]Note, len(notes))
	copy(out, notes)
	return out
}

// Len returns the total note count across all threads.
func (s *ThreadStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, notes := range s.threads {
		n += len(notes)
	}
	return n
}

// sweep removes threads whose message id is not in live and returns the
// number of notes dropped.
func (s *ThreadStore) sweep(live map[string]struct{}) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for id, notes := range s.threads {
		if _, ok := live[id]; !ok {
			dropped += len(notes)
			delete(s.threads, id)
		}
	}
	return dropped
}
