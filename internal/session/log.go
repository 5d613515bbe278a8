// Package session holds the in-memory conversation log, its per-message
// thread annotations, and the memory governor that bounds both.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message role tags.
const (
	RoleUser       = "user"
	RoleAssistant  = "assistant"
	RoleSuggestion = "suggestion"
)

// Suggestion is a structured attachment proposing a follow-up statistical test.
type Suggestion struct {
	Test      string `json:"test"`
	Rationale string `json:"rationale,omitempty"`
}

// Message is one entry in the conversation log.
type Message struct {
	ID          string       `json:"id"`
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	CreatedAt   time.Time    `json:"created_at"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// Log is an ordered, append-only message sequence. Both the append path and
// the governor's trim path replace the backing slice wholesale, so a snapshot
// handed out earlier is never mutated under a reader — this discipline
// substitutes for finer-grained locking in the cooperative model.
type Log struct {
	mu   sync.RWMutex
	msgs []Message
}

// NewLog returns an empty conversation log.
func NewLog() *Log {
	return &Log{}
}

// Append adds a message and returns it with its assigned id.
func (l *Log) Append(role, content string, suggestions ...Suggestion) Message {
	msg := Message{
		ID:          uuid.NewString(),
		Role:        role,
		Content:     content,
		CreatedAt:   time.Now(),
		Suggestions: suggestions,
	}
	l.mu.Lock()
	next := make([]Message, len(l.msgs)+1)
	copy(next, l.msgs)
	next[len(l.msgs)] = msg
	l.msgs = next
	l.mu.Unlock()
	return msg
}

// Messages returns the current snapshot.
func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.msgs
}

// Len returns the current message count.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.msgs)
}

// replaceTail swaps the log for its most recent keep messages and returns the
// removed ones, oldest first. Only the governor calls this.
func (l *Log) replaceTail(keep int) []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	if keep < 0 || len(l.msgs) <= keep {
		return nil
	}
	cut := len(l.msgs) - keep
	removed := l.msgs[:cut]
	next := make([]Message, keep)
	copy(next, l.msgs[cut:])
	l.msgs = next
	return removed
}
