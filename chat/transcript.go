// Package chat sends messages to the marketplace's support assistant
// and incrementally renders the streamed reply.
package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Entry is one transcript turn. While an assistant reply is being
// streamed its entry has Streaming=true and grows chunk by chunk.
type Entry struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Streaming bool      `json:"streaming"`
	Error     bool      `json:"error"`
}

// Transcript is the ephemeral ordered message list. It lives only in
// memory and resets with the consumer - nothing here is persisted.
type Transcript struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewTranscript creates an empty transcript
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Entries returns a copy of the transcript in order
func (t *Transcript) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entries := make([]Entry, len(t.entries))
	copy(entries, t.entries)
	return entries
}

// Len returns the number of entries
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Reset clears the transcript
func (t *Transcript) Reset() {
	t.mu.Lock()
	t.entries = nil
	t.mu.Unlock()
}

// append adds an entry and returns its ID
func (t *Transcript) append(role, content string, streaming bool) string {
	entry := Entry{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		Streaming: streaming,
	}

	t.mu.Lock()
	t.entries = append(t.entries, entry)
	t.mu.Unlock()

	return entry.ID
}

// setContent replaces an entry's content in place
func (t *Transcript) setContent(id, content string) {
	t.mu.Lock()
	for i := range t.entries {
		if t.entries[i].ID == id {
			t.entries[i].Content = content
			break
		}
	}
	t.mu.Unlock()
}

// finalize marks a streaming entry terminal, optionally as an error
func (t *Transcript) finalize(id string, isError bool) {
	t.mu.Lock()
	for i := range t.entries {
		if t.entries[i].ID == id {
			t.entries[i].Streaming = false
			t.entries[i].Error = isError
			break
		}
	}
	t.mu.Unlock()
}

// get returns a copy of one entry
func (t *Transcript) get(id string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := range t.entries {
		if t.entries[i].ID == id {
			return t.entries[i], true
		}
	}
	return Entry{}, false
}

// window returns up to n most recent completed turns, excluding error
// entries and the listed IDs (the turn currently being sent).
func (t *Transcript) window(n int, exclude ...string) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	excluded := func(id string) bool {
		for _, ex := range exclude {
			if ex == id {
				return true
			}
		}
		return false
	}

	turns := make([]Entry, 0, n)
	for i := len(t.entries) - 1; i >= 0 && len(turns) < n; i-- {
		e := t.entries[i]
		if e.Error || excluded(e.ID) {
			continue
		}
		turns = append(turns, e)
	}

	// Reverse back into chronological order
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns
}
