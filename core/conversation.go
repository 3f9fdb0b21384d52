package core

import (
	"sync"
	"time"
)

// Conversation is a container for an ordered, append-only sequence of turns.
// It is safe for concurrent access.
//
// Contract:
//   - Turn order is append-only and chronological; turns are never inserted
//     out of order or mutated after creation
//   - GetTurns returns a defensive copy to avoid external mutation
//   - Clone performs a deep copy for safe divergence
type Conversation struct {
	ID      string    `json:"id"`
	Turns   []Turn    `json:"turns"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
	mu      sync.RWMutex
}

// NewConversation creates an empty conversation with the given identifier.
func NewConversation(id string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{ID: id, Turns: []Turn{}, Created: now, Updated: now}
}

// AppendTurns extends the turn sequence in order, updating the Updated
// timestamp. The whole slice is appended as one unit.
func (c *Conversation) AppendTurns(turns ...Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Turns = append(c.Turns, turns...)
	c.Updated = time.Now().UTC()
}

// GetTurns returns a defensive copy of the full turn sequence.
func (c *Conversation) GetTurns() []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	turns := make([]Turn, len(c.Turns))
	copy(turns, c.Turns)
	return turns
}

// Len returns the number of turns recorded so far.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.Turns)
}

// Window returns the trailing prompt window of at most max turns,
// oldest-first, never splitting a tool_call/tool_result pair.
func (c *Conversation) Window(max int) []Turn {
	return WindowTurns(c.GetTurns(), max)
}

// Clone returns a deep copy of the conversation safe for independent mutation.
func (c *Conversation) Clone() *Conversation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	clone := &Conversation{ID: c.ID, Turns: make([]Turn, len(c.Turns)), Created: c.Created, Updated: c.Updated}
	copy(clone.Turns, c.Turns)
	return clone
}

// ConversationStore persists conversations and their turn history. The
// orchestrator commits a whole exchange (user turn through assistant turn)
// with a single Append so readers never observe a partially recorded turn.
type ConversationStore interface {
	// Create registers a new empty conversation. An empty id requests a
	// freshly generated identifier; the created conversation is returned.
	Create(id string) (*Conversation, error)

	// Get returns the conversation or ErrNotFound.
	Get(id string) (*Conversation, error)

	// Append atomically extends the conversation's turn sequence,
	// preserving the given order. Returns ErrNotFound for unknown ids.
	Append(id string, turns []Turn) error

	// Delete removes the conversation and its turns. Deleting an unknown
	// id returns ErrNotFound so callers can distinguish "already gone"
	// from "succeeded".
	Delete(id string) error
}
