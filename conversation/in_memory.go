package conversation

import (
	"sync"

	"github.com/hupe1980/agentbridge/core"
)

// InMemoryStore is a volatile ConversationStore implementation keeping
// conversations in a process local map. It is safe for concurrent access and
// best suited for single-process deployments, tests and demos. Each returned
// conversation is cloned to prevent external mutation of internal state.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*core.Conversation
}

// NewInMemoryStore constructs an empty in-memory conversation store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{conversations: make(map[string]*core.Conversation)}
}

// Create registers a new empty conversation. An empty id requests a freshly
// generated identifier. Creating an id that already exists returns the
// existing conversation unchanged so concurrent first-message races cannot
// drop history.
func (s *InMemoryStore) Create(id string) (*core.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		id = core.NewID()
	}
	if conv, ok := s.conversations[id]; ok {
		return conv.Clone(), nil
	}
	conv := core.NewConversation(id)
	s.conversations[id] = conv
	return conv.Clone(), nil
}

// Get returns a clone of the conversation or core.ErrNotFound.
func (s *InMemoryStore) Get(id string) (*core.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return conv.Clone(), nil
}

// Append atomically extends the conversation's turn sequence in the given
// order. Unknown ids return core.ErrNotFound.
func (s *InMemoryStore) Append(id string, turns []core.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return core.ErrNotFound
	}
	conv.AppendTurns(turns...)
	return nil
}

// Delete removes the conversation and its turns. Deleting an unknown id
// returns core.ErrNotFound rather than succeeding silently.
func (s *InMemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.conversations, id)
	return nil
}
