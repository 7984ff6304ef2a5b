package statestore

import (
	"context"
	"sync"

	"github.com/polemos-ai/polemos/internal/debate"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store], suitable
// for single-process deployments and tests. States are deep-copied on both
// read and write.
type MemStore struct {
	mu     sync.Mutex
	states map[int64]*debate.DebateState
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{states: make(map[int64]*debate.DebateState)}
}

// Get implements [Store.Get].
func (s *MemStore) Get(_ context.Context, conversationID int64) (*debate.DebateState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[conversationID]
	if !ok {
		return nil, ErrNotFound
	}
	return state.Clone(), nil
}

// Create implements [Store.Create].
func (s *MemStore) Create(_ context.Context, conversationID int64, state *debate.DebateState) (*debate.DebateState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.states[conversationID]; exists {
		return nil, ErrExists
	}
	s.states[conversationID] = state.Clone()
	return state.Clone(), nil
}

// Save implements [Store.Save].
func (s *MemStore) Save(_ context.Context, conversationID int64, state *debate.DebateState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[conversationID] = state.Clone()
	return nil
}

// Update implements [Store.Update].
func (s *MemStore) Update(_ context.Context, conversationID int64, fn func(*debate.DebateState)) (*debate.DebateState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[conversationID]
	if !ok {
		return nil, ErrNotFound
	}
	fn(state)
	return state.Clone(), nil
}
