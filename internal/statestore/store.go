// Package statestore persists the authoritative per-conversation
// [debate.DebateState], keyed by conversation id.
//
// Both implementations give snapshot semantics: Get returns an independent
// copy, Save stores an independent copy, so an in-flight orchestration can
// mutate its local state freely and commit (or abandon) it atomically.
// Operations are transactional per key; cross-key consistency is not part of
// the contract.
package statestore

import (
	"context"
	"errors"

	"github.com/polemos-ai/polemos/internal/debate"
)

var (
	// ErrNotFound is returned by Get/Update when no state exists for the
	// conversation id. Save creates the state when it is missing.
	ErrNotFound = errors.New("debate state not found")

	// ErrExists is returned by Create when state already exists for the id.
	ErrExists = errors.New("debate state already exists")
)

// Store is the key-value contract for debate state.
type Store interface {
	// Get returns an independent copy of the state, or ErrNotFound.
	Get(ctx context.Context, conversationID int64) (*debate.DebateState, error)

	// Create stores the fresh state for the conversation and returns an
	// independent copy. Fails with ErrExists if the key is taken.
	Create(ctx context.Context, conversationID int64, state *debate.DebateState) (*debate.DebateState, error)

	// Save overwrites the stored state with an independent copy of state.
	Save(ctx context.Context, conversationID int64, state *debate.DebateState) error

	// Update loads the state, applies fn in place, saves the result, and
	// returns a copy. Fails with ErrNotFound if the key is missing. The
	// read-modify-write is atomic per key.
	Update(ctx context.Context, conversationID int64, fn func(*debate.DebateState)) (*debate.DebateState, error)
}
