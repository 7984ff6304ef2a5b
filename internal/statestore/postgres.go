package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polemos-ai/polemos/internal/debate"
)

// Compile-time assertion that PGStore satisfies the Store interface.
var _ Store = (*PGStore)(nil)

const ddlDebateStates = `
CREATE TABLE IF NOT EXISTS debate_states (
    conversation_id BIGINT       PRIMARY KEY,
    state           JSONB        NOT NULL,
    updated_at      TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

// PGStore is a durable [Store] backed by a PostgreSQL debate_states table.
// The state is stored as a JSONB document; per-key atomicity for Update
// comes from a row-level lock inside a transaction.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a [PGStore] on the given pool and ensures the table
// exists.
func NewPGStore(ctx context.Context, pool *pgxpool.Pool) (*PGStore, error) {
	if _, err := pool.Exec(ctx, ddlDebateStates); err != nil {
		return nil, fmt.Errorf("statestore: migrate: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

// Get implements [Store.Get].
func (s *PGStore) Get(ctx context.Context, conversationID int64) (*debate.DebateState, error) {
	const q = `SELECT state FROM debate_states WHERE conversation_id = $1`

	var raw []byte
	err := s.pool.QueryRow(ctx, q, conversationID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("statestore: get: %w", err)
	}
	return decodeState(raw)
}

// Create implements [Store.Create].
func (s *PGStore) Create(ctx context.Context, conversationID int64, state *debate.DebateState) (*debate.DebateState, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("statestore: encode: %w", err)
	}

	const q = `
		INSERT INTO debate_states (conversation_id, state)
		VALUES ($1, $2)
		ON CONFLICT (conversation_id) DO NOTHING`

	tag, err := s.pool.Exec(ctx, q, conversationID, raw)
	if err != nil {
		return nil, fmt.Errorf("statestore: create: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrExists
	}
	return state.Clone(), nil
}

// Save implements [Store.Save].
func (s *PGStore) Save(ctx context.Context, conversationID int64, state *debate.DebateState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("statestore: encode: %w", err)
	}

	const q = `
		INSERT INTO debate_states (conversation_id, state, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (conversation_id)
		DO UPDATE SET state = EXCLUDED.state, updated_at = now()`

	if _, err := s.pool.Exec(ctx, q, conversationID, raw); err != nil {
		return fmt.Errorf("statestore: save: %w", err)
	}
	return nil
}

// Update implements [Store.Update]. The row is locked FOR UPDATE for the
// duration of fn so concurrent read-modify-write cycles on the same
// conversation serialize.
func (s *PGStore) Update(ctx context.Context, conversationID int64, fn func(*debate.DebateState)) (*debate.DebateState, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("statestore: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const sel = `SELECT state FROM debate_states WHERE conversation_id = $1 FOR UPDATE`

	var raw []byte
	err = tx.QueryRow(ctx, sel, conversationID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("statestore: update select: %w", err)
	}

	state, err := decodeState(raw)
	if err != nil {
		return nil, err
	}
	fn(state)

	out, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("statestore: encode: %w", err)
	}

	const upd = `UPDATE debate_states SET state = $2, updated_at = now() WHERE conversation_id = $1`
	if _, err := tx.Exec(ctx, upd, conversationID, out); err != nil {
		return nil, fmt.Errorf("statestore: update: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("statestore: commit: %w", err)
	}
	return state, nil
}

func decodeState(raw []byte) (*debate.DebateState, error) {
	state := &debate.DebateState{}
	if err := json.Unmarshal(raw, state); err != nil {
		return nil, fmt.Errorf("statestore: decode: %w", err)
	}
	return state, nil
}
