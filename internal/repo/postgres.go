package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polemos-ai/polemos/internal/debate"
)

// Compile-time assertion that PGRepo satisfies the MessageRepo interface.
var _ MessageRepo = (*PGRepo)(nil)

const ddlConversations = `
CREATE TABLE IF NOT EXISTS conversations (
    conversation_id BIGSERIAL    PRIMARY KEY,
    topic           VARCHAR(100) NOT NULL,
    stance          VARCHAR(10)  NOT NULL,
    created_at      TIMESTAMPTZ  NOT NULL DEFAULT now(),
    expires_at      TIMESTAMPTZ  NOT NULL DEFAULT (now() + INTERVAL '1 hour')
);

CREATE INDEX IF NOT EXISTS idx_conversations_expires_at
    ON conversations (expires_at);

CREATE TABLE IF NOT EXISTS messages (
    message_id      BIGSERIAL    PRIMARY KEY,
    conversation_id BIGINT       NOT NULL
        REFERENCES conversations (conversation_id) ON DELETE CASCADE,
    role            VARCHAR(10)  NOT NULL,
    message         TEXT         NOT NULL,
    created_at      TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_messages_conv_created_at
    ON messages (conversation_id, created_at);

CREATE INDEX IF NOT EXISTS idx_messages_conv_created_id_desc
    ON messages (conversation_id, created_at DESC, message_id DESC);
`

// PGRepo is the PostgreSQL-backed [MessageRepo]. All methods are safe for
// concurrent use; the pool handles connection lifecycle.
type PGRepo struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// NewPGRepo creates a [PGRepo] on the given pool, ensures the schema exists,
// and uses ttl for conversation expiry (DefaultTTL when ttl <= 0).
func NewPGRepo(ctx context.Context, pool *pgxpool.Pool, ttl time.Duration) (*PGRepo, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if _, err := pool.Exec(ctx, ddlConversations); err != nil {
		return nil, fmt.Errorf("repo: migrate: %w", err)
	}
	return &PGRepo{pool: pool, ttl: ttl}, nil
}

// CreateConversation implements [MessageRepo.CreateConversation].
func (r *PGRepo) CreateConversation(ctx context.Context, topic string, stance debate.Stance) (debate.Conversation, error) {
	const q = `
		INSERT INTO conversations (topic, stance, expires_at)
		VALUES ($1, $2, now() + $3::interval)
		RETURNING conversation_id, expires_at`

	conv := debate.Conversation{Topic: topic, Stance: stance}
	interval := fmt.Sprintf("%d seconds", int(r.ttl.Seconds()))
	err := r.pool.QueryRow(ctx, q, topic, string(stance), interval).Scan(&conv.ID, &conv.ExpiresAt)
	if err != nil {
		return debate.Conversation{}, fmt.Errorf("repo: create conversation: %w", err)
	}
	return conv, nil
}

// GetConversation implements [MessageRepo.GetConversation].
func (r *PGRepo) GetConversation(ctx context.Context, conversationID int64) (debate.Conversation, error) {
	const q = `
		SELECT conversation_id, topic, stance, expires_at
		FROM   conversations
		WHERE  conversation_id = $1`

	var (
		conv   debate.Conversation
		stance string
	)
	err := r.pool.QueryRow(ctx, q, conversationID).Scan(&conv.ID, &conv.Topic, &stance, &conv.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return debate.Conversation{}, debate.ErrConversationNotFound
	}
	if err != nil {
		return debate.Conversation{}, fmt.Errorf("repo: get conversation: %w", err)
	}
	conv.Stance = debate.Stance(stance)
	if time.Now().After(conv.ExpiresAt) {
		return debate.Conversation{}, debate.ErrConversationExpired
	}
	return conv, nil
}

// Touch implements [MessageRepo.Touch].
func (r *PGRepo) Touch(ctx context.Context, conversationID int64) error {
	const q = `
		UPDATE conversations
		SET    expires_at = GREATEST(expires_at, now()) + $2::interval
		WHERE  conversation_id = $1`

	interval := fmt.Sprintf("%d seconds", int(r.ttl.Seconds()))
	tag, err := r.pool.Exec(ctx, q, conversationID, interval)
	if err != nil {
		return fmt.Errorf("repo: touch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return debate.ErrConversationNotFound
	}
	return nil
}

// AddMessage implements [MessageRepo.AddMessage].
func (r *PGRepo) AddMessage(ctx context.Context, conversationID int64, role, text string) error {
	const q = `INSERT INTO messages (conversation_id, role, message) VALUES ($1, $2, $3)`

	if _, err := r.pool.Exec(ctx, q, conversationID, role, text); err != nil {
		return fmt.Errorf("repo: add message: %w", err)
	}
	return nil
}

// LastMessages implements [MessageRepo.LastMessages]: the newest limit rows,
// re-sorted oldest→newest with message_id as the stable tiebreak.
func (r *PGRepo) LastMessages(ctx context.Context, conversationID int64, limit int) ([]debate.Message, error) {
	const q = `
		SELECT role, message, created_at
		FROM (
		    SELECT role, message, created_at, message_id
		    FROM   messages
		    WHERE  conversation_id = $1
		    ORDER  BY created_at DESC, message_id DESC
		    LIMIT  $2
		) sub
		ORDER BY created_at ASC, message_id ASC`

	rows, err := r.pool.Query(ctx, q, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("repo: last messages: %w", err)
	}
	return collectMessages(rows)
}

// AllMessages implements [MessageRepo.AllMessages].
func (r *PGRepo) AllMessages(ctx context.Context, conversationID int64) ([]debate.Message, error) {
	const q = `
		SELECT role, message, created_at
		FROM   messages
		WHERE  conversation_id = $1
		ORDER  BY created_at ASC, message_id ASC`

	rows, err := r.pool.Query(ctx, q, conversationID)
	if err != nil {
		return nil, fmt.Errorf("repo: all messages: %w", err)
	}
	return collectMessages(rows)
}

// collectMessages scans pgx rows into a slice of Message values.
func collectMessages(rows pgx.Rows) ([]debate.Message, error) {
	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (debate.Message, error) {
		var m debate.Message
		err := row.Scan(&m.Role, &m.Text, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("repo: scan rows: %w", err)
	}
	if msgs == nil {
		msgs = []debate.Message{}
	}
	return msgs, nil
}
