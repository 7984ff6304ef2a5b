package repo

import (
	"context"
	"sync"
	"time"

	"github.com/polemos-ai/polemos/internal/debate"
)

// Compile-time assertion that MemRepo satisfies the MessageRepo interface.
var _ MessageRepo = (*MemRepo)(nil)

// MemRepo is a thread-safe in-memory [MessageRepo] for tests and single-
// process development. Expiry is enforced on read.
type MemRepo struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	nextID int64
	convs  map[int64]*debate.Conversation
	msgs   map[int64][]debate.Message
}

// MemRepoOption configures a [MemRepo].
type MemRepoOption func(*MemRepo)

// WithTTL overrides the conversation lifetime. The default is [DefaultTTL].
func WithTTL(ttl time.Duration) MemRepoOption {
	return func(r *MemRepo) { r.ttl = ttl }
}

// WithClock injects a clock for tests.
func WithClock(now func() time.Time) MemRepoOption {
	return func(r *MemRepo) { r.now = now }
}

// NewMemRepo returns an initialised [MemRepo].
func NewMemRepo(opts ...MemRepoOption) *MemRepo {
	r := &MemRepo{
		ttl:    DefaultTTL,
		now:    time.Now,
		nextID: 1,
		convs:  make(map[int64]*debate.Conversation),
		msgs:   make(map[int64][]debate.Message),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateConversation implements [MessageRepo.CreateConversation].
func (r *MemRepo) CreateConversation(_ context.Context, topic string, stance debate.Stance) (debate.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv := debate.Conversation{
		ID:        r.nextID,
		Topic:     topic,
		Stance:    stance,
		ExpiresAt: r.now().Add(r.ttl),
	}
	r.nextID++
	r.convs[conv.ID] = &conv
	r.msgs[conv.ID] = nil
	return conv, nil
}

// GetConversation implements [MessageRepo.GetConversation].
func (r *MemRepo) GetConversation(_ context.Context, conversationID int64) (debate.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.convs[conversationID]
	if !ok {
		return debate.Conversation{}, debate.ErrConversationNotFound
	}
	if r.now().After(conv.ExpiresAt) {
		return debate.Conversation{}, debate.ErrConversationExpired
	}
	return *conv, nil
}

// Touch implements [MessageRepo.Touch].
func (r *MemRepo) Touch(_ context.Context, conversationID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.convs[conversationID]
	if !ok {
		return debate.ErrConversationNotFound
	}
	base := r.now()
	if conv.ExpiresAt.After(base) {
		base = conv.ExpiresAt
	}
	conv.ExpiresAt = base.Add(r.ttl)
	return nil
}

// AddMessage implements [MessageRepo.AddMessage].
func (r *MemRepo) AddMessage(_ context.Context, conversationID int64, role, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.convs[conversationID]; !ok {
		return debate.ErrConversationNotFound
	}
	r.msgs[conversationID] = append(r.msgs[conversationID], debate.Message{
		Role:      role,
		Text:      text,
		CreatedAt: r.now(),
	})
	return nil
}

// LastMessages implements [MessageRepo.LastMessages]. Insertion order is the
// stable tiebreak, so the slice tail is already the most recent window.
func (r *MemRepo) LastMessages(_ context.Context, conversationID int64, limit int) ([]debate.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := r.msgs[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]debate.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// AllMessages implements [MessageRepo.AllMessages].
func (r *MemRepo) AllMessages(ctx context.Context, conversationID int64) ([]debate.Message, error) {
	return r.LastMessages(ctx, conversationID, 0)
}
