// Package repo persists conversations and their message history.
//
// The core reads conversation metadata and message history and appends
// messages; the only metadata write it performs is the expiry bump (Touch).
// Messages are ordered by creation time with the insertion id as a stable
// tiebreak, always returned oldest→newest.
package repo

import (
	"context"
	"time"

	"github.com/polemos-ai/polemos/internal/debate"
)

// MessageRepo is the repository contract for conversations and messages.
type MessageRepo interface {
	// CreateConversation stores a new conversation and returns it with its
	// assigned id and expiry.
	CreateConversation(ctx context.Context, topic string, stance debate.Stance) (debate.Conversation, error)

	// GetConversation returns the conversation, debate.ErrConversationNotFound
	// if the id is unknown, or debate.ErrConversationExpired if its TTL has
	// elapsed.
	GetConversation(ctx context.Context, conversationID int64) (debate.Conversation, error)

	// Touch extends the conversation's expiry by the configured TTL, from
	// now or from the current expiry, whichever is later.
	Touch(ctx context.Context, conversationID int64) error

	// AddMessage appends a message to the conversation.
	AddMessage(ctx context.Context, conversationID int64, role, text string) error

	// LastMessages returns the most recent limit messages, oldest→newest.
	LastMessages(ctx context.Context, conversationID int64, limit int) ([]debate.Message, error)

	// AllMessages returns the full history, oldest→newest.
	AllMessages(ctx context.Context, conversationID int64) ([]debate.Message, error)
}

// DefaultTTL is the conversation lifetime when none is configured.
const DefaultTTL = 60 * time.Minute
