// Package service implements the message-handling workflow around the
// concession engine: starting conversations from Topic:/Side: markers,
// persisting turns, locking the conversation language from the first bot
// reply, and delegating continuation turns to the orchestrator.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/polemos-ai/polemos/internal/concession"
	"github.com/polemos-ai/polemos/internal/debate"
	"github.com/polemos-ai/polemos/internal/observe"
	"github.com/polemos-ai/polemos/internal/repo"
	"github.com/polemos-ai/polemos/internal/statestore"
	"github.com/polemos-ai/polemos/pkg/provider/llm"
)

// defaultHistoryLimit is the window multiplier when none is configured; the
// returned message window is 2× this value (user+bot pairs).
const defaultHistoryLimit = 5

// Result is the transport-facing outcome of a handled message.
type Result struct {
	// ConversationID identifies the (possibly new) conversation.
	ConversationID int64

	// Started is true when this call created the conversation.
	Started bool

	// Messages is the recent window, oldest→newest, including the new bot
	// reply.
	Messages []debate.Message
}

// MessageService handles both start and continuation messages.
type MessageService struct {
	repo         repo.MessageRepo
	states       statestore.Store
	llm          llm.Client
	orchestrator *concession.Orchestrator
	metrics      *observe.Metrics
	policy       debate.ConcessionPolicy
	historyLimit int
}

// New creates a MessageService. policy is embedded into every new debate
// state; historyLimit <= 0 falls back to the default; a nil metrics uses the
// package default.
func New(messageRepo repo.MessageRepo, states statestore.Store, llmClient llm.Client, orchestrator *concession.Orchestrator, metrics *observe.Metrics, policy debate.ConcessionPolicy, historyLimit int) *MessageService {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &MessageService{
		repo:         messageRepo,
		states:       states,
		llm:          llmClient,
		orchestrator: orchestrator,
		metrics:      metrics,
		policy:       policy,
		historyLimit: historyLimit,
	}
}

// Handle routes a message: nil conversationID starts a debate, otherwise the
// message continues the identified conversation.
func (s *MessageService) Handle(ctx context.Context, conversationID *int64, message string) (*Result, error) {
	if conversationID == nil {
		return s.start(ctx, message)
	}
	return s.continueConversation(ctx, *conversationID, message)
}

// start parses the Topic:/Side: markers, creates the conversation and its
// debate state, generates the opening reply, and locks the language from the
// reply's LANGUAGE header.
func (s *MessageService) start(ctx context.Context, message string) (*Result, error) {
	topic, stance, err := debate.ParseTopicSide(message)
	if err != nil {
		return nil, err
	}

	conv, err := s.repo.CreateConversation(ctx, topic, stance)
	if err != nil {
		return nil, fmt.Errorf("service: create conversation: %w", err)
	}

	fresh := debate.NewDebateState(stance, topic, "auto")
	fresh.Policy = s.policy
	state, err := s.states.Create(ctx, conv.ID, fresh)
	if err != nil {
		return nil, fmt.Errorf("service: create state: %w", err)
	}

	if err := s.repo.AddMessage(ctx, conv.ID, debate.RoleUser, message); err != nil {
		return nil, fmt.Errorf("service: persist user message: %w", err)
	}

	raw, err := s.llm.Generate(ctx, llm.Request{
		Messages: []llm.Message{{Role: "user", Content: message}},
		State: llm.State{
			Stance: string(stance),
			Topic:  topic,
			Lang:   state.Lang,
		},
	})
	if err != nil {
		return nil, err
	}

	lang, reply := debate.ParseLanguageHeader(raw)
	reply = debate.SanitizeEndMarkers(reply)

	_, err = s.states.Update(ctx, conv.ID, func(st *debate.DebateState) {
		if !st.LangLocked {
			st.Lang = lang
			st.LangLocked = true
		}
		st.AssistantTurns++
	})
	if err != nil {
		return nil, fmt.Errorf("service: lock language: %w", err)
	}

	s.metrics.ActiveDebates.Add(ctx, 1)
	slog.Info("debate started",
		"conversation_id", conv.ID,
		"stance", stance,
		"lang", lang,
		"topic", debate.Truncate(topic, 60),
	)

	if err := s.repo.AddMessage(ctx, conv.ID, debate.RoleBot, reply); err != nil {
		return nil, fmt.Errorf("service: persist bot message: %w", err)
	}

	return s.result(ctx, conv.ID, true)
}

// continueConversation validates the turn, persists the user message, runs
// the concession engine, and persists the bot reply.
func (s *MessageService) continueConversation(ctx context.Context, conversationID int64, message string) (*Result, error) {
	if err := debate.AssertNoTopicSideMarkers(message); err != nil {
		return nil, err
	}

	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Touch(ctx, conv.ID); err != nil {
		return nil, fmt.Errorf("service: touch conversation: %w", err)
	}
	if err := s.repo.AddMessage(ctx, conv.ID, debate.RoleUser, message); err != nil {
		return nil, fmt.Errorf("service: persist user message: %w", err)
	}

	history, err := s.repo.AllMessages(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("service: load history: %w", err)
	}

	reply, err := s.orchestrator.Analyze(ctx, conv, history)
	if err != nil {
		return nil, err
	}

	if err := s.repo.AddMessage(ctx, conv.ID, debate.RoleBot, reply); err != nil {
		return nil, fmt.Errorf("service: persist bot message: %w", err)
	}

	return s.result(ctx, conv.ID, false)
}

// result assembles the recent message window.
func (s *MessageService) result(ctx context.Context, conversationID int64, started bool) (*Result, error) {
	window, err := s.repo.LastMessages(ctx, conversationID, s.historyLimit*2)
	if err != nil {
		return nil, fmt.Errorf("service: load window: %w", err)
	}
	return &Result{
		ConversationID: conversationID,
		Started:        started,
		Messages:       window,
	}, nil
}
