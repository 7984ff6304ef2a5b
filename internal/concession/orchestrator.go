// Package concession drives the judgment loop of a debate turn: score the
// user's latest message against the bot's thesis with NLI, fold the result
// into the debate state through the policy engine, steer the LLM reply, and
// decide whether the match ends.
//
// The orchestrator owns all mutation of [debate.DebateState]. Turns for the
// same conversation are serialized through an in-process lock table; the
// pure steps (canonicalization, scoring predicates, the policy decision)
// never block, so the only suspension points are NLI, LLM, and store I/O.
// State is committed once, after the reply is known — a failed turn leaves
// the stored state untouched.
package concession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/polemos-ai/polemos/internal/debate"
	"github.com/polemos-ai/polemos/internal/observe"
	"github.com/polemos-ai/polemos/internal/scoring"
	"github.com/polemos-ai/polemos/internal/statestore"
	"github.com/polemos-ai/polemos/pkg/provider/llm"
	"github.com/polemos-ai/polemos/pkg/provider/nli"
)

// substantiveMinWords is the alphabetic word floor below which an assistant
// message is skipped when looking for the bot turn to judge against.
const substantiveMinWords = 10

// Orchestrator evaluates continuation turns. Construct with New; all
// dependencies are required except metrics, which defaults to the package
// metrics.
type Orchestrator struct {
	nli     nli.Provider
	llm     llm.Client
	states  statestore.Store
	scoring scoring.Config
	policy  debate.PolicyConfig
	metrics *observe.Metrics
	locks   *lockTable
}

// New creates an Orchestrator.
func New(nliProvider nli.Provider, llmClient llm.Client, states statestore.Store, scoringCfg scoring.Config, policyCfg debate.PolicyConfig, metrics *observe.Metrics) *Orchestrator {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Orchestrator{
		nli:     nliProvider,
		llm:     llmClient,
		states:  states,
		scoring: scoringCfg,
		policy:  policyCfg,
		metrics: metrics,
		locks:   newLockTable(),
	}
}

// Analyze runs one continuation turn for the conversation and returns the
// bot reply: the sanitized LLM output, or a localized verdict / after-end
// message when the match ends or has ended.
//
// messages is the full ordered history, oldest→newest, already including the
// user's newest message.
func (o *Orchestrator) Analyze(ctx context.Context, conv debate.Conversation, messages []debate.Message) (string, error) {
	unlock := o.locks.acquire(conv.ID)
	defer unlock()

	start := time.Now()
	defer func() {
		o.metrics.TurnDuration.Record(ctx, time.Since(start).Seconds())
	}()

	state, err := o.states.Get(ctx, conv.ID)
	if errors.Is(err, statestore.ErrNotFound) {
		return "", fmt.Errorf("%w: conversation %d", debate.ErrStateMissing, conv.ID)
	}
	if err != nil {
		return "", fmt.Errorf("concession: load state: %w", err)
	}

	if state.MatchConcluded {
		return debate.AfterEndMessage(state), nil
	}

	userIdx, botIdx := locateTurns(messages)
	if userIdx < 0 || botIdx < 0 {
		// Nothing to judge yet (first continuation, or no substantive bot
		// turn). Forward with default steering.
		return o.reply(ctx, conv.ID, state, messages, debate.TierNone)
	}

	verdictTier, err := o.judge(ctx, state, messages[botIdx].Text, messages[userIdx].Text)
	if err != nil {
		o.metrics.RecordProviderError(ctx, "nli", "score")
		return "", fmt.Errorf("%w: %v", debate.ErrLLMService, err)
	}

	state.PushTier(verdictTier)
	if verdictTier.Positive() {
		state.PositiveJudgements++
	}
	o.metrics.RecordTierDecision(ctx, string(verdictTier))

	slog.Debug("tier decided",
		"conversation_id", conv.ID,
		"tier", verdictTier,
		"positive_judgements", state.PositiveJudgements,
		"assistant_turns", state.AssistantTurns,
	)

	// KO lane: a FULL tier ends the match before any LLM call.
	if verdictTier == debate.TierFull {
		return o.conclude(ctx, conv.ID, state, "ko")
	}

	return o.reply(ctx, conv.ID, state, messages, verdictTier)
}

// judge scores the user turn against the bot's previous claims and thesis
// and returns the concession tier. It mutates only the local state copy.
func (o *Orchestrator) judge(ctx context.Context, state *debate.DebateState, botText, userText string) (debate.ConcessionTier, error) {
	userClean := debate.NormalizeSpaces(userText)
	userWC := debate.WordCount(userText)
	questionOnly := debate.IsQuestion(userClean)
	thesis := debate.BotThesis(state.Topic, state.Stance)

	// Thesis probe: topic gate, escalation input, robustness aid.
	thesisScores, err := o.score(ctx, thesis, userClean)
	if err != nil {
		return debate.TierNone, err
	}
	onTopic := scoring.IsOnTopic(thesisScores, o.scoring)

	// Best claim pair: every extracted claim competes with the thesis
	// fallback; highest contradiction wins, relatedness breaks ties. When no
	// discrete claim survives extraction, the question-stripped bot message
	// stands in as a single pairwise candidate.
	claims := debate.ExtractClaims(botText)
	if len(claims) == 0 {
		claims = []string{debate.DropQuestions(botText)}
	}
	best := thesisScores
	bestRelated := scoring.Relatedness(thesisScores)
	for _, claim := range claims {
		claimScores, err := o.score(ctx, claim, userClean)
		if err != nil {
			return debate.TierNone, err
		}
		if better(claimScores, best) {
			best = claimScores
			bestRelated = scoring.Relatedness(claimScores)
		}
	}
	if bestRelated < o.scoring.RelatednessMin {
		// Disengaged pair — judge against the thesis directly.
		best = thesisScores
	}

	probe, err := scoring.MaxContraSentence(ctx, o.nli, thesis, userClean)
	if err != nil {
		return debate.TierNone, err
	}

	slog.Debug("alignment",
		"alignment", alignment(thesisScores, probe, o.scoring),
		"thesis_contradiction", thesisScores.AggMax.Contradiction,
		"sentence_probe", probe,
	)

	signal := debate.BuildGradedSignal(
		best.AggMax.Contradiction,
		best.AggMax.Entailment,
		scoring.Similarity(best),
		onTopic,
		userWC,
		questionOnly,
		o.policy.MinUserWords,
	)

	tier := debate.ApplyPolicy(state, signal, o.policy)

	// Escalation: an extra-strong thesis contradiction (whole text or a
	// single sentence) concedes at least PARTIAL even for short inputs.
	strict := max(thesisScores.AggMax.Contradiction, probe)
	if strict >= o.scoring.StrictContraThreshold && onTopic && !tier.AtLeast(debate.TierPartial) {
		slog.Debug("escalating on strong thesis contradiction",
			"contradiction", strict, "prior_tier", tier)
		tier = debate.TierPartial
	}

	return tier, nil
}

// score wraps BidirectionalScores with latency metrics.
func (o *Orchestrator) score(ctx context.Context, premise, hypothesis string) (nli.Bidirectional, error) {
	start := time.Now()
	bi, err := o.nli.BidirectionalScores(ctx, premise, hypothesis)
	o.metrics.NLIDuration.Record(ctx, time.Since(start).Seconds())
	return bi, err
}

// alignment classifies the user's position against the thesis for logs:
// OPPOSITE when contradiction holds (soft predicate, rescued by the sentence
// probe), SAME when either direction shows support, UNKNOWN otherwise.
// Support never counts toward a concession — agreeing with the bot is not
// winning.
func alignment(thesisScores nli.Bidirectional, probe float64, cfg scoring.Config) string {
	if scoring.IsContradictionSoft(thesisScores, cfg) || probe >= cfg.SentenceProbeMin {
		return "OPPOSITE"
	}
	if supported, _ := scoring.HasSupportEitherDirection(thesisScores, cfg); supported {
		return "SAME"
	}
	return "UNKNOWN"
}

// better reports whether candidate beats current: higher contradiction, or
// equal contradiction with higher relatedness.
func better(candidate, current nli.Bidirectional) bool {
	cc, bc := candidate.AggMax.Contradiction, current.AggMax.Contradiction
	if cc != bc {
		return cc > bc
	}
	return scoring.Relatedness(candidate) > scoring.Relatedness(current)
}

// reply invokes the LLM under the tier's steering, sanitizes the output,
// bumps the turn counter, applies the verdict policy, and persists.
func (o *Orchestrator) reply(ctx context.Context, conversationID int64, state *debate.DebateState, messages []debate.Message, tier debate.ConcessionTier) (string, error) {
	mode, guidance := steeringFor(tier)

	start := time.Now()
	raw, err := o.llm.Debate(ctx, llm.Request{
		Messages: mapHistory(messages),
		State:    promptState(state),
		Guidance: guidance,
		Mode:     mode,
	})
	o.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		o.metrics.RecordProviderError(ctx, "llm", "debate")
		return "", err
	}

	reply := debate.SanitizeEndMarkers(raw)
	state.AssistantTurns++

	if state.MaybeConclude() {
		return o.conclude(ctx, conversationID, state, endLane(state))
	}

	if err := o.states.Save(ctx, conversationID, state); err != nil {
		return "", fmt.Errorf("concession: save state: %w", err)
	}
	return reply, nil
}

// conclude marks the match over, persists, and returns the verdict.
func (o *Orchestrator) conclude(ctx context.Context, conversationID int64, state *debate.DebateState, lane string) (string, error) {
	state.MatchConcluded = true
	if err := o.states.Save(ctx, conversationID, state); err != nil {
		return "", fmt.Errorf("concession: save state: %w", err)
	}
	o.metrics.RecordMatchConcluded(ctx, lane)
	o.metrics.ActiveDebates.Add(ctx, -1)
	slog.Info("match concluded", "conversation_id", conversationID, "lane", lane)
	return debate.BuildVerdict(state), nil
}

// endLane names the verdict lane that fired, in the same order ShouldEnd
// checks them.
func endLane(state *debate.DebateState) string {
	p := state.Policy
	if p.EndOnFull && state.LastTier == debate.TierFull {
		return "ko"
	}
	if p.RecentWindow > 0 && len(state.LastKTiers) > 0 {
		recent := state.LastKTiers[max(0, len(state.LastKTiers)-p.RecentWindow):]
		positives := 0
		for _, t := range recent {
			if t.Positive() {
				positives++
			}
		}
		ema := 0.0
		if state.EMAContradiction != nil {
			ema = *state.EMAContradiction
		}
		if positives >= p.RecentMinPositives && ema >= p.EMAContraMin {
			return "recent_window"
		}
	}
	return "points"
}

// locateTurns scans the history from the newest message for the latest user
// turn and, before it, the most recent substantive assistant turn. Either
// index is -1 when absent.
func locateTurns(messages []debate.Message) (userIdx, botIdx int) {
	userIdx, botIdx = -1, -1
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == debate.RoleUser {
			userIdx = i
			break
		}
	}
	if userIdx < 0 {
		return userIdx, botIdx
	}
	for i := userIdx - 1; i >= 0; i-- {
		if messages[i].Role != debate.RoleBot {
			continue
		}
		if debate.WordCount(messages[i].Text) >= substantiveMinWords {
			botIdx = i
			break
		}
	}
	return userIdx, botIdx
}
