package concession

import (
	"context"
	"errors"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/polemos-ai/polemos/internal/debate"
	"github.com/polemos-ai/polemos/internal/observe"
	"github.com/polemos-ai/polemos/internal/scoring"
	"github.com/polemos-ai/polemos/internal/statestore"
	"github.com/polemos-ai/polemos/pkg/provider/llm"
	llmmock "github.com/polemos-ai/polemos/pkg/provider/llm/mock"
	"github.com/polemos-ai/polemos/pkg/provider/nli"
	nlimock "github.com/polemos-ai/polemos/pkg/provider/nli/mock"
)

const botTurn = "Stance: PRO, I will defend this topic today. Dogs guard their owners with devotion and real loyalty. What would change your mind?"

// harness bundles the orchestrator with its doubles.
type harness struct {
	orch   *Orchestrator
	nli    *nlimock.Provider
	llm    *llmmock.Client
	states *statestore.MemStore
	conv   debate.Conversation
}

// pointsOnlyPolicy disables the recent-window lane so the points lane
// governs cumulative endings, matching the default service scenarios.
func pointsOnlyPolicy() debate.ConcessionPolicy {
	p := debate.DefaultConcessionPolicy()
	p.RecentWindow = 0
	return p
}

func newHarness(t *testing.T, stance debate.Stance, topic string, policy debate.ConcessionPolicy) *harness {
	t.Helper()

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	nliProvider := nlimock.New()
	llmClient := &llmmock.Client{DebateReply: "Cities adapted to commutes long before remote work existed. What explains that?"}
	states := statestore.NewMemStore()

	state := debate.NewDebateState(stance, topic, "en")
	state.LangLocked = true
	state.Policy = policy
	if _, err := states.Create(context.Background(), 1, state); err != nil {
		t.Fatalf("Create state: %v", err)
	}

	orch := New(nliProvider, llmClient, states, scoring.DefaultConfig(), debate.DefaultPolicyConfig(), metrics)
	return &harness{
		orch:   orch,
		nli:    nliProvider,
		llm:    llmClient,
		states: states,
		conv:   debate.Conversation{ID: 1, Topic: topic, Stance: stance},
	}
}

// history builds a bot turn followed by the user's latest message.
func history(userText string) []debate.Message {
	return []debate.Message{
		{Role: debate.RoleBot, Text: botTurn},
		{Role: debate.RoleUser, Text: userText},
	}
}

func (h *harness) state(t *testing.T) *debate.DebateState {
	t.Helper()
	s, err := h.states.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get state: %v", err)
	}
	return s
}

const opposingTurn = "Dogs abandon their owners the moment food runs out, and countless strays prove loyalty is a myth we tell ourselves about animals."

func TestAnalyze_AlignedOppositionReachesVerdict(t *testing.T) {
	h := newHarness(t, debate.StancePro, "Dogs are humans' best friend", pointsOnlyPolicy())
	// Every pair contradicts at PARTIAL grade.
	h.nli.Default = nli.Scores{Entailment: 0.05, Neutral: 0.13, Contradiction: 0.82}
	ctx := context.Background()

	// Turns 1 and 2: PARTIAL tiers, debate continues.
	for turn := 1; turn <= 2; turn++ {
		reply, err := h.orch.Analyze(ctx, h.conv, history(opposingTurn))
		if err != nil {
			t.Fatalf("turn %d: %v", turn, err)
		}
		state := h.state(t)
		if state.LastTier != debate.TierPartial {
			t.Fatalf("turn %d tier = %v, want PARTIAL", turn, state.LastTier)
		}
		if state.PositiveJudgements != turn {
			t.Fatalf("turn %d positive_judgements = %d, want %d", turn, state.PositiveJudgements, turn)
		}
		if state.MatchConcluded {
			t.Fatalf("turn %d concluded early", turn)
		}
		if reply == debate.BuildVerdict(state) {
			t.Fatalf("turn %d returned the verdict early", turn)
		}
	}

	// Turn 3 reaches the points threshold; the reply is the verdict.
	reply, err := h.orch.Analyze(ctx, h.conv, history(opposingTurn))
	if err != nil {
		t.Fatalf("turn 3: %v", err)
	}
	state := h.state(t)
	if !state.MatchConcluded {
		t.Fatal("turn 3 should conclude the match")
	}
	if state.PositiveJudgements != 3 {
		t.Errorf("positive_judgements = %d, want 3", state.PositiveJudgements)
	}
	if reply != debate.BuildVerdict(state) {
		t.Errorf("reply = %q, want the localized verdict", reply)
	}

	// Turn 4: after-end message, no counter mutation.
	before := *state
	reply, err = h.orch.Analyze(ctx, h.conv, history("I still disagree with everything you have said so far."))
	if err != nil {
		t.Fatalf("turn 4: %v", err)
	}
	if reply != debate.AfterEndMessage(state) {
		t.Errorf("after-end reply = %q", reply)
	}
	after := h.state(t)
	if after.PositiveJudgements != before.PositiveJudgements || after.AssistantTurns != before.AssistantTurns {
		t.Errorf("counters mutated after end: %+v vs %+v", after, before)
	}
}

func TestAnalyze_OffTopicInterjection(t *testing.T) {
	h := newHarness(t, debate.StancePro, "Remote work is more productive", pointsOnlyPolicy())
	// Neutral-heavy scores: off-topic and dissimilar.
	h.nli.Default = nli.Scores{Entailment: 0.03, Neutral: 0.93, Contradiction: 0.04}

	reply, err := h.orch.Analyze(context.Background(), h.conv, history("What is 2+2?"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if reply == "" {
		t.Fatal("expected a forwarded LLM reply")
	}

	state := h.state(t)
	if state.LastTier != debate.TierNone {
		t.Errorf("tier = %v, want NONE", state.LastTier)
	}
	if state.PositiveJudgements != 0 {
		t.Errorf("positive_judgements = %d, want 0", state.PositiveJudgements)
	}

	call := h.llm.LastCall()
	if call == nil || call.Req.Mode != llm.ModeDefend {
		t.Errorf("LLM should be steered to defend, got %+v", call)
	}
}

func TestAnalyze_SupportDoesNotConcede(t *testing.T) {
	h := newHarness(t, debate.StancePro, "Remote work is more productive", pointsOnlyPolicy())
	h.nli.Default = nli.Scores{Entailment: 0.78, Neutral: 0.17, Contradiction: 0.05}

	supportive := "Exactly, and beyond that the data shows remote teams ship faster, report higher satisfaction, and retain senior engineers far longer than office-bound ones."
	if _, err := h.orch.Analyze(context.Background(), h.conv, history(supportive)); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	state := h.state(t)
	if state.LastTier != debate.TierNone {
		t.Errorf("tier = %v, want NONE — entailment is not a concession", state.LastTier)
	}
	if state.PositiveJudgements != 0 {
		t.Errorf("positive_judgements = %d, want 0", state.PositiveJudgements)
	}
}

func TestAnalyze_ShortButDevastating(t *testing.T) {
	h := newHarness(t, debate.StancePro, "God exists", pointsOnlyPolicy())
	// Pairs look neutral by default, but the thesis pair contradicts hard.
	h.nli.Default = nli.Scores{Entailment: 0.05, Neutral: 0.85, Contradiction: 0.10}
	h.nli.Script("God exists.", "God isn't real.",
		nli.Scores{Entailment: 0.02, Neutral: 0.05, Contradiction: 0.93})

	if _, err := h.orch.Analyze(context.Background(), h.conv, history("God isn't real.")); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	state := h.state(t)
	if !state.LastTier.AtLeast(debate.TierPartial) {
		t.Errorf("tier = %v, want at least PARTIAL via the escalation path", state.LastTier)
	}
	if state.PositiveJudgements != 1 {
		t.Errorf("positive_judgements = %d, want 1", state.PositiveJudgements)
	}
}

func TestAnalyze_KOLaneEndsImmediately(t *testing.T) {
	policy := pointsOnlyPolicy()
	h := newHarness(t, debate.StancePro, "Dogs are humans' best friend", policy)
	h.nli.Default = nli.Scores{Entailment: 0.02, Neutral: 0.04, Contradiction: 0.94}
	ctx := context.Background()

	// Two consecutive full-grade turns: the second escalates to FULL and
	// ends without an LLM call.
	if _, err := h.orch.Analyze(ctx, h.conv, history(opposingTurn)); err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	llmCallsAfterFirst := len(h.llm.Calls)

	reply, err := h.orch.Analyze(ctx, h.conv, history(opposingTurn))
	if err != nil {
		t.Fatalf("turn 2: %v", err)
	}

	state := h.state(t)
	if state.LastTier != debate.TierFull {
		t.Fatalf("tier = %v, want FULL", state.LastTier)
	}
	if !state.MatchConcluded {
		t.Fatal("FULL tier must conclude the match")
	}
	if reply != debate.BuildVerdict(state) {
		t.Errorf("reply = %q, want the verdict", reply)
	}
	if len(h.llm.Calls) != llmCallsAfterFirst {
		t.Errorf("KO turn must not call the LLM (calls %d → %d)", llmCallsAfterFirst, len(h.llm.Calls))
	}
	// The terminal verdict does not count as an assistant turn.
	if state.AssistantTurns != 1 {
		t.Errorf("assistant_turns = %d, want 1", state.AssistantTurns)
	}
}

func TestAnalyze_PartialSteersLLM(t *testing.T) {
	h := newHarness(t, debate.StancePro, "Dogs are humans' best friend", pointsOnlyPolicy())
	h.nli.Default = nli.Scores{Entailment: 0.05, Neutral: 0.13, Contradiction: 0.82}

	if _, err := h.orch.Analyze(context.Background(), h.conv, history(opposingTurn)); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	call := h.llm.LastCall()
	if call == nil {
		t.Fatal("no LLM call recorded")
	}
	if call.Req.Mode != llm.ModePartialConcede {
		t.Errorf("mode = %q, want partial_concede", call.Req.Mode)
	}
	if call.Req.Guidance == "" {
		t.Error("guidance must accompany a concession mode")
	}
	if call.Req.State.Stance != "PRO" {
		t.Errorf("prompt state stance = %q", call.Req.State.Stance)
	}
}

func TestAnalyze_SanitizesEndMarkers(t *testing.T) {
	h := newHarness(t, debate.StancePro, "Dogs are humans' best friend", pointsOnlyPolicy())
	h.nli.Default = nli.Scores{Entailment: 0.03, Neutral: 0.93, Contradiction: 0.04}
	h.llm.DebateReply = "You raise a point worth weighing carefully. Match concluded."

	reply, err := h.orch.Analyze(context.Background(), h.conv, history("Something long enough to pass every input gate easily, with many words."))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if strings.Contains(strings.ToLower(reply), "match concluded") {
		t.Errorf("end marker leaked through: %q", reply)
	}
	if h.state(t).MatchConcluded {
		t.Error("LLM text must not end the match")
	}
}

func TestAnalyze_NoSubstantiveBotTurn(t *testing.T) {
	h := newHarness(t, debate.StancePro, "Dogs are humans' best friend", pointsOnlyPolicy())
	h.nli.Default = nli.Scores{Entailment: 0.05, Neutral: 0.13, Contradiction: 0.82}

	msgs := []debate.Message{
		{Role: debate.RoleBot, Text: "Too short."},
		{Role: debate.RoleUser, Text: opposingTurn},
	}
	reply, err := h.orch.Analyze(context.Background(), h.conv, msgs)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if reply == "" {
		t.Fatal("expected a forwarded reply")
	}

	state := h.state(t)
	if state.LastTier != "" {
		t.Errorf("no tier should be recorded without a substantive bot turn, got %v", state.LastTier)
	}
	if state.AssistantTurns != 1 {
		t.Errorf("assistant_turns = %d, want 1", state.AssistantTurns)
	}
	if len(h.nli.Calls) != 0 {
		t.Errorf("NLI should not be consulted, got %d calls", len(h.nli.Calls))
	}
}

func TestAnalyze_MissingStateIsInternalError(t *testing.T) {
	h := newHarness(t, debate.StancePro, "topic", pointsOnlyPolicy())
	conv := debate.Conversation{ID: 404, Topic: "topic", Stance: debate.StancePro}

	_, err := h.orch.Analyze(context.Background(), conv, history(opposingTurn))
	if !errors.Is(err, debate.ErrStateMissing) {
		t.Errorf("error = %v, want ErrStateMissing", err)
	}
}

func TestAnalyze_NLIFailureIsServiceError(t *testing.T) {
	h := newHarness(t, debate.StancePro, "topic", pointsOnlyPolicy())
	h.nli.Err = errors.New("tokenizer exploded")

	_, err := h.orch.Analyze(context.Background(), h.conv, history(opposingTurn))
	if !errors.Is(err, debate.ErrLLMService) {
		t.Errorf("error = %v, want ErrLLMService", err)
	}

	// Failed turns commit nothing.
	state := h.state(t)
	if state.AssistantTurns != 0 || state.LastTier != "" {
		t.Errorf("state mutated on failure: %+v", state)
	}
}
