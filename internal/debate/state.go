package debate

import "slices"

// ConcessionPolicy decides when an ongoing match ends. It is embedded in
// every DebateState at creation and treated as immutable afterwards.
//
// Three independent lanes can end a match, checked in this order:
//
//   - KO: the last tier was FULL.
//   - Recent window: enough PARTIAL/FULL tiers among the last RecentWindow
//     tiers while contradiction pressure (EMA) stays high.
//   - Points: cumulative PARTIAL/FULL count reaches TotalMinPositives.
type ConcessionPolicy struct {
	// EndOnFull ends the match immediately on a FULL concession.
	EndOnFull bool `json:"end_on_full"`

	// RecentWindow is how many trailing tiers the recent-window lane
	// inspects. Zero disables the lane.
	RecentWindow int `json:"recent_window"`

	// RecentMinPositives is how many PARTIAL/FULL tiers the window must hold.
	RecentMinPositives int `json:"recent_min_positives"`

	// EMAContraMin is the sustained contradiction pressure the recent-window
	// lane requires.
	EMAContraMin float64 `json:"ema_contra_min"`

	// TotalMinPositives is the cumulative PARTIAL/FULL count for the points
	// lane.
	TotalMinPositives int `json:"total_min_positives"`

	// MinAssistantTurns gates the points lane until the bot has replied this
	// many times.
	MinAssistantTurns int `json:"min_assistant_turns"`

	// RequireRecentPositive keeps the points lane from ending the match unless
	// the latest tier is PARTIAL or FULL.
	RequireRecentPositive bool `json:"require_recent_positive"`
}

// DefaultConcessionPolicy returns the production defaults.
func DefaultConcessionPolicy() ConcessionPolicy {
	return ConcessionPolicy{
		EndOnFull:             true,
		RecentWindow:          3,
		RecentMinPositives:    2,
		EMAContraMin:          0.80,
		TotalMinPositives:     3,
		MinAssistantTurns:     2,
		RequireRecentPositive: true,
	}
}

// DebateState is the authoritative per-conversation state of the concession
// engine, keyed by conversation id in the state store.
//
// Stance, Topic, and the embedded Policy are immutable after creation.
// MatchConcluded is monotonic: once true it never flips back. All other
// fields are mutated only by the orchestrator, which holds the per-
// conversation lock for the whole turn.
type DebateState struct {
	Stance Stance `json:"stance"`
	Topic  string `json:"topic"`

	// Lang is a 2-letter code or "auto" until the first bot reply's language
	// header locks it.
	Lang       string `json:"lang"`
	LangLocked bool   `json:"lang_locked"`

	// AssistantTurns counts bot replies emitted for this conversation. A KO
	// verdict does not count; a points or recent-window verdict replaces an
	// already-generated reply, and that turn counts.
	AssistantTurns int `json:"assistant_turns"`

	// PositiveJudgements counts turns whose emitted tier was PARTIAL or FULL.
	PositiveJudgements int `json:"positive_judgements"`

	// MatchConcluded is the terminal flag; analysis short-circuits to the
	// after-end message once set.
	MatchConcluded bool `json:"match_concluded"`

	// EMAContradiction and EMASimilarity smooth the per-turn signals. Both
	// are nil on cold start and set together afterwards.
	EMAContradiction *float64 `json:"ema_contradiction,omitempty"`
	EMASimilarity    *float64 `json:"ema_similarity,omitempty"`

	// ContradictionStreakPartial and ContradictionStreakFull count
	// consecutive turns meeting the partial/full thresholds.
	ContradictionStreakPartial int `json:"contradiction_streak_partial"`
	ContradictionStreakFull    int `json:"contradiction_streak_full"`

	// LastTier is the most recently emitted tier; LastKTiers is a bounded
	// ring buffer of recent tiers, newest at the tail.
	LastTier   ConcessionTier   `json:"last_tier,omitempty"`
	LastKTiers []ConcessionTier `json:"last_k_tiers,omitempty"`

	// SoftConcessions and PartialConcessions are bookkeeping counters.
	SoftConcessions    int `json:"soft_concessions"`
	PartialConcessions int `json:"partial_concessions"`

	Policy ConcessionPolicy `json:"policy"`
}

// NewDebateState creates the state for a fresh conversation.
func NewDebateState(stance Stance, topic, lang string) *DebateState {
	if lang == "" {
		lang = "auto"
	}
	return &DebateState{
		Stance: stance,
		Topic:  topic,
		Lang:   lang,
		Policy: DefaultConcessionPolicy(),
	}
}

// tierBufferMin is the floor on the tier ring buffer size, so the buffer
// stays useful even when the recent-window lane is disabled.
const tierBufferMin = 5

// PushTier records an emitted tier: sets LastTier, appends to the ring
// buffer, trims the buffer to max(RecentWindow, tierBufferMin) entries, and
// bumps the bookkeeping counters.
func (s *DebateState) PushTier(tier ConcessionTier) {
	s.LastTier = tier
	s.LastKTiers = append(s.LastKTiers, tier)

	keep := max(s.Policy.RecentWindow, tierBufferMin)
	if n := len(s.LastKTiers); n > keep {
		s.LastKTiers = slices.Delete(s.LastKTiers, 0, n-keep)
	}

	switch tier {
	case TierSoft:
		s.SoftConcessions++
	case TierPartial:
		s.PartialConcessions++
	}
}

// ShouldEnd evaluates the policy lanes against the current state.
func (s *DebateState) ShouldEnd() bool {
	p := s.Policy

	// KO lane.
	if p.EndOnFull && s.LastTier == TierFull {
		return true
	}

	// Recent-window lane.
	if p.RecentWindow > 0 && len(s.LastKTiers) > 0 {
		recent := s.LastKTiers[max(0, len(s.LastKTiers)-p.RecentWindow):]
		positives := 0
		for _, t := range recent {
			if t.Positive() {
				positives++
			}
		}
		ema := 0.0
		if s.EMAContradiction != nil {
			ema = *s.EMAContradiction
		}
		if positives >= p.RecentMinPositives && ema >= p.EMAContraMin {
			return true
		}
	}

	// Points lane.
	if s.PositiveJudgements >= p.TotalMinPositives && s.AssistantTurns >= p.MinAssistantTurns {
		if !p.RequireRecentPositive || s.LastTier.Positive() {
			return true
		}
	}

	return false
}

// MaybeConclude marks the match concluded if a lane is satisfied and returns
// the (possibly updated) concluded flag.
func (s *DebateState) MaybeConclude() bool {
	if !s.MatchConcluded && s.ShouldEnd() {
		s.MatchConcluded = true
	}
	return s.MatchConcluded
}

// Clone returns an independent deep copy. The state store uses this on every
// read and write so in-flight turns never leak partial updates.
func (s *DebateState) Clone() *DebateState {
	c := *s
	c.LastKTiers = slices.Clone(s.LastKTiers)
	if s.EMAContradiction != nil {
		v := *s.EMAContradiction
		c.EMAContradiction = &v
	}
	if s.EMASimilarity != nil {
		v := *s.EMASimilarity
		c.EMASimilarity = &v
	}
	return &c
}
