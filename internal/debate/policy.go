package debate

// PolicyConfig tunes the per-turn tier decision. The config loader decodes
// the file over DefaultPolicyConfig, so omitted fields keep their defaults
// and explicit zeros are kept as zeros; the engine itself never defaults.
type PolicyConfig struct {
	// MinUserWords is the input-quality floor; shorter turns cannot concede
	// through the normal path.
	MinUserWords int `yaml:"min_user_words"`

	// QuestionOnlyWCMax gates short question-only turns.
	QuestionOnlyWCMax int `yaml:"question_only_wc_max"`

	// MinTurnsBeforeAnyConcession is the cold-start gate on assistant turns.
	MinTurnsBeforeAnyConcession int `yaml:"min_turns_before_any_concession"`

	// RequireOnTopic makes off-topic turns ineligible for concessions.
	RequireOnTopic bool `yaml:"require_on_topic"`

	// SimilarityMin is the engagement floor.
	SimilarityMin float64 `yaml:"similarity_min"`

	// SoftContraMin, PartialContraMin, FullContraMin are the per-turn
	// contradiction thresholds, inclusive.
	SoftContraMin    float64 `yaml:"soft_contra_min"`
	PartialContraMin float64 `yaml:"partial_contra_min"`
	FullContraMin    float64 `yaml:"full_contra_min"`

	// EMAAlpha is the exponential moving-average weight.
	EMAAlpha float64 `yaml:"ema_alpha"`

	// EMASoftMin, EMAPartialMin, EMAFullMin are the EMA backstop thresholds.
	EMASoftMin    float64 `yaml:"ema_soft_min"`
	EMAPartialMin float64 `yaml:"ema_partial_min"`
	EMAFullMin    float64 `yaml:"ema_full_min"`

	// PartialStreak and FullStreak are the consecutive-turn counts required
	// for streak escalation.
	PartialStreak int `yaml:"partial_streak"`
	FullStreak    int `yaml:"full_streak"`
}

// DefaultPolicyConfig returns the production defaults.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		MinUserWords:                5,
		QuestionOnlyWCMax:           6,
		MinTurnsBeforeAnyConcession: 0,
		RequireOnTopic:              true,
		SimilarityMin:               0.60,
		SoftContraMin:               0.60,
		PartialContraMin:            0.75,
		FullContraMin:               0.90,
		EMAAlpha:                    0.5,
		EMASoftMin:                  0.65,
		EMAPartialMin:               0.78,
		EMAFullMin:                  0.88,
		PartialStreak:               1,
		FullStreak:                  2,
	}
}

// ema folds x into prev with weight a; a nil prev means cold start.
func ema(prev *float64, x, a float64) *float64 {
	if prev == nil {
		return &x
	}
	v := (1-a)**prev + a*x
	return &v
}

// warm updates both EMAs and resets both streaks without emitting a tier.
// Gated turns still feed the averages so the next scored turn isn't jumpy.
func warm(state *DebateState, contra, sim, alpha float64) {
	state.EMAContradiction = ema(state.EMAContradiction, contra, alpha)
	state.EMASimilarity = ema(state.EMASimilarity, sim, alpha)
	state.ContradictionStreakPartial = 0
	state.ContradictionStreakFull = 0
}

// ApplyPolicy runs the tier decision for one graded signal, mutating the
// EMA and streak fields of state in place and returning the emitted tier.
//
// Decision order: input-quality gate, turn gate, topic gate, similarity
// gate, EMA update, one-shot thresholds, streak escalation, EMA backstops.
// Given identical inputs and prior state the result is deterministic.
func ApplyPolicy(state *DebateState, signal GradedSignal, cfg PolicyConfig) ConcessionTier {
	// Input-quality gates: too short, or a short bare question.
	if signal.UserWC < cfg.MinUserWords ||
		(signal.IsQuestionOnly && signal.UserWC <= cfg.QuestionOnlyWCMax) {
		warm(state, 0, signal.Similarity, cfg.EMAAlpha)
		return TierNone
	}

	// Turn gate.
	if state.AssistantTurns < cfg.MinTurnsBeforeAnyConcession {
		warm(state, signal.Score, signal.Similarity, cfg.EMAAlpha)
		return TierNone
	}

	// Topic gate.
	if cfg.RequireOnTopic && !signal.OnTopic {
		warm(state, 0, signal.Similarity, cfg.EMAAlpha)
		return TierNone
	}

	// Similarity gate (inclusive boundary: exactly SimilarityMin passes).
	if signal.Similarity < cfg.SimilarityMin {
		warm(state, 0, signal.Similarity, cfg.EMAAlpha)
		return TierNone
	}

	state.EMAContradiction = ema(state.EMAContradiction, signal.Score, cfg.EMAAlpha)
	state.EMASimilarity = ema(state.EMASimilarity, signal.Similarity, cfg.EMAAlpha)

	// One-shot thresholds. FULL is a stricter PARTIAL, so a full-grade turn
	// advances both streaks and defers to streak escalation below.
	switch {
	case signal.Score >= cfg.FullContraMin:
		state.ContradictionStreakFull++
		state.ContradictionStreakPartial++
	case signal.Score >= cfg.PartialContraMin:
		state.ContradictionStreakPartial++
		state.ContradictionStreakFull = 0
		if cfg.PartialStreak == 1 {
			return TierPartial
		}
		return TierSoft
	case signal.Score >= cfg.SoftContraMin:
		state.ContradictionStreakPartial = 0
		state.ContradictionStreakFull = 0
		return TierSoft
	default:
		state.ContradictionStreakPartial = 0
		state.ContradictionStreakFull = 0
	}

	// Streak escalation.
	if state.ContradictionStreakFull >= cfg.FullStreak {
		return TierFull
	}
	if state.ContradictionStreakPartial >= cfg.PartialStreak {
		return TierPartial
	}

	// EMA backstops.
	emaContra := *state.EMAContradiction
	switch {
	case emaContra >= cfg.EMAFullMin:
		return TierFull
	case emaContra >= cfg.EMAPartialMin:
		return TierPartial
	case emaContra >= cfg.EMASoftMin:
		return TierSoft
	}

	return TierNone
}
