package scoring

import (
	"context"
	"fmt"

	"github.com/polemos-ai/polemos/internal/debate"
	"github.com/polemos-ai/polemos/pkg/provider/nli"
)

// IsContradictionSymmetric is the hard contradiction predicate: the
// aggregate contradiction must clear the threshold, dominate entailment,
// and not trail neutral by more than EpsContraVsNeu.
func IsContradictionSymmetric(s nli.Bidirectional, cfg Config) bool {
	agg := s.AggMax
	return agg.Contradiction >= cfg.ContradictionThreshold &&
		agg.Contradiction >= agg.Entailment &&
		agg.Contradiction+cfg.EpsContraVsNeu >= agg.Neutral
}

// IsContradictionSoft relaxes the hard predicate: soft contradiction holds
// when contradiction clears the soft floor and beats entailment by MarginEC,
// provided neutral is within margin or entailment is low enough to bail out.
func IsContradictionSoft(s nli.Bidirectional, cfg Config) bool {
	if IsContradictionSymmetric(s, cfg) {
		return true
	}

	agg := s.AggMax
	core := agg.Contradiction >= cfg.ContradictionThresholdSoft &&
		agg.Contradiction-agg.Entailment >= cfg.MarginEC
	neuOK := agg.Contradiction-agg.Neutral >= cfg.MinDeltaConNeu ||
		agg.Contradiction+cfg.EpsContraVsNeu >= agg.Neutral
	lowEnt := agg.Entailment <= cfg.EpsEnt

	return core && (neuOK || lowEnt)
}

// Direction labels a support hit for telemetry.
type Direction string

const (
	// DirectionPToH means the premise entailed the hypothesis.
	DirectionPToH Direction = "p→h"

	// DirectionHToP means the hypothesis entailed the premise.
	DirectionHToP Direction = "h→p"

	// DirectionNone means neither direction showed support.
	DirectionNone Direction = ""
)

// HasSupportEitherDirection reports whether either direction shows support:
// entailment dominating both contradiction (by MarginEC and above
// MinEntForSame) and neutral (by the larger of EpsEnt and MarginEntVsNeu),
// with contradiction at most MaxContraForSame. The chosen direction is
// returned for telemetry.
func HasSupportEitherDirection(s nli.Bidirectional, cfg Config) (bool, Direction) {
	ok := func(d nli.Scores) bool {
		return d.Entailment >= max(d.Contradiction+cfg.MarginEC, cfg.MinEntForSame) &&
			d.Entailment >= d.Neutral+max(cfg.EpsEnt, cfg.MarginEntVsNeu) &&
			d.Contradiction <= cfg.MaxContraForSame
	}

	phOK, hpOK := ok(s.PToH), ok(s.HToP)
	switch {
	case phOK && s.PToH.Entailment >= s.HToP.Entailment:
		return true, DirectionPToH
	case hpOK:
		return true, DirectionHToP
	case phOK:
		return true, DirectionPToH
	}
	return false, DirectionNone
}

// MaxContraSentence splits the hypothesis into sentences and returns the
// maximum aggregate contradiction of (premise, sentence) over all of them.
// It rescues paragraphs where one clause contradicts sharply but the
// paragraph-level aggregate averages out neutral.
func MaxContraSentence(ctx context.Context, p nli.Provider, premise, hypothesis string) (float64, error) {
	best := 0.0
	for _, sentence := range debate.SplitSentences(hypothesis) {
		scores, err := p.BidirectionalScores(ctx, premise, sentence)
		if err != nil {
			return 0, fmt.Errorf("scoring: sentence probe: %w", err)
		}
		best = max(best, scores.AggMax.Contradiction)
	}
	return best, nil
}

// IsContradictionWithSentenceFallback accepts when soft contradiction holds
// on the whole text, or when any hypothesis sentence alone shows
// contradiction at or above SentenceProbeMin.
func IsContradictionWithSentenceFallback(ctx context.Context, p nli.Provider, premise, hypothesis string, cfg Config) (bool, error) {
	bi, err := p.BidirectionalScores(ctx, premise, hypothesis)
	if err != nil {
		return false, fmt.Errorf("scoring: %w", err)
	}
	if IsContradictionSoft(bi, cfg) {
		return true, nil
	}
	m, err := MaxContraSentence(ctx, p, premise, hypothesis)
	if err != nil {
		return false, err
	}
	return m >= cfg.SentenceProbeMin, nil
}

// IsOnTopic is the topic gate: the user text engages the thesis when either
// direction shows entailment-or-contradiction at or above TopicSignalMin,
// or neutral at or below TopicNeuMax.
func IsOnTopic(s nli.Bidirectional, cfg Config) bool {
	signal := func(d nli.Scores) bool {
		return max(d.Entailment, d.Contradiction) >= cfg.TopicSignalMin ||
			d.Neutral <= cfg.TopicNeuMax
	}
	return signal(s.PToH) || signal(s.HToP)
}

// Relatedness scores how directly a pair engages: the best of entailment,
// contradiction, and 1−neutral on the aggregate. Used to tiebreak claim
// pairs and to decide when to force the thesis pair.
func Relatedness(s nli.Bidirectional) float64 {
	agg := s.AggMax
	return max(agg.Entailment, agg.Contradiction, 1-agg.Neutral)
}

// Similarity is the engagement proxy for the policy's similarity gate:
// max(entailment, contradiction) on the aggregate. 1−neutral is deliberately
// excluded so neutral-heavy off-topic text cannot masquerade as similar.
func Similarity(s nli.Bidirectional) float64 {
	agg := s.AggMax
	return max(agg.Entailment, agg.Contradiction)
}
