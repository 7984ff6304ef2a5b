// Package nli defines the Provider interface for Natural Language Inference
// backends.
//
// An NLI provider wraps a sequence-classification model (hosted or local)
// and returns normalized probabilities over the three MNLI labels
// {entailment, neutral, contradiction} for a (premise, hypothesis) pair.
// The concession engine consumes the symmetric, per-label-maximum view
// produced by BidirectionalScores.
//
// Implementors must be safe for concurrent use, deterministic for fixed
// model weights and inputs, and side-effect free. Failures are unrecoverable
// from the caller's perspective: no retry contract is exposed.
package nli

import (
	"context"
	"strings"
)

// Scores holds a probability distribution over the three NLI labels.
// A well-formed Scores sums to 1 within floating-point tolerance.
type Scores struct {
	Entailment    float64
	Neutral       float64
	Contradiction float64
}

// Bidirectional holds both directional distributions for a text pair plus
// their per-label maximum. AggMax is what the scoring predicates consume:
// taking the max per label is robust to direction asymmetry in entailment
// and contradiction.
type Bidirectional struct {
	// PToH scores the pair as given (premise → hypothesis).
	PToH Scores

	// HToP scores the reversed pair.
	HToP Scores

	// AggMax is the per-label maximum of PToH and HToP.
	AggMax Scores
}

// Aggregate computes the per-label maximum of two distributions.
func Aggregate(ph, hp Scores) Scores {
	return Scores{
		Entailment:    max(ph.Entailment, hp.Entailment),
		Neutral:       max(ph.Neutral, hp.Neutral),
		Contradiction: max(ph.Contradiction, hp.Contradiction),
	}
}

// Provider is the abstraction over any NLI backend.
type Provider interface {
	// Score returns the directional label distribution for (premise,
	// hypothesis). Inputs longer than the provider's configured maximum
	// token length are truncated.
	Score(ctx context.Context, premise, hypothesis string) (Scores, error)

	// BidirectionalScores runs Score in both directions and aggregates.
	BidirectionalScores(ctx context.Context, premise, hypothesis string) (Bidirectional, error)

	// ContradictionMax is a shortcut for BidirectionalScores(...).AggMax.Contradiction.
	ContradictionMax(ctx context.Context, premise, hypothesis string) (float64, error)
}

// labelAliases collapses the label-name variants different classifier
// checkpoints ship with onto the canonical three.
var labelAliases = map[string]string{
	"entailment":    "entailment",
	"entailed":      "entailment",
	"neutral":       "neutral",
	"contradiction": "contradiction",
	"contradict":    "contradiction",
	"contradictory": "contradiction",
}

// NormalizeLabel maps a classifier's native label name onto "entailment",
// "neutral", or "contradiction". Unknown labels are returned lowercased so
// adapters can reject them explicitly.
func NormalizeLabel(label string) string {
	l := strings.ToLower(strings.TrimSpace(label))
	if canonical, ok := labelAliases[l]; ok {
		return canonical
	}
	return l
}
