// Package mock provides a test double for the nli.Provider interface.
//
// Use Provider in unit tests to feed controlled probability distributions
// without a live inference backend. Scores are scripted per text pair; pairs
// with no script fall back to Default. Scoring is symmetric in what tests
// usually need, but both directions can be scripted independently.
//
// Example:
//
//	p := mock.New()
//	p.Script("God exists.", "No, God does not exist.", nli.Scores{Contradiction: 0.93, Neutral: 0.05, Entailment: 0.02})
package mock

import (
	"context"
	"sync"

	"github.com/polemos-ai/polemos/pkg/provider/nli"
)

// Compile-time assertion that Provider satisfies the nli.Provider interface.
var _ nli.Provider = (*Provider)(nil)

// ScoreCall records a single invocation of Score.
type ScoreCall struct {
	Premise    string
	Hypothesis string
}

// Provider is a mock implementation of nli.Provider.
type Provider struct {
	mu sync.Mutex

	// Default is returned for pairs with no script entry. The zero value is
	// a distribution of exact zeros; the contradiction and support predicates
	// reject it, but the topic gate accepts it (neutral 0 is within
	// TopicNeuMax), so off-topic tests set a neutral-heavy Default.
	Default nli.Scores

	// Err, if non-nil, is returned by every call.
	Err error

	scripts map[[2]string]nli.Scores

	// Calls records every Score invocation in order, including the two made
	// by each BidirectionalScores call.
	Calls []ScoreCall
}

// New returns an initialised Provider.
func New() *Provider {
	return &Provider{scripts: make(map[[2]string]nli.Scores)}
}

// Script registers the distribution returned for (premise, hypothesis),
// in both directions.
func (p *Provider) Script(premise, hypothesis string, s nli.Scores) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scripts[[2]string{premise, hypothesis}] = s
	p.scripts[[2]string{hypothesis, premise}] = s
}

// ScriptDirectional registers a distribution for one direction only.
func (p *Provider) ScriptDirectional(premise, hypothesis string, s nli.Scores) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scripts[[2]string{premise, hypothesis}] = s
}

// Score implements [nli.Provider.Score].
func (p *Provider) Score(_ context.Context, premise, hypothesis string) (nli.Scores, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Calls = append(p.Calls, ScoreCall{Premise: premise, Hypothesis: hypothesis})
	if p.Err != nil {
		return nli.Scores{}, p.Err
	}
	if s, ok := p.scripts[[2]string{premise, hypothesis}]; ok {
		return s, nil
	}
	return p.Default, nil
}

// BidirectionalScores implements [nli.Provider.BidirectionalScores].
func (p *Provider) BidirectionalScores(ctx context.Context, premise, hypothesis string) (nli.Bidirectional, error) {
	ph, err := p.Score(ctx, premise, hypothesis)
	if err != nil {
		return nli.Bidirectional{}, err
	}
	hp, err := p.Score(ctx, hypothesis, premise)
	if err != nil {
		return nli.Bidirectional{}, err
	}
	return nli.Bidirectional{PToH: ph, HToP: hp, AggMax: nli.Aggregate(ph, hp)}, nil
}

// ContradictionMax implements [nli.Provider.ContradictionMax].
func (p *Provider) ContradictionMax(ctx context.Context, premise, hypothesis string) (float64, error) {
	bi, err := p.BidirectionalScores(ctx, premise, hypothesis)
	if err != nil {
		return 0, err
	}
	return bi.AggMax.Contradiction, nil
}
