// Package hf provides an NLI provider backed by a hosted HuggingFace-style
// text-classification inference endpoint serving a multilingual MNLI
// cross-encoder (the default model is
// MoritzLaurer/multilingual-MiniLMv2-L6-mnli-xnli). It implements the
// nli.Provider interface.
//
// The endpoint contract is the standard text-classification pipeline: POST a
// JSON body with the premise/hypothesis pair and receive a list of
// {label, score} objects. Label names are normalized through
// [nli.NormalizeLabel] so checkpoints that emit "contradictory" or
// "CONTRADICTION" still map onto the canonical vocabulary.
package hf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/polemos-ai/polemos/pkg/provider/nli"
)

// DefaultModel is the multilingual MNLI/XNLI cross-encoder the service was
// tuned against.
const DefaultModel = "MoritzLaurer/multilingual-MiniLMv2-L6-mnli-xnli"

// defaultMaxLength is the input truncation bound, in characters as a cheap
// proxy for tokens; the server truncates to 512 tokens regardless.
const defaultMaxLength = 512

// Compile-time assertion that Provider satisfies the nli.Provider interface.
var _ nli.Provider = (*Provider)(nil)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithModel overrides the model identifier sent to the endpoint.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithMaxLength overrides the input truncation bound.
func WithMaxLength(n int) Option {
	return func(p *Provider) { p.maxLength = n }
}

// WithHTTPClient injects a custom HTTP client (timeouts, transport, tests).
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// Provider implements nli.Provider against a hosted inference endpoint.
type Provider struct {
	endpoint   string
	apiKey     string
	model      string
	maxLength  int
	httpClient *http.Client
}

// New creates a Provider for the given endpoint URL. apiKey may be empty for
// unauthenticated (self-hosted) endpoints.
func New(endpoint, apiKey string, opts ...Option) (*Provider, error) {
	if endpoint == "" {
		return nil, errors.New("hf: endpoint must not be empty")
	}
	p := &Provider{
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      DefaultModel,
		maxLength:  defaultMaxLength,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// classifyRequest is the JSON payload for the text-classification pipeline.
// The premise/hypothesis pair is passed through the sentence-pair input form.
type classifyRequest struct {
	Inputs classifyInputs `json:"inputs"`
	Model  string         `json:"model,omitempty"`
}

type classifyInputs struct {
	Text     string `json:"text"`
	TextPair string `json:"text_pair"`
}

// labelScore is one entry of the pipeline response.
type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Score implements [nli.Provider.Score].
func (p *Provider) Score(ctx context.Context, premise, hypothesis string) (nli.Scores, error) {
	body, err := json.Marshal(classifyRequest{
		Inputs: classifyInputs{
			Text:     truncate(premise, p.maxLength),
			TextPair: truncate(hypothesis, p.maxLength),
		},
		Model: p.model,
	})
	if err != nil {
		return nli.Scores{}, fmt.Errorf("hf: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nli.Scores{}, fmt.Errorf("hf: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nli.Scores{}, fmt.Errorf("hf: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nli.Scores{}, fmt.Errorf("hf: endpoint returned %d: %s", resp.StatusCode, msg)
	}

	return decodeScores(resp.Body)
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

// decodeScores parses the pipeline response. Both the flat form
// [{label, score}, ...] and the batched form [[{label, score}, ...]] are
// accepted; unknown labels are an error rather than silently dropped mass.
func decodeScores(r io.Reader) (nli.Scores, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nli.Scores{}, fmt.Errorf("hf: read response: %w", err)
	}

	var flat []labelScore
	if err := json.Unmarshal(raw, &flat); err != nil {
		var batched [][]labelScore
		if err2 := json.Unmarshal(raw, &batched); err2 != nil || len(batched) == 0 {
			return nli.Scores{}, fmt.Errorf("hf: decode response: %w", err)
		}
		flat = batched[0]
	}

	var out nli.Scores
	for _, ls := range flat {
		switch nli.NormalizeLabel(ls.Label) {
		case "entailment":
			out.Entailment = ls.Score
		case "neutral":
			out.Neutral = ls.Score
		case "contradiction":
			out.Contradiction = ls.Score
		default:
			return nli.Scores{}, fmt.Errorf("hf: unknown label %q in response", ls.Label)
		}
	}
	return out, nil
}

// truncate bounds s to n runes.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
