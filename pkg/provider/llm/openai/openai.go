// Package openai provides a debate LLM client backed directly by the OpenAI
// API. It exists alongside the anyllm client so the fallback composite can
// pair two independently configured arms.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/polemos-ai/polemos/pkg/provider/llm"
)

// defaultTemperature keeps debate replies focused rather than creative.
const defaultTemperature = 0.3

// Compile-time assertion that Client satisfies the llm.Client interface.
var _ llm.Client = (*Client)(nil)

// Client implements llm.Client using the OpenAI API.
type Client struct {
	client     oai.Client
	model      string
	difficulty llm.Difficulty
}

// config holds optional configuration for the client.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Client.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// New constructs a new OpenAI debate Client.
func New(apiKey, model string, difficulty llm.Difficulty, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}
	if difficulty == "" {
		difficulty = llm.DifficultyMedium
	}

	return &Client{client: oai.NewClient(reqOpts...), model: model, difficulty: difficulty}, nil
}

// Generate implements [llm.Client.Generate].
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	return c.complete(ctx, req)
}

// Debate implements [llm.Client.Debate].
func (c *Client) Debate(ctx context.Context, req llm.Request) (string, error) {
	return c.complete(ctx, req)
}

func (c *Client) complete(ctx context.Context, req llm.Request) (string, error) {
	messages := []oai.ChatCompletionMessageParamUnion{
		oai.SystemMessage(llm.BuildSystemPrompt(req, c.difficulty)),
	}
	for _, m := range req.Messages {
		switch m.Role {
		case "assistant":
			messages = append(messages, oai.AssistantMessage(m.Content))
		default:
			messages = append(messages, oai.UserMessage(m.Content))
		}
	}

	params := oai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.model),
		Messages:    messages,
		Temperature: param.NewOpt(defaultTemperature),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
