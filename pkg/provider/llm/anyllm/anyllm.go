// Package anyllm provides a debate LLM client backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and
// more.
//
// Usage:
//
//	c, err := anyllm.New("openai", "gpt-4o", llm.DifficultyMedium)
//	c, err := anyllm.New("anthropic", "claude-3-5-sonnet-latest", llm.DifficultyEasy, anyllmlib.WithAPIKey("sk-ant-..."))
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/polemos-ai/polemos/pkg/provider/llm"
)

// defaultTemperature keeps debate replies focused rather than creative.
const defaultTemperature = 0.3

// Compile-time assertion that Client satisfies the llm.Client interface.
var _ llm.Client = (*Client)(nil)

// Client implements llm.Client by wrapping github.com/mozilla-ai/any-llm-go.
type Client struct {
	backend    anyllmlib.Provider
	model      string
	difficulty llm.Difficulty
}

// New creates a Client backed by the given provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq", "llamacpp", "llamafile". model is the
// specific model to use. opts are any-llm-go configuration options; without
// an API key option the provider falls back to its environment variable
// (OPENAI_API_KEY, ANTHROPIC_API_KEY, …).
func New(providerName, model string, difficulty llm.Difficulty, opts ...anyllmlib.Option) (*Client, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}

	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}
	if difficulty == "" {
		difficulty = llm.DifficultyMedium
	}

	return &Client{backend: backend, model: model, difficulty: difficulty}, nil
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
	messages := []anyllmlib.Message{{
		Role:    anyllmlib.RoleSystem,
		Content: llm.BuildSystemPrompt(req, c.difficulty),
	}}
	for _, m := range req.Messages {
		messages = append(messages, anyllmlib.Message{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	temp := defaultTemperature
	params := anyllmlib.CompletionParams{
		Model:       c.model,
		Messages:    messages,
		Temperature: &temp,
	}

	resp, err := c.backend.Completion(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anyllm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("anyllm: empty choices in response")
	}
	return resp.Choices[0].Message.ContentString(), nil
}

// createBackend creates the underlying any-llm-go provider for the given
// provider name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}
