// Package mock provides a test double for the llm.Client interface.
//
// Use Client in unit tests to verify that the orchestrator sends the right
// steering and to feed controlled replies without a live backend.
//
// Example:
//
//	c := &mock.Client{DebateReply: "Cities existed before cars. What changed?"}
//	reply, err := c.Debate(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/polemos-ai/polemos/pkg/provider/llm"
)

// Compile-time assertion that Client satisfies the llm.Client interface.
var _ llm.Client = (*Client)(nil)

// Call records a single invocation of Generate or Debate.
type Call struct {
	// Op is "generate" or "debate".
	Op string

	// Req is the request passed in.
	Req llm.Request
}

// Client is a mock implementation of llm.Client. Zero values for reply
// fields cause methods to return empty strings and nil errors; set the Err
// fields to inject failures.
type Client struct {
	mu sync.Mutex

	// GenerateReply is returned by Generate.
	GenerateReply string

	// GenerateErr, if non-nil, is returned by Generate.
	GenerateErr error

	// DebateReply is returned by Debate.
	DebateReply string

	// DebateErr, if non-nil, is returned by Debate.
	DebateErr error

	// Calls records every invocation in order.
	Calls []Call
}

// Generate implements [llm.Client.Generate].
func (c *Client) Generate(_ context.Context, req llm.Request) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, Call{Op: "generate", Req: req})
	return c.GenerateReply, c.GenerateErr
}

// Debate implements [llm.Client.Debate].
func (c *Client) Debate(_ context.Context, req llm.Request) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, Call{Op: "debate", Req: req})
	return c.DebateReply, c.DebateErr
}

// LastCall returns the most recent call, or nil when none were made.
func (c *Client) LastCall() *Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Calls) == 0 {
		return nil
	}
	call := c.Calls[len(c.Calls)-1]
	return &call
}
