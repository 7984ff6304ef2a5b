package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/polemos-ai/polemos/internal/debate"
	"github.com/polemos-ai/polemos/pkg/provider/llm"
)

// defaultArmTimeout bounds each provider attempt when no timeout is
// configured.
const defaultArmTimeout = 15 * time.Second

// Compile-time assertion that *LLMFallback satisfies [llm.Client].
var _ llm.Client = (*LLMFallback)(nil)

// LLMFallbackConfig tunes an [LLMFallback].
type LLMFallbackConfig struct {
	// PerProviderTimeout bounds each arm's attempt. Default: 15s.
	PerProviderTimeout time.Duration

	// CircuitBreaker configures the per-arm breakers.
	CircuitBreaker CircuitBreakerConfig
}

// arm pairs a client with its name and dedicated circuit breaker.
type arm struct {
	name    string
	client  llm.Client
	breaker *CircuitBreaker
}

// LLMFallback implements [llm.Client] with sequential failover from a
// primary to a secondary backend. Each arm is bounded by a per-provider
// timeout and guarded by its own circuit breaker.
//
// Error classification follows the service contract: when every arm fails
// with a timeout the composite reports [debate.ErrLLMTimeout]; any
// non-timeout failure makes the combined error [debate.ErrLLMService].
type LLMFallback struct {
	arms    []arm
	timeout time.Duration
}

// NewLLMFallback creates an [LLMFallback] with primary as the preferred
// backend. A nil secondary yields a single-arm composite that still applies
// the timeout and breaker.
func NewLLMFallback(primary llm.Client, secondary llm.Client, cfg LLMFallbackConfig) *LLMFallback {
	timeout := cfg.PerProviderTimeout
	if timeout <= 0 {
		timeout = defaultArmTimeout
	}

	newArm := func(name string, c llm.Client) arm {
		bcfg := cfg.CircuitBreaker
		bcfg.Name = name
		return arm{name: name, client: c, breaker: NewCircuitBreaker(bcfg)}
	}

	arms := []arm{newArm("primary", primary)}
	if secondary != nil {
		arms = append(arms, newArm("secondary", secondary))
	}
	return &LLMFallback{arms: arms, timeout: timeout}
}

// Generate implements [llm.Client.Generate].
func (f *LLMFallback) Generate(ctx context.Context, req llm.Request) (string, error) {
	return f.invoke(ctx, func(ctx context.Context, c llm.Client) (string, error) {
		return c.Generate(ctx, req)
	})
}

// Debate implements [llm.Client.Debate].
func (f *LLMFallback) Debate(ctx context.Context, req llm.Request) (string, error) {
	return f.invoke(ctx, func(ctx context.Context, c llm.Client) (string, error) {
		return c.Debate(ctx, req)
	})
}

// invoke tries each arm in order under its timeout and breaker. The first
// success wins; when every arm fails the errors are combined and classified.
func (f *LLMFallback) invoke(ctx context.Context, fn func(context.Context, llm.Client) (string, error)) (string, error) {
	var errs []error

	for i := range f.arms {
		a := &f.arms[i]

		var reply string
		err := a.breaker.Execute(func() error {
			armCtx, cancel := context.WithTimeout(ctx, f.timeout)
			defer cancel()

			var callErr error
			reply, callErr = fn(armCtx, a.client)
			if callErr != nil && errors.Is(armCtx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %s timed out after %s", debate.ErrLLMTimeout, a.name, f.timeout)
			}
			return callErr
		})
		if err == nil {
			return reply, nil
		}

		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping llm arm (circuit open)", "arm", a.name)
		} else {
			slog.Warn("llm arm failed, trying next", "arm", a.name, "error", err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", a.name, err))
	}

	return "", classify(errs)
}

// classify maps the per-arm errors to the service taxonomy: every arm timing
// out reports a timeout, anything else is a service error.
func classify(errs []error) error {
	allTimeout := true
	for _, err := range errs {
		if !errors.Is(err, debate.ErrLLMTimeout) {
			allTimeout = false
			break
		}
	}
	combined := errors.Join(errs...)
	if allTimeout {
		return fmt.Errorf("%w: all providers timed out: %v", debate.ErrLLMTimeout, combined)
	}
	return fmt.Errorf("%w: all providers failed: %v", debate.ErrLLMService, combined)
}
