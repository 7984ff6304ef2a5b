package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/polemos-ai/polemos/internal/debate"
	"github.com/polemos-ai/polemos/pkg/provider/llm"
)

// stubClient is a scripted llm.Client arm.
type stubClient struct {
	reply string
	err   error
	hang  bool
	calls int
}

func (s *stubClient) Generate(ctx context.Context, _ llm.Request) (string, error) {
	return s.invoke(ctx)
}

func (s *stubClient) Debate(ctx context.Context, _ llm.Request) (string, error) {
	return s.invoke(ctx)
}

func (s *stubClient) invoke(ctx context.Context) (string, error) {
	s.calls++
	if s.hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.reply, s.err
}

func TestLLMFallback_PrimarySucceeds(t *testing.T) {
	primary := &stubClient{reply: "from primary"}
	secondary := &stubClient{reply: "from secondary"}
	f := NewLLMFallback(primary, secondary, LLMFallbackConfig{})

	got, err := f.Debate(context.Background(), llm.Request{})
	if err != nil {
		t.Fatalf("Debate: %v", err)
	}
	if got != "from primary" {
		t.Errorf("reply = %q", got)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary called %d times, want 0", secondary.calls)
	}
}

func TestLLMFallback_FailsOverToSecondary(t *testing.T) {
	primary := &stubClient{err: errors.New("rate limited")}
	secondary := &stubClient{reply: "from secondary"}
	f := NewLLMFallback(primary, secondary, LLMFallbackConfig{})

	got, err := f.Generate(context.Background(), llm.Request{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "from secondary" {
		t.Errorf("reply = %q", got)
	}
}

func TestLLMFallback_BothFail_ServiceError(t *testing.T) {
	primary := &stubClient{err: errors.New("boom")}
	secondary := &stubClient{err: errors.New("also boom")}
	f := NewLLMFallback(primary, secondary, LLMFallbackConfig{})

	_, err := f.Debate(context.Background(), llm.Request{})
	if !errors.Is(err, debate.ErrLLMService) {
		t.Errorf("error = %v, want ErrLLMService", err)
	}
}

func TestLLMFallback_BothTimeout_TimeoutError(t *testing.T) {
	primary := &stubClient{hang: true}
	secondary := &stubClient{hang: true}
	f := NewLLMFallback(primary, secondary, LLMFallbackConfig{
		PerProviderTimeout: 20 * time.Millisecond,
	})

	start := time.Now()
	_, err := f.Debate(context.Background(), llm.Request{})
	if !errors.Is(err, debate.ErrLLMTimeout) {
		t.Errorf("error = %v, want ErrLLMTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("fallback took %v; per-arm timeouts not applied", elapsed)
	}
}

func TestLLMFallback_MixedFailure_ServiceError(t *testing.T) {
	primary := &stubClient{hang: true}
	secondary := &stubClient{err: errors.New("bad gateway")}
	f := NewLLMFallback(primary, secondary, LLMFallbackConfig{
		PerProviderTimeout: 20 * time.Millisecond,
	})

	_, err := f.Debate(context.Background(), llm.Request{})
	if !errors.Is(err, debate.ErrLLMService) {
		t.Errorf("error = %v, want ErrLLMService when any arm fails non-timeout", err)
	}
}

func TestLLMFallback_SingleArm(t *testing.T) {
	primary := &stubClient{reply: "solo"}
	f := NewLLMFallback(primary, nil, LLMFallbackConfig{})

	got, err := f.Generate(context.Background(), llm.Request{})
	if err != nil || got != "solo" {
		t.Errorf("Generate = (%q, %v)", got, err)
	}
}

func TestLLMFallback_OpenBreakerSkipsArm(t *testing.T) {
	primary := &stubClient{err: errors.New("down")}
	secondary := &stubClient{reply: "ok"}
	f := NewLLMFallback(primary, secondary, LLMFallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour},
	})
	ctx := context.Background()

	// Trip the primary's breaker.
	for range 3 {
		if _, err := f.Debate(ctx, llm.Request{}); err != nil {
			t.Fatalf("fallback should still succeed via secondary: %v", err)
		}
	}

	callsWhenTripped := primary.calls
	if _, err := f.Debate(ctx, llm.Request{}); err != nil {
		t.Fatalf("Debate: %v", err)
	}
	if primary.calls != callsWhenTripped {
		t.Errorf("open breaker should skip the primary (calls %d → %d)", callsWhenTripped, primary.calls)
	}
}
