// Package app wires all Polemos subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems from the configuration, Run serves HTTP until the context is
// cancelled, and Shutdown tears everything down in order. Every resource is
// constructor-injected — there are no package-level singletons beyond the
// OTel globals the observe package manages.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/polemos-ai/polemos/internal/concession"
	"github.com/polemos-ai/polemos/internal/config"
	"github.com/polemos-ai/polemos/internal/debate"
	"github.com/polemos-ai/polemos/internal/health"
	"github.com/polemos-ai/polemos/internal/observe"
	"github.com/polemos-ai/polemos/internal/repo"
	"github.com/polemos-ai/polemos/internal/resilience"
	"github.com/polemos-ai/polemos/internal/server"
	"github.com/polemos-ai/polemos/internal/service"
	"github.com/polemos-ai/polemos/internal/statestore"
	"github.com/polemos-ai/polemos/pkg/provider/llm"
	"github.com/polemos-ai/polemos/pkg/provider/llm/anyllm"
	llmopenai "github.com/polemos-ai/polemos/pkg/provider/llm/openai"
	nlihf "github.com/polemos-ai/polemos/pkg/provider/nli/hf"
)

// App owns all subsystem lifetimes.
type App struct {
	cfg    *config.Config
	server *http.Server

	// closers are called in reverse order during Shutdown.
	closers []func(context.Context) error
}

// New creates and connects all subsystems from cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}

	// Observability first, so everything below records into it.
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "polemos",
	})
	if err != nil {
		return nil, fmt.Errorf("app: init telemetry: %w", err)
	}
	a.closers = append(a.closers, otelShutdown)

	metrics := observe.DefaultMetrics()

	// Storage: PostgreSQL when configured, in-memory otherwise.
	ttl := time.Duration(cfg.Debate.ExpiresMinutes) * time.Minute
	var (
		messageRepo repo.MessageRepo
		states      statestore.Store
		checkers    []health.Checker
	)
	if cfg.Database.URL != "" {
		pool, err := newPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error {
			pool.Close()
			return nil
		})

		if messageRepo, err = repo.NewPGRepo(ctx, pool, ttl); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		if states, err = statestore.NewPGStore(ctx, pool); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		checkers = append(checkers, health.Checker{
			Name:  "database",
			Check: pool.Ping,
		})
	} else {
		slog.Warn("database.url is empty; using in-memory repository and state store")
		messageRepo = repo.NewMemRepo(repo.WithTTL(ttl))
		states = statestore.NewMemStore()
	}

	// NLI provider.
	nliProvider, err := nlihf.New(cfg.Providers.NLI.Endpoint, cfg.Providers.NLI.APIKey,
		nlihf.WithModel(cfg.Providers.NLI.Model),
		nlihf.WithMaxLength(cfg.Providers.NLI.MaxLength),
	)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	checkers = append(checkers, health.Checker{
		Name: "nli",
		Check: func(ctx context.Context) error {
			_, err := nliProvider.Score(ctx, "the sky is blue", "the sky has a colour")
			return err
		},
	})

	// LLM arms and fallback composite.
	difficulty, err := llm.ParseDifficulty(cfg.Debate.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("app: %w: %v", debate.ErrConfig, err)
	}
	primary, err := buildLLM(cfg.Providers.LLM, difficulty)
	if err != nil {
		return nil, fmt.Errorf("app: primary llm: %w", err)
	}
	var secondary llm.Client
	if cfg.Providers.LLMFallback.Name != "" {
		if secondary, err = buildLLM(cfg.Providers.LLMFallback, difficulty); err != nil {
			return nil, fmt.Errorf("app: fallback llm: %w", err)
		}
	}
	llmClient := resilience.NewLLMFallback(primary, secondary, resilience.LLMFallbackConfig{
		PerProviderTimeout: time.Duration(cfg.Providers.LLMPerProviderTimeoutS * float64(time.Second)),
	})

	// Concession engine and transport.
	orchestrator := concession.New(
		nliProvider,
		llmClient,
		states,
		cfg.Debate.Scoring,
		cfg.Debate.Policy,
		metrics,
	)
	svc := service.New(messageRepo, states, llmClient, orchestrator, metrics,
		cfg.Debate.Verdict.ConcessionPolicy(), cfg.Debate.HistoryLimit)

	srv := server.New(svc, health.New(checkers...), metrics,
		time.Duration(cfg.Server.RequestTimeoutS)*time.Second)

	a.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run serves HTTP until ctx is cancelled, then shuts the server down.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown tears subsystems down in reverse initialisation order.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newPool builds the pgx connection pool from the database config.
func newPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("app: parse database url: %w", err)
	}
	if cfg.PoolMin > 0 {
		poolCfg.MinConns = int32(cfg.PoolMin)
	}
	if cfg.PoolMax > 0 {
		poolCfg.MaxConns = int32(cfg.PoolMax)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("app: connect database: %w", err)
	}
	return pool, nil
}

// buildLLM creates one LLM arm. The direct OpenAI adapter is used when an
// explicit API key is configured for the "openai" backend; everything else
// goes through the any-llm-go universal adapter.
func buildLLM(entry config.LLMEntry, difficulty llm.Difficulty) (llm.Client, error) {
	if entry.Name == "openai" && entry.APIKey != "" {
		var opts []llmopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, llmopenai.WithBaseURL(entry.BaseURL))
		}
		return llmopenai.New(entry.APIKey, entry.Model, difficulty, opts...)
	}
	return anyllm.New(entry.Name, entry.Model, difficulty)
}
