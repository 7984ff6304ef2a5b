package config

import (
	"strings"
	"testing"
)

const validYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
providers:
  llm:
    name: anthropic
    model: claude-3-5-sonnet-latest
  nli:
    endpoint: http://localhost:8501/classify
debate:
  difficulty: easy
  history_limit: 3
`

func TestLoadFromReader_OverlaysDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Providers.LLM.Name != "anthropic" {
		t.Errorf("llm.name = %q", cfg.Providers.LLM.Name)
	}
	if cfg.Debate.HistoryLimit != 3 {
		t.Errorf("history_limit = %d", cfg.Debate.HistoryLimit)
	}

	// Untouched fields keep their defaults.
	if cfg.Server.RequestTimeoutS != 25 {
		t.Errorf("request_timeout_s default = %d, want 25", cfg.Server.RequestTimeoutS)
	}
	if cfg.Debate.Policy.FullContraMin != 0.90 {
		t.Errorf("full_contra_min default = %v, want 0.90", cfg.Debate.Policy.FullContraMin)
	}
	if cfg.Debate.Scoring.TopicNeuMax != 0.70 {
		t.Errorf("topic_neu_max default = %v, want 0.70", cfg.Debate.Scoring.TopicNeuMax)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("server:\n  listen_adress: ':1'\n"))
	if err == nil {
		t.Fatal("expected error on unknown field")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HISTORY_LIMIT", "9")
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("LLM_MODEL", "llama3")
	t.Setenv("REQUIRED_POSITIVE_JUDGEMENTS", "4")
	t.Setenv("LLM_PER_PROVIDER_TIMEOUT_S", "7.5")

	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Debate.HistoryLimit != 9 {
		t.Errorf("HISTORY_LIMIT override: %d", cfg.Debate.HistoryLimit)
	}
	if cfg.Providers.LLM.Name != "ollama" || cfg.Providers.LLM.Model != "llama3" {
		t.Errorf("LLM override: %+v", cfg.Providers.LLM)
	}
	if cfg.Debate.Verdict.RequiredPositiveJudgements != 4 {
		t.Errorf("verdict override: %d", cfg.Debate.Verdict.RequiredPositiveJudgements)
	}
	if cfg.Providers.LLMPerProviderTimeoutS != 7.5 {
		t.Errorf("timeout override: %v", cfg.Providers.LLMPerProviderTimeoutS)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Server.LogLevel = "loud" },
			wantErr: "log_level",
		},
		{
			name:    "missing llm name",
			mutate:  func(c *Config) { c.Providers.LLM.Name = "" },
			wantErr: "providers.llm.name",
		},
		{
			name:    "missing nli endpoint",
			mutate:  func(c *Config) { c.Providers.NLI.Endpoint = "" },
			wantErr: "providers.nli.endpoint",
		},
		{
			name:    "bad difficulty",
			mutate:  func(c *Config) { c.Debate.Difficulty = "brutal" },
			wantErr: "difficulty",
		},
		{
			name:    "unordered thresholds",
			mutate:  func(c *Config) { c.Debate.Policy.PartialContraMin = 0.95 },
			wantErr: "ordered",
		},
		{
			name:    "threshold out of range",
			mutate:  func(c *Config) { c.Debate.Policy.EMAAlpha = 1.5 },
			wantErr: "ema_alpha",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Providers.NLI.Endpoint = "http://localhost:8501"
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}

	cfg := Default()
	cfg.Providers.NLI.Endpoint = "http://localhost:8501"
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults with an endpoint should validate, got %v", err)
	}
}

func TestVerdictConfig_ConcessionPolicy(t *testing.T) {
	v := VerdictConfig{
		MinAssistantTurnsBeforeVerdict: 2,
		RequiredPositiveJudgements:     3,
		RecentWindow:                   4,
		RecentMinPositives:             2,
		EMAContraMin:                   0.8,
		RequireRecentPositive:          true,
	}
	p := v.ConcessionPolicy()
	if !p.EndOnFull {
		t.Error("EndOnFull must default to true")
	}
	if p.TotalMinPositives != 3 || p.MinAssistantTurns != 2 || p.RecentWindow != 4 {
		t.Errorf("policy = %+v", p)
	}
}
