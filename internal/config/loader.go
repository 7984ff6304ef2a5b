package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path, overlays environment
// variables, and returns a validated [Config]. A missing file is not an
// error when allowMissing is true — the defaults plus environment are used.
func Load(path string, allowMissing bool) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if allowMissing && errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			ApplyEnv(cfg)
			return cfg, Validate(cfg)
		}
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of the defaults,
// overlays environment variables, and validates the result. Useful in tests
// where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays the recognized environment variables onto cfg. Variables
// take precedence over file values so deployments can tune a shared config.
func ApplyEnv(cfg *Config) {
	envString("DATABASE_URL", &cfg.Database.URL)
	envInt("HISTORY_LIMIT", &cfg.Debate.HistoryLimit)
	envInt("EXPIRES_MINUTES", &cfg.Debate.ExpiresMinutes)
	envInt("REQUEST_TIMEOUT_S", &cfg.Server.RequestTimeoutS)
	envInt("MIN_ASSISTANT_TURNS_BEFORE_VERDICT", &cfg.Debate.Verdict.MinAssistantTurnsBeforeVerdict)
	envInt("REQUIRED_POSITIVE_JUDGEMENTS", &cfg.Debate.Verdict.RequiredPositiveJudgements)
	envString("LLM_PROVIDER", &cfg.Providers.LLM.Name)
	envString("LLM_MODEL", &cfg.Providers.LLM.Model)
	envString("DIFFICULTY", &cfg.Debate.Difficulty)
	envFloat("LLM_PER_PROVIDER_TIMEOUT_S", &cfg.Providers.LLMPerProviderTimeoutS)
	envString("NLI_ENDPOINT", &cfg.Providers.NLI.Endpoint)
	envString("NLI_API_KEY", &cfg.Providers.NLI.APIKey)
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(name string, dst *float64) {
	if v := os.Getenv(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.RequestTimeoutS <= 0 {
		errs = append(errs, errors.New("server.request_timeout_s must be positive"))
	}

	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required"))
	}
	if cfg.Providers.LLM.Model == "" {
		errs = append(errs, errors.New("providers.llm.model is required"))
	}
	if cfg.Providers.LLMFallback.Name != "" && cfg.Providers.LLMFallback.Model == "" {
		errs = append(errs, errors.New("providers.llm_fallback.model is required when a fallback is configured"))
	}
	if cfg.Providers.NLI.Endpoint == "" {
		errs = append(errs, errors.New("providers.nli.endpoint is required"))
	}

	switch cfg.Debate.Difficulty {
	case "", "easy", "medium":
	default:
		errs = append(errs, fmt.Errorf("debate.difficulty %q is invalid; valid values: easy, medium", cfg.Debate.Difficulty))
	}
	if cfg.Debate.HistoryLimit <= 0 {
		errs = append(errs, errors.New("debate.history_limit must be positive"))
	}
	if cfg.Debate.ExpiresMinutes <= 0 {
		errs = append(errs, errors.New("debate.expires_minutes must be positive"))
	}

	p := cfg.Debate.Policy
	for _, t := range []struct {
		name  string
		value float64
	}{
		{"soft_contra_min", p.SoftContraMin},
		{"partial_contra_min", p.PartialContraMin},
		{"full_contra_min", p.FullContraMin},
		{"similarity_min", p.SimilarityMin},
		{"ema_alpha", p.EMAAlpha},
	} {
		if t.value < 0 || t.value > 1 {
			errs = append(errs, fmt.Errorf("debate.policy.%s %.2f is out of range [0, 1]", t.name, t.value))
		}
	}
	if p.SoftContraMin > p.PartialContraMin || p.PartialContraMin > p.FullContraMin {
		errs = append(errs, errors.New("debate.policy thresholds must be ordered soft <= partial <= full"))
	}

	return errors.Join(errs...)
}
