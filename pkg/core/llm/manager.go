package llm

import (
	"context"
	"fmt"

	"dart_deepsearch/pkg/core/config"
	"dart_deepsearch/pkg/core/fault"
	"dart_deepsearch/pkg/core/ratelimit"
)

// Manager owns the configured provider and routes every call through
// the shared llm rate limiter. A nil or "none" provider is valid: the
// engine then runs on its deterministic fallbacks only.
type Manager struct {
	cfg      config.LLMConfig
	limits   *ratelimit.Manager
	provider Provider
}

func NewManager(cfg config.LLMConfig, limits *ratelimit.Manager) *Manager {
	if limits == nil {
		limits = ratelimit.NewManager()
	}
	m := &Manager{cfg: cfg, limits: limits}
	m.provider = buildProvider(cfg)
	if m.provider == nil {
		fmt.Printf("[LLM] no provider configured (provider=%q), deterministic fallbacks only\n", cfg.Provider)
	} else {
		fmt.Printf("[LLM] provider=%s model=%s\n", cfg.Provider, cfg.Model)
	}
	return m
}

func buildProvider(cfg config.LLMConfig) Provider {
	switch cfg.Provider {
	case "openai", "vllm":
		return NewOpenAICompatibleProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Temperature, cfg.MaxTokens)
	case "deepseek":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.deepseek.com"
		}
		model := cfg.Model
		if model == "" || model == "gpt-3.5-turbo" {
			model = "deepseek-chat"
		}
		return NewOpenAICompatibleProvider(baseURL, cfg.APIKey, model, cfg.Temperature, cfg.MaxTokens)
	case "gemini":
		return &GeminiProvider{APIKey: cfg.APIKey, Model: cfg.Model, Temperature: cfg.Temperature}
	case "gemini_grounded":
		return &GroundedGeminiProvider{APIKey: cfg.APIKey, Model: cfg.Model}
	case "", "none":
		return nil
	default:
		fmt.Printf("[WARNING] unknown LLM provider %q, falling back to openai-compatible\n", cfg.Provider)
		return NewOpenAICompatibleProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Temperature, cfg.MaxTokens)
	}
}

// Available reports whether a provider is configured.
func (m *Manager) Available() bool {
	return m != nil && m.provider != nil
}

// SetProvider swaps the provider, used by tests to inject mocks.
func (m *Manager) SetProvider(p Provider) {
	m.provider = p
}

// Generate runs one completion under the llm rate limit. Failures are
// classified as LLMUnavailable; callers decide whether the text parses.
func (m *Manager) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	return m.generate(ctx, prompt, systemPrompt, m.baseOptions())
}

// GenerateJSON is Generate with the provider asked for a bare JSON
// object response.
func (m *Manager) GenerateJSON(ctx context.Context, prompt, systemPrompt string) (string, error) {
	options := m.baseOptions()
	options[OptionResponseFormat] = JSONResponseFormat()
	return m.generate(ctx, prompt, systemPrompt, options)
}

func (m *Manager) generate(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}) (string, error) {
	if !m.Available() {
		return "", fault.New(fault.LLMUnavailable, "no LLM provider configured")
	}

	if err := m.limits.Acquire(ctx, ratelimit.ServiceLLM); err != nil {
		return "", fault.Wrap(fault.Cancelled, err, "llm rate limit acquire interrupted")
	}
	defer m.limits.Release(ratelimit.ServiceLLM)

	text, err := m.provider.GenerateResponse(ctx, prompt, m.provider.AdaptInstructions(systemPrompt), options)
	if err != nil {
		if ctx.Err() != nil {
			return "", fault.Wrap(fault.Cancelled, err, "llm call cancelled")
		}
		return "", fault.Wrap(fault.LLMUnavailable, err, "llm call failed")
	}
	return text, nil
}

func (m *Manager) baseOptions() map[string]interface{} {
	options := map[string]interface{}{
		OptionTemperature: m.cfg.Temperature,
	}
	if m.cfg.Model != "" {
		options[OptionModel] = m.cfg.Model
	}
	if m.cfg.MaxTokens > 0 {
		options[OptionMaxTokens] = m.cfg.MaxTokens
	}
	return options
}
