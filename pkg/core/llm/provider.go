package llm

import (
	"context"
)

// Provider is the interface for all LLM providers.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
	// AdaptInstructions transforms raw instructions into model-specific formats
	AdaptInstructions(rawInstructions string) string
}

// Option keys recognized by providers.
const (
	OptionModel          = "model"
	OptionAPIKey         = "api_key"
	OptionTemperature    = "temperature"
	OptionMaxTokens      = "max_tokens"
	OptionResponseFormat = "response_format"
)

// JSONResponseFormat is the options value that asks a provider for a
// raw JSON object response.
func JSONResponseFormat() map[string]interface{} {
	return map[string]interface{}{"type": "json_object"}
}
