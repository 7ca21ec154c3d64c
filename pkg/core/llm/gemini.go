package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider implements the Provider interface for Google's Gemini
// models. It supports native JSON-object output, which the extraction
// prompts rely on.
type GeminiProvider struct {
	APIKey      string
	Model       string // e.g. "gemini-2.0-flash"
	Temperature float64
}

var _ Provider = (*GeminiProvider)(nil)

func (p *GeminiProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	apiKey := p.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY_MISSING: no API key configured")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	modelName := p.Model
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	if val, ok := options[OptionModel].(string); ok && val != "" {
		modelName = val
	}

	model := client.GenerativeModel(modelName)
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}

	temperature := float32(p.Temperature)
	if val, ok := options[OptionTemperature].(float64); ok {
		temperature = float32(val)
	}
	model.SetTemperature(temperature)
	if val, ok := options[OptionMaxTokens].(int); ok && val > 0 {
		model.SetMaxOutputTokens(int32(val))
	}
	if val, ok := options[OptionResponseFormat].(map[string]interface{}); ok {
		if val["type"] == "json_object" {
			model.ResponseMIMEType = "application/json"
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String(), nil
}

func (p *GeminiProvider) AdaptInstructions(raw string) string {
	return raw
}
