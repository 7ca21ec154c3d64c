// Package prompt holds the system prompts that drive the deep-search
// pipeline stages. Each stage ships a built-in prompt compiled into the
// binary; JSON files under the resources directory override them at
// startup, so prompt tuning does not require a rebuild.
package prompt

// Template is one registered prompt. Only SystemPrompt reaches the
// model; the remaining fields exist for listing and override matching.
type Template struct {
	ID           string `json:"id"`            // Stage identifier (e.g. "deepsearch.query_parser")
	Name         string `json:"name"`          // Human-readable name
	Category     string `json:"category"`      // Grouping key, defaults to the folder name
	Description  string `json:"description"`   // What the stage uses this prompt for
	SystemPrompt string `json:"system_prompt"` // The system prompt content
	Version      string `json:"version"`       // "builtin" or a file-defined version
}
