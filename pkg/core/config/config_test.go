package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.CacheTTLHours != 24 {
		t.Errorf("default TTL = %d, want 24", cfg.CacheTTLHours)
	}
	if cfg.ParallelDownloads != 3 {
		t.Errorf("default parallel downloads = %d, want 3", cfg.ParallelDownloads)
	}
	if cfg.LLM.Model != "gpt-3.5-turbo" {
		t.Errorf("default model = %q", cfg.LLM.Model)
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	body := `
dart_api_key: yaml-key
max_search_results: 50
llm:
  provider: gemini
  model: gemini-2.0-flash
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DART_API_KEY", "env-key")
	t.Setenv("DART_PARALLEL_DOWNLOADS", "5")
	t.Setenv("LLM_TEMPERATURE", "0.7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DartAPIKey != "env-key" {
		t.Errorf("env should win over yaml: %q", cfg.DartAPIKey)
	}
	if cfg.MaxSearchResults != 50 {
		t.Errorf("yaml value not applied: %d", cfg.MaxSearchResults)
	}
	if cfg.LLM.Provider != "gemini" || cfg.LLM.Model != "gemini-2.0-flash" {
		t.Errorf("nested yaml not applied: %+v", cfg.LLM)
	}
	if cfg.ParallelDownloads != 5 {
		t.Errorf("env int override not applied: %d", cfg.ParallelDownloads)
	}
	if cfg.LLM.Temperature != 0.7 {
		t.Errorf("env float override not applied: %v", cfg.LLM.Temperature)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.CacheTTLHours != 24 {
		t.Errorf("defaults not preserved: %+v", cfg)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("llm: ["), 0o644)
	if _, err := Load(path); err == nil {
		t.Fatal("malformed yaml should error")
	}
}
