package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Config carries every runtime setting the engine reads. Values come
// from the environment first; an optional YAML file fills the gaps.
type Config struct {
	DartAPIKey        string `yaml:"dart_api_key"`
	DartBaseURL       string `yaml:"dart_base_url"`
	CachePath         string `yaml:"cache_path"`
	CacheTTLHours     int    `yaml:"cache_ttl_hours"`
	DailyRateLimit    int    `yaml:"daily_rate_limit"`
	MaxSearchResults  int    `yaml:"max_search_results"`
	ParallelDownloads int    `yaml:"parallel_downloads"`
	DownloadPath      string `yaml:"download_path"`
	FieldMappingsPath string `yaml:"field_mappings_path"`
	CacheEmptyResults bool   `yaml:"cache_empty_results"`

	LLM LLMConfig `yaml:"llm"`

	// DatabaseURL enables the optional search-history store.
	DatabaseURL string `yaml:"database_url"`
}

// LLMConfig selects and tunes the completion endpoint.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Defaults returns the engine's built-in configuration.
func Defaults() Config {
	home, _ := os.UserHomeDir()
	return Config{
		CachePath:         filepath.Join(home, ".dart_deepsearch", "cache"),
		CacheTTLHours:     24,
		DailyRateLimit:    20000,
		MaxSearchResults:  100,
		ParallelDownloads: 3,
		DownloadPath:      filepath.Join(home, ".dart_deepsearch", "downloads"),
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-3.5-turbo",
			Temperature: 0.3,
			MaxTokens:   1000,
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML file
// (when it exists), then environment overrides. A missing file is not
// an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
			fmt.Printf("[Config] Loaded %s\n", path)
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.DartAPIKey, "DART_API_KEY")
	setString(&c.DartBaseURL, "DART_BASE_URL")
	setString(&c.CachePath, "DART_CACHE_PATH")
	setInt(&c.CacheTTLHours, "DART_CACHE_TTL")
	setInt(&c.DailyRateLimit, "DART_API_RATE_LIMIT")
	setInt(&c.MaxSearchResults, "DART_MAX_SEARCH_RESULTS")
	setInt(&c.ParallelDownloads, "DART_PARALLEL_DOWNLOADS")
	setString(&c.DownloadPath, "DART_DOWNLOAD_PATH")
	setString(&c.FieldMappingsPath, "DART_FIELD_MAPPINGS")
	setBool(&c.CacheEmptyResults, "DART_CACHE_EMPTY")

	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	setString(&c.LLM.APIKey, "LLM_API_KEY")
	setString(&c.LLM.Model, "LLM_MODEL")
	setFloat(&c.LLM.Temperature, "LLM_TEMPERATURE")
	setInt(&c.LLM.MaxTokens, "LLM_MAX_TOKENS")

	setString(&c.DatabaseURL, "DATABASE_URL")
}

// CacheTTL returns the TTL as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		} else {
			fmt.Printf("[WARNING] ignoring non-numeric %s=%q\n", key, v)
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		} else {
			fmt.Printf("[WARNING] ignoring non-numeric %s=%q\n", key, v)
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
