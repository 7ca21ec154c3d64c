package pipeline

import (
	"fmt"
	"time"

	"dart_deepsearch/pkg/core/cache"
	"dart_deepsearch/pkg/core/company"
	"dart_deepsearch/pkg/core/config"
	"dart_deepsearch/pkg/core/content"
	"dart_deepsearch/pkg/core/dart"
	"dart_deepsearch/pkg/core/fetch"
	"dart_deepsearch/pkg/core/filter"
	"dart_deepsearch/pkg/core/llm"
	"dart_deepsearch/pkg/core/query"
	"dart_deepsearch/pkg/core/ratelimit"
	"dart_deepsearch/pkg/core/search"
	"dart_deepsearch/pkg/core/sufficiency"
	"dart_deepsearch/pkg/core/synthesis"
)

// NewFromConfig assembles a ready-to-run orchestrator from the
// configuration: rate limits sized to the daily quota, the shared
// disk cache, the DART gateway and the LLM-backed stages. The cache
// and limiter are returned as well so callers can expose stats.
func NewFromConfig(cfg config.Config) (*Orchestrator, *cache.Cache, *ratelimit.Manager, error) {
	if cfg.DartAPIKey == "" {
		return nil, nil, nil, fmt.Errorf("DART API key not configured (set DART_API_KEY)")
	}

	limits := ratelimit.NewManager()
	if cfg.DailyRateLimit > 0 {
		limits.Configure(ratelimit.ServiceDartAPI,
			ratelimit.WindowLimitForDailyQuota(cfg.DailyRateLimit), time.Minute, 20)
	}

	store, err := cache.New(cfg.CachePath, cfg.CacheTTL())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	client := dart.NewClient(cfg.DartAPIKey, cfg.DartBaseURL, limits)
	if cfg.FieldMappingsPath != "" {
		mappings, err := dart.LoadFieldMappings(cfg.FieldMappingsPath)
		if err != nil {
			fmt.Printf("[WARNING] failed to load field mappings from %s: %v\n", cfg.FieldMappingsPath, err)
		} else {
			client.SetFieldMappings(mappings)
		}
	}

	manager := llm.NewManager(cfg.LLM, limits)
	if !manager.Available() {
		fmt.Printf("[WARNING] no LLM provider available, running with heuristic fallbacks\n")
	}

	validator := company.NewValidator(client)
	expander := query.NewExpander(query.NewParser(manager), validator, query.NewMapper(manager))

	executor := search.NewExecutor(client, store, cfg.MaxSearchResults)
	executor.SetCacheEmpty(cfg.CacheEmptyResults)

	fetcher := fetch.NewFetcher(client, store, content.NewCleaner(0), cfg.ParallelDownloads)

	orch := NewOrchestrator(
		expander,
		executor,
		filter.New(manager),
		fetcher,
		synthesis.New(manager),
		sufficiency.New(manager),
	)
	orch.SetCache(store)

	return orch, store, limits, nil
}
