package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"dart_deepsearch/pkg/api/deepsearch"
	"dart_deepsearch/pkg/core/config"
	"dart_deepsearch/pkg/core/pipeline"
	"dart_deepsearch/pkg/core/prompt"
	"dart_deepsearch/pkg/core/store"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize Prompt Library: built-ins first, then file overrides.
	prompt.RegisterBuiltins()
	resourcesPath := "resources"
	if _, err := os.Stat(resourcesPath); os.IsNotExist(err) {
		// Try from executable directory
		exePath, _ := os.Executable()
		resourcesPath = filepath.Join(filepath.Dir(exePath), "resources")
	}
	if err := prompt.LoadFromDirectory(resourcesPath); err != nil {
		fmt.Printf("[WARNING] Failed to load prompt library: %v\n", err)
		fmt.Println("  Falling back to built-in prompts")
	} else {
		fmt.Printf("[PROMPT] Loaded %d prompts from %s\n", prompt.Get().Count(), resourcesPath)
	}

	cfg, err := config.Load(os.Getenv("DART_CONFIG"))
	if err != nil {
		fmt.Printf("[FATAL] %v\n", err)
		os.Exit(1)
	}

	orch, sharedCache, limits, err := pipeline.NewFromConfig(cfg)
	if err != nil {
		fmt.Printf("[FATAL] Failed to initialize engine: %v\n", err)
		os.Exit(1)
	}

	// Search history is optional: without a database URL the engine
	// runs stateless.
	if cfg.DatabaseURL != "" {
		if err := store.InitDB(context.Background(), cfg.DatabaseURL); err != nil {
			fmt.Printf("[WARNING] Search history disabled: %v\n", err)
		} else {
			orch.SetHistory(store.NewHistoryRepo())
			defer store.Close()
		}
	}

	deepsearch.InitHandler(orch, sharedCache, limits)
	http.HandleFunc("/api/deepsearch", deepsearch.HandleSearch)
	http.HandleFunc("/api/deepsearch/stats", deepsearch.HandleStats)
	http.HandleFunc("/api/deepsearch/cache/clear", deepsearch.HandleCacheClear)

	fmt.Println("API server starting on :8080...")
	fmt.Println("  - POST /api/deepsearch  (?format=html for rendered summary)")
	fmt.Println("  - GET  /api/deepsearch/stats")
	fmt.Println("  - POST /api/deepsearch/cache/clear")

	// Exit with code 1 if the server fails to start (e.g. port in use)
	if err := http.ListenAndServe(":8080", nil); err != nil {
		fmt.Printf("[FATAL] Server failed to start: %v\n", err)
		os.Exit(1)
	}
}
