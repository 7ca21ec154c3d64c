package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"dart_deepsearch/pkg/core/config"
	"dart_deepsearch/pkg/core/pipeline"
	"dart_deepsearch/pkg/core/prompt"
	"dart_deepsearch/pkg/core/store"
)

// One-shot CLI: runs a single deep-search query and prints the
// response as JSON to stdout. Engine logs go to stdout interleaved,
// so pipe through a JSON filter when scripting.
func main() {
	configPath := flag.String("config", "", "path to a YAML config file (env overrides still apply)")
	pretty := flag.Bool("pretty", true, "indent the JSON output")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, assuming environment variables are set.")
	}

	rawQuery := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if rawQuery == "" {
		fmt.Fprintln(os.Stderr, "usage: deepsearch [-config path] [-pretty=false] <query>")
		os.Exit(2)
	}

	prompt.RegisterBuiltins()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	orch, _, _, err := pipeline.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	ctx := context.Background()
	if cfg.DatabaseURL != "" {
		if err := store.InitDB(ctx, cfg.DatabaseURL); err != nil {
			fmt.Printf("[WARNING] Search history disabled: %v\n", err)
		} else {
			orch.SetHistory(store.NewHistoryRepo())
			defer store.Close()
		}
	}

	resp := orch.Run(ctx, rawQuery)

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(resp); err != nil {
		log.Fatalf("Error: failed to encode response: %v", err)
	}

	if resp.Status == pipeline.StatusError {
		os.Exit(1)
	}
}
