// Package deepsearch provides the HTTP API for the DART deep-search
// engine.
package deepsearch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"

	"dart_deepsearch/pkg/core/cache"
	"dart_deepsearch/pkg/core/pipeline"
	"dart_deepsearch/pkg/core/ratelimit"
)

// Package-level dependencies, injected at startup.
var (
	orchestrator *pipeline.Orchestrator
	sharedCache  *cache.Cache
	limits       *ratelimit.Manager
)

// InitHandler wires the handlers to the engine.
func InitHandler(orch *pipeline.Orchestrator, c *cache.Cache, l *ratelimit.Manager) {
	orchestrator = orch
	sharedCache = c
	limits = l
}

// SearchRequest is the POST /api/deepsearch body.
type SearchRequest struct {
	Query string `json:"query"`
}

// HandleSearch handles POST /api/deepsearch. With ?format=html the
// synthesis summary is rendered as HTML via the Markdown pipeline.
func HandleSearch(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if orchestrator == nil {
		http.Error(w, "Engine not initialized", http.StatusInternalServerError)
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	resp := orchestrator.Run(r.Context(), req.Query)

	if r.URL.Query().Get("format") == "html" && resp.Synthesis != nil {
		var buf strings.Builder
		if err := goldmark.Convert([]byte(resp.Synthesis.Summary), &buf); err == nil {
			resp.Synthesis.Summary = buf.String()
		} else {
			fmt.Printf("[WARNING] markdown rendering failed: %v\n", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if resp.Status == pipeline.StatusError {
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(resp)
}

// StatsResponse is the GET /api/deepsearch/stats body.
type StatsResponse struct {
	Cache    cache.Stats                `json:"cache"`
	Services map[string]ratelimit.Stats `json:"services"`
}

// HandleStats handles GET /api/deepsearch/stats.
func HandleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")

	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := StatsResponse{}
	if sharedCache != nil {
		resp.Cache = sharedCache.Stats()
	}
	if limits != nil {
		resp.Services = limits.Stats()
	}
	json.NewEncoder(w).Encode(resp)
}

// HandleCacheClear handles POST /api/deepsearch/cache/clear.
func HandleCacheClear(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if sharedCache == nil {
		http.Error(w, "Cache not initialized", http.StatusInternalServerError)
		return
	}

	removed, err := sharedCache.Clear()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to clear cache: %v", err), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"removed": removed})
}
