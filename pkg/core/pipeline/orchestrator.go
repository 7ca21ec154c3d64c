package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dart_deepsearch/pkg/core/cache"
	"dart_deepsearch/pkg/core/company"
	"dart_deepsearch/pkg/core/fault"
	"dart_deepsearch/pkg/core/fetch"
	"dart_deepsearch/pkg/core/filter"
	"dart_deepsearch/pkg/core/query"
	"dart_deepsearch/pkg/core/search"
	"dart_deepsearch/pkg/core/store"
	"dart_deepsearch/pkg/core/sufficiency"
	"dart_deepsearch/pkg/core/synthesis"
)

// Pipeline phases, logged with their wall clock as each completes.
const (
	PhaseExpand      = "expand"
	PhaseSearch      = "search"
	PhaseFilter      = "filter"
	PhaseFetch       = "fetch"
	PhaseSynthesize  = "synthesize"
	PhaseSufficiency = "sufficiency"
)

// Response statuses.
const (
	StatusSuccess        = "success"
	StatusNeedsUserInput = "needs_user_input"
	StatusNoResults      = "no_results"
	StatusError          = "error"
)

// Confirmation asks the caller to resolve ambiguous company mentions
// before the search can proceed.
type Confirmation struct {
	Type               string          `json:"type"`
	AmbiguousCompanies []company.Match `json:"ambiguous_companies"`
	Instructions       string          `json:"instructions"`
}

// Response is the engine's answer for one query.
type Response struct {
	Status         string                    `json:"status"`
	RequestID      string                    `json:"request_id"`
	Query          string                    `json:"query"`
	Phase          string                    `json:"phase,omitempty"`
	Message        string                    `json:"message,omitempty"`
	Plan           *query.Plan               `json:"plan,omitempty"`
	TotalDocuments int                       `json:"total_documents"`
	Documents      []fetch.ProcessedDocument `json:"documents,omitempty"`
	Synthesis      *synthesis.Result         `json:"synthesis,omitempty"`
	Sufficiency    *sufficiency.Result       `json:"sufficiency,omitempty"`
	Confirmation   *Confirmation             `json:"confirmation,omitempty"`
	ShardErrors    []string                  `json:"shard_errors,omitempty"`
	DurationMS     int64                     `json:"duration_ms"`
}

// Orchestrator runs the deep-search flow: expand the query into a
// plan, execute the search shards, filter for relevance, recover
// document content, then synthesize and judge the result.
type Orchestrator struct {
	expander    *query.Expander
	executor    *search.Executor
	filter      *filter.Filter
	fetcher     *fetch.Fetcher
	synthesizer *synthesis.Synthesizer
	checker     *sufficiency.Checker

	store   *cache.Cache
	history store.SearchHistoryRepository
}

func NewOrchestrator(expander *query.Expander, executor *search.Executor, docFilter *filter.Filter,
	fetcher *fetch.Fetcher, synthesizer *synthesis.Synthesizer, checker *sufficiency.Checker) *Orchestrator {
	return &Orchestrator{
		expander:    expander,
		executor:    executor,
		filter:      docFilter,
		fetcher:     fetcher,
		synthesizer: synthesizer,
		checker:     checker,
	}
}

// SetCache attaches the shared cache so runs can report hit ratios.
func (o *Orchestrator) SetCache(c *cache.Cache) { o.store = c }

// SetHistory attaches the search history repository.
func (o *Orchestrator) SetHistory(h store.SearchHistoryRepository) { o.history = h }

// Run executes one query end to end. It never returns an error: every
// failure mode is encoded in the response status, and panics in any
// phase degrade to an error response.
func (o *Orchestrator) Run(ctx context.Context, rawQuery string) (resp *Response) {
	requestID := uuid.NewString()
	start := time.Now()
	phase := PhaseExpand

	var statsBefore cache.Stats
	if o.store != nil {
		statsBefore = o.store.Stats()
	}

	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[ERROR] request %s panicked in phase %s: %v\n", requestID, phase, r)
			resp = o.errorResponse(requestID, rawQuery, phase, fmt.Sprintf("internal error: %v", r), start)
		}
		o.finish(ctx, resp, statsBefore, start)
	}()

	fmt.Printf("[Pipeline] request %s: %q\n", requestID, rawQuery)

	// Phase 1: query expansion.
	phaseStart := time.Now()
	plan, err := o.expander.Expand(ctx, rawQuery)
	if err != nil {
		return o.errorResponse(requestID, rawQuery, phase, err.Error(), start)
	}
	o.logPhase(requestID, PhaseExpand, phaseStart)

	if plan.NeedsConfirmation {
		fmt.Printf("[Pipeline] request %s: CONFIRM_NEEDED (%d ambiguous)\n", requestID, len(plan.Ambiguous))
		return &Response{
			Status:    StatusNeedsUserInput,
			RequestID: requestID,
			Query:     rawQuery,
			Plan:      plan,
			Confirmation: &Confirmation{
				Type:               "company_confirmation",
				AmbiguousCompanies: plan.Ambiguous,
				Instructions:       "회사명이 정확하지 않습니다. 후보 중에서 선택하거나 종목코드(6자리)로 다시 검색해 주세요.",
			},
			DurationMS: time.Since(start).Milliseconds(),
		}
	}

	if plan.Empty() {
		// Nothing to search by. This is an answered query, not a
		// failure: zero documents, with the plan echoed back.
		fmt.Printf("[Pipeline] request %s: EMPTY_PARAMS\n", requestID)
		return &Response{
			Status:     StatusSuccess,
			RequestID:  requestID,
			Query:      rawQuery,
			Plan:       plan,
			Message:    "검색 조건을 찾지 못했습니다. 회사명, 종목코드, 공시 유형 또는 기간을 포함해 주세요.",
			DurationMS: time.Since(start).Milliseconds(),
		}
	}

	// Phase 2: shard search.
	phase = PhaseSearch
	phaseStart = time.Now()
	searchResult, err := o.executor.Run(ctx, plan)
	if err != nil {
		return o.errorResponse(requestID, rawQuery, phase, err.Error(), start)
	}
	o.logPhase(requestID, PhaseSearch, phaseStart)

	if len(searchResult.Disclosures) == 0 {
		fmt.Printf("[Pipeline] request %s: NO_RESULTS\n", requestID)
		return &Response{
			Status:      StatusNoResults,
			RequestID:   requestID,
			Query:       rawQuery,
			Plan:        plan,
			Message:     "해당 조건의 공시가 없습니다. 기간을 넓히거나 다른 공시 유형으로 검색해 보세요.",
			ShardErrors: searchResult.ShardErrors,
			DurationMS:  time.Since(start).Milliseconds(),
		}
	}

	// Phase 3: relevance filter.
	phase = PhaseFilter
	phaseStart = time.Now()
	kept := o.filter.Apply(ctx, rawQuery, searchResult.Disclosures)
	fmt.Printf("[Pipeline] request %s: filter kept %d of %d\n", requestID, len(kept), len(searchResult.Disclosures))
	o.logPhase(requestID, PhaseFilter, phaseStart)

	// Phase 4: content recovery.
	phase = PhaseFetch
	phaseStart = time.Now()
	docs := o.fetcher.FetchAll(ctx, plan, kept)
	o.logPhase(requestID, PhaseFetch, phaseStart)

	// Phase 5: synthesis.
	phase = PhaseSynthesize
	phaseStart = time.Now()
	summary := o.synthesizer.Build(ctx, rawQuery, plan.Keywords, docs)
	o.logPhase(requestID, PhaseSynthesize, phaseStart)

	// Phase 6: sufficiency verdict.
	phase = PhaseSufficiency
	phaseStart = time.Now()
	verdict := o.checker.Check(ctx, rawQuery, docs)
	o.logPhase(requestID, PhaseSufficiency, phaseStart)

	return &Response{
		Status:         StatusSuccess,
		RequestID:      requestID,
		Query:          rawQuery,
		Plan:           plan,
		TotalDocuments: len(docs),
		Documents:      docs,
		Synthesis:      summary,
		Sufficiency:    verdict,
		ShardErrors:    searchResult.ShardErrors,
		DurationMS:     time.Since(start).Milliseconds(),
	}
}

func (o *Orchestrator) errorResponse(requestID, rawQuery, phase, message string, start time.Time) *Response {
	fmt.Printf("[ERROR] request %s failed in phase %s: %s\n", requestID, phase, message)
	return &Response{
		Status:     StatusError,
		RequestID:  requestID,
		Query:      rawQuery,
		Phase:      phase,
		Message:    message,
		DurationMS: time.Since(start).Milliseconds(),
	}
}

func (o *Orchestrator) logPhase(requestID, phase string, start time.Time) {
	fmt.Printf("[Pipeline] request %s: phase %s done in %v\n", requestID, phase, time.Since(start))
}

// finish logs the cache hit ratio for the run and records the search
// in history when a repository is attached.
func (o *Orchestrator) finish(ctx context.Context, resp *Response, before cache.Stats, start time.Time) {
	if resp == nil {
		return
	}

	if o.store != nil {
		after := o.store.Stats()
		hits := after.Hits - before.Hits
		misses := after.Misses - before.Misses
		if total := hits + misses; total > 0 {
			fmt.Printf("[Pipeline] request %s: cache %d/%d hits (%.0f%%)\n",
				resp.RequestID, hits, total, float64(hits)/float64(total)*100)
		}
	}

	fmt.Printf("[Pipeline] request %s: %s in %v\n", resp.RequestID, resp.Status, time.Since(start))

	if o.history != nil {
		record := store.SearchRecord{
			ID:             resp.RequestID,
			Query:          resp.Query,
			Status:         resp.Status,
			TotalDocuments: resp.TotalDocuments,
			DurationMS:     resp.DurationMS,
			CreatedAt:      time.Now(),
		}
		if err := o.history.Save(ctx, record); err != nil && fault.KindOf(err) != fault.Cancelled {
			fmt.Printf("[WARNING] failed to record search history: %v\n", err)
		}
	}
}
