package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"dart_deepsearch/pkg/core/cache"
	"dart_deepsearch/pkg/core/dart"
	"dart_deepsearch/pkg/core/fault"
	"dart_deepsearch/pkg/core/query"
)

// Gateway is the slice of the DART client the executor needs.
type Gateway interface {
	Search(ctx context.Context, p dart.SearchParams) (*dart.SearchPage, error)
}

// DefaultMaxResults bounds the merged result set when the caller does
// not configure a ceiling.
const DefaultMaxResults = 100

// maxParallelShards bounds concurrent shard searches so a wide plan
// does not monopolize the upstream rate budget.
const maxParallelShards = 5

// Executor runs a search plan: one upstream call per shard, pages
// followed until the shard ceiling, results merged, deduplicated, and
// sorted newest first.
type Executor struct {
	gateway    Gateway
	store      *cache.Cache
	cacheEmpty bool
	maxResults int
}

func NewExecutor(gateway Gateway, store *cache.Cache, maxResults int) *Executor {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Executor{gateway: gateway, store: store, maxResults: maxResults}
}

// SetCacheEmpty controls whether shards that return zero rows are
// cached. Off by default so a filing published minutes after the query
// is not masked for a full TTL.
func (e *Executor) SetCacheEmpty(on bool) { e.cacheEmpty = on }

// Result is the merged outcome of one plan execution.
type Result struct {
	Disclosures []dart.Disclosure `json:"disclosures"`
	TotalFound  int               `json:"total_found"`
	Truncated   bool              `json:"truncated"`
	ShardCount  int               `json:"shard_count"`
	ShardErrors []string          `json:"shard_errors,omitempty"`
}

// Run executes every shard of the plan. Shard failures are isolated:
// the merged result carries whatever the healthy shards returned, and
// an error comes back only when every shard failed.
func (e *Executor) Run(ctx context.Context, plan *query.Plan) (*Result, error) {
	shards := query.BuildShards(plan)
	result := &Result{ShardCount: len(shards)}

	rows := make([][]dart.Disclosure, len(shards))
	errs := make([]error, len(shards))

	if plan.Parallel && len(shards) > 1 {
		var wg sync.WaitGroup
		slots := make(chan struct{}, maxParallelShards)
		for i := range shards {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				slots <- struct{}{}
				defer func() { <-slots }()
				rows[i], errs[i] = e.runShard(ctx, shards[i])
			}(i)
		}
		wg.Wait()
	} else {
		// Shards run newest first, so once the ceiling is met the
		// remaining shards can only contribute rows that truncation
		// would drop anyway.
		collected := 0
		for i := range shards {
			rows[i], errs[i] = e.runShard(ctx, shards[i])
			collected += len(rows[i])
			if collected >= e.maxResults && i < len(shards)-1 {
				fmt.Printf("[Search] ceiling of %d reached after shard %d/%d, skipping older shards\n",
					e.maxResults, i+1, len(shards))
				break
			}
		}
	}

	failures := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		if fault.KindOf(err) == fault.Cancelled {
			return nil, err
		}
		failures++
		msg := fmt.Sprintf("shard %s..%s: %v", query.FormatDate(shards[i].Start), query.FormatDate(shards[i].End), err)
		fmt.Printf("[WARNING] search %s\n", msg)
		result.ShardErrors = append(result.ShardErrors, msg)
	}
	if len(shards) > 0 && failures == len(shards) {
		return nil, fault.Wrap(fault.UpstreamUnavailable, errs[0], "all %d search shards failed", len(shards))
	}

	merged := dedupe(rows)
	result.TotalFound = len(merged)

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].ReceiptDate != merged[j].ReceiptDate {
			return merged[i].ReceiptDate > merged[j].ReceiptDate
		}
		return merged[i].ReceiptNo > merged[j].ReceiptNo
	})

	if len(merged) > e.maxResults {
		merged = merged[:e.maxResults]
		result.Truncated = true
	}
	result.Disclosures = merged
	return result, nil
}

// runShard pages through one shard until the last page or the result
// ceiling. Upstream "no data" responses are an empty shard, not an
// error.
func (e *Executor) runShard(ctx context.Context, shard query.Shard) ([]dart.Disclosure, error) {
	params := dart.SearchParams{
		CorpCode:   shard.CorpCode,
		BeginDate:  query.FormatDate(shard.Start),
		EndDate:    query.FormatDate(shard.End),
		KindDetail: shard.Category,
		PageCount:  shard.PageSize,
	}

	cacheParams := map[string]interface{}{
		"corp_code":   shard.CorpCode,
		"bgn_de":      params.BeginDate,
		"end_de":      params.EndDate,
		"detail_type": shard.Category,
		"page_size":   shard.PageSize,
		"max":         e.maxResults,
	}
	var cached []dart.Disclosure
	if e.store != nil && e.store.Get("dart_search", cacheParams, &cached) {
		fmt.Printf("[Cache] search shard %s..%s served from cache (%d rows)\n", params.BeginDate, params.EndDate, len(cached))
		return cached, nil
	}

	var collected []dart.Disclosure
	for pageNo := 1; ; pageNo++ {
		params.PageNo = pageNo
		page, err := e.gateway.Search(ctx, params)
		if err != nil {
			if fault.KindOf(err) == fault.UpstreamEmpty {
				break
			}
			return nil, err
		}
		collected = append(collected, page.List...)
		if pageNo >= page.TotalPage || len(collected) >= e.maxResults {
			break
		}
	}

	if e.store != nil && (len(collected) > 0 || e.cacheEmpty) {
		if err := e.store.Set("dart_search", cacheParams, collected); err != nil {
			fmt.Printf("[WARNING] failed to cache search shard: %v\n", err)
		}
	}
	return collected, nil
}

// dedupe merges shard rows keyed by receipt number. Rows without one
// fall back to a composite key so they can still collapse across
// shards.
func dedupe(rows [][]dart.Disclosure) []dart.Disclosure {
	seen := map[string]bool{}
	var out []dart.Disclosure
	for _, shard := range rows {
		for _, d := range shard {
			key := d.ReceiptNo
			if key == "" {
				key = strings.Join([]string{d.CorpName, d.ReportName, d.ReceiptDate}, "|")
				fmt.Printf("[WARNING] disclosure without receipt number, keyed as %q\n", key)
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, d)
		}
	}
	return out
}
