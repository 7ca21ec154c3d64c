package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dart_deepsearch/pkg/core/company"
	"dart_deepsearch/pkg/core/dart"
)

// maxShardDays is the widest window one upstream search call may
// cover when no company is fixed.
const maxShardDays = 90

// Expander turns a raw query into the canonical search plan: parse,
// resolve companies, bound the date range, pick a category, and emit
// shards.
type Expander struct {
	parser    *Parser
	validator *company.Validator
	mapper    *Mapper
	pageSize  int

	// now is injectable so range arithmetic is testable.
	now func() time.Time
}

func NewExpander(parser *Parser, validator *company.Validator, mapper *Mapper) *Expander {
	return &Expander{
		parser:    parser,
		validator: validator,
		mapper:    mapper,
		pageSize:  100,
		now:       time.Now,
	}
}

// SetNow overrides the clock, used by tests.
func (e *Expander) SetNow(now func() time.Time) { e.now = now }

// Expand builds the Query Plan for a raw query. It always returns a
// plan; an unresolvable query yields one whose Empty() is true.
func (e *Expander) Expand(ctx context.Context, rawQuery string) (*Plan, error) {
	if strings.TrimSpace(rawQuery) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	ex := e.parser.Parse(ctx, rawQuery)
	fmt.Printf("[Expander] extracted: %d companies, %d doc-types, %d dates, %d keywords (llm=%v)\n",
		len(ex.Companies), len(ex.DocTypes), len(ex.Dates), len(ex.Keywords), ex.FromLLM)

	plan := &Plan{
		Query:          rawQuery,
		DocTypePhrases: ex.DocTypes,
		Keywords:       ex.Keywords,
		PageSize:       e.pageSize,
	}

	if len(ex.Companies) > 0 {
		// The registry download is deferred to the first query that
		// actually mentions a company; Load is a no-op afterwards.
		if err := e.validator.Load(ctx); err != nil {
			return nil, fmt.Errorf("failed to prepare company registry: %w", err)
		}
	}
	e.resolveCompanies(plan, ex)
	plan.DateRange = ComputeRange(ex.Dates, e.now())

	candidates := e.mapper.Map(ctx, rawQuery, ex)
	plan.CategoryCandidates = candidates
	if len(candidates) > 0 && candidates[0].Confidence >= 0.5 {
		plan.Category = candidates[0].Code
		plan.CategoryConfidence = candidates[0].Confidence
	}

	e.refineSubTypes(plan, rawQuery)

	shards := BuildShards(plan)
	plan.Parallel = len(shards) > 1
	return plan, nil
}

// resolveCompanies maps each extracted mention to a canonical corp
// code: stock codes resolve directly, names go through fuzzy matching.
// Ambiguous matches flip needs_confirmation instead of guessing.
func (e *Expander) resolveCompanies(plan *Plan, ex Extraction) {
	seen := map[string]bool{}
	for _, ref := range ex.Companies {
		text := strings.TrimSpace(ref.Text)
		if text == "" {
			continue
		}

		if ref.Type == "stock_code" || stockCodeToken.MatchString(text) {
			if c, ok := e.validator.ByStockCode(text); ok && !seen[c.CorpCode] {
				seen[c.CorpCode] = true
				plan.Companies = append(plan.Companies, ResolvedCompany{Name: c.CorpName, CorpCode: c.CorpCode})
			}
			continue
		}

		match := e.validator.Find(text, company.DefaultThreshold)
		switch match.State {
		case company.MatchExact, company.MatchFuzzy:
			if !seen[match.Best.CorpCode] {
				seen[match.Best.CorpCode] = true
				plan.Companies = append(plan.Companies, ResolvedCompany{Name: match.Best.CorpName, CorpCode: match.Best.CorpCode})
			}
		case company.MatchAmbiguous:
			plan.Ambiguous = append(plan.Ambiguous, match)
			plan.NeedsConfirmation = true
		default:
			fmt.Printf("[Expander] company %q not found in registry\n", text)
		}
	}
}

// refineSubTypes records the detail sub-types the query names, which
// narrows the fetcher's structured calls.
func (e *Expander) refineSubTypes(plan *Plan, rawQuery string) {
	for _, name := range dart.MajorEventTypes {
		if strings.Contains(rawQuery, name) {
			plan.MajorEventTypes = append(plan.MajorEventTypes, name)
		}
	}
	for _, name := range dart.SecuritiesTypes {
		if strings.Contains(rawQuery, name) {
			plan.SecuritiesTypes = append(plan.SecuritiesTypes, name)
		}
	}
	for _, name := range dart.BusinessReportTypes {
		if strings.Contains(rawQuery, name) {
			plan.BusinessReportTypes = append(plan.BusinessReportTypes, name)
		}
	}
}

// BuildShards expands a plan into upstream search calls. With resolved
// companies there is one shard per company over the whole range. With
// no company and a span above 90 days the range is tiled newest to
// oldest into shards of at most 90 days, without overlap or gap.
func BuildShards(plan *Plan) []Shard {
	r := plan.DateRange
	if len(plan.Companies) > 0 {
		shards := make([]Shard, 0, len(plan.Companies))
		for _, c := range plan.Companies {
			shards = append(shards, Shard{
				CorpCode: c.CorpCode,
				Start:    r.Start,
				End:      r.End,
				Category: plan.Category,
				PageSize: plan.PageSize,
			})
		}
		return shards
	}

	if r.Days() <= maxShardDays {
		return []Shard{{Start: r.Start, End: r.End, Category: plan.Category, PageSize: plan.PageSize}}
	}

	var shards []Shard
	currentEnd := r.End
	for !currentEnd.Before(r.Start) {
		currentStart := currentEnd.AddDate(0, 0, -(maxShardDays - 1))
		if currentStart.Before(r.Start) {
			currentStart = r.Start
		}
		shards = append(shards, Shard{
			Start:    currentStart,
			End:      currentEnd,
			Category: plan.Category,
			PageSize: plan.PageSize,
		})
		currentEnd = currentStart.AddDate(0, 0, -1)
	}
	return shards
}
