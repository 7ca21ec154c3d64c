package filter

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"dart_deepsearch/pkg/core/dart"
	"dart_deepsearch/pkg/core/fault"
	"dart_deepsearch/pkg/core/llm"
	"dart_deepsearch/pkg/core/prompt"
	"dart_deepsearch/pkg/core/utils"
)

const (
	// batchSize bounds how many rows one classifier call sees.
	batchSize = 100

	// fallbackKeep is how many newest rows survive when the classifier
	// is unavailable or unreadable.
	fallbackKeep = 30

	// minimumKeep guards against an over-aggressive classifier that
	// throws everything away.
	minimumKeep = 5
)

// Filter ranks search rows by relevance to the user's question. The
// classifier sees compact per-row summaries in batches; its answer is a
// list of indices to keep. Row order is never changed, only thinned.
type Filter struct {
	llm *llm.Manager
}

func New(manager *llm.Manager) *Filter {
	return &Filter{llm: manager}
}

// filterDecision is the classifier's response shape.
type filterDecision struct {
	RelevantIndices []int  `json:"relevant_indices"`
	Reason          string `json:"reason"`
}

// Apply returns the subsequence of rows the classifier considers
// relevant to the query. Batches are processed sequentially so index
// spaces stay small and unambiguous.
func (f *Filter) Apply(ctx context.Context, rawQuery string, rows []dart.Disclosure) []dart.Disclosure {
	if len(rows) == 0 {
		return rows
	}
	if !f.llm.Available() {
		return fallbackTrim(rows)
	}

	var kept []dart.Disclosure
	failed := false
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		indices, err := f.filterBatch(ctx, rawQuery, batch)
		if err != nil {
			fmt.Printf("[WARNING] relevance filter batch %d failed: %v\n", start/batchSize+1, err)
			failed = true
			break
		}
		// The classifier's ordering is not trusted: indices apply
		// ascending and at most once, so the output stays a
		// subsequence of the input.
		sort.Ints(indices)
		prev := -1
		for _, idx := range indices {
			if idx < 0 || idx >= len(batch) || idx == prev {
				continue
			}
			prev = idx
			kept = append(kept, batch[idx])
		}
	}
	if failed {
		return fallbackTrim(rows)
	}

	if len(kept) == 0 {
		fmt.Printf("[WARNING] relevance filter dropped every row, keeping the %d newest\n", minimumKeep)
		if len(rows) > minimumKeep {
			return rows[:minimumKeep]
		}
		return rows
	}
	return kept
}

func (f *Filter) filterBatch(ctx context.Context, rawQuery string, batch []dart.Disclosure) ([]int, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nDisclosures:\n", rawQuery)
	for i, row := range batch {
		fmt.Fprintf(&b, "[%d] %s | %s | %s\n", i, row.ReportName, row.CorpName, row.ReceiptDate)
	}

	raw, err := f.llm.GenerateJSON(ctx, b.String(), prompt.DeepSearchSystemPrompt(prompt.DeepSearchDocumentFilter))
	if err != nil {
		return nil, err
	}

	indices, err := parseIndices(raw)
	if err != nil {
		return nil, err
	}
	return indices, nil
}

var (
	fencedBlockPattern = regexp.MustCompile("```(?:json)?\\s*((?s:.+?))```")
	indicesPattern     = regexp.MustCompile(`"relevant_indices"\s*:\s*\[([^\]]*)\]`)
	integerPattern     = regexp.MustCompile(`\d+`)
)

// parseIndices reads the classifier answer with progressively looser
// strategies: the JSON object as-is, then the first fenced block, then
// the relevant_indices array by pattern, then any bare integers.
func parseIndices(raw string) ([]int, error) {
	var decision filterDecision
	if _, err := utils.SmartParse(raw, &decision); err == nil && decision.RelevantIndices != nil {
		return decision.RelevantIndices, nil
	}

	if m := fencedBlockPattern.FindStringSubmatch(raw); m != nil {
		if _, err := utils.SmartParse(m[1], &decision); err == nil && decision.RelevantIndices != nil {
			return decision.RelevantIndices, nil
		}
	}

	if m := indicesPattern.FindStringSubmatch(raw); m != nil {
		return scanIntegers(m[1]), nil
	}

	if found := scanIntegers(raw); len(found) > 0 {
		return found, nil
	}
	return nil, fault.New(fault.LLMMalformed, "no indices recognized in classifier output")
}

func scanIntegers(s string) []int {
	var out []int
	for _, m := range integerPattern.FindAllString(s, -1) {
		if n, err := strconv.Atoi(m); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// fallbackTrim keeps the newest rows when no classifier verdict is
// available. Rows arrive sorted newest first.
func fallbackTrim(rows []dart.Disclosure) []dart.Disclosure {
	if len(rows) > fallbackKeep {
		return rows[:fallbackKeep]
	}
	return rows
}
