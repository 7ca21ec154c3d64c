package sufficiency

import (
	"context"
	"fmt"
	"strings"

	"dart_deepsearch/pkg/core/fault"
	"dart_deepsearch/pkg/core/fetch"
	"dart_deepsearch/pkg/core/llm"
	"dart_deepsearch/pkg/core/prompt"
	"dart_deepsearch/pkg/core/utils"
)

// heuristicMinDocs is the document count the heuristic verdict calls
// sufficient when no model is available.
const heuristicMinDocs = 3

// Result is the verdict on whether the gathered documents can answer
// the user's question.
type Result struct {
	IsSufficient   bool     `json:"is_sufficient"`
	Confidence     float64  `json:"confidence_score"`
	MissingAspects []string `json:"missing_aspects,omitempty"`
	Suggestions    []string `json:"recommendations,omitempty"`
	Reason         string   `json:"summary,omitempty"`
	FromLLM        bool     `json:"-"`
}

// Checker judges result sufficiency, model-first with a count heuristic
// as fallback.
type Checker struct {
	llm *llm.Manager
}

func New(manager *llm.Manager) *Checker {
	return &Checker{llm: manager}
}

// Check never fails; an unusable model answer degrades to the
// heuristic.
func (c *Checker) Check(ctx context.Context, rawQuery string, docs []fetch.ProcessedDocument) *Result {
	if c.llm.Available() {
		if result, err := c.checkWithLLM(ctx, rawQuery, docs); err == nil {
			result.FromLLM = true
			return result
		} else {
			fmt.Printf("[WARNING] sufficiency check failed, using heuristic: %v\n", err)
		}
	}
	return heuristic(docs)
}

func (c *Checker) checkWithLLM(ctx context.Context, rawQuery string, docs []fetch.ProcessedDocument) (*Result, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "질문: %s\n\n수집된 공시 %d건:\n", rawQuery, len(docs))
	for i, doc := range docs {
		if i == 20 {
			fmt.Fprintf(&b, "... 외 %d건\n", len(docs)-20)
			break
		}
		fmt.Fprintf(&b, "- %s | %s | %s | source=%s\n", doc.CorpName, doc.ReportName, doc.ReceiptDate, doc.Source)
	}

	raw, err := c.llm.GenerateJSON(ctx, b.String(), prompt.DeepSearchSystemPrompt(prompt.DeepSearchSufficiency))
	if err != nil {
		return nil, err
	}

	var result Result
	if _, err := utils.SmartParse(extractJSONObject(raw), &result); err != nil {
		return nil, fault.Wrap(fault.LLMMalformed, err, "failed to parse sufficiency verdict")
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	return &result, nil
}

// heuristic calls the result sufficient when at least three documents
// came back, with confidence growing in the count.
func heuristic(docs []fetch.ProcessedDocument) *Result {
	confidence := float64(len(docs)) / 10
	if confidence > 1 {
		confidence = 1
	}

	result := &Result{
		IsSufficient: len(docs) >= heuristicMinDocs,
		Confidence:   confidence,
	}
	if !result.IsSufficient {
		result.Reason = fmt.Sprintf("수집된 공시가 %d건으로 충분하지 않습니다", len(docs))
		result.Suggestions = []string{"검색 기간을 넓혀 보세요", "검색어를 더 일반적인 표현으로 바꿔 보세요"}
	}
	return result
}

func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
