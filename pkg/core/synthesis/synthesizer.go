package synthesis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"dart_deepsearch/pkg/core/fetch"
	"dart_deepsearch/pkg/core/llm"
	"dart_deepsearch/pkg/core/prompt"
	"dart_deepsearch/pkg/core/utils"
)

const (
	// promptDocLimit is how many documents the analyst prompt sees.
	promptDocLimit = 5
	// promptDocChars trims each document's contribution to the prompt.
	promptDocChars = 2000

	timelineDates    = 10
	timelineEvents   = 3
	keyFindingsLimit = 5
)

// Finding is one highlighted disclosure.
type Finding struct {
	Date       string `json:"date"`
	CorpName   string `json:"corp_name"`
	ReportName string `json:"report_name"`
	Source     string `json:"source"`
	ViewerURL  string `json:"viewer_url,omitempty"`
}

// TimelineEntry groups the disclosures of one day.
type TimelineEntry struct {
	Date   string   `json:"date"`
	Events []string `json:"events"`
}

// Result is the synthesized answer for one search.
type Result struct {
	Summary        string          `json:"summary"`
	FromLLM        bool            `json:"summary_from_llm"`
	TotalDocuments int             `json:"total_documents"`
	Companies      []string        `json:"companies"`
	EarliestDate   string          `json:"earliest_date,omitempty"`
	LatestDate     string          `json:"latest_date,omitempty"`
	ByReportType   map[string]int  `json:"by_report_type"`
	KeywordHits    map[string]int  `json:"keyword_hits,omitempty"`
	Timeline       []TimelineEntry `json:"timeline"`
	KeyFindings    []Finding       `json:"key_findings"`
}

// Synthesizer folds processed documents into aggregates and an analyst
// summary. The summary comes from the model when one is configured and
// from a deterministic template otherwise.
type Synthesizer struct {
	llm *llm.Manager
}

func New(manager *llm.Manager) *Synthesizer {
	return &Synthesizer{llm: manager}
}

// Build computes the aggregates and writes the summary. It never
// fails: a broken model call degrades to the template summary.
func (s *Synthesizer) Build(ctx context.Context, rawQuery string, keywords []string, docs []fetch.ProcessedDocument) *Result {
	result := &Result{
		TotalDocuments: len(docs),
		ByReportType:   map[string]int{},
	}

	companies := map[string]bool{}
	byDate := map[string][]string{}
	for _, doc := range docs {
		if doc.CorpName != "" {
			companies[doc.CorpName] = true
		}
		reportKey := reportGroup(doc.ReportName)
		result.ByReportType[reportKey]++

		date := formatReceiptDate(doc.ReceiptDate)
		if date != "" {
			if result.EarliestDate == "" || date < result.EarliestDate {
				result.EarliestDate = date
			}
			if date > result.LatestDate {
				result.LatestDate = date
			}
			byDate[date] = append(byDate[date], fmt.Sprintf("%s: %s", doc.CorpName, doc.ReportName))
		}
	}

	for name := range companies {
		result.Companies = append(result.Companies, name)
	}
	sort.Strings(result.Companies)

	result.KeywordHits = countKeywordHits(keywords, docs)
	result.Timeline = buildTimeline(byDate)
	result.KeyFindings = pickFindings(docs)

	if summary, err := s.summarize(ctx, rawQuery, result, docs); err == nil {
		result.Summary = summary
		result.FromLLM = true
	} else {
		if s.llm.Available() {
			fmt.Printf("[WARNING] summary generation failed, using template: %v\n", err)
		}
		result.Summary = templateSummary(rawQuery, result)
	}
	return result
}

func (s *Synthesizer) summarize(ctx context.Context, rawQuery string, result *Result, docs []fetch.ProcessedDocument) (string, error) {
	if !s.llm.Available() {
		return "", fmt.Errorf("no model configured")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "질문: %s\n\n공시 수: %d건, 기업: %s\n\n", rawQuery, result.TotalDocuments, strings.Join(result.Companies, ", "))
	count := 0
	for _, doc := range docs {
		if doc.Content == "" {
			continue
		}
		count++
		if count > promptDocLimit {
			break
		}
		text := doc.Content
		if runes := []rune(text); len(runes) > promptDocChars {
			text = string(runes[:promptDocChars])
		}
		fmt.Fprintf(&b, "--- [%d] %s | %s | %s ---\n%s\n\n", count, doc.CorpName, doc.ReportName, formatReceiptDate(doc.ReceiptDate), text)
	}
	if count == 0 {
		return "", fmt.Errorf("no document content to summarize")
	}

	raw, err := s.llm.Generate(ctx, b.String(), prompt.DeepSearchSystemPrompt(prompt.DeepSearchSynthesis))
	if err != nil {
		return "", err
	}
	// Models sometimes wrap the whole answer in a code fence.
	return utils.CleanMarkdown(raw), nil
}

// templateSummary is the deterministic fallback summary.
func templateSummary(rawQuery string, result *Result) string {
	if result.TotalDocuments == 0 {
		return fmt.Sprintf("'%s' 검색 결과 해당 기간에 공시가 없습니다.", rawQuery)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "'%s' 검색 결과 %d건의 공시를 찾았습니다.", rawQuery, result.TotalDocuments)
	if len(result.Companies) > 0 {
		names := result.Companies
		if len(names) > 5 {
			names = names[:5]
		}
		fmt.Fprintf(&b, " 관련 기업: %s.", strings.Join(names, ", "))
	}
	if result.EarliestDate != "" {
		fmt.Fprintf(&b, " 공시 기간: %s ~ %s.", result.EarliestDate, result.LatestDate)
	}

	type typeCount struct {
		name  string
		count int
	}
	var types []typeCount
	for name, count := range result.ByReportType {
		types = append(types, typeCount{name, count})
	}
	sort.Slice(types, func(i, j int) bool {
		if types[i].count != types[j].count {
			return types[i].count > types[j].count
		}
		return types[i].name < types[j].name
	})
	if len(types) > 0 {
		var parts []string
		for i, tc := range types {
			if i == 3 {
				break
			}
			parts = append(parts, fmt.Sprintf("%s %d건", tc.name, tc.count))
		}
		fmt.Fprintf(&b, " 주요 유형: %s.", strings.Join(parts, ", "))
	}
	return b.String()
}

// reportGroup collapses report name variants: the base name without the
// parenthesized qualifier.
func reportGroup(reportName string) string {
	name := strings.TrimSpace(reportName)
	if idx := strings.IndexAny(name, "(["); idx > 0 {
		name = strings.TrimSpace(name[:idx])
	}
	if name == "" {
		return "기타"
	}
	return name
}

func countKeywordHits(keywords []string, docs []fetch.ProcessedDocument) map[string]int {
	if len(keywords) == 0 {
		return nil
	}
	hits := map[string]int{}
	for _, keyword := range keywords {
		lower := strings.ToLower(keyword)
		for _, doc := range docs {
			if strings.Contains(strings.ToLower(doc.Content), lower) ||
				strings.Contains(strings.ToLower(doc.ReportName), lower) {
				hits[keyword]++
			}
		}
	}
	return hits
}

func buildTimeline(byDate map[string][]string) []TimelineEntry {
	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	if len(dates) > timelineDates {
		dates = dates[:timelineDates]
	}

	out := make([]TimelineEntry, 0, len(dates))
	for _, date := range dates {
		events := byDate[date]
		if len(events) > timelineEvents {
			events = append(events[:timelineEvents:timelineEvents],
				fmt.Sprintf("외 %d건", len(byDate[date])-timelineEvents))
		}
		out = append(out, TimelineEntry{Date: date, Events: events})
	}
	return out
}

// pickFindings highlights the newest documents, preferring those with
// recovered content over viewer-only rows.
func pickFindings(docs []fetch.ProcessedDocument) []Finding {
	ranked := make([]fetch.ProcessedDocument, len(docs))
	copy(ranked, docs)
	sort.SliceStable(ranked, func(i, j int) bool {
		iHas, jHas := ranked[i].Content != "", ranked[j].Content != ""
		if iHas != jHas {
			return iHas
		}
		return ranked[i].ReceiptDate > ranked[j].ReceiptDate
	})

	var out []Finding
	for _, doc := range ranked {
		if len(out) == keyFindingsLimit {
			break
		}
		out = append(out, Finding{
			Date:       formatReceiptDate(doc.ReceiptDate),
			CorpName:   doc.CorpName,
			ReportName: doc.ReportName,
			Source:     doc.Source,
			ViewerURL:  doc.ViewerURL,
		})
	}
	return out
}

// formatReceiptDate renders YYYYMMDD as YYYY-MM-DD, passing other
// shapes through unchanged.
func formatReceiptDate(s string) string {
	if len(s) == 8 {
		return s[:4] + "-" + s[4:6] + "-" + s[6:]
	}
	return s
}
