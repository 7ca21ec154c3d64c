package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"dart_deepsearch/pkg/core/dart"
	"dart_deepsearch/pkg/core/fault"
	"dart_deepsearch/pkg/core/llm"
	"dart_deepsearch/pkg/core/prompt"
	"dart_deepsearch/pkg/core/utils"
)

// categoryEntry holds the keyword hints and base priority for one
// detail category. Priorities bias frequently requested filing types
// when several categories match the same keyword.
type categoryEntry struct {
	keywords []string
	priority float64
}

// categoryCatalog folds the keyword tables of both mapper generations
// into one table; codes the engine cannot route structurally still
// appear so the classifier may pick them.
var categoryCatalog = map[string]categoryEntry{
	"A001": {keywords: []string{"사업보고서", "연간보고서", "annual report", "연차"}, priority: 1.1},
	"A002": {keywords: []string{"반기보고서", "반기", "semi-annual", "half-year"}, priority: 1.0},
	"A003": {keywords: []string{"분기보고서", "분기", "quarterly report"}, priority: 1.0},
	"B001": {keywords: []string{
		"주요사항보고서", "주요사항", "합병", "분할", "유상증자", "무상증자", "감자",
		"전환사채", "신주인수권부사채", "교환사채", "영업양수", "영업양도", "자산양수",
		"자산양도", "소송", "부도", "영업정지", "회생절차", "해산", "주식교환",
		"merger", "acquisition", "m&a", "인수합병", "cb발행", "bw발행",
	}, priority: 1.2},
	"B002": {keywords: []string{"주요경영사항", "경영사항신고"}, priority: 0.8},
	"C001": {keywords: []string{"증권신고서", "지분증권", "공모", "상장", "ipo", "유상증자공모"}, priority: 1.0},
	"C002": {keywords: []string{"채무증권", "회사채발행", "채권발행"}, priority: 0.9},
	"C004": {keywords: []string{"합병신고", "증권신고 합병"}, priority: 0.9},
	"D001": {keywords: []string{"대량보유", "5%룰", "5% 보고", "지분변동", "대량보유상황보고"}, priority: 1.0},
	"D002": {keywords: []string{"임원소유", "주요주주소유", "소유상황보고", "임원 주식", "내부자"}, priority: 0.9},
	"D004": {keywords: []string{"공개매수"}, priority: 0.9},
	"E001": {keywords: []string{"자기주식취득", "자기주식처분", "자사주", "자사주매입"}, priority: 1.0},
	"E004": {keywords: []string{"주식매수선택권", "스톡옵션", "stock option", "stock-option"}, priority: 1.0},
	"E006": {keywords: []string{"주주총회", "주총소집"}, priority: 0.9},
	"F001": {keywords: []string{"감사보고서", "감사의견", "audit report"}, priority: 1.0},
	"F002": {keywords: []string{"연결감사보고서"}, priority: 0.9},
	"I002": {keywords: []string{"공정공시"}, priority: 0.8},
	"J004": {keywords: []string{"기업집단", "대규모기업집단"}, priority: 0.8},
}

// Weights for where a keyword match occurred.
const (
	weightDocTypePhrase = 2.0
	weightRawQuery      = 1.0
	weightKeyword       = 0.5
)

// DefaultCategory is used when nothing in the query points anywhere.
const (
	DefaultCategory           = "B001"
	DefaultCategoryConfidence = 0.3
)

// Mapper resolves document-type phrases to DART detail category codes,
// LLM-first with a keyword scorer as fallback.
type Mapper struct {
	llm *llm.Manager
}

func NewMapper(manager *llm.Manager) *Mapper {
	return &Mapper{llm: manager}
}

// Map returns up to 3 ranked category candidates. It never returns an
// empty slice.
func (m *Mapper) Map(ctx context.Context, rawQuery string, ex Extraction) []CategoryScore {
	if m.llm.Available() {
		if scores, err := m.mapWithLLM(ctx, rawQuery, ex); err == nil && len(scores) > 0 {
			return scores
		} else if err != nil {
			fmt.Printf("[WARNING] doc-type classifier failed, using keyword scorer: %v\n", err)
		}
	}
	return m.mapWithKeywords(rawQuery, ex)
}

func (m *Mapper) mapWithLLM(ctx context.Context, rawQuery string, ex Extraction) ([]CategoryScore, error) {
	var catalog strings.Builder
	codes := make([]string, 0, len(categoryCatalog))
	for code := range categoryCatalog {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		entry := categoryCatalog[code]
		catalog.WriteString(fmt.Sprintf("%s (%s): %s\n", code, dart.DetailTypeName(code), strings.Join(entry.keywords, ", ")))
	}

	userPrompt := fmt.Sprintf("Query: %s\nExtracted doc-type phrases: %s\nExtracted keywords: %s\n\nCategory catalog:\n%s",
		rawQuery, strings.Join(ex.DocTypes, ", "), strings.Join(ex.Keywords, ", "), catalog.String())

	raw, err := m.llm.GenerateJSON(ctx, userPrompt, prompt.DeepSearchSystemPrompt(prompt.DeepSearchDocTypeMapper))
	if err != nil {
		return nil, err
	}

	var parsed []CategoryScore
	if _, err := utils.SmartParse(extractJSONArray(raw), &parsed); err != nil {
		return nil, fault.Wrap(fault.LLMMalformed, err, "failed to parse classifier output")
	}

	var out []CategoryScore
	for _, score := range parsed {
		code := strings.ToUpper(strings.TrimSpace(score.Code))
		if _, known := dart.DetailTypes[code]; !known {
			continue
		}
		if score.Confidence < 0 {
			score.Confidence = 0
		}
		if score.Confidence > 1 {
			score.Confidence = 1
		}
		score.Code = code
		out = append(out, score)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > 3 {
		out = out[:3]
	}
	return out, nil
}

// mapWithKeywords scores every catalog entry by where its keywords
// appear: doc-type phrases count double, raw query once, extracted
// keywords half. Scores are normalized to the top score.
func (m *Mapper) mapWithKeywords(rawQuery string, ex Extraction) []CategoryScore {
	lowerQuery := strings.ToLower(rawQuery)
	lowerDocTypes := strings.ToLower(strings.Join(ex.DocTypes, " "))
	lowerKeywords := strings.ToLower(strings.Join(ex.Keywords, " "))

	scores := map[string]float64{}
	for code, entry := range categoryCatalog {
		total := 0.0
		for _, keyword := range entry.keywords {
			k := strings.ToLower(keyword)
			if lowerDocTypes != "" && strings.Contains(lowerDocTypes, k) {
				total += weightDocTypePhrase * entry.priority
			}
			if strings.Contains(lowerQuery, k) {
				total += weightRawQuery * entry.priority
			}
			if lowerKeywords != "" && strings.Contains(lowerKeywords, k) {
				total += weightKeyword * entry.priority
			}
		}
		if total > 0 {
			scores[code] = total
		}
	}

	if len(scores) == 0 {
		return []CategoryScore{{Code: DefaultCategory, Confidence: DefaultCategoryConfidence, Reason: "default"}}
	}

	out := make([]CategoryScore, 0, len(scores))
	top := 0.0
	for _, score := range scores {
		if score > top {
			top = score
		}
	}
	for code, score := range scores {
		out = append(out, CategoryScore{Code: code, Confidence: score / top, Reason: "keyword"})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Code < out[j].Code
	})
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}

// extractJSONArray pulls the first JSON array out of a response that
// may be wrapped in prose or a fenced block.
func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
