package query

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"dart_deepsearch/pkg/core/fault"
	"dart_deepsearch/pkg/core/llm"
	"dart_deepsearch/pkg/core/prompt"
	"dart_deepsearch/pkg/core/utils"
)

// Parser extracts structured entities from a natural-language query,
// LLM-first with a deterministic fallback. Parse always succeeds: when
// the model is absent or its output cannot be read, the fallback
// extractor supplies the result.
type Parser struct {
	llm *llm.Manager
}

func NewParser(manager *llm.Manager) *Parser {
	return &Parser{llm: manager}
}

func (p *Parser) Parse(ctx context.Context, rawQuery string) Extraction {
	if p.llm.Available() {
		if ex, err := p.parseWithLLM(ctx, rawQuery); err == nil {
			ex.FromLLM = true
			return ex
		} else {
			fmt.Printf("[WARNING] query parser LLM failed, using fallback extractor: %v\n", err)
		}
	}
	return fallbackExtract(rawQuery)
}

const parserFewShot = `Examples:
Query: 삼성전자 2024년 1분기 실적 공시
{"companies":[{"text":"삼성전자","type":"company_name"}],"doc_types":["실적"],"dates":[{"text":"2024년","type":"specific_year","year":2024},{"text":"1분기","type":"quarter","quarter":1}],"keywords":["실적"]}
Query: 최근 3개월 상장사 합병 공시, 합병 비율 포함
{"companies":[],"doc_types":["합병"],"dates":[{"text":"최근 3개월","type":"relative_window","months":3}],"keywords":["합병","합병비율"]}
Query: 005930 배당 공시
{"companies":[{"text":"005930","type":"stock_code"}],"doc_types":["배당"],"dates":[],"keywords":["배당"]}

Query: `

func (p *Parser) parseWithLLM(ctx context.Context, rawQuery string) (Extraction, error) {
	raw, err := p.llm.GenerateJSON(ctx, parserFewShot+rawQuery,
		prompt.DeepSearchSystemPrompt(prompt.DeepSearchQueryParser))
	if err != nil {
		return Extraction{}, err
	}

	var ex Extraction
	if _, err := utils.SmartParse(extractJSONObject(raw), &ex); err != nil {
		return Extraction{}, fault.Wrap(fault.LLMMalformed, err, "failed to parse extractor output")
	}

	// Normalize: 6-digit company mentions are stock codes whatever the
	// model labeled them.
	for i, ref := range ex.Companies {
		if stockCodeToken.MatchString(strings.TrimSpace(ref.Text)) {
			ex.Companies[i].Type = "stock_code"
			ex.Companies[i].Text = strings.TrimSpace(ref.Text)
		}
	}
	return ex, nil
}

var (
	stockCodeToken = regexp.MustCompile(`^\d{6}$`)
	stockCodeScan  = regexp.MustCompile(`\b(\d{6})\b`)

	// Korean corporate-form suffixes that signal a company name token.
	corpSuffixPattern = regexp.MustCompile(`[가-힣A-Za-z0-9&]+(전자|전기|전지|화학|중공업|건설|제약|바이오|홀딩스|지주|증권|카드|은행|금융|생명|화재|해운|항공|통신|모비스|제강|에너지|솔루션|머티리얼즈)`)
)

// knownCompanies short-circuits the fallback for the names users type
// most; everything else rides on the suffix patterns.
var knownCompanies = []string{
	"삼성전자", "SK하이닉스", "LG에너지솔루션", "현대자동차", "현대차", "기아",
	"POSCO홀딩스", "포스코", "NAVER", "네이버", "카카오", "셀트리온",
	"삼성바이오로직스", "LG화학", "삼성SDI", "KB금융", "신한지주", "하나금융지주",
	"삼성물산", "한화에어로스페이스", "HD현대중공업", "두산에너빌리티",
	"Samsung Electronics", "Samsung", "Hyundai", "Kakao", "Naver",
}

// domainKeywords are the financial terms worth keeping as keywords.
var domainKeywords = []string{
	"매출", "영업이익", "순이익", "배당", "유상증자", "무상증자", "감자", "인수합병",
	"M&A", "합병", "분할", "실적", "재무제표", "자산", "부채", "자본", "자기주식",
	"스톡옵션", "주식매수선택권", "전환사채", "신주인수권부사채", "지분", "대량보유",
	"공개매수", "상장", "공모", "merger", "dividend", "stock option", "stock-option",
}

// fallbackExtract is the deterministic extractor: stock codes, known
// enterprise names, corporate suffix patterns, date keywords, doc-type
// keywords, and domain keywords.
func fallbackExtract(rawQuery string) Extraction {
	ex := Extraction{}
	seenCompany := map[string]bool{}

	for _, m := range stockCodeScan.FindAllString(rawQuery, -1) {
		if !seenCompany[m] {
			seenCompany[m] = true
			ex.Companies = append(ex.Companies, CompanyRef{Text: m, Type: "stock_code"})
		}
	}

	lower := strings.ToLower(rawQuery)
	for _, name := range knownCompanies {
		if strings.Contains(lower, strings.ToLower(name)) && !seenCompany[name] {
			seenCompany[name] = true
			ex.Companies = append(ex.Companies, CompanyRef{Text: name, Type: "company_name"})
		}
	}
	for _, m := range corpSuffixPattern.FindAllString(rawQuery, -1) {
		covered := false
		for existing := range seenCompany {
			if strings.Contains(existing, m) || strings.Contains(m, existing) {
				covered = true
				break
			}
		}
		if !covered {
			seenCompany[m] = true
			ex.Companies = append(ex.Companies, CompanyRef{Text: m, Type: "company_name"})
		}
	}

	for code := range categoryCatalog {
		for _, keyword := range categoryCatalog[code].keywords {
			if strings.Contains(lower, strings.ToLower(keyword)) {
				ex.DocTypes = appendUnique(ex.DocTypes, keyword)
			}
		}
	}

	ex.Dates = ExtractDateExprs(rawQuery)

	for _, keyword := range domainKeywords {
		if strings.Contains(lower, strings.ToLower(keyword)) {
			ex.Keywords = appendUnique(ex.Keywords, keyword)
		}
	}
	return ex
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}

// extractJSONObject pulls the first JSON object out of a response that
// may be wrapped in prose or a fenced block.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
