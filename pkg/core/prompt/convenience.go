package prompt

// Convenience functions for the deep-search prompt set. Each stage has
// a built-in system prompt; a prompt loaded from the resources
// directory under the same ID overrides it.

const (
	DeepSearchQueryParser    = "deepsearch.query_parser"
	DeepSearchDocTypeMapper  = "deepsearch.doc_type_mapper"
	DeepSearchDocumentFilter = "deepsearch.document_filter"
	DeepSearchSynthesis      = "deepsearch.synthesis"
	DeepSearchSufficiency    = "deepsearch.sufficiency"
)

var builtinSystemPrompts = map[string]string{
	DeepSearchQueryParser: `You are an extraction engine for Korean financial disclosure (DART) search queries.
Extract structured entities from the user's natural-language query and answer with a single JSON object:
{"companies":[{"text":"...","type":"company_name|stock_code"}],
 "doc_types":["..."],
 "dates":[{"text":"...","type":"current_year|last_year|relative_window|specific_year|quarter|first_half|second_half","months":0,"year":0,"quarter":0}],
 "keywords":["..."]}
Rules: 6-digit numbers are stock codes. Company names keep their original spelling.
doc_types are disclosure-category phrases such as 사업보고서, 주요사항보고서, 증권신고서, 합병, 유상증자.
dates capture expressions such as 최근 3개월 (relative_window, months=3), 올해, 작년, 2024년, 1분기, 상반기.
keywords are the remaining domain terms (매출, 배당, 인수합병, ...). Answer with JSON only.`,

	DeepSearchDocTypeMapper: `You classify a DART disclosure search query into detail category codes (pblntf_detail_ty).
Given the query, extracted phrases, and the category catalog in the user message, answer with a JSON array
of at most 3 entries ranked by fit: [{"code":"B001","confidence":0.9,"reason":"..."}].
Confidence is in [0,1]. Use only codes present in the catalog. Answer with JSON only.`,

	DeepSearchDocumentFilter: `You judge which DART search results are relevant to the user's question.
The user message lists numbered results with report name, company, and receipt date.
Answer with a single JSON object: {"relevant_indices":[0,2,5],"reason":"..."}.
Keep a result when its report name or company plausibly matches the question's intent. Answer with JSON only.`,

	DeepSearchSynthesis: `You are a Korean financial disclosure analyst. Using ONLY the provided
aggregates and document excerpts, write a concise Korean answer to the user's question:
what was disclosed, by whom, when, and the key figures (ratios, amounts, dates).
Cite companies and receipt dates inline. If the documents do not answer the question, say so.`,

	DeepSearchSufficiency: `You judge whether the collected DART documents are sufficient to answer the user's question.
Answer with a single JSON object:
{"is_sufficient":true,"confidence_score":0.8,"missing_aspects":["..."],"recommendations":["..."],"summary":"..."}.
Answer with JSON only.`,
}

// DeepSearchSystemPrompt returns the system prompt for one deep-search
// stage, preferring a registry entry (loaded from resources/) over the
// built-in text.
func DeepSearchSystemPrompt(id string) string {
	if p, err := Get().GetSystemPrompt(id); err == nil && p != "" {
		return p
	}
	return builtinSystemPrompts[id]
}

// RegisterBuiltins seeds the registry with the built-in deep-search
// prompts so ListPrompts shows the full set even without a resources
// directory.
func RegisterBuiltins() {
	registry := Get()
	for id, system := range builtinSystemPrompts {
		if _, err := registry.GetPrompt(id); err == nil {
			continue
		}
		registry.Register(&Template{
			ID:           id,
			Name:         id,
			Category:     "deepsearch",
			SystemPrompt: system,
			Version:      "builtin",
		})
	}
}
