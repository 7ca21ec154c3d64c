package query

import (
	"time"

	"dart_deepsearch/pkg/core/company"
)

// CompanyRef is one company mention extracted from the query text.
type CompanyRef struct {
	Text string `json:"text"`
	Type string `json:"type"` // company_name | stock_code
}

// DateExpr is one date expression extracted from the query text. The
// attributes carry the parsed payload for each expression type.
type DateExpr struct {
	Text    string `json:"text"`
	Type    string `json:"type"` // current_year | last_year | relative_window | specific_year | quarter | first_half | second_half
	Months  int    `json:"months,omitempty"`
	Days    int    `json:"days,omitempty"`
	Year    int    `json:"year,omitempty"`
	Quarter int    `json:"quarter,omitempty"`
}

// Extraction is the raw parser output before resolution.
type Extraction struct {
	Companies []CompanyRef `json:"companies"`
	DocTypes  []string     `json:"doc_types"`
	Dates     []DateExpr   `json:"dates"`
	Keywords  []string     `json:"keywords"`

	// FromLLM records whether the primary extractor produced this or
	// the deterministic fallback did.
	FromLLM bool `json:"-"`
}

// ResolvedCompany is a company mention resolved to its canonical code.
type ResolvedCompany struct {
	Name     string `json:"name"`
	CorpCode string `json:"corp_code"`
}

// DateRange is an inclusive calendar-day range.
type DateRange struct {
	Start time.Time `json:"-"`
	End   time.Time `json:"-"`
}

// Days returns the number of calendar days the range covers.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

func (r DateRange) StartISO() string { return FormatDate(r.Start) }
func (r DateRange) EndISO() string   { return FormatDate(r.End) }

// CategoryScore is one ranked document-category candidate.
type CategoryScore struct {
	Code       string  `json:"code"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

// Plan is the canonical search plan the executor runs.
type Plan struct {
	Query     string            `json:"query"`
	Companies []ResolvedCompany `json:"companies"`
	Ambiguous []company.Match   `json:"ambiguous_companies,omitempty"`

	DateRange DateRange `json:"-"`

	Category           string          `json:"category,omitempty"`
	CategoryConfidence float64         `json:"category_confidence,omitempty"`
	CategoryCandidates []CategoryScore `json:"category_candidates,omitempty"`
	DocTypePhrases     []string        `json:"doc_type_phrases,omitempty"`

	// Refined sub-type lists for the detail endpoints, populated when
	// the query names them.
	MajorEventTypes     []string `json:"major_event_types,omitempty"`
	SecuritiesTypes     []string `json:"securities_types,omitempty"`
	BusinessReportTypes []string `json:"business_report_types,omitempty"`

	Keywords          []string `json:"keywords,omitempty"`
	NeedsConfirmation bool     `json:"needs_confirmation"`
	Parallel          bool     `json:"parallel"`
	PageSize          int      `json:"page_size"`
}

// Empty reports whether expansion found nothing to search by: no
// resolved or ambiguous companies, no category signal, no keywords.
func (p *Plan) Empty() bool {
	return len(p.Companies) == 0 &&
		len(p.Ambiguous) == 0 &&
		p.Category == "" &&
		len(p.DocTypePhrases) == 0 &&
		len(p.Keywords) == 0
}

// Shard is one upstream search call of the plan.
type Shard struct {
	CorpCode string    `json:"corp_code,omitempty"`
	Start    time.Time `json:"-"`
	End      time.Time `json:"-"`
	Category string    `json:"category,omitempty"`
	PageSize int       `json:"page_size"`
}
