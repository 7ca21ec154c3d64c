package fetch

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"dart_deepsearch/pkg/core/cache"
	"dart_deepsearch/pkg/core/content"
	"dart_deepsearch/pkg/core/dart"
	"dart_deepsearch/pkg/core/fault"
	"dart_deepsearch/pkg/core/query"
)

// Document sources, ordered from richest to poorest.
const (
	SourceStructured = "detailed_api"
	SourceOriginal   = "original_document"
	SourceDownloaded = "downloaded_file"
	SourceViewerOnly = "url_only"
)

// minBodyChars is the shortest cleaned body worth keeping; anything
// below it is usually a redirect stub or an empty shell document.
const minBodyChars = 1000

// defaultWorkers bounds concurrent downloads.
const defaultWorkers = 3

// Gateway is the slice of the DART client the fetcher needs.
type Gateway interface {
	DocumentBody(ctx context.Context, rceptNo string, includeAll bool) (string, error)
	ListAttachments(ctx context.Context, rceptNo, titleFilter string, mode dart.AttachmentMode) ([]dart.Attachment, error)
	MajorEvents(ctx context.Context, corpCode, eventType string, year int) ([]map[string]interface{}, error)
	SecuritiesRegistration(ctx context.Context, corpCode, secType string, year int) ([]map[string]interface{}, error)
	BusinessReport(ctx context.Context, corpCode, reportType string, year int, reportCode string) ([]map[string]interface{}, error)
	MajorShareholders(ctx context.Context, corpCode string) ([]map[string]interface{}, error)
	ExecutiveHoldings(ctx context.Context, corpCode string) ([]map[string]interface{}, error)
}

// ProcessedDocument is one disclosure with whatever content the fetch
// chain could recover for it.
type ProcessedDocument struct {
	ReceiptNo   string                   `json:"receipt_no"`
	CorpCode    string                   `json:"corp_code"`
	CorpName    string                   `json:"corp_name"`
	ReportName  string                   `json:"report_name"`
	ReceiptDate string                   `json:"receipt_date"`
	ReportType  string                   `json:"report_type,omitempty"`
	Source      string                   `json:"source"`
	Content     string                   `json:"content,omitempty"`
	Structured  []map[string]interface{} `json:"structured_data,omitempty"`
	ViewerURL   string                   `json:"viewer_url,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

// Fetcher recovers document content for filtered search rows. For each
// row it tries the structured detail endpoints first, then the original
// filing body, then the archive attachments, and finally degrades to a
// viewer link.
type Fetcher struct {
	gateway Gateway
	store   *cache.Cache
	cleaner *content.Cleaner
	workers int
}

func NewFetcher(gateway Gateway, store *cache.Cache, cleaner *content.Cleaner, workers int) *Fetcher {
	if cleaner == nil {
		cleaner = content.NewCleaner(0)
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Fetcher{gateway: gateway, store: store, cleaner: cleaner, workers: workers}
}

// FetchAll processes every row, at most workers downloads in flight.
// The output preserves input order. Per-row failures never fail the
// batch; they degrade the row's source.
func (f *Fetcher) FetchAll(ctx context.Context, plan *query.Plan, rows []dart.Disclosure) []ProcessedDocument {
	docs := make([]ProcessedDocument, len(rows))
	var wg sync.WaitGroup
	slots := make(chan struct{}, f.workers)

	for i := range rows {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			slots <- struct{}{}
			defer func() { <-slots }()
			docs[i] = f.fetchOne(ctx, plan, rows[i])
		}(i)
	}
	wg.Wait()
	return docs
}

func (f *Fetcher) fetchOne(ctx context.Context, plan *query.Plan, row dart.Disclosure) ProcessedDocument {
	doc := ProcessedDocument{
		ReceiptNo:   row.ReceiptNo,
		CorpCode:    row.CorpCode,
		CorpName:    row.CorpName,
		ReportName:  row.ReportName,
		ReceiptDate: row.ReceiptDate,
		ReportType:  plan.Category,
	}

	if row.ReceiptNo == "" {
		doc.Source = SourceViewerOnly
		doc.Error = "missing receipt number"
		return doc
	}
	doc.ViewerURL = dart.ViewerURL(row.ReceiptNo)

	cacheParams := map[string]interface{}{
		"receipt_no": row.ReceiptNo,
		"corp_code":  row.CorpCode,
		"category":   plan.Category,
		"fetch_mode": "default",
	}
	var cached ProcessedDocument
	if f.store != nil && f.store.Get("fetch_document", cacheParams, &cached) {
		return cached
	}

	f.resolve(ctx, plan, row, &doc)

	// Viewer-only rows are not cached: they represent a failure to
	// recover content, not the content itself.
	if f.store != nil && doc.Source != SourceViewerOnly {
		if err := f.store.Set("fetch_document", cacheParams, doc); err != nil {
			fmt.Printf("[WARNING] failed to cache document %s: %v\n", row.ReceiptNo, err)
		}
	}
	return doc
}

func (f *Fetcher) resolve(ctx context.Context, plan *query.Plan, row dart.Disclosure, doc *ProcessedDocument) {
	if structured := f.fetchStructured(ctx, plan, row); len(structured) > 0 {
		doc.Source = SourceStructured
		doc.Structured = structured
		doc.Content = renderStructured(structured)
		return
	}

	body, err := f.gateway.DocumentBody(ctx, row.ReceiptNo, false)
	if err != nil {
		if fault.KindOf(err) != fault.UpstreamEmpty {
			fmt.Printf("[WARNING] filing body %s unavailable: %v\n", row.ReceiptNo, err)
		}
	} else if cleaned := f.cleaner.Clean(body); usableBody(cleaned) {
		doc.Source = SourceOriginal
		doc.Content = cleaned
		return
	}

	if attachments, err := f.gateway.ListAttachments(ctx, row.ReceiptNo, "", dart.AttachmentModeDocs); err == nil {
		var parts []string
		for _, att := range attachments {
			if att.Content == "" {
				continue
			}
			if cleaned := f.cleaner.Clean(att.Content); strings.TrimSpace(cleaned) != "" {
				parts = append(parts, cleaned)
			}
		}
		if len(parts) > 0 {
			doc.Source = SourceDownloaded
			doc.Content = strings.Join(parts, "\n\n")
			return
		}
	}

	doc.Source = SourceViewerOnly
}

// structuredSection pairs a section label with its rows, keeping the
// call order stable for rendering.
type structuredSection struct {
	name string
	rows []map[string]interface{}
}

// fetchStructured routes the row's category family to the matching
// detail endpoints and keeps only rows belonging to this receipt
// number.
func (f *Fetcher) fetchStructured(ctx context.Context, plan *query.Plan, row dart.Disclosure) []map[string]interface{} {
	if plan.Category == "" || row.CorpCode == "" {
		return nil
	}

	year, ok := receiptYear(row)
	if !ok {
		return nil
	}

	var sections []structuredSection
	switch plan.Category[0] {
	case 'A':
		types := plan.BusinessReportTypes
		if len(types) == 0 {
			types = []string{"배당", "최대주주", "주식총수"}
		}
		for _, reportType := range types {
			rows, err := f.gateway.BusinessReport(ctx, row.CorpCode, reportType, year, reportCodeFor(plan.Category))
			if err == nil && len(rows) > 0 {
				sections = append(sections, structuredSection{name: reportType, rows: rows})
			}
		}
	case 'B':
		for _, eventType := range plan.MajorEventTypes {
			rows, err := f.gateway.MajorEvents(ctx, row.CorpCode, eventType, year)
			if err == nil {
				sections = append(sections, structuredSection{name: eventType, rows: rows})
			}
		}
	case 'C':
		for _, secType := range plan.SecuritiesTypes {
			rows, err := f.gateway.SecuritiesRegistration(ctx, row.CorpCode, secType, year)
			if err == nil {
				sections = append(sections, structuredSection{name: secType, rows: rows})
			}
		}
	case 'D':
		switch plan.Category {
		case "D001":
			if rows, err := f.gateway.MajorShareholders(ctx, row.CorpCode); err == nil {
				sections = append(sections, structuredSection{name: "대량보유 상황보고", rows: rows})
			}
		case "D002":
			if rows, err := f.gateway.ExecutiveHoldings(ctx, row.CorpCode); err == nil {
				sections = append(sections, structuredSection{name: "임원ㆍ주요주주 소유보고", rows: rows})
			}
		}
	}

	var out []map[string]interface{}
	for _, section := range sections {
		for _, r := range section.rows {
			if !belongsToReceipt(r, row.ReceiptNo) {
				continue
			}
			r["_section"] = section.name
			out = append(out, r)
		}
	}
	return out
}

// belongsToReceipt keeps only the detail rows of this filing. Detail
// endpoints return every filing of the period, so rows are matched on
// their receipt number when one is present.
func belongsToReceipt(row map[string]interface{}, rceptNo string) bool {
	for _, key := range []string{"rcept_no", "접수번호"} {
		if v, ok := row[key]; ok {
			return fmt.Sprintf("%v", v) == rceptNo
		}
	}
	// No receipt column on this endpoint; keep the row.
	return true
}

// receiptYear derives the filing year from the receipt number prefix,
// falling back to the receipt date.
func receiptYear(row dart.Disclosure) (int, bool) {
	candidates := []string{row.ReceiptNo, row.ReceiptDate}
	for _, s := range candidates {
		if len(s) < 4 {
			continue
		}
		if year, err := strconv.Atoi(s[:4]); err == nil && year >= 2000 && year <= 2030 {
			return year, true
		}
	}
	return 0, false
}

// reportCodeFor maps the periodic report category to its reprt_code.
func reportCodeFor(category string) string {
	switch category {
	case "A002":
		return "11012"
	case "A003":
		return "11013"
	default:
		return "11011"
	}
}

// renderStructured flattens detail rows into prompt-ready text, one
// section header per endpoint and one bullet per field.
func renderStructured(rows []map[string]interface{}) string {
	var b strings.Builder
	lastSection := ""
	for _, row := range rows {
		section, _ := row["_section"].(string)
		if section != lastSection {
			if lastSection != "" {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "=== %s ===\n", section)
			lastSection = section
		}

		keys := make([]string, 0, len(row))
		for key := range row {
			if key == "_section" || strings.HasPrefix(key, "_") {
				continue
			}
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			value := fmt.Sprintf("%v", row[key])
			if value == "" || value == "-" {
				continue
			}
			fmt.Fprintf(&b, "  • %s: %s\n", key, value)
		}
	}
	return strings.TrimSpace(b.String())
}

// usableBody reports whether a cleaned filing body carries real
// content rather than a redirect stub or a bare link.
func usableBody(cleaned string) bool {
	trimmed := strings.TrimSpace(cleaned)
	if len([]rune(trimmed)) < minBodyChars {
		return false
	}
	if strings.HasPrefix(trimmed, "http") && !strings.ContainsAny(trimmed, " \n\t") {
		return false
	}
	return true
}
