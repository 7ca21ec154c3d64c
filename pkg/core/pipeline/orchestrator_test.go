package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"dart_deepsearch/pkg/core/company"
	"dart_deepsearch/pkg/core/dart"
	"dart_deepsearch/pkg/core/fault"
	"dart_deepsearch/pkg/core/fetch"
	"dart_deepsearch/pkg/core/filter"
	"dart_deepsearch/pkg/core/query"
	"dart_deepsearch/pkg/core/search"
	"dart_deepsearch/pkg/core/store"
	"dart_deepsearch/pkg/core/sufficiency"
	"dart_deepsearch/pkg/core/synthesis"
)

// --- Mocks ---

type MockSearchGateway struct {
	SearchFunc func(ctx context.Context, p dart.SearchParams) (*dart.SearchPage, error)
}

func (m *MockSearchGateway) Search(ctx context.Context, p dart.SearchParams) (*dart.SearchPage, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, p)
	}
	return &dart.SearchPage{PageNo: 1, TotalPage: 1}, nil
}

type MockFetchGateway struct {
	DocumentBodyFunc func(ctx context.Context, rceptNo string, includeAll bool) (string, error)
}

func (m *MockFetchGateway) DocumentBody(ctx context.Context, rceptNo string, includeAll bool) (string, error) {
	if m.DocumentBodyFunc != nil {
		return m.DocumentBodyFunc(ctx, rceptNo, includeAll)
	}
	return "", fault.New(fault.UpstreamEmpty, "no body")
}

func (m *MockFetchGateway) ListAttachments(ctx context.Context, rceptNo, titleFilter string, mode dart.AttachmentMode) ([]dart.Attachment, error) {
	return nil, fault.New(fault.UpstreamEmpty, "no archive")
}

func (m *MockFetchGateway) MajorEvents(ctx context.Context, corpCode, eventType string, year int) ([]map[string]interface{}, error) {
	return nil, fault.New(fault.UpstreamEmpty, "no rows")
}

func (m *MockFetchGateway) SecuritiesRegistration(ctx context.Context, corpCode, secType string, year int) ([]map[string]interface{}, error) {
	return nil, fault.New(fault.UpstreamEmpty, "no rows")
}

func (m *MockFetchGateway) BusinessReport(ctx context.Context, corpCode, reportType string, year int, reportCode string) ([]map[string]interface{}, error) {
	return nil, fault.New(fault.UpstreamEmpty, "no rows")
}

func (m *MockFetchGateway) MajorShareholders(ctx context.Context, corpCode string) ([]map[string]interface{}, error) {
	return nil, fault.New(fault.UpstreamEmpty, "no rows")
}

func (m *MockFetchGateway) ExecutiveHoldings(ctx context.Context, corpCode string) ([]map[string]interface{}, error) {
	return nil, fault.New(fault.UpstreamEmpty, "no rows")
}

type MockHistory struct {
	mu      sync.Mutex
	records []store.SearchRecord
}

func (m *MockHistory) Save(ctx context.Context, record store.SearchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *MockHistory) Recent(ctx context.Context, limit int) ([]store.SearchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records, nil
}

// --- Helpers ---

func newTestOrchestrator(searchGw search.Gateway, fetchGw fetch.Gateway) *Orchestrator {
	validator := company.NewValidatorFromSnapshot([]dart.CorpCode{
		{Code: "00126380", Name: "삼성전자", StockCode: "005930"},
		{Code: "00164742", Name: "삼성전기", StockCode: "009150"},
	})
	expander := query.NewExpander(query.NewParser(nil), validator, query.NewMapper(nil))
	expander.SetNow(func() time.Time { return time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC) })

	return NewOrchestrator(
		expander,
		search.NewExecutor(searchGw, nil, 100),
		filter.New(nil),
		fetch.NewFetcher(fetchGw, nil, nil, 1),
		synthesis.New(nil),
		sufficiency.New(nil),
	)
}

func samplePage() *dart.SearchPage {
	return &dart.SearchPage{
		PageNo: 1, TotalPage: 1, TotalCount: 2,
		List: []dart.Disclosure{
			{ReceiptNo: "20260815000001", CorpCode: "00126380", CorpName: "삼성전자",
				ReportName: "주요사항보고서(유상증자결정)", ReceiptDate: "20260815"},
			{ReceiptNo: "20260810000002", CorpCode: "00126380", CorpName: "삼성전자",
				ReportName: "반기보고서 (2026.06)", ReceiptDate: "20260810"},
		},
	}
}

// --- Tests ---

func TestRunHappyPath(t *testing.T) {
	searchGw := &MockSearchGateway{SearchFunc: func(ctx context.Context, p dart.SearchParams) (*dart.SearchPage, error) {
		if p.CorpCode != "00126380" {
			t.Errorf("corp code = %q", p.CorpCode)
		}
		return samplePage(), nil
	}}
	fetchGw := &MockFetchGateway{DocumentBodyFunc: func(ctx context.Context, rceptNo string, includeAll bool) (string, error) {
		return "<body><p>" + strings.Repeat("유상증자 결정 본문 ", 200) + "</p></body>", nil
	}}

	history := &MockHistory{}
	orch := newTestOrchestrator(searchGw, fetchGw)
	orch.SetHistory(history)

	resp := orch.Run(context.Background(), "삼성전자 유상증자 공시")
	if resp.Status != StatusSuccess {
		t.Fatalf("status = %s (%s)", resp.Status, resp.Message)
	}
	if resp.TotalDocuments != 2 || len(resp.Documents) != 2 {
		t.Errorf("documents = %d", resp.TotalDocuments)
	}
	if resp.Documents[0].Source != fetch.SourceOriginal {
		t.Errorf("source = %s", resp.Documents[0].Source)
	}
	if resp.Synthesis == nil || resp.Synthesis.TotalDocuments != 2 {
		t.Errorf("synthesis = %+v", resp.Synthesis)
	}
	if resp.Sufficiency == nil || resp.Sufficiency.IsSufficient {
		t.Errorf("2 documents should not be sufficient: %+v", resp.Sufficiency)
	}
	if resp.RequestID == "" {
		t.Error("request id missing")
	}

	if len(history.records) != 1 || history.records[0].Status != StatusSuccess {
		t.Errorf("history = %+v", history.records)
	}
}

func TestRunAmbiguousCompanyNeedsConfirmation(t *testing.T) {
	orch := newTestOrchestrator(&MockSearchGateway{}, &MockFetchGateway{})

	resp := orch.Run(context.Background(), "삼성전지 공시")
	if resp.Status != StatusNeedsUserInput {
		t.Fatalf("status = %s", resp.Status)
	}
	if resp.Confirmation == nil || resp.Confirmation.Type != "company_confirmation" {
		t.Fatalf("confirmation = %+v", resp.Confirmation)
	}
	if len(resp.Confirmation.AmbiguousCompanies) == 0 {
		t.Error("candidates missing")
	}
}

func TestRunEmptyPlanIsSuccess(t *testing.T) {
	calls := 0
	searchGw := &MockSearchGateway{SearchFunc: func(ctx context.Context, p dart.SearchParams) (*dart.SearchPage, error) {
		calls++
		return samplePage(), nil
	}}
	orch := newTestOrchestrator(searchGw, &MockFetchGateway{})

	resp := orch.Run(context.Background(), "hello world")
	if resp.Status != StatusSuccess {
		t.Fatalf("status = %s", resp.Status)
	}
	if resp.TotalDocuments != 0 {
		t.Errorf("documents = %d", resp.TotalDocuments)
	}
	if calls != 0 {
		t.Errorf("unresolvable query must not reach upstream: %d calls", calls)
	}
}

func TestRunNoResults(t *testing.T) {
	searchGw := &MockSearchGateway{SearchFunc: func(ctx context.Context, p dart.SearchParams) (*dart.SearchPage, error) {
		return nil, fault.New(fault.UpstreamEmpty, "dart status 013: no data")
	}}
	orch := newTestOrchestrator(searchGw, &MockFetchGateway{})

	resp := orch.Run(context.Background(), "삼성전자 공시")
	if resp.Status != StatusNoResults {
		t.Fatalf("status = %s", resp.Status)
	}
	if resp.Message == "" {
		t.Error("no_results should carry guidance")
	}
}

func TestRunSearchFailure(t *testing.T) {
	searchGw := &MockSearchGateway{SearchFunc: func(ctx context.Context, p dart.SearchParams) (*dart.SearchPage, error) {
		return nil, fault.New(fault.UpstreamUnavailable, "dart api returned status 500")
	}}
	orch := newTestOrchestrator(searchGw, &MockFetchGateway{})

	resp := orch.Run(context.Background(), "삼성전자 공시")
	if resp.Status != StatusError {
		t.Fatalf("status = %s", resp.Status)
	}
	if resp.Phase != PhaseSearch {
		t.Errorf("phase = %s", resp.Phase)
	}
}

func TestRunEmptyQuery(t *testing.T) {
	orch := newTestOrchestrator(&MockSearchGateway{}, &MockFetchGateway{})

	resp := orch.Run(context.Background(), "   ")
	if resp.Status != StatusError || resp.Phase != PhaseExpand {
		t.Errorf("resp = %+v", resp)
	}
}

func TestRunRecoversFromPanic(t *testing.T) {
	searchGw := &MockSearchGateway{SearchFunc: func(ctx context.Context, p dart.SearchParams) (*dart.SearchPage, error) {
		panic("exploded")
	}}
	history := &MockHistory{}
	orch := newTestOrchestrator(searchGw, &MockFetchGateway{})
	orch.SetHistory(history)

	resp := orch.Run(context.Background(), "삼성전자 공시")
	if resp.Status != StatusError {
		t.Fatalf("status = %s", resp.Status)
	}
	if !strings.Contains(resp.Message, "internal error") {
		t.Errorf("message = %q", resp.Message)
	}
	if len(history.records) != 1 || history.records[0].Status != StatusError {
		t.Errorf("panicked run should still be recorded: %+v", history.records)
	}
}
