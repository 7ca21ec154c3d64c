package query

import (
	"context"
	"testing"

	"dart_deepsearch/pkg/core/config"
	"dart_deepsearch/pkg/core/fault"
	"dart_deepsearch/pkg/core/llm"
	"dart_deepsearch/pkg/core/ratelimit"
)

type stubProvider struct {
	generate func(ctx context.Context, prompt string) (string, error)
}

func (s *stubProvider) GenerateResponse(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}) (string, error) {
	return s.generate(ctx, prompt)
}

func (s *stubProvider) AdaptInstructions(raw string) string { return raw }

// newMockManager builds an llm.Manager backed by the given completion
// function.
func newMockManager(generate func(ctx context.Context, prompt string) (string, error)) *llm.Manager {
	m := llm.NewManager(config.LLMConfig{Provider: "none"}, ratelimit.NewManager())
	m.SetProvider(&stubProvider{generate: generate})
	return m
}

func TestFallbackExtract(t *testing.T) {
	ex := fallbackExtract("삼성전자 2024년 1분기 실적 및 배당 공시")
	if len(ex.Companies) != 1 || ex.Companies[0].Text != "삼성전자" {
		t.Errorf("companies = %+v", ex.Companies)
	}
	if ex.Companies[0].Type != "company_name" {
		t.Errorf("type = %q", ex.Companies[0].Type)
	}
	hasYear, hasQuarter := false, false
	for _, d := range ex.Dates {
		if d.Type == DateSpecificYear && d.Year == 2024 {
			hasYear = true
		}
		if d.Type == DateQuarter && d.Quarter == 1 {
			hasQuarter = true
		}
	}
	if !hasYear || !hasQuarter {
		t.Errorf("dates = %+v", ex.Dates)
	}
	hasDividend := false
	for _, k := range ex.Keywords {
		if k == "배당" {
			hasDividend = true
		}
	}
	if !hasDividend {
		t.Errorf("keywords = %+v", ex.Keywords)
	}
}

func TestFallbackExtractStockCode(t *testing.T) {
	ex := fallbackExtract("005930 유상증자 공시")
	if len(ex.Companies) != 1 || ex.Companies[0].Type != "stock_code" || ex.Companies[0].Text != "005930" {
		t.Errorf("companies = %+v", ex.Companies)
	}
}

func TestFallbackExtractSuffixPattern(t *testing.T) {
	ex := fallbackExtract("한미약품홀딩스 분기보고서")
	found := false
	for _, c := range ex.Companies {
		if c.Text == "한미약품홀딩스" {
			found = true
		}
	}
	if !found {
		t.Errorf("suffix pattern missed the company: %+v", ex.Companies)
	}
}

func TestParseUsesLLMOutput(t *testing.T) {
	mgr := newMockManager(func(ctx context.Context, prompt string) (string, error) {
		return `{"companies":[{"text":"현대자동차","type":"company_name"},{"text":"005380","type":"company_name"}],
"doc_types":["합병"],"dates":[{"text":"작년","type":"last_year"}],"keywords":["합병"]}`, nil
	})

	ex := NewParser(mgr).Parse(context.Background(), "현대자동차 작년 합병")
	if !ex.FromLLM {
		t.Fatal("extraction should come from the model")
	}
	if len(ex.Companies) != 2 {
		t.Fatalf("companies = %+v", ex.Companies)
	}
	// Six-digit mentions are stock codes whatever the model labeled them.
	if ex.Companies[1].Type != "stock_code" {
		t.Errorf("005380 should be normalized to stock_code: %+v", ex.Companies[1])
	}
	if len(ex.Dates) != 1 || ex.Dates[0].Type != DateLastYear {
		t.Errorf("dates = %+v", ex.Dates)
	}
}

func TestParseRepairsSloppyJSON(t *testing.T) {
	mgr := newMockManager(func(ctx context.Context, prompt string) (string, error) {
		// Trailing comma and single quotes, wrapped in prose.
		return "Sure, here is the extraction:\n{'companies':[{'text':'삼성전자','type':'company_name'},],'doc_types':['배당'],'dates':[],'keywords':['배당'],}", nil
	})

	ex := NewParser(mgr).Parse(context.Background(), "삼성전자 배당")
	if !ex.FromLLM {
		t.Fatal("repairable output should still come from the model")
	}
	if len(ex.Companies) != 1 || ex.Companies[0].Text != "삼성전자" {
		t.Errorf("companies = %+v", ex.Companies)
	}
}

func TestParseFallsBackWhenLLMFails(t *testing.T) {
	mgr := newMockManager(func(ctx context.Context, prompt string) (string, error) {
		return "", context.DeadlineExceeded
	})

	ex := NewParser(mgr).Parse(context.Background(), "삼성전자 배당 공시")
	if ex.FromLLM {
		t.Fatal("failed model call must fall back")
	}
	if len(ex.Companies) != 1 || ex.Companies[0].Text != "삼성전자" {
		t.Errorf("fallback companies = %+v", ex.Companies)
	}
}

func TestParseUnreadableOutputIsLLMMalformed(t *testing.T) {
	mgr := newMockManager(func(ctx context.Context, prompt string) (string, error) {
		return "there is nothing to extract here", nil
	})

	_, err := NewParser(mgr).parseWithLLM(context.Background(), "삼성전자 배당")
	if err == nil {
		t.Fatal("unreadable extractor output should fail")
	}
	if fault.KindOf(err) != fault.LLMMalformed {
		t.Errorf("kind = %v, want LLMMalformed", fault.KindOf(err))
	}
}

func TestParseWithoutProvider(t *testing.T) {
	ex := NewParser(nil).Parse(context.Background(), "005930 공시")
	if ex.FromLLM {
		t.Fatal("nil manager cannot produce model output")
	}
	if len(ex.Companies) != 1 {
		t.Errorf("companies = %+v", ex.Companies)
	}
}
