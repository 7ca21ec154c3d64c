package filter

import (
	"context"
	"fmt"
	"testing"

	"dart_deepsearch/pkg/core/config"
	"dart_deepsearch/pkg/core/dart"
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

func newMockManager(generate func(ctx context.Context, prompt string) (string, error)) *llm.Manager {
	m := llm.NewManager(config.LLMConfig{Provider: "none"}, ratelimit.NewManager())
	m.SetProvider(&stubProvider{generate: generate})
	return m
}

func makeRows(n int) []dart.Disclosure {
	rows := make([]dart.Disclosure, n)
	for i := range rows {
		rows[i] = dart.Disclosure{
			ReceiptNo:   fmt.Sprintf("2026%010d", n-i),
			ReportName:  fmt.Sprintf("보고서 %d", i),
			CorpName:    "테스트",
			ReceiptDate: "20260810",
		}
	}
	return rows
}

func TestApplyKeepsSelectedSubsequence(t *testing.T) {
	mgr := newMockManager(func(ctx context.Context, prompt string) (string, error) {
		return `{"relevant_indices":[0,2,4],"reason":"merger filings"}`, nil
	})

	rows := makeRows(6)
	kept := New(mgr).Apply(context.Background(), "합병", rows)
	if len(kept) != 3 {
		t.Fatalf("kept = %d", len(kept))
	}
	if kept[0].ReportName != "보고서 0" || kept[1].ReportName != "보고서 2" || kept[2].ReportName != "보고서 4" {
		t.Errorf("order not preserved: %+v", kept)
	}
}

func TestApplyNormalizesClassifierOrder(t *testing.T) {
	mgr := newMockManager(func(ctx context.Context, prompt string) (string, error) {
		return `{"relevant_indices":[4,0,2,0],"reason":"scrambled"}`, nil
	})

	rows := makeRows(6)
	kept := New(mgr).Apply(context.Background(), "합병", rows)
	if len(kept) != 3 {
		t.Fatalf("kept = %d, repeats must collapse", len(kept))
	}
	if kept[0].ReportName != "보고서 0" || kept[1].ReportName != "보고서 2" || kept[2].ReportName != "보고서 4" {
		t.Errorf("output is not an input-order subsequence: %+v", kept)
	}
}

func TestApplyParsesFencedAnswer(t *testing.T) {
	mgr := newMockManager(func(ctx context.Context, prompt string) (string, error) {
		return "The relevant filings are:\n```json\n{\"relevant_indices\": [1, 3], \"reason\": \"dividends\"}\n```\nDone.", nil
	})

	kept := New(mgr).Apply(context.Background(), "배당", makeRows(5))
	if len(kept) != 2 || kept[0].ReportName != "보고서 1" || kept[1].ReportName != "보고서 3" {
		t.Errorf("kept = %+v", kept)
	}
}

func TestApplyParsesIndicesPattern(t *testing.T) {
	mgr := newMockManager(func(ctx context.Context, prompt string) (string, error) {
		// Broken JSON around a recognizable field.
		return `sure! "relevant_indices": [2, 0] and that is my answer`, nil
	})

	kept := New(mgr).Apply(context.Background(), "유상증자", makeRows(4))
	if len(kept) != 2 {
		t.Errorf("kept = %+v", kept)
	}
}

func TestApplyIgnoresOutOfRangeIndices(t *testing.T) {
	mgr := newMockManager(func(ctx context.Context, prompt string) (string, error) {
		return `{"relevant_indices":[0,99,-3],"reason":""}`, nil
	})

	kept := New(mgr).Apply(context.Background(), "합병", makeRows(3))
	if len(kept) != 1 || kept[0].ReportName != "보고서 0" {
		t.Errorf("kept = %+v", kept)
	}
}

func TestApplyAllFilteredKeepsNewest(t *testing.T) {
	mgr := newMockManager(func(ctx context.Context, prompt string) (string, error) {
		return `{"relevant_indices":[],"reason":"nothing matches"}`, nil
	})

	kept := New(mgr).Apply(context.Background(), "합병", makeRows(20))
	if len(kept) != minimumKeep {
		t.Errorf("kept = %d, want %d", len(kept), minimumKeep)
	}
	if kept[0].ReportName != "보고서 0" {
		t.Errorf("newest rows should survive: %+v", kept[0])
	}
}

func TestApplyFallsBackWithoutProvider(t *testing.T) {
	kept := New(nil).Apply(context.Background(), "합병", makeRows(40))
	if len(kept) != fallbackKeep {
		t.Errorf("kept = %d, want %d", len(kept), fallbackKeep)
	}
}

func TestApplyFallsBackOnFailure(t *testing.T) {
	mgr := newMockManager(func(ctx context.Context, prompt string) (string, error) {
		return "", context.DeadlineExceeded
	})

	kept := New(mgr).Apply(context.Background(), "합병", makeRows(40))
	if len(kept) != fallbackKeep {
		t.Errorf("kept = %d, want %d", len(kept), fallbackKeep)
	}
}

func TestParseIndicesUnreadableIsLLMMalformed(t *testing.T) {
	_, err := parseIndices("I could not decide which filings matter here.")
	if err == nil {
		t.Fatal("unreadable classifier answer should fail")
	}
	if fault.KindOf(err) != fault.LLMMalformed {
		t.Errorf("kind = %v, want LLMMalformed", fault.KindOf(err))
	}
}

func TestApplyBatchesLargeInput(t *testing.T) {
	calls := 0
	mgr := newMockManager(func(ctx context.Context, prompt string) (string, error) {
		calls++
		return `{"relevant_indices":[0],"reason":""}`, nil
	})

	kept := New(mgr).Apply(context.Background(), "합병", makeRows(250))
	if calls != 3 {
		t.Errorf("batches = %d, want 3", calls)
	}
	if len(kept) != 3 {
		t.Errorf("kept = %d, want one per batch", len(kept))
	}
}
