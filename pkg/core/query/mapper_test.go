package query

import (
	"context"
	"testing"
)

func TestMapKeywordScorer(t *testing.T) {
	m := NewMapper(nil)

	cases := []struct {
		name     string
		query    string
		ex       Extraction
		wantTop  string
		wantConf float64
	}{
		{
			name:     "stock option phrase",
			query:    "스톡옵션 부여 공시",
			ex:       Extraction{DocTypes: []string{"스톡옵션"}, Keywords: []string{"스톡옵션"}},
			wantTop:  "E004",
			wantConf: 1.0,
		},
		{
			name:     "merger phrase",
			query:    "최근 합병 공시",
			ex:       Extraction{DocTypes: []string{"합병"}},
			wantTop:  "B001",
			wantConf: 1.0,
		},
		{
			name:     "nothing matches falls back to default",
			query:    "hello world",
			ex:       Extraction{},
			wantTop:  DefaultCategory,
			wantConf: DefaultCategoryConfidence,
		},
	}
	for _, tc := range cases {
		scores := m.Map(context.Background(), tc.query, tc.ex)
		if len(scores) == 0 {
			t.Errorf("%s: no candidates", tc.name)
			continue
		}
		if scores[0].Code != tc.wantTop {
			t.Errorf("%s: top = %s, want %s (%+v)", tc.name, scores[0].Code, tc.wantTop, scores)
		}
		if scores[0].Confidence != tc.wantConf {
			t.Errorf("%s: confidence = %.2f, want %.2f", tc.name, scores[0].Confidence, tc.wantConf)
		}
	}
}

func TestMapAtMostThreeRankedCandidates(t *testing.T) {
	m := NewMapper(nil)
	// Touches B001 (합병, 유상증자), A001 (사업보고서), C001 (공모, 상장),
	// D001 (대량보유), E001 (자사주).
	scores := m.Map(context.Background(),
		"사업보고서 합병 유상증자 공모 상장 대량보유 자사주", Extraction{})
	if len(scores) != 3 {
		t.Fatalf("candidates = %d, want 3: %+v", len(scores), scores)
	}
	for i := 1; i < len(scores); i++ {
		if scores[i-1].Confidence < scores[i].Confidence {
			t.Errorf("candidates not ranked: %+v", scores)
		}
	}
	if scores[0].Confidence != 1.0 {
		t.Errorf("top candidate not normalized: %+v", scores[0])
	}
}

func TestMapLLMOutputValidation(t *testing.T) {
	mgr := newMockManager(func(ctx context.Context, prompt string) (string, error) {
		return `Here are the categories:
[{"code":"e004","confidence":1.4,"reason":"stock options"},
 {"code":"ZZZZ","confidence":0.9,"reason":"bogus"},
 {"code":"B001","confidence":0.2,"reason":"weak"}]`, nil
	})

	scores := NewMapper(mgr).Map(context.Background(), "스톡옵션", Extraction{})
	if len(scores) != 2 {
		t.Fatalf("unknown codes should be dropped: %+v", scores)
	}
	if scores[0].Code != "E004" || scores[0].Confidence != 1.0 {
		t.Errorf("top = %+v, want E004 clamped to 1.0", scores[0])
	}
	if scores[1].Code != "B001" {
		t.Errorf("second = %+v, want B001", scores[1])
	}
}

func TestMapLLMFailureFallsBack(t *testing.T) {
	mgr := newMockManager(func(ctx context.Context, prompt string) (string, error) {
		return "", context.DeadlineExceeded
	})

	scores := NewMapper(mgr).Map(context.Background(), "합병 공시", Extraction{DocTypes: []string{"합병"}})
	if len(scores) == 0 || scores[0].Code != "B001" {
		t.Errorf("fallback should score 합병 as B001: %+v", scores)
	}
}
