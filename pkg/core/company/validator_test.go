package company

import (
	"testing"

	"dart_deepsearch/pkg/core/dart"
)

func testRegistry() []dart.CorpCode {
	return []dart.CorpCode{
		{Code: "00126380", Name: "삼성전자", StockCode: "005930"},
		{Code: "00164742", Name: "삼성전기", StockCode: "009150"},
		{Code: "00164779", Name: "삼성전자서비스", StockCode: ""},
		{Code: "00401731", Name: "현대자동차", StockCode: "005380"},
		{Code: "00356361", Name: "SK하이닉스", StockCode: "000660"},
		{Code: "00261443", Name: "카카오", StockCode: "035720"},
		{Code: "00120182", Name: "Samsung Electronics", StockCode: ""},
	}
}

func TestFindExact(t *testing.T) {
	v := NewValidatorFromSnapshot(testRegistry())
	m := v.Find("삼성전자", DefaultThreshold)
	if m.State != MatchExact {
		t.Fatalf("state = %s, want exact", m.State)
	}
	if m.Best.CorpCode != "00126380" || m.Best.Score != 100 {
		t.Errorf("best = %+v", m.Best)
	}
	if m.NeedsConfirmation {
		t.Error("exact match must not need confirmation")
	}
}

func TestFindExactIgnoresDecorations(t *testing.T) {
	v := NewValidatorFromSnapshot(testRegistry())
	m := v.Find("주식회사 삼성전자", DefaultThreshold)
	if m.State != MatchExact || m.Best.CorpCode != "00126380" {
		t.Fatalf("decorated name should match exactly: %+v", m)
	}
}

func TestFindAmbiguousTypo(t *testing.T) {
	v := NewValidatorFromSnapshot(testRegistry())
	// One-character typo: both 삼성전자 and 삼성전기 score high and close.
	m := v.Find("삼성전지", DefaultThreshold)
	if m.State != MatchAmbiguous {
		t.Fatalf("state = %s, want ambiguous (candidates %+v)", m.State, m.Candidates)
	}
	if !m.NeedsConfirmation {
		t.Error("ambiguous match must need confirmation")
	}
	if len(m.Candidates) < 2 {
		t.Fatalf("want multiple candidates, got %+v", m.Candidates)
	}
	for i := 1; i < len(m.Candidates); i++ {
		if m.Candidates[i-1].Score < m.Candidates[i].Score {
			t.Errorf("candidates not ranked by score: %+v", m.Candidates)
		}
	}
}

func TestFindNotFound(t *testing.T) {
	v := NewValidatorFromSnapshot(testRegistry())
	m := v.Find("전혀관련없는회사이름", DefaultThreshold)
	if m.State != MatchNotFound {
		t.Fatalf("state = %s, want not_found (candidates %+v)", m.State, m.Candidates)
	}
}

func TestByStockCodeDirect(t *testing.T) {
	v := NewValidatorFromSnapshot(testRegistry())
	c, ok := v.ByStockCode("005930")
	if !ok {
		t.Fatal("005930 should resolve")
	}
	if c.CorpCode != "00126380" || c.CorpName != "삼성전자" {
		t.Errorf("resolved %+v", c)
	}

	if _, ok := v.ByStockCode("99999"); ok {
		t.Error("5-digit input must not resolve")
	}
	if _, ok := v.ByStockCode("123456"); ok {
		t.Error("unknown ticker must not resolve")
	}
}

func TestSimilarityBounds(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"삼성전자", "삼성전자", 100},
		{"", "", 100},
		{"abcd", "wxyz", 0},
		{"삼성전자", "삼성전기", 75},
	}
	for _, tc := range cases {
		got := similarity(tc.a, tc.b)
		if got != tc.want {
			t.Errorf("similarity(%q,%q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
		if got < 0 || got > 100 {
			t.Errorf("similarity out of range: %d", got)
		}
	}
}
