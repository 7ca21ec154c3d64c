package content

import (
	"strings"
	"testing"
)

func TestCleanStripsScriptsAndStyles(t *testing.T) {
	markup := `<html><head><style>body{color:red}</style></head>
<body><script>alert("x")</script><p>유상증자 결정</p></body></html>`

	got := NewCleaner(0).Clean(markup)
	if strings.Contains(got, "alert") || strings.Contains(got, "color:red") {
		t.Errorf("script or style leaked: %q", got)
	}
	if !strings.Contains(got, "유상증자 결정") {
		t.Errorf("body text lost: %q", got)
	}
}

func TestCleanFlattensTables(t *testing.T) {
	markup := `<body><table>
<tr><th>항목</th><th>금액</th></tr>
<tr><td>신주의 종류</td><td>보통주 1,000,000주</td></tr>
</table></body>`

	got := NewCleaner(0).Clean(markup)
	if !strings.Contains(got, "항목 | 금액") {
		t.Errorf("header row not flattened: %q", got)
	}
	if !strings.Contains(got, "신주의 종류 | 보통주 1,000,000주") {
		t.Errorf("data row not flattened: %q", got)
	}
}

func TestCleanUnescapesEntities(t *testing.T) {
	got := NewCleaner(0).Clean("<body><p>M&amp;A 관련 &quot;주요사항&quot;</p></body>")
	if !strings.Contains(got, `M&A 관련 "주요사항"`) {
		t.Errorf("entities not unescaped: %q", got)
	}
}

func TestCleanCollapsesWhitespace(t *testing.T) {
	got := NewCleaner(0).Clean("<body><p>첫째</p>\n\n\n\n\n<p>둘째</p></body>")
	if strings.Contains(got, "\n\n\n") {
		t.Errorf("blank runs survive: %q", got)
	}
}

func TestCleanTruncatesLongDocuments(t *testing.T) {
	var b strings.Builder
	b.WriteString("<body><p>시작 부분</p>")
	for i := 0; i < 5000; i++ {
		b.WriteString("<p>본문 내용이 반복됩니다</p>")
	}
	b.WriteString("<p>마지막 부분</p></body>")

	got := NewCleaner(1000).Clean(b.String())
	if len([]rune(got)) > 1000+len([]rune(truncationMarker)) {
		t.Errorf("length = %d runes", len([]rune(got)))
	}
	if !strings.Contains(got, "[중간 내용 생략]") {
		t.Error("truncation marker missing")
	}
	if !strings.Contains(got, "시작 부분") || !strings.Contains(got, "마지막 부분") {
		t.Errorf("head or tail lost: %q", got)
	}
}

func TestCleanHandlesBareXML(t *testing.T) {
	got := NewCleaner(0).Clean(`<?xml version="1.0" encoding="utf-8"?>
<DOCUMENT><TITLE>주요사항보고서</TITLE><SECTION>회사합병 결정</SECTION></DOCUMENT>`)
	if !strings.Contains(got, "주요사항보고서") || !strings.Contains(got, "회사합병 결정") {
		t.Errorf("xml text lost: %q", got)
	}
}
