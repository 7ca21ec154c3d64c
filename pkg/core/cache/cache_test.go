package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type searchRow struct {
	ReceiptNo string `json:"rcept_no"`
	CorpName  string `json:"corp_name"`
}

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := New(t.TempDir(), ttl)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	return c
}

func TestKeyIsOrderIndependent(t *testing.T) {
	a := Key("search", map[string]interface{}{"corp_code": "00126380", "bgn_de": "20240301"})
	b := Key("search", map[string]interface{}{"bgn_de": "20240301", "corp_code": "00126380"})
	if a != b {
		t.Errorf("keys differ for identical params: %s vs %s", a, b)
	}

	other := Key("search", map[string]interface{}{"bgn_de": "20240302", "corp_code": "00126380"})
	if a == other {
		t.Errorf("keys collide for different params")
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	c := newTestCache(t, time.Hour)
	params := map[string]interface{}{"corp_code": "00126380"}
	rows := []searchRow{{ReceiptNo: "20240315000123", CorpName: "삼성전자"}}

	if err := c.Set("search_company_disclosures", params, rows); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	var got []searchRow
	if !c.Get("search_company_disclosures", params, &got) {
		t.Fatal("expected cache hit")
	}
	if len(got) != 1 || got[0].ReceiptNo != "20240315000123" || got[0].CorpName != "삼성전자" {
		t.Errorf("unexpected payload: %+v", got)
	}

	var miss []searchRow
	if c.Get("search_company_disclosures", map[string]interface{}{"corp_code": "00164779"}, &miss) {
		t.Error("expected miss for different params")
	}
}

func TestGetPromotesFileToMemory(t *testing.T) {
	dir := t.TempDir()
	first, err := New(dir, time.Hour)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	params := map[string]interface{}{"rcept_no": "20240315000123"}
	if err := first.Set("fetch_document_content", params, searchRow{ReceiptNo: "20240315000123"}); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	// A fresh instance over the same directory only has the file tier.
	second, err := New(dir, time.Hour)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	var got searchRow
	if !second.Get("fetch_document_content", params, &got) {
		t.Fatal("expected file-tier hit")
	}
	if second.Stats().MemoryEntries != 1 {
		t.Errorf("memory entries = %d, want 1 after promotion", second.Stats().MemoryEntries)
	}
}

func TestExpiredEntryIsDeletedOnRead(t *testing.T) {
	c := newTestCache(t, 20*time.Millisecond)
	params := map[string]interface{}{"corp_code": "00126380"}
	if err := c.Set("search_company_disclosures", params, []searchRow{{ReceiptNo: "1"}}); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	time.Sleep(40 * time.Millisecond)

	var got []searchRow
	if c.Get("search_company_disclosures", params, &got) {
		t.Fatal("expected expired entry to miss")
	}

	key := Key("search_company_disclosures", params)
	if _, err := os.Stat(filepath.Join(c.dir, key[:2], key+".cache")); !os.IsNotExist(err) {
		t.Errorf("expired cache file should have been removed, stat err = %v", err)
	}
}

func TestCorruptFileIsDeletedOnRead(t *testing.T) {
	c := newTestCache(t, time.Hour)
	params := map[string]interface{}{"rcept_no": "x"}
	key := Key("fetch_document_content", params)

	shard := filepath.Join(c.dir, key[:2])
	if err := os.MkdirAll(shard, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	path := filepath.Join(shard, key+".cache")
	if err := os.WriteFile(path, []byte("not json at all"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var got searchRow
	if c.Get("fetch_document_content", params, &got) {
		t.Fatal("expected corrupt entry to miss")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("corrupt cache file should have been removed, stat err = %v", err)
	}
}

func TestClear(t *testing.T) {
	c := newTestCache(t, time.Hour)
	for i, rcept := range []string{"a", "b", "c"} {
		params := map[string]interface{}{"rcept_no": rcept}
		if err := c.Set("fetch_document_content", params, searchRow{ReceiptNo: rcept}); err != nil {
			t.Fatalf("set %d failed: %v", i, err)
		}
	}

	removed, err := c.Clear()
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}

	s := c.Stats()
	if s.MemoryEntries != 0 || s.CacheFiles != 0 {
		t.Errorf("cache not empty after clear: %+v", s)
	}
}

func TestClearOlderThanKeepsFreshEntries(t *testing.T) {
	c := newTestCache(t, time.Hour)
	oldParams := map[string]interface{}{"rcept_no": "old"}
	newParams := map[string]interface{}{"rcept_no": "new"}
	if err := c.Set("fetch_document_content", oldParams, searchRow{ReceiptNo: "old"}); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	// Age the first file by pushing its mtime into the past.
	oldKey := Key("fetch_document_content", oldParams)
	oldPath := filepath.Join(c.dir, oldKey[:2], oldKey+".cache")
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldPath, past, past); err != nil {
		t.Fatalf("chtimes failed: %v", err)
	}

	if err := c.Set("fetch_document_content", newParams, searchRow{ReceiptNo: "new"}); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	removed, err := c.ClearOlderThan(time.Hour)
	if err != nil {
		t.Fatalf("clear older than failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if c.Stats().CacheFiles != 1 {
		t.Errorf("cache files = %d, want 1", c.Stats().CacheFiles)
	}
}

func TestStatsCounting(t *testing.T) {
	c := newTestCache(t, time.Hour)
	params := map[string]interface{}{"corp_code": "00126380"}

	var got searchRow
	c.Get("search_company_disclosures", params, &got) // miss
	c.Set("search_company_disclosures", params, searchRow{ReceiptNo: "1"})
	c.Get("search_company_disclosures", params, &got) // hit

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Saves != 1 {
		t.Errorf("stats = %+v, want 1 hit / 1 miss / 1 save", s)
	}
	if s.HitRate != 50 {
		t.Errorf("hit rate = %v, want 50", s.HitRate)
	}
}
