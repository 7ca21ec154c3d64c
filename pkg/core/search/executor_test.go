package search

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"dart_deepsearch/pkg/core/cache"
	"dart_deepsearch/pkg/core/dart"
	"dart_deepsearch/pkg/core/fault"
	"dart_deepsearch/pkg/core/query"
)

type mockGateway struct {
	mu     sync.Mutex
	calls  []dart.SearchParams
	search func(p dart.SearchParams) (*dart.SearchPage, error)
}

func (m *mockGateway) Search(ctx context.Context, p dart.SearchParams) (*dart.SearchPage, error) {
	m.mu.Lock()
	m.calls = append(m.calls, p)
	m.mu.Unlock()
	return m.search(p)
}

func pageOf(rows ...dart.Disclosure) *dart.SearchPage {
	return &dart.SearchPage{PageNo: 1, TotalPage: 1, TotalCount: len(rows), List: rows}
}

func planWithRange(days int) *query.Plan {
	end := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	return &query.Plan{
		DateRange: query.DateRange{Start: end.AddDate(0, 0, -(days - 1)), End: end},
		PageSize:  100,
	}
}

func TestRunMergesAndSortsNewestFirst(t *testing.T) {
	gw := &mockGateway{search: func(p dart.SearchParams) (*dart.SearchPage, error) {
		return pageOf(
			dart.Disclosure{ReceiptNo: "20260801000001", ReceiptDate: "20260801", CorpName: "A"},
			dart.Disclosure{ReceiptNo: "20260815000002", ReceiptDate: "20260815", CorpName: "B"},
			dart.Disclosure{ReceiptNo: "20260815000009", ReceiptDate: "20260815", CorpName: "C"},
		), nil
	}}

	result, err := NewExecutor(gw, nil, 100).Run(context.Background(), planWithRange(30))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Disclosures) != 3 {
		t.Fatalf("rows = %d", len(result.Disclosures))
	}
	if result.Disclosures[0].ReceiptNo != "20260815000009" || result.Disclosures[1].ReceiptNo != "20260815000002" {
		t.Errorf("order = %+v", result.Disclosures)
	}
	if result.Disclosures[2].ReceiptNo != "20260801000001" {
		t.Errorf("oldest should come last: %+v", result.Disclosures[2])
	}
}

func TestRunDeduplicatesAcrossShards(t *testing.T) {
	gw := &mockGateway{search: func(p dart.SearchParams) (*dart.SearchPage, error) {
		// Every shard returns the same row.
		return pageOf(dart.Disclosure{ReceiptNo: "20260101000001", ReceiptDate: "20260101"}), nil
	}}

	plan := planWithRange(365)
	plan.Parallel = true
	result, err := NewExecutor(gw, nil, 100).Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.ShardCount != 5 {
		t.Errorf("shards = %d, want 5", result.ShardCount)
	}
	if len(result.Disclosures) != 1 {
		t.Errorf("duplicates not collapsed: %d rows", len(result.Disclosures))
	}
}

func TestRunTruncatesToCeiling(t *testing.T) {
	gw := &mockGateway{search: func(p dart.SearchParams) (*dart.SearchPage, error) {
		compact := strings.ReplaceAll(p.BeginDate, "-", "")
		rows := make([]dart.Disclosure, 30)
		for i := range rows {
			rows[i] = dart.Disclosure{
				ReceiptNo:   fmt.Sprintf("%s%04d", compact, i),
				ReceiptDate: compact,
			}
		}
		return pageOf(rows...), nil
	}}

	plan := planWithRange(365)
	result, err := NewExecutor(gw, nil, 50).Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Disclosures) != 50 || !result.Truncated {
		t.Errorf("rows = %d truncated = %v", len(result.Disclosures), result.Truncated)
	}
	// Two shards of 30 rows clear the ceiling of 50; the three older
	// shards are never queried.
	if result.TotalFound != 60 {
		t.Errorf("total found = %d, want 60", result.TotalFound)
	}
	if len(gw.calls) != 2 {
		t.Errorf("upstream calls = %d, want 2", len(gw.calls))
	}
}

func TestRunIsolatesShardFailures(t *testing.T) {
	gw := &mockGateway{search: func(p dart.SearchParams) (*dart.SearchPage, error) {
		if p.EndDate == "2026-08-25" {
			return nil, fault.New(fault.UpstreamUnavailable, "dart status 800: rate limited")
		}
		return pageOf(dart.Disclosure{ReceiptNo: "20260301000001", ReceiptDate: "20260301"}), nil
	}}

	result, err := NewExecutor(gw, nil, 100).Run(context.Background(), planWithRange(365))
	if err != nil {
		t.Fatalf("partial failure should not fail the run: %v", err)
	}
	if len(result.ShardErrors) != 1 {
		t.Errorf("shard errors = %v", result.ShardErrors)
	}
	if len(result.Disclosures) != 1 {
		t.Errorf("healthy shards should still deliver: %d rows", len(result.Disclosures))
	}
}

func TestRunFailsWhenEveryShardFails(t *testing.T) {
	gw := &mockGateway{search: func(p dart.SearchParams) (*dart.SearchPage, error) {
		return nil, fault.New(fault.UpstreamUnavailable, "dart status 800: rate limited")
	}}

	_, err := NewExecutor(gw, nil, 100).Run(context.Background(), planWithRange(365))
	if err == nil {
		t.Fatal("expected error")
	}
	if fault.KindOf(err) != fault.UpstreamUnavailable {
		t.Errorf("kind = %v", fault.KindOf(err))
	}
}

func TestRunTreatsNoDataAsEmpty(t *testing.T) {
	gw := &mockGateway{search: func(p dart.SearchParams) (*dart.SearchPage, error) {
		return nil, fault.New(fault.UpstreamEmpty, "dart status 013: no data")
	}}

	result, err := NewExecutor(gw, nil, 100).Run(context.Background(), planWithRange(30))
	if err != nil {
		t.Fatalf("empty upstream is not a failure: %v", err)
	}
	if len(result.Disclosures) != 0 || len(result.ShardErrors) != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestRunPropagatesCancellation(t *testing.T) {
	gw := &mockGateway{search: func(p dart.SearchParams) (*dart.SearchPage, error) {
		return nil, fault.Wrap(fault.Cancelled, context.Canceled, "request cancelled")
	}}

	_, err := NewExecutor(gw, nil, 100).Run(context.Background(), planWithRange(30))
	if err == nil || fault.KindOf(err) != fault.Cancelled {
		t.Errorf("err = %v", err)
	}
}

func TestRunFollowsPagination(t *testing.T) {
	gw := &mockGateway{search: func(p dart.SearchParams) (*dart.SearchPage, error) {
		rows := make([]dart.Disclosure, 2)
		for i := range rows {
			rows[i] = dart.Disclosure{
				ReceiptNo:   fmt.Sprintf("202608%02d%04d", p.PageNo, i),
				ReceiptDate: "20260810",
			}
		}
		return &dart.SearchPage{PageNo: p.PageNo, TotalPage: 3, TotalCount: 6, List: rows}, nil
	}}

	result, err := NewExecutor(gw, nil, 100).Run(context.Background(), planWithRange(30))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(gw.calls) != 3 {
		t.Errorf("pages fetched = %d, want 3", len(gw.calls))
	}
	if len(result.Disclosures) != 6 {
		t.Errorf("rows = %d, want 6", len(result.Disclosures))
	}
}

func TestRunServesRepeatFromCache(t *testing.T) {
	store, err := cache.New(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("cache init failed: %v", err)
	}
	gw := &mockGateway{search: func(p dart.SearchParams) (*dart.SearchPage, error) {
		return pageOf(dart.Disclosure{ReceiptNo: "20260810000001", ReceiptDate: "20260810"}), nil
	}}

	executor := NewExecutor(gw, store, 100)
	if _, err := executor.Run(context.Background(), planWithRange(30)); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	calls := len(gw.calls)

	result, err := executor.Run(context.Background(), planWithRange(30))
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if len(gw.calls) != calls {
		t.Errorf("second run hit upstream: %d calls", len(gw.calls))
	}
	if len(result.Disclosures) != 1 {
		t.Errorf("cached rows = %d", len(result.Disclosures))
	}
}

func TestRunDoesNotCacheEmptyByDefault(t *testing.T) {
	store, err := cache.New(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("cache init failed: %v", err)
	}
	gw := &mockGateway{search: func(p dart.SearchParams) (*dart.SearchPage, error) {
		return pageOf(), nil
	}}

	executor := NewExecutor(gw, store, 100)
	executor.Run(context.Background(), planWithRange(30))
	executor.Run(context.Background(), planWithRange(30))
	if len(gw.calls) != 2 {
		t.Errorf("empty result should not be cached: %d calls", len(gw.calls))
	}

	executor.SetCacheEmpty(true)
	executor.Run(context.Background(), planWithRange(30))
	executor.Run(context.Background(), planWithRange(30))
	if len(gw.calls) != 3 {
		t.Errorf("with cache_empty on the repeat should be served: %d calls", len(gw.calls))
	}
}
