package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakeReader struct {
	records []map[string]any
	err     error
	query   string
	params  map[string]any
}

func (f *fakeReader) RunRead(_ context.Context, query string, params map[string]any) ([]map[string]any, error) {
	f.query = query
	f.params = params
	return f.records, f.err
}

func TestRecentRuns(t *testing.T) {
	reader := &fakeReader{records: []map[string]any{
		{"run_id": "20261016T020000Z", "total": int64(9), "tier": "Red", "failures": int64(2), "scopes": int64(3), "started_at": "2026-10-16T02:00:00Z"},
		{"run_id": "20261015T020000Z", "total": 1, "tier": "Green", "failures": nil, "scopes": int64(3)},
	}}
	got, err := RecentRuns(context.Background(), reader, 0)
	if err != nil {
		t.Fatalf("RecentRuns error: %v", err)
	}
	want := []RunSummary{
		{RunID: "20261016T020000Z", Total: 9, Tier: "Red", Failures: 2, Scopes: 3, StartedAt: "2026-10-16T02:00:00Z"},
		{RunID: "20261015T020000Z", Total: 1, Tier: "Green", Scopes: 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("runs mismatch (-want +got):\n%s", diff)
	}
	if reader.params["limit"] != 20 || !strings.Contains(reader.query, "InventoryRun") {
		t.Fatalf("unexpected query %q params %v", reader.query, reader.params)
	}
}

func TestRecentRunsError(t *testing.T) {
	if _, err := RecentRuns(context.Background(), &fakeReader{err: errors.New("down")}, 5); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := RecentRuns(context.Background(), nil, 5); err == nil {
		t.Fatalf("expected error for nil reader")
	}
}
