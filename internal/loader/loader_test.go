package loader

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"roleinventory/internal/domain"
)

type call struct {
	query  string
	params map[string]any
}

type fakeRunner struct {
	writes []call
	raws   []call
	err    error
}

func (f *fakeRunner) RunWrite(_ context.Context, query string, params map[string]any) error {
	f.writes = append(f.writes, call{query: query, params: params})
	return f.err
}

func (f *fakeRunner) RunRaw(_ context.Context, query string, params map[string]any) error {
	f.raws = append(f.raws, call{query: query, params: params})
	return f.err
}

func nodeRows(n int, labels ...string) []domain.NodeRow {
	rows := make([]domain.NodeRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, domain.NodeRow{
			Key:        domain.MakeKey("T", i),
			Labels:     labels,
			Properties: map[string]any{"i": i},
			RunID:      "r1",
			UpdatedAt:  time.Unix(0, 0),
		})
	}
	return rows
}

func TestNodeUpserterGroupsAndBatches(t *testing.T) {
	fake := &fakeRunner{}
	rows := append(nodeRows(5, domain.LabelScope, domain.LabelInventory), nodeRows(2, domain.LabelLease, domain.LabelInventory)...)
	if err := NewNodeUpserter(fake, 2).UpsertNodes(context.Background(), rows); err != nil {
		t.Fatalf("UpsertNodes error: %v", err)
	}
	// Inventory:Lease 一批，Inventory:Scope 三批
	if len(fake.writes) != 4 {
		t.Fatalf("expected 4 writes, got %d", len(fake.writes))
	}
	if !strings.Contains(fake.writes[0].query, "MERGE (n:Inventory:Lease {key: row.key})") {
		t.Fatalf("unexpected query: %s", fake.writes[0].query)
	}
	if !strings.Contains(fake.writes[1].query, ":Inventory:Scope") {
		t.Fatalf("unexpected query: %s", fake.writes[1].query)
	}
	params := fake.writes[1].params["rows"].([]map[string]any)
	if len(params) != 2 || params[0]["key"] != "T_0" || params[0]["run_id"] != "r1" {
		t.Fatalf("unexpected params: %v", params)
	}
}

func TestRelUpserterUsesRelType(t *testing.T) {
	fake := &fakeRunner{}
	rows := []domain.RelRow{
		{StartKey: "a", EndKey: "b", Type: domain.RelHasScope, RunID: "r1"},
		{StartKey: "a", EndKey: "c", Type: domain.RelHasLease, RunID: "r1"},
	}
	if err := NewRelUpserter(fake, 100).UpsertRels(context.Background(), rows); err != nil {
		t.Fatalf("UpsertRels error: %v", err)
	}
	if len(fake.writes) != 2 {
		t.Fatalf("expected 2 writes, got %d", len(fake.writes))
	}
	if !strings.Contains(fake.writes[0].query, "[r:HAS_LEASE]") || !strings.Contains(fake.writes[1].query, "[r:HAS_SCOPE]") {
		t.Fatalf("unexpected queries: %q / %q", fake.writes[0].query, fake.writes[1].query)
	}
}

func TestUpsertPropagatesError(t *testing.T) {
	fake := &fakeRunner{err: errors.New("boom")}
	err := NewNodeUpserter(fake, 10).UpsertNodes(context.Background(), nodeRows(1, domain.LabelZone))
	if err == nil || !strings.Contains(err.Error(), "labels=Zone") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestSchemaAndFixerSplitStatements(t *testing.T) {
	fake := &fakeRunner{}
	if err := NewSchemaManager(fake).Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure error: %v", err)
	}
	if len(fake.raws) != 6 || !strings.Contains(fake.raws[0].query, "n.key IS UNIQUE") {
		t.Fatalf("unexpected schema statements: %d", len(fake.raws))
	}
	if err := NewEdgeFixer(fake).Run(context.Background(), "r2"); err != nil {
		t.Fatalf("fixer error: %v", err)
	}
	if len(fake.writes) != 2 {
		t.Fatalf("expected 2 fixer statements, got %d", len(fake.writes))
	}
	for _, w := range fake.writes {
		if w.params["run_id"] != "r2" || !strings.Contains(w.query, "SAME_ADDRESS") {
			t.Fatalf("unexpected fixer call: %+v", w)
		}
	}
}

func TestCleanerKeepsRunHistory(t *testing.T) {
	fake := &fakeRunner{}
	c := NewCleaner(fake)
	if err := c.HardDeleteRelationships(context.Background(), "r3"); err != nil {
		t.Fatal(err)
	}
	if err := c.HardDeleteNodes(context.Background(), "r3"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(fake.writes[0].query, "'OBSERVED'") || !strings.Contains(fake.writes[1].query, "NOT n:InventoryRun") {
		t.Fatalf("cleaner must skip run history: %+v", fake.writes)
	}
}

// 需要真实 Neo4j：NEO4J_URI=bolt://localhost:7687 go test ./internal/loader
func TestNeo4jRoundTrip(t *testing.T) {
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		t.Skip("NEO4J_URI 未设置")
	}
	ctx := context.Background()
	client, err := NewClient(ctx, Config{URI: uri, Username: os.Getenv("NEO4J_USER"), Password: os.Getenv("NEO4J_PASSWORD")})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close(ctx)
	if err := NewSchemaManager(client).Ensure(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	rows := nodeRows(3, domain.LabelZone, domain.LabelInventory)
	if err := NewNodeUpserter(client, 2).UpsertNodes(ctx, rows); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := NewCleaner(client).HardDeleteNodes(ctx, "r2"); err != nil {
		t.Fatalf("clean: %v", err)
	}
}
