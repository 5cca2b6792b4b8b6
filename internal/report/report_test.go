package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"roleinventory/internal/aggregate"
	"roleinventory/internal/domain"
	"roleinventory/internal/health"
)

func u32(v uint32) *uint32 { return &v }

func testBundle() Bundle {
	inv := aggregate.Inventory{
		Servers: []domain.ServerNode{
			{Name: "dhcp01", Role: domain.RoleDHCP, Reachability: domain.ReachabilityReachable},
			{Name: "dhcp02", Role: domain.RoleDHCP, Reachability: domain.ReachabilityUnreachable},
		},
		Scopes: []domain.ScopeNode{{
			Server:         "dhcp01",
			ScopeID:        "10.0.0.0",
			Name:           "office, 1st floor",
			Range:          domain.AddressRange{Start: "10.0.0.1", End: "10.0.0.100", Mask: "255.255.255.0"},
			State:          domain.ScopeInactive,
			DynamicUpdates: domain.DynamicUpdatesNever,
			InUse:          u32(95),
		}},
		Leases: []aggregate.LeaseRow{{
			ScopeKey:    "dhcp01|10.0.0.0",
			Server:      "dhcp01",
			ScopeID:     "10.0.0.0",
			LeaseRecord: domain.LeaseRecord{IPAddress: "10.0.0.5", ClientID: "aa-bb", AddressState: "Active"},
		}},
		Failures: []domain.Failure{
			{Server: "dhcp02", Stage: domain.StageScopes, Kind: domain.FailureUnreachable, Message: "rpc unavailable"},
		},
	}
	risk := health.Assess(health.DefaultConfig(), inv.ScopeSummaries())
	return NewBundle("test inventory", "run-1", time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), inv, risk)
}

func TestWriteIsIdempotent(t *testing.T) {
	b := testBundle()
	dirA, dirB := t.TempDir(), t.TempDir()
	for _, dir := range []string{dirA, dirB} {
		e, err := NewEmitter(Config{OutputDir: dir, Formats: []string{"csv", "html"}}, nil)
		if err != nil {
			t.Fatalf("new emitter: %v", err)
		}
		if _, err := e.Write(b); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	entries, err := os.ReadDir(dirA)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 11 {
		t.Fatalf("expected 10 csv + 1 html, got %d", len(entries))
	}
	for _, ent := range entries {
		a, _ := os.ReadFile(filepath.Join(dirA, ent.Name()))
		bb, _ := os.ReadFile(filepath.Join(dirB, ent.Name()))
		if !bytes.Equal(a, bb) {
			t.Fatalf("%s differs between runs", ent.Name())
		}
	}
}

func TestCSVQuotesAndUnknown(t *testing.T) {
	dir := t.TempDir()
	if _, err := WriteCSV(dir, testBundle()); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "scopes.csv"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, `"office, 1st floor"`) {
		t.Fatalf("comma in name not quoted:\n%s", text)
	}
	if !strings.Contains(text, "95.0%") || !strings.Contains(text, ",unknown,") {
		t.Fatalf("expected utilization and unknown free count:\n%s", text)
	}
	failures, _ := os.ReadFile(filepath.Join(dir, "failures.csv"))
	if !strings.Contains(string(failures), "dhcp02,dhcp02,,scopes,Unreachable,rpc unavailable") {
		t.Fatalf("unexpected failures.csv:\n%s", failures)
	}
}

func TestRenderHTML(t *testing.T) {
	out, err := RenderHTML(testBundle())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(out)
	for _, want := range []string{`class="search"`, `class="risk-filter"`, `tier-Red`, `id="tbl-leases"`, `class="risk"`, "失败汇总"} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestWriteXLSX(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteXLSX(dir, testBundle())
	if err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	v, err := f.GetCellValue("leases", "D2")
	if err != nil || v != "10.0.0.5" {
		t.Fatalf("leases!D2 = %q, %v", v, err)
	}
	tier, _ := f.GetCellValue("summary", "B5")
	if tier != "Red" {
		t.Fatalf("summary tier = %q", tier)
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintSummary(&buf, testBundle()); err != nil {
		t.Fatalf("print: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"risk", "(Red)", "high-utilization", "Unreachable", "dhcp02"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestNewEmitterRejectsUnknownFormat(t *testing.T) {
	if _, err := NewEmitter(Config{Formats: []string{"pdf"}}, nil); err == nil {
		t.Fatalf("expected error for pdf")
	}
}
