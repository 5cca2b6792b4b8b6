package aggregate

import (
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"roleinventory/internal/domain"
	"roleinventory/internal/health"
	"roleinventory/internal/role"
	"roleinventory/internal/traverse"
)

func u32(v uint32) *uint32 { return &v }

func endToEndSnapshot() role.Snapshot {
	return role.Snapshot{Servers: []role.ServerFixture{
		{
			Name: "A",
			Role: "DHCP",
			Scopes: []role.ScopeFixture{{
				ScopeID:        "10.0.0.0",
				Start:          "10.0.0.1",
				End:            "10.0.0.100",
				State:          "Active",
				DynamicUpdates: "Always",
				InUse:          u32(95),
				Leases:         []domain.LeaseRecord{{IPAddress: "10.0.0.5", ClientID: "aa", AddressState: "Expired"}},
			}},
		},
		{
			Name: "B",
			Role: "DHCP",
			Scopes: []role.ScopeFixture{{
				ScopeID:        "10.1.0.0",
				Start:          "10.1.0.1",
				End:            "10.1.0.50",
				State:          "Inactive",
				DynamicUpdates: "Always",
				InUse:          u32(5),
				Leases:         []domain.LeaseRecord{{IPAddress: "10.1.0.7", ClientID: "bb", AddressState: "Active"}},
				Reservations:   []domain.ReservationRecord{{IPAddress: "10.1.0.7", ClientID: "bb"}},
			}},
		},
	}}
}

func run(t *testing.T, snap role.Snapshot) Inventory {
	t.Helper()
	e := traverse.NewEngine(&role.StaticClient{Snapshot: snap}, 1, nil)
	servers, err := e.Discover(context.Background(), []domain.Role{domain.RoleDHCP}, nil)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	return Collect(e.Walk(context.Background(), servers))
}

func TestEndToEndRiskIsRed(t *testing.T) {
	inv := run(t, endToEndSnapshot())
	risk := health.Assess(health.DefaultConfig(), inv.ScopeSummaries())
	if risk.Total != 9 || risk.Tier != health.TierRed {
		t.Fatalf("total=%d tier=%s, want 9 Red", risk.Total, risk.Tier)
	}
}

func TestAggregatorKeepsDuplicatesAndKeysRows(t *testing.T) {
	inv := run(t, endToEndSnapshot())
	if len(inv.Leases) != 2 || len(inv.Reservations) != 1 {
		t.Fatalf("leases=%d reservations=%d", len(inv.Leases), len(inv.Reservations))
	}
	// 同一地址的租约与保留各占一行
	if inv.Leases[1].IPAddress != inv.Reservations[0].IPAddress {
		t.Fatalf("expected shared address rows")
	}
	for _, l := range inv.Leases {
		if !strings.Contains(l.ScopeKey, "|") || l.ScopeKey != domain.ScopeKey(l.Server, l.ScopeID) {
			t.Fatalf("lease not keyed: %+v", l)
		}
	}
	want := []string{"a|10.0.0.0", "b|10.1.0.0"}
	var got []string
	for _, sc := range inv.Scopes {
		got = append(got, sc.Key())
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("scopes (-want +got):\n%s", diff)
	}
}

func TestScopeSummariesUnknownOnFailure(t *testing.T) {
	snap := endToEndSnapshot()
	snap.Servers[1].Scopes[0].Errors = map[string]domain.FailureKind{
		string(domain.StageLeases): domain.FailureNotFound,
	}
	inv := run(t, snap)
	sums := inv.ScopeSummaries()
	if len(sums) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(sums))
	}
	if !sums[0].ActiveLeases.Known || sums[0].ActiveLeases.N != 0 {
		t.Fatalf("scope A active leases = %s", sums[0].ActiveLeases)
	}
	if sums[1].ActiveLeases.Known {
		t.Fatalf("scope B leases failed, count must be unknown: %s", sums[1].ActiveLeases)
	}
	if !sums[1].Reservations.Known || sums[1].Reservations.N != 1 {
		t.Fatalf("scope B reservations = %s", sums[1].Reservations)
	}
	// B: Inactive 3，租约未知不触发
	risk := health.Assess(health.DefaultConfig(), sums)
	if risk.Scores[1].Score != 3 {
		t.Fatalf("scope B score = %d", risk.Scores[1].Score)
	}
}

func TestScopeSummariesBlankScopeID(t *testing.T) {
	snap := role.Snapshot{Servers: []role.ServerFixture{{
		Name: "C",
		Role: "DHCP",
		Scopes: []role.ScopeFixture{{
			Start:  "10.5.0.1",
			End:    "10.5.0.9",
			State:  "Active",
			Errors: map[string]domain.FailureKind{string(domain.StageReservations): domain.FailureAccessDenied},
		}},
	}}}
	sums := run(t, snap).ScopeSummaries()
	if len(sums) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(sums))
	}
	if sums[0].Reservations.Known {
		t.Fatalf("reservations failed on blank scope id, count must be unknown: %s", sums[0].Reservations)
	}
	if !sums[0].ActiveLeases.Known {
		t.Fatalf("leases were collected: %s", sums[0].ActiveLeases)
	}
}

func TestScopeSummariesLeaseDecodeKeepsCount(t *testing.T) {
	snap := endToEndSnapshot()
	snap.Servers[1].Scopes[0].Leases[0].Attrs = map[string]string{domain.AttrInvalidExpiry: "garbage"}
	inv := run(t, snap)
	sums := inv.ScopeSummaries()
	if !sums[1].ActiveLeases.Known || sums[1].ActiveLeases.N != 1 {
		t.Fatalf("scope B active leases = %s", sums[1].ActiveLeases)
	}
	if len(inv.Failures) != 1 || inv.Failures[0].Stage != domain.StageLeaseDecode {
		t.Fatalf("unexpected failures %+v", inv.Failures)
	}
}

func TestSummarizeFailures(t *testing.T) {
	failures := []domain.Failure{
		{Server: "b", Stage: domain.StageScopes, Kind: domain.FailureUnreachable},
		{Server: "a", Scope: "10.0.0.0", Stage: domain.StageLeases, Kind: domain.FailureAccessDenied},
		{Server: "a", Scope: "10.0.0.0", Stage: domain.StageOptions, Kind: domain.FailureAccessDenied},
	}
	sum := SummarizeFailures(failures)
	if sum.Total != 3 || sum.ByKind[domain.FailureAccessDenied] != 2 || sum.ByKind[domain.FailureUnreachable] != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	nodes := make([]string, 0, len(sum.ByNode))
	for _, n := range sum.ByNode {
		nodes = append(nodes, n.Node)
	}
	if !slices.Equal(nodes, []string{"a|10.0.0.0", "b"}) || sum.ByNode[0].Total != 2 {
		t.Fatalf("unexpected nodes: %+v", sum.ByNode)
	}
}

func TestBuildGraphRows(t *testing.T) {
	inv := run(t, endToEndSnapshot())
	risk := health.Assess(health.DefaultConfig(), inv.ScopeSummaries())
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	nodes, rels := BuildGraphRows(inv, risk, "", now)

	// run + 2 server + 2 scope + 2 lease + 1 reservation
	if len(nodes) != 8 {
		t.Fatalf("expected 8 nodes, got %d", len(nodes))
	}
	runNode := nodes[0]
	if runNode.RunID != "20260102T030405Z" || runNode.Properties["tier"] != "Red" || runNode.Properties["total"] != 9 {
		t.Fatalf("unexpected run node: %+v", runNode)
	}
	counts := map[string]int{}
	for _, r := range rels {
		counts[r.Type]++
		if r.RunID != runNode.RunID {
			t.Fatalf("rel run id mismatch: %+v", r)
		}
	}
	want := map[string]int{
		domain.RelObserved:       2,
		domain.RelHasScope:       2,
		domain.RelHasLease:       2,
		domain.RelHasReservation: 1,
	}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Fatalf("rel counts (-want +got):\n%s", diff)
	}
	for _, n := range nodes {
		if n.Properties["content_hash"] == "" {
			t.Fatalf("node %s missing content hash", n.Key)
		}
		if slices.Contains(n.Labels, domain.LabelLease) && n.Properties["in_range"] != true {
			t.Fatalf("lease %s should be in range: %+v", n.Key, n.Properties)
		}
	}
}

func TestBuildGraphRowsFlagsOutOfRangeReservation(t *testing.T) {
	snap := endToEndSnapshot()
	snap.Servers[1].Scopes[0].Reservations[0].IPAddress = "10.9.9.9"
	inv := run(t, snap)
	nodes, _ := BuildGraphRows(inv, health.Assess(health.DefaultConfig(), inv.ScopeSummaries()), "r1", time.Now())
	found := false
	for _, n := range nodes {
		if !slices.Contains(n.Labels, domain.LabelReservation) {
			continue
		}
		found = true
		if n.Properties["in_range"] != false {
			t.Fatalf("reservation outside scope range not flagged: %+v", n.Properties)
		}
	}
	if !found {
		t.Fatalf("reservation node missing")
	}
}
