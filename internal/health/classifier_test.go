package health

import (
	"testing"

	"roleinventory/internal/domain"
)

func u32(v uint32) *uint32 { return &v }

func summary(server, id, start, end, state string, inUse *uint32, leases, reservations domain.Count, updates domain.DynamicUpdates) domain.ScopeSummary {
	return domain.ScopeSummary{
		Scope: domain.ScopeNode{
			Server:         server,
			ScopeID:        id,
			Range:          domain.AddressRange{Start: start, End: end},
			State:          domain.ScopeState(state),
			InUse:          inUse,
			DynamicUpdates: updates,
		},
		ActiveLeases: leases,
		Reservations: reservations,
	}
}

func healthy(server, id string) domain.ScopeSummary {
	return summary(server, id, "10.0.0.1", "10.0.0.100", "Active", u32(10), domain.KnownCount(5), domain.KnownCount(2), domain.DynamicUpdatesAlways)
}

func TestTierBoundaries(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		total int
		want  Tier
	}{
		{0, TierGreen},
		{3, TierGreen},
		{4, TierYellow},
		{7, TierYellow},
		{8, TierRed},
		{30, TierRed},
	}
	for _, tc := range cases {
		if got := cfg.TierFor(tc.total); got != tc.want {
			t.Errorf("TierFor(%d) = %s, want %s", tc.total, got, tc.want)
		}
	}
}

func TestAssessEndToEndScenario(t *testing.T) {
	// A: 95% 利用率、无保留、无活动租约 → 3+1+2；B: Inactive → 3
	scopes := []domain.ScopeSummary{
		summary("A", "10.0.0.0", "10.0.0.1", "10.0.0.100", "Active", u32(95), domain.KnownCount(0), domain.KnownCount(0), domain.DynamicUpdatesAlways),
		summary("B", "10.1.0.0", "10.1.0.1", "10.1.0.100", "Inactive", u32(10), domain.KnownCount(3), domain.KnownCount(1), domain.DynamicUpdatesAlways),
	}
	res := Assess(DefaultConfig(), scopes)
	if res.Total != 9 || res.Tier != TierRed {
		t.Fatalf("total=%d tier=%s, want 9 Red", res.Total, res.Tier)
	}
	if res.Scores[0].Score != 6 || res.Scores[1].Score != 3 {
		t.Fatalf("unexpected per-scope scores: %+v", res.Scores)
	}
	if len(res.Findings) != len(scopes)*len(Rules) {
		t.Fatalf("expected one finding per rule per scope, got %d", len(res.Findings))
	}
}

func TestAssessTotalIsSumOfScopeScores(t *testing.T) {
	scopes := []domain.ScopeSummary{
		healthy("a", "10.0.0.0"),
		summary("a", "10.0.1.0", "10.0.1.1", "10.0.1.10", "Disabled", u32(10), domain.KnownCount(0), domain.KnownCount(0), domain.DynamicUpdatesNever),
		summary("b", "10.0.2.0", "10.0.2.1", "10.0.2.10", "active", nil, domain.KnownCount(1), domain.KnownCount(0), ""),
	}
	res := Assess(DefaultConfig(), scopes)
	sum := 0
	for _, s := range res.Scores {
		single := Assess(DefaultConfig(), []domain.ScopeSummary{scopes[indexOf(scopes, s.ScopeKey)]})
		if single.Total != s.Score {
			t.Fatalf("scope %s scored %d alone but %d together", s.ScopeKey, single.Total, s.Score)
		}
		sum += s.Score
	}
	if sum != res.Total {
		t.Fatalf("sum of scores %d != total %d", sum, res.Total)
	}
	// 0 + (3+3+2+1+2) + 1
	if res.Total != 12 {
		t.Fatalf("total = %d, want 12", res.Total)
	}
}

func indexOf(scopes []domain.ScopeSummary, key string) int {
	for i, s := range scopes {
		if s.Scope.Key() == key {
			return i
		}
	}
	return -1
}

func TestHighUtilizationUnknownRanges(t *testing.T) {
	cases := map[string]domain.ScopeSummary{
		"inverted":  summary("a", "10.0.0.0", "10.0.0.10", "10.0.0.5", "Active", u32(500), domain.KnownCount(1), domain.KnownCount(1), ""),
		"not ipv4":  summary("a", "10.0.0.0", "fe80::1", "fe80::ff", "Active", u32(500), domain.KnownCount(1), domain.KnownCount(1), ""),
		"no stats":  summary("a", "10.0.0.0", "10.0.0.1", "10.0.0.2", "Active", nil, domain.KnownCount(1), domain.KnownCount(1), ""),
		"zero size": summary("a", "10.0.0.0", "10.0.0.10", "10.0.0.9", "Active", u32(1), domain.KnownCount(1), domain.KnownCount(1), ""),
	}
	for name, sc := range cases {
		res := Assess(DefaultConfig(), []domain.ScopeSummary{sc})
		for _, f := range res.Findings {
			if f.Rule == RuleHighUtilization && f.Triggered {
				t.Errorf("%s: high-utilization must not fire", name)
			}
		}
		if res.Total != 0 {
			t.Errorf("%s: total = %d, want 0", name, res.Total)
		}
	}
}

func TestFullIPv4RangeDoesNotWrap(t *testing.T) {
	sc := domain.ScopeNode{Range: domain.AddressRange{Start: "0.0.0.0", End: "255.255.255.255"}, InUse: u32(100)}
	u := sc.Utilization()
	if !u.Known || u.Total != 1<<32 {
		t.Fatalf("utilization = %+v", u)
	}
}

func TestUnknownCountsDoNotTrigger(t *testing.T) {
	sc := summary("a", "10.0.0.0", "10.0.0.1", "10.0.0.100", "Active", u32(1), domain.Count{}, domain.Count{}, domain.DynamicUpdatesAlways)
	res := Assess(DefaultConfig(), []domain.ScopeSummary{sc})
	if res.Total != 0 {
		t.Fatalf("unknown counts triggered rules: %+v", res.Triggered())
	}
	for _, f := range res.Findings {
		if (f.Rule == RuleNoActiveLeases || f.Rule == RuleNoReservations) && f.Detail != "unknown" {
			t.Fatalf("expected unknown detail, got %+v", f)
		}
	}
}

func TestHighUtilizationThresholdIsStrict(t *testing.T) {
	// 100 个地址，90 个在用 = 90%，不超过阈值
	at := summary("a", "10.0.0.0", "10.0.0.1", "10.0.0.100", "Active", u32(90), domain.KnownCount(1), domain.KnownCount(1), "")
	over := summary("a", "10.0.0.0", "10.0.0.1", "10.0.0.100", "Active", u32(91), domain.KnownCount(1), domain.KnownCount(1), "")
	if Assess(DefaultConfig(), []domain.ScopeSummary{at}).Total != 0 {
		t.Fatalf("90%% should not trigger")
	}
	if Assess(DefaultConfig(), []domain.ScopeSummary{over}).Total != 3 {
		t.Fatalf("91%% should trigger")
	}
}

func TestConfigOverrides(t *testing.T) {
	cfg := Config{Weights: map[Rule]int{RuleNoReservations: 5}, GreenMax: 1, YellowMax: 4}.WithDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Weights[RuleInactiveScope] != 3 || cfg.Weights[RuleNoReservations] != 5 {
		t.Fatalf("weights not merged: %+v", cfg.Weights)
	}
	sc := summary("a", "10.0.0.0", "10.0.0.1", "10.0.0.100", "Active", u32(1), domain.KnownCount(1), domain.KnownCount(0), "")
	res := Assess(cfg, []domain.ScopeSummary{sc})
	if res.Total != 5 || res.Tier != TierRed {
		t.Fatalf("total=%d tier=%s", res.Total, res.Tier)
	}

	bad := Config{GreenMax: 7, YellowMax: 3}.WithDefaults()
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected invalid thresholds")
	}
	greenOnly := Config{GreenMax: 5}.WithDefaults()
	if err := greenOnly.Validate(); err != nil || greenOnly.YellowMax != 7 {
		t.Fatalf("green_max alone should keep default yellow_max: %+v err=%v", greenOnly, err)
	}
	if greenOnly.TierFor(5) != TierGreen || greenOnly.TierFor(6) != TierYellow {
		t.Fatalf("unexpected tiers for green_max=5")
	}
	yellowOnly := Config{YellowMax: 12}.WithDefaults()
	if yellowOnly.GreenMax != 3 || yellowOnly.YellowMax != 12 {
		t.Fatalf("yellow_max alone should keep default green_max: %+v", yellowOnly)
	}
	unknown := Config{Weights: map[Rule]int{"bogus": 1}}.WithDefaults()
	if err := unknown.Validate(); err == nil {
		t.Fatalf("expected unknown rule error")
	}
}

func TestParseTier(t *testing.T) {
	tier, err := ParseTier(" red ")
	if err != nil || tier != TierRed {
		t.Fatalf("ParseTier = %s, %v", tier, err)
	}
	if TierYellow.Rank() <= TierGreen.Rank() || TierRed.Rank() <= TierYellow.Rank() {
		t.Fatalf("tier ranks not ordered")
	}
	if _, err := ParseTier("purple"); err == nil {
		t.Fatalf("expected error")
	}
}
