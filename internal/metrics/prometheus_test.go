package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"roleinventory/internal/domain"
)

func TestObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustRegister(reg)

	failures := []domain.Failure{
		{Server: "dhcp-a", Stage: domain.StageLeases, Kind: domain.FailureAccessDenied},
		{Server: "dhcp-b", Stage: domain.StageLeases, Kind: domain.FailureAccessDenied},
		{Server: "dhcp-c", Stage: domain.StageScopes, Kind: domain.FailureUnreachable},
	}
	ObserveRun(3*time.Second, failures, 9, 4, time.Unix(1700000000, 0))

	if got := testutil.ToFloat64(Failures.WithLabelValues("AccessDenied", "leases")); got != 2 {
		t.Fatalf("expected 2 lease failures, got %v", got)
	}
	if got := testutil.ToFloat64(RiskTotal); got != 9 {
		t.Fatalf("expected risk total 9, got %v", got)
	}
	if got := testutil.ToFloat64(LastSuccess); got != 1700000000 {
		t.Fatalf("unexpected last success %v", got)
	}
	if n := testutil.CollectAndCount(CollectDuration); n != 1 {
		t.Fatalf("expected 1 histogram, got %d", n)
	}
}
