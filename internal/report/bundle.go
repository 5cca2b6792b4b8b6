package report

import (
	"strconv"
	"time"

	"roleinventory/internal/aggregate"
	"roleinventory/internal/domain"
	"roleinventory/internal/health"
)

// Bundle 是报表层的全部输入。
type Bundle struct {
	Title       string
	RunID       string
	GeneratedAt time.Time
	Inventory   aggregate.Inventory
	Risk        health.RiskAssessment
	Failures    aggregate.FailureSummary
}

// NewBundle 组装报表输入并计算失败汇总。
func NewBundle(title, runID string, at time.Time, inv aggregate.Inventory, risk health.RiskAssessment) Bundle {
	return Bundle{
		Title:       title,
		RunID:       runID,
		GeneratedAt: at.UTC(),
		Inventory:   inv,
		Risk:        risk,
		Failures:    aggregate.SummarizeFailures(inv.Failures),
	}
}

// Table 为一张扁平表，CSV、XLSX、HTML 共用。
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Tables 按固定顺序生成全部表，列顺序稳定。
func (b Bundle) Tables() []Table {
	inv := b.Inventory
	scores := make(map[string]int, len(b.Risk.Scores))
	for _, s := range b.Risk.Scores {
		scores[s.ScopeKey] = s.Score
	}
	summaries := inv.ScopeSummaries()

	servers := Table{Name: "servers", Header: []string{"name", "address", "role", "reachability"}}
	for _, s := range inv.Servers {
		servers.Rows = append(servers.Rows, []string{s.Name, s.Address, string(s.Role), string(s.Reachability)})
	}

	scopes := Table{Name: "scopes", Header: []string{
		"scope_key", "server", "scope_id", "name", "start", "end", "mask", "state",
		"lease_duration", "dynamic_updates", "in_use", "free", "utilization",
		"active_leases", "reservations", "score",
	}}
	for _, sum := range summaries {
		sc := sum.Scope
		scopes.Rows = append(scopes.Rows, []string{
			sc.Key(), sc.Server, sc.ScopeID, sc.Name, sc.Range.Start, sc.Range.End, sc.Range.Mask, string(sc.State),
			sc.LeaseDuration.String(), string(sc.DynamicUpdates), optUint(sc.InUse), optUint(sc.Free), sc.Utilization().String(),
			sum.ActiveLeases.String(), sum.Reservations.String(), strconv.Itoa(scores[sc.Key()]),
		})
	}

	leases := Table{Name: "leases", Header: []string{"scope_key", "server", "scope_id", "ip_address", "client_id", "host_name", "address_state", "expiry"}}
	for _, l := range inv.Leases {
		leases.Rows = append(leases.Rows, []string{l.ScopeKey, l.Server, l.ScopeID, l.IPAddress, l.ClientID, l.HostName, l.AddressState, formatTime(l.Expiry)})
	}

	reservations := Table{Name: "reservations", Header: []string{"scope_key", "server", "scope_id", "ip_address", "client_id", "name", "type", "description"}}
	for _, r := range inv.Reservations {
		reservations.Rows = append(reservations.Rows, []string{r.ScopeKey, r.Server, r.ScopeID, r.IPAddress, r.ClientID, r.Name, r.Type, r.Description})
	}

	options := Table{Name: "options", Header: []string{"scope_key", "server", "scope_id", "option_id", "name", "kind", "value", "vendor_class", "user_class"}}
	for _, o := range inv.Options {
		options.Rows = append(options.Rows, []string{
			o.ScopeKey, o.Server, o.ScopeID, strconv.Itoa(o.OptionID), o.Name, string(o.Value.Kind), o.Value.String(), o.VendorClass, o.UserClass,
		})
	}

	exclusions := Table{Name: "exclusions", Header: []string{"scope_key", "server", "scope_id", "start_address", "end_address"}}
	for _, x := range inv.Exclusions {
		exclusions.Rows = append(exclusions.Rows, []string{x.ScopeKey, x.Server, x.ScopeID, x.StartAddress, x.EndAddress})
	}

	zones := Table{Name: "zones", Header: []string{"zone_key", "server", "name", "type", "dynamic_update", "is_reverse", "is_ds_integrated"}}
	for _, z := range inv.Zones {
		zones.Rows = append(zones.Rows, []string{
			z.Key(), z.Server, z.Name, z.Type, z.DynamicUpdate, strconv.FormatBool(z.IsReverse), strconv.FormatBool(z.IsDsIntegrated),
		})
	}

	records := Table{Name: "records", Header: []string{"zone_key", "server", "zone", "name", "type", "ttl", "data"}}
	for _, r := range inv.Records {
		records.Rows = append(records.Rows, []string{r.ZoneKey, r.Server, r.Zone, r.Name, r.Type, strconv.FormatUint(uint64(r.TTL), 10), r.Data})
	}

	findings := Table{Name: "findings", Header: []string{"scope_key", "rule", "weight", "triggered", "detail"}}
	for _, f := range b.Risk.Findings {
		findings.Rows = append(findings.Rows, []string{f.ScopeKey, string(f.Rule), strconv.Itoa(f.Weight), strconv.FormatBool(f.Triggered), f.Detail})
	}

	failures := Table{Name: "failures", Header: []string{"node", "server", "scope", "stage", "kind", "message"}}
	for _, f := range inv.Failures {
		failures.Rows = append(failures.Rows, []string{f.Node(), f.Server, f.Scope, string(f.Stage), string(f.Kind), f.Message})
	}

	return []Table{servers, scopes, leases, reservations, options, exclusions, zones, records, findings, failures}
}

// KindCounts 按固定顺序返回失败分类计数。
func (b Bundle) KindCounts() []KindCount {
	out := make([]KindCount, 0, len(domain.FailureKinds))
	for _, k := range domain.FailureKinds {
		out = append(out, KindCount{Kind: k, Count: b.Failures.ByKind[k]})
	}
	return out
}

type KindCount struct {
	Kind  domain.FailureKind
	Count int
}

func optUint(v *uint32) string {
	if v == nil {
		return "unknown"
	}
	return strconv.FormatUint(uint64(*v), 10)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
