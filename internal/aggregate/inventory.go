package aggregate

import (
	"iter"

	"roleinventory/internal/domain"
	"roleinventory/internal/traverse"
)

// LeaseRow 为带作用域 key 的租约行。
type LeaseRow struct {
	ScopeKey string `json:"scope_key"`
	Server   string `json:"server"`
	ScopeID  string `json:"scope_id"`
	domain.LeaseRecord
}

type ReservationRow struct {
	ScopeKey string `json:"scope_key"`
	Server   string `json:"server"`
	ScopeID  string `json:"scope_id"`
	domain.ReservationRecord
}

// OptionRow 的 ScopeID 为空时为服务器级选项，ScopeKey 即服务器 key。
type OptionRow struct {
	ScopeKey string `json:"scope_key"`
	Server   string `json:"server"`
	ScopeID  string `json:"scope_id,omitempty"`
	domain.OptionRecord
}

type ExclusionRow struct {
	ScopeKey string `json:"scope_key"`
	Server   string `json:"server"`
	ScopeID  string `json:"scope_id"`
	domain.ExclusionRecord
}

// RecordRow 为带区域 key 的 DNS 记录行。
type RecordRow struct {
	ZoneKey string `json:"zone_key"`
	Server  string `json:"server"`
	Zone    string `json:"zone"`
	domain.ResourceRecord
}

// Inventory 为一次运行的全部采集结果，各集合保持事件到达顺序。
type Inventory struct {
	Servers      []domain.ServerNode `json:"servers"`
	Scopes       []domain.ScopeNode  `json:"scopes"`
	Leases       []LeaseRow          `json:"leases"`
	Reservations []ReservationRow    `json:"reservations"`
	Options      []OptionRow         `json:"options"`
	Exclusions   []ExclusionRow      `json:"exclusions"`
	Zones        []domain.ZoneRecord `json:"zones"`
	Records      []RecordRow         `json:"records"`
	Failures     []domain.Failure    `json:"failures"`
}

// Aggregator 把事件折叠为 Inventory。只做追加，不去重：
// 同一地址的租约与保留是两行。
type Aggregator struct {
	inv Inventory
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Add 处理一个事件，子记录在此时就带上所属作用域的 key。
func (a *Aggregator) Add(ev traverse.Event) {
	switch v := ev.(type) {
	case traverse.ServerVisited:
		a.inv.Servers = append(a.inv.Servers, v.Server)
	case traverse.ScopeVisited:
		a.inv.Scopes = append(a.inv.Scopes, v.Scope)
	case traverse.LeaseFound:
		a.inv.Leases = append(a.inv.Leases, LeaseRow{
			ScopeKey:    domain.ScopeKey(v.Server, v.ScopeID),
			Server:      v.Server,
			ScopeID:     v.ScopeID,
			LeaseRecord: v.Lease,
		})
	case traverse.ReservationFound:
		a.inv.Reservations = append(a.inv.Reservations, ReservationRow{
			ScopeKey:          domain.ScopeKey(v.Server, v.ScopeID),
			Server:            v.Server,
			ScopeID:           v.ScopeID,
			ReservationRecord: v.Reservation,
		})
	case traverse.OptionFound:
		a.inv.Options = append(a.inv.Options, OptionRow{
			ScopeKey:     domain.ScopeKey(v.Server, v.ScopeID),
			Server:       v.Server,
			ScopeID:      v.ScopeID,
			OptionRecord: v.Option,
		})
	case traverse.ExclusionFound:
		a.inv.Exclusions = append(a.inv.Exclusions, ExclusionRow{
			ScopeKey:        domain.ScopeKey(v.Server, v.ScopeID),
			Server:          v.Server,
			ScopeID:         v.ScopeID,
			ExclusionRecord: v.Exclusion,
		})
	case traverse.ZoneVisited:
		a.inv.Zones = append(a.inv.Zones, v.Zone)
	case traverse.RecordFound:
		a.inv.Records = append(a.inv.Records, RecordRow{
			ZoneKey:        domain.ZoneKey(v.Server, v.Zone),
			Server:         v.Server,
			Zone:           v.Zone,
			ResourceRecord: v.Record,
		})
	case traverse.FailureOccurred:
		a.inv.Failures = append(a.inv.Failures, v.Failure)
	}
}

// Inventory 返回当前累积的结果。
func (a *Aggregator) Inventory() Inventory {
	return a.inv
}

// Collect 消费整个事件序列。
func Collect(events iter.Seq[traverse.Event]) Inventory {
	a := NewAggregator()
	for ev := range events {
		a.Add(ev)
	}
	return a.Inventory()
}

// ScopeSummaries 为每个作用域派生活动租约数与保留数；
// 对应集合采集失败时计数为 Unknown。ScopeID 为空的作用域同样按 (server, scope, stage) 匹配。
func (inv Inventory) ScopeSummaries() []domain.ScopeSummary {
	failed := make(map[string]map[domain.Stage]bool)
	for _, f := range inv.Failures {
		k := domain.ScopeKey(f.Server, f.Scope)
		if failed[k] == nil {
			failed[k] = make(map[domain.Stage]bool)
		}
		failed[k][f.Stage] = true
	}
	active := make(map[string]int)
	for _, l := range inv.Leases {
		if l.IsActive() {
			active[l.ScopeKey]++
		}
	}
	reserved := make(map[string]int)
	for _, r := range inv.Reservations {
		reserved[r.ScopeKey]++
	}

	out := make([]domain.ScopeSummary, 0, len(inv.Scopes))
	for _, sc := range inv.Scopes {
		k := sc.Key()
		sum := domain.ScopeSummary{
			Scope:        sc,
			ActiveLeases: domain.KnownCount(active[k]),
			Reservations: domain.KnownCount(reserved[k]),
		}
		if failed[k][domain.StageLeases] {
			sum.ActiveLeases = domain.Count{}
		}
		if failed[k][domain.StageReservations] {
			sum.Reservations = domain.Count{}
		}
		out = append(out, sum)
	}
	return out
}

// Counts 返回各集合的行数，用于控制台汇总与指标。
func (inv Inventory) Counts() map[string]int {
	return map[string]int{
		"servers":      len(inv.Servers),
		"scopes":       len(inv.Scopes),
		"leases":       len(inv.Leases),
		"reservations": len(inv.Reservations),
		"options":      len(inv.Options),
		"exclusions":   len(inv.Exclusions),
		"zones":        len(inv.Zones),
		"records":      len(inv.Records),
		"failures":     len(inv.Failures),
	}
}
