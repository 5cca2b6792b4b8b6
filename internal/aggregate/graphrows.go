package aggregate

import (
	"time"

	"roleinventory/internal/domain"
	"roleinventory/internal/health"
	"roleinventory/pkg/util"
)

// BuildGraphRows 把一次运行的清单映射为图节点与关系，Run 节点记录总分与等级。
func BuildGraphRows(inv Inventory, risk health.RiskAssessment, runID string, now time.Time) ([]domain.NodeRow, []domain.RelRow) {
	now = now.UTC()
	if runID == "" {
		runID = now.Format("20060102T150405Z")
	}
	b := &rowBuilder{runID: runID, now: now}

	runKey := domain.MakeKey(domain.PrefixRun, runID)
	b.node(runKey, []string{domain.LabelRun}, map[string]any{
		"run_id":     runID,
		"total":      risk.Total,
		"tier":       string(risk.Tier),
		"failures":   len(inv.Failures),
		"scopes":     len(inv.Scopes),
		"started_at": now.Format(time.RFC3339),
	})

	serverKeys := make(map[string]string, len(inv.Servers))
	for _, s := range inv.Servers {
		key := serverNodeKey(s.Role, s.Name)
		serverKeys[string(s.Role)+"/"+s.Key()] = key
		roleLabel := domain.LabelDHCPServer
		if s.Role == domain.RoleDNS {
			roleLabel = domain.LabelDNSServer
		}
		b.node(key, []string{domain.LabelServer, roleLabel}, map[string]any{
			"name":         s.Name,
			"address":      s.Address,
			"role":         string(s.Role),
			"reachability": string(s.Reachability),
		})
		b.rel(runKey, key, domain.RelObserved, nil)
	}

	scores := make(map[string]int, len(risk.Scores))
	for _, s := range risk.Scores {
		scores[s.ScopeKey] = s.Score
	}
	ranges := make(map[string]domain.AddressRange, len(inv.Scopes))
	for _, sc := range inv.Scopes {
		key := domain.MakeKey(domain.PrefixScope, sc.Key())
		ranges[sc.Key()] = sc.Range
		u := sc.Utilization()
		props := map[string]any{
			"server":                 sc.Server,
			"scope_id":               sc.ScopeID,
			"name":                   sc.Name,
			"start":                  sc.Range.Start,
			"end":                    sc.Range.End,
			"mask":                   sc.Range.Mask,
			"state":                  string(sc.State),
			"dynamic_updates":        string(sc.DynamicUpdates),
			"lease_duration_seconds": int64(sc.LeaseDuration / time.Second),
			"score":                  scores[sc.Key()],
		}
		if sc.InUse != nil {
			props["in_use"] = int64(*sc.InUse)
		}
		if sc.Free != nil {
			props["free"] = int64(*sc.Free)
		}
		if u.Known {
			props["utilization"] = u.Percent
		}
		b.node(key, []string{domain.LabelScope}, props)
		if srvKey, ok := serverKeys[string(domain.RoleDHCP)+"/"+domain.ServerKey(sc.Server)]; ok {
			b.rel(srvKey, key, domain.RelHasScope, nil)
		}
	}

	for _, l := range inv.Leases {
		key := domain.MakeKey(domain.PrefixLease, l.ScopeKey, l.IPAddress, l.ClientID)
		props := map[string]any{
			"scope_key":     l.ScopeKey,
			"ip":            l.IPAddress,
			"client_id":     l.ClientID,
			"host_name":     l.HostName,
			"address_state": l.AddressState,
		}
		if !l.Expiry.IsZero() {
			props["expiry"] = l.Expiry.UTC().Format(time.RFC3339)
		}
		if rng, ok := ranges[l.ScopeKey]; ok {
			props["in_range"] = rng.Contains(l.IPAddress)
		}
		b.node(key, []string{domain.LabelLease}, props)
		b.rel(domain.MakeKey(domain.PrefixScope, l.ScopeKey), key, domain.RelHasLease, nil)
	}

	for _, r := range inv.Reservations {
		key := domain.MakeKey(domain.PrefixReservation, r.ScopeKey, r.IPAddress)
		props := map[string]any{
			"scope_key":   r.ScopeKey,
			"ip":          r.IPAddress,
			"client_id":   r.ClientID,
			"name":        r.Name,
			"type":        r.Type,
			"description": r.Description,
		}
		// 不在作用域地址段内的租约与保留通常是配置残留
		if rng, ok := ranges[r.ScopeKey]; ok {
			props["in_range"] = rng.Contains(r.IPAddress)
		}
		b.node(key, []string{domain.LabelReservation}, props)
		b.rel(domain.MakeKey(domain.PrefixScope, r.ScopeKey), key, domain.RelHasReservation, nil)
	}

	for _, x := range inv.Exclusions {
		key := domain.MakeKey(domain.PrefixExclusion, x.ScopeKey, x.StartAddress, x.EndAddress)
		b.node(key, []string{domain.LabelExclusion}, map[string]any{
			"scope_key": x.ScopeKey,
			"start":     x.StartAddress,
			"end":       x.EndAddress,
		})
		b.rel(domain.MakeKey(domain.PrefixScope, x.ScopeKey), key, domain.RelHasExclusion, nil)
	}

	for _, o := range inv.Options {
		key := domain.MakeKey(domain.PrefixOption, o.ScopeKey, o.OptionID, o.VendorClass, o.UserClass)
		b.node(key, []string{domain.LabelOption}, map[string]any{
			"scope_key":    o.ScopeKey,
			"option_id":    o.OptionID,
			"name":         o.Name,
			"kind":         string(o.Value.Kind),
			"value":        o.Value.String(),
			"vendor_class": o.VendorClass,
			"user_class":   o.UserClass,
		})
		owner := domain.MakeKey(domain.PrefixScope, o.ScopeKey)
		if o.ScopeID == "" {
			owner = serverNodeKey(domain.RoleDHCP, o.Server)
		}
		b.rel(owner, key, domain.RelHasOption, nil)
	}

	for _, z := range inv.Zones {
		key := domain.MakeKey(domain.PrefixZone, z.Key())
		b.node(key, []string{domain.LabelZone}, map[string]any{
			"server":           z.Server,
			"name":             z.Name,
			"type":             z.Type,
			"dynamic_update":   z.DynamicUpdate,
			"is_reverse":       z.IsReverse,
			"is_ds_integrated": z.IsDsIntegrated,
		})
		b.rel(serverNodeKey(domain.RoleDNS, z.Server), key, domain.RelHasZone, nil)
	}

	for _, r := range inv.Records {
		content := util.HashMap(map[string]any{"name": r.Name, "type": r.Type, "data": r.Data})
		key := domain.MakeKey(domain.PrefixRecord, r.ZoneKey, content[:16])
		b.node(key, []string{domain.LabelRecord}, map[string]any{
			"zone_key": r.ZoneKey,
			"name":     r.Name,
			"type":     r.Type,
			"ttl":      int64(r.TTL),
			"data":     r.Data,
		})
		b.rel(domain.MakeKey(domain.PrefixZone, r.ZoneKey), key, domain.RelHasRecord, nil)
	}

	return b.nodes, b.rels
}

func serverNodeKey(r domain.Role, name string) string {
	return domain.MakeKey(domain.PrefixServer, string(r), domain.ServerKey(name))
}

type rowBuilder struct {
	runID string
	now   time.Time
	nodes []domain.NodeRow
	rels  []domain.RelRow
}

func (b *rowBuilder) node(key string, labels []string, props map[string]any) {
	props["content_hash"] = util.HashMap(props)
	b.nodes = append(b.nodes, domain.NodeRow{
		Key:        key,
		Labels:     append(labels, domain.LabelInventory),
		Properties: props,
		RunID:      b.runID,
		UpdatedAt:  b.now,
	})
}

func (b *rowBuilder) rel(start, end, relType string, props map[string]any) {
	if props == nil {
		props = map[string]any{"source": "inventory"}
	}
	b.rels = append(b.rels, domain.RelRow{
		StartKey:   start,
		EndKey:     end,
		Type:       relType,
		Properties: props,
		RunID:      b.runID,
	})
}
