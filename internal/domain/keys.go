package domain

import (
	"fmt"
	"sort"
	"strings"
)

const (
	LabelServer      = "Server"
	LabelDHCPServer  = "DHCPServer"
	LabelDNSServer   = "DNSServer"
	LabelScope       = "Scope"
	LabelLease       = "Lease"
	LabelReservation = "Reservation"
	LabelOption      = "Option"
	LabelExclusion   = "Exclusion"
	LabelZone        = "Zone"
	LabelRecord      = "Record"
	LabelRun         = "InventoryRun"
	LabelInventory   = "Inventory"

	RelHasScope       = "HAS_SCOPE"
	RelHasLease       = "HAS_LEASE"
	RelHasReservation = "HAS_RESERVATION"
	RelHasOption      = "HAS_OPTION"
	RelHasExclusion   = "HAS_EXCLUSION"
	RelHasZone        = "HAS_ZONE"
	RelHasRecord      = "HAS_RECORD"
	RelObserved       = "OBSERVED"
	RelSameAddress    = "SAME_ADDRESS"
)

const (
	PrefixServer      = "SRV"
	PrefixScope       = "SCOPE"
	PrefixLease       = "LEASE"
	PrefixReservation = "RSV"
	PrefixOption      = "OPT"
	PrefixExclusion   = "EXCL"
	PrefixZone        = "ZONE"
	PrefixRecord      = "RR"
	PrefixRun         = "RUN"
)

// MakeKey 统一生成节点 key，带上前缀以避免不同实体冲突。
func MakeKey(prefix string, parts ...any) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	for _, p := range parts {
		sb.WriteByte('_')
		sb.WriteString(fmt.Sprint(p))
	}
	return sb.String()
}

// ServerKey 服务器名大小写不敏感。
func ServerKey(server string) string {
	return strings.ToLower(strings.TrimSpace(server))
}

// ScopeKey 生成 server|scopeId 形式的作用域 key，下游报表以此关联。
// scopeID 为空时即服务器级 key。
func ScopeKey(server, scopeID string) string {
	if scopeID == "" {
		return ServerKey(server)
	}
	return ServerKey(server) + "|" + strings.TrimSpace(scopeID)
}

// ZoneKey 生成 server|zone 形式的区域 key。
func ZoneKey(server, zone string) string {
	return ServerKey(server) + "|" + strings.ToLower(strings.TrimSuffix(strings.TrimSpace(zone), "."))
}

// LabelPattern 根据标签集合拼成 Cypher 模板所需的字符串，如 ":A:B"。
func LabelPattern(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	sorted := append([]string(nil), labels...)
	sort.Strings(sorted)
	return ":" + strings.Join(sorted, ":")
}

// JoinLabels 简单拼接标签用于 map key（内部使用）。
func JoinLabels(labels []string) string {
	sorted := append([]string(nil), labels...)
	sort.Strings(sorted)
	return strings.Join(sorted, ":")
}
