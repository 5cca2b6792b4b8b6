package domain

import (
	"strconv"
	"strings"
	"time"
)

// Role 表示服务器承担的角色。
type Role string

const (
	RoleDHCP Role = "DHCP"
	RoleDNS  Role = "DNS"
)

// ParseRole 解析配置中的角色名，大小写不敏感。
func ParseRole(s string) (Role, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(RoleDHCP):
		return RoleDHCP, true
	case string(RoleDNS):
		return RoleDNS, true
	}
	return "", false
}

// Reachability 表示服务器的连通状态，探测前为 Unknown。
type Reachability string

const (
	ReachabilityUnknown     Reachability = "Unknown"
	ReachabilityReachable   Reachability = "Reachable"
	ReachabilityUnreachable Reachability = "Unreachable"
)

// ServerNode 表示一台 DHCP/DNS 服务器。
type ServerNode struct {
	Name         string       `json:"name"`
	Address      string       `json:"address,omitempty"`
	Role         Role         `json:"role"`
	Reachability Reachability `json:"reachability"`
}

// Key 返回服务器的稳定标识。
func (s ServerNode) Key() string {
	return ServerKey(s.Name)
}

// ScopeState 为作用域的管理状态。
type ScopeState string

const (
	ScopeActive   ScopeState = "Active"
	ScopeInactive ScopeState = "Inactive"
)

// DynamicUpdates 为作用域的 DNS 动态更新策略。
type DynamicUpdates string

const (
	DynamicUpdatesAlways          DynamicUpdates = "Always"
	DynamicUpdatesOnClientRequest DynamicUpdates = "OnClientRequest"
	DynamicUpdatesNever           DynamicUpdates = "Never"
)

// ScopeNode 表示某台服务器下的一个 IPv4 作用域。
// InUse/Free 来自作用域统计，采集不到时为 nil。
type ScopeNode struct {
	Server         string         `json:"server"`
	ScopeID        string         `json:"scope_id"`
	Name           string         `json:"name"`
	Range          AddressRange   `json:"range"`
	LeaseDuration  time.Duration  `json:"lease_duration"`
	State          ScopeState     `json:"state"`
	DynamicUpdates DynamicUpdates `json:"dynamic_updates,omitempty"`
	InUse          *uint32        `json:"in_use,omitempty"`
	Free           *uint32        `json:"free,omitempty"`
	Description    string         `json:"description,omitempty"`
}

// Key 返回作用域的稳定标识（server|scopeId）。
func (s ScopeNode) Key() string {
	return ScopeKey(s.Server, s.ScopeID)
}

// IsActive 判断作用域是否为 Active，大小写不敏感。
func (s ScopeNode) IsActive() bool {
	return strings.EqualFold(string(s.State), string(ScopeActive))
}

// Utilization 计算作用域地址利用率。
func (s ScopeNode) Utilization() Utilization {
	if s.InUse == nil {
		return UnknownUtilization
	}
	return ComputeUtilization(s.Range, *s.InUse)
}

// LeaseRecord 为一条租约快照。
type LeaseRecord struct {
	IPAddress    string            `json:"ip_address" yaml:"ip_address"`
	ClientID     string            `json:"client_id" yaml:"client_id"`
	HostName     string            `json:"host_name,omitempty" yaml:"host_name,omitempty"`
	AddressState string            `json:"address_state" yaml:"address_state"`
	Expiry       time.Time         `json:"expiry,omitempty" yaml:"expiry,omitempty"`
	Attrs        map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

// AttrInvalidExpiry 保存无法解析的原始到期时间，此时 Expiry 为零值。
const AttrInvalidExpiry = "invalid_expiry"

// IsActive 判断租约状态是否为 Active。
func (l LeaseRecord) IsActive() bool {
	return strings.EqualFold(strings.TrimSpace(l.AddressState), "Active")
}

// ReservationRecord 为一条地址保留。
type ReservationRecord struct {
	IPAddress   string            `json:"ip_address" yaml:"ip_address"`
	ClientID    string            `json:"client_id" yaml:"client_id"`
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	Type        string            `json:"type,omitempty" yaml:"type,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Attrs       map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

// ExclusionRecord 为作用域中的排除地址段。
type ExclusionRecord struct {
	StartAddress string            `json:"start_address" yaml:"start_address"`
	EndAddress   string            `json:"end_address" yaml:"end_address"`
	Attrs        map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

// RawOption 为角色接口返回的原始选项值。
type RawOption struct {
	OptionID    int      `json:"option_id" yaml:"option_id"`
	Name        string   `json:"name,omitempty" yaml:"name,omitempty"`
	Values      []string `json:"values" yaml:"values"`
	VendorClass string   `json:"vendor_class,omitempty" yaml:"vendor_class,omitempty"`
	UserClass   string   `json:"user_class,omitempty" yaml:"user_class,omitempty"`
}

// OptionRecord 为解码后的选项，ScopeID 为空表示服务器级选项。
type OptionRecord struct {
	OptionID    int         `json:"option_id"`
	Name        string      `json:"name"`
	Value       OptionValue `json:"value"`
	VendorClass string      `json:"vendor_class,omitempty"`
	UserClass   string      `json:"user_class,omitempty"`
}

// ZoneRecord 表示一个 DNS 区域。
type ZoneRecord struct {
	Server         string `json:"server"`
	Name           string `json:"name"`
	Type           string `json:"type,omitempty"`
	DynamicUpdate  string `json:"dynamic_update,omitempty"`
	IsReverse      bool   `json:"is_reverse"`
	IsDsIntegrated bool   `json:"is_ds_integrated"`
}

// Key 返回区域的稳定标识。
func (z ZoneRecord) Key() string {
	return ZoneKey(z.Server, z.Name)
}

// ResourceRecord 为一条 DNS 记录。
type ResourceRecord struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
	TTL  uint32 `json:"ttl" yaml:"ttl"`
	Data string `json:"data" yaml:"data"`
}

// NodeRow 是批量 upsert 的统一 DTO。
type NodeRow struct {
	Key        string         `json:"key"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
	RunID      string         `json:"run_id"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// RelRow 代表一条关系需要的信息。
type RelRow struct {
	StartKey   string         `json:"start_key"`
	EndKey     string         `json:"end_key"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	RunID      string         `json:"run_id"`
}

// Count 为派生计数，采集失败时 Known 为 false，不能按 0 处理。
type Count struct {
	N     int  `json:"n"`
	Known bool `json:"known"`
}

// KnownCount 构造已知计数。
func KnownCount(n int) Count {
	return Count{N: n, Known: true}
}

func (c Count) String() string {
	if !c.Known {
		return "unknown"
	}
	return strconv.Itoa(c.N)
}

// ScopeSummary 为健康评估的输入：作用域本身加上子集合的派生计数。
type ScopeSummary struct {
	Scope        ScopeNode `json:"scope"`
	ActiveLeases Count     `json:"active_leases"`
	Reservations Count     `json:"reservations"`
}
