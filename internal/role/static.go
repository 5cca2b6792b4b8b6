package role

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"roleinventory/internal/domain"
)

// Snapshot 为离线夹具格式，JSON 与 YAML 均可读取。
// Errors 以 stage 为 key 注入失败，用于演示与测试。
type Snapshot struct {
	Servers []ServerFixture `yaml:"servers" json:"servers"`
	// DiscoveryError 非空时服务器发现直接失败。
	DiscoveryError string `yaml:"discovery_error,omitempty" json:"discovery_error,omitempty"`
}

// ServerFixture 描述一台服务器及其下属数据。
type ServerFixture struct {
	Name    string                        `yaml:"name" json:"name"`
	Address string                        `yaml:"address" json:"address"`
	Role    string                        `yaml:"role" json:"role"`
	Options []domain.RawOption            `yaml:"options" json:"options"`
	Scopes  []ScopeFixture                `yaml:"scopes" json:"scopes"`
	Zones   []ZoneFixture                 `yaml:"zones" json:"zones"`
	Errors  map[string]domain.FailureKind `yaml:"errors" json:"errors"`
}

// ScopeFixture 描述一个作用域。
type ScopeFixture struct {
	ScopeID              string                        `yaml:"scope_id" json:"scope_id"`
	Name                 string                        `yaml:"name" json:"name"`
	Start                string                        `yaml:"start" json:"start"`
	End                  string                        `yaml:"end" json:"end"`
	Mask                 string                        `yaml:"mask" json:"mask"`
	LeaseDurationSeconds int64                         `yaml:"lease_duration_seconds" json:"lease_duration_seconds"`
	State                string                        `yaml:"state" json:"state"`
	DynamicUpdates       string                        `yaml:"dynamic_updates" json:"dynamic_updates"`
	InUse                *uint32                       `yaml:"in_use" json:"in_use"`
	Free                 *uint32                       `yaml:"free" json:"free"`
	Leases               []domain.LeaseRecord          `yaml:"leases" json:"leases"`
	Reservations         []domain.ReservationRecord    `yaml:"reservations" json:"reservations"`
	Exclusions           []domain.ExclusionRecord      `yaml:"exclusions" json:"exclusions"`
	Options              []domain.RawOption            `yaml:"options" json:"options"`
	Errors               map[string]domain.FailureKind `yaml:"errors" json:"errors"`
}

// ZoneFixture 描述一个 DNS 区域。
type ZoneFixture struct {
	Name          string                  `yaml:"name" json:"name"`
	Type          string                  `yaml:"type" json:"type"`
	DynamicUpdate string                  `yaml:"dynamic_update" json:"dynamic_update"`
	IsReverse     bool                    `yaml:"is_reverse" json:"is_reverse"`
	Records       []domain.ResourceRecord `yaml:"records" json:"records"`
	Error         domain.FailureKind      `yaml:"error" json:"error"`
}

// LoadSnapshot 从文件加载夹具。
func LoadSnapshot(path string) (Snapshot, error) {
	var snap Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, fmt.Errorf("读取夹具失败: %w", err)
	}
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("解析夹具失败: %w", err)
	}
	return snap, nil
}

// StaticClient 用于测试或离线运行，直接返回内存中的快照。
type StaticClient struct {
	Snapshot Snapshot
}

// ListServers 返回快照中承担指定角色的服务器。
func (c *StaticClient) ListServers(_ context.Context, r domain.Role) ([]domain.ServerNode, error) {
	if c.Snapshot.DiscoveryError != "" {
		return nil, NewError(domain.FailureUnreachable, "list servers", fmt.Errorf("%s", c.Snapshot.DiscoveryError))
	}
	var out []domain.ServerNode
	for _, s := range c.Snapshot.Servers {
		sr, ok := domain.ParseRole(s.Role)
		if !ok {
			sr = domain.RoleDHCP
		}
		if sr != r {
			continue
		}
		out = append(out, domain.ServerNode{
			Name:         s.Name,
			Address:      s.Address,
			Role:         sr,
			Reachability: domain.ReachabilityUnknown,
		})
	}
	return out, nil
}

func (c *StaticClient) ListScopes(_ context.Context, server string) ([]domain.ScopeNode, error) {
	srv, err := c.server(server, domain.StageScopes)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ScopeNode, 0, len(srv.Scopes))
	for _, sc := range srv.Scopes {
		out = append(out, domain.ScopeNode{
			Server:         srv.Name,
			ScopeID:        sc.ScopeID,
			Name:           sc.Name,
			Range:          domain.AddressRange{Start: sc.Start, End: sc.End, Mask: sc.Mask},
			LeaseDuration:  time.Duration(sc.LeaseDurationSeconds) * time.Second,
			State:          domain.ScopeState(sc.State),
			DynamicUpdates: domain.DynamicUpdates(sc.DynamicUpdates),
			InUse:          sc.InUse,
			Free:           sc.Free,
		})
	}
	return out, nil
}

func (c *StaticClient) ListServerOptions(_ context.Context, server string) ([]domain.RawOption, error) {
	srv, err := c.server(server, domain.StageServerOptions)
	if err != nil {
		return nil, err
	}
	return srv.Options, nil
}

func (c *StaticClient) ListLeases(_ context.Context, server, scopeID string) ([]domain.LeaseRecord, error) {
	sc, err := c.scope(server, scopeID, domain.StageLeases)
	if err != nil {
		return nil, err
	}
	return sc.Leases, nil
}

func (c *StaticClient) ListReservations(_ context.Context, server, scopeID string) ([]domain.ReservationRecord, error) {
	sc, err := c.scope(server, scopeID, domain.StageReservations)
	if err != nil {
		return nil, err
	}
	return sc.Reservations, nil
}

func (c *StaticClient) ListExclusions(_ context.Context, server, scopeID string) ([]domain.ExclusionRecord, error) {
	sc, err := c.scope(server, scopeID, domain.StageExclusions)
	if err != nil {
		return nil, err
	}
	return sc.Exclusions, nil
}

func (c *StaticClient) ListOptions(_ context.Context, server, scopeID string) ([]domain.RawOption, error) {
	sc, err := c.scope(server, scopeID, domain.StageOptions)
	if err != nil {
		return nil, err
	}
	return sc.Options, nil
}

func (c *StaticClient) ListZones(_ context.Context, server string) ([]domain.ZoneRecord, error) {
	srv, err := c.server(server, domain.StageZones)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ZoneRecord, 0, len(srv.Zones))
	for _, z := range srv.Zones {
		out = append(out, domain.ZoneRecord{
			Server:        srv.Name,
			Name:          z.Name,
			Type:          z.Type,
			DynamicUpdate: z.DynamicUpdate,
			IsReverse:     z.IsReverse,
		})
	}
	return out, nil
}

func (c *StaticClient) ListRecords(_ context.Context, server, zone string) ([]domain.ResourceRecord, error) {
	srv, err := c.server(server, domain.StageRecords)
	if err != nil {
		return nil, err
	}
	for _, z := range srv.Zones {
		if !strings.EqualFold(z.Name, zone) {
			continue
		}
		if z.Error != "" {
			return nil, NewError(z.Error, "list records", fmt.Errorf("zone %s", zone))
		}
		return z.Records, nil
	}
	return nil, NewError(domain.FailureNotFound, "list records", fmt.Errorf("zone %s 不存在", zone))
}

func (c *StaticClient) server(name string, stage domain.Stage) (*ServerFixture, error) {
	for i := range c.Snapshot.Servers {
		srv := &c.Snapshot.Servers[i]
		if !strings.EqualFold(srv.Name, name) {
			continue
		}
		if kind, ok := srv.Errors[string(stage)]; ok {
			return nil, NewError(kind, string(stage), fmt.Errorf("server %s", name))
		}
		return srv, nil
	}
	return nil, NewError(domain.FailureUnreachable, string(stage), fmt.Errorf("server %s 不存在", name))
}

func (c *StaticClient) scope(server, scopeID string, stage domain.Stage) (*ScopeFixture, error) {
	srv, err := c.server(server, stage)
	if err != nil {
		return nil, err
	}
	for i := range srv.Scopes {
		sc := &srv.Scopes[i]
		if sc.ScopeID != scopeID {
			continue
		}
		if kind, ok := sc.Errors[string(stage)]; ok {
			return nil, NewError(kind, string(stage), fmt.Errorf("scope %s/%s", server, scopeID))
		}
		return sc, nil
	}
	return nil, NewError(domain.FailureNotFound, string(stage), fmt.Errorf("scope %s/%s 不存在", server, scopeID))
}
