package role

import (
	"context"
	"errors"
	"fmt"

	"roleinventory/internal/domain"
)

// Directory 负责发现承担某个角色的服务器。
type Directory interface {
	ListServers(ctx context.Context, role domain.Role) ([]domain.ServerNode, error)
}

// DHCPClient 抽象 DHCP 角色的查询接口，每个调用可独立失败。
type DHCPClient interface {
	ListScopes(ctx context.Context, server string) ([]domain.ScopeNode, error)
	ListServerOptions(ctx context.Context, server string) ([]domain.RawOption, error)
	ListLeases(ctx context.Context, server, scopeID string) ([]domain.LeaseRecord, error)
	ListReservations(ctx context.Context, server, scopeID string) ([]domain.ReservationRecord, error)
	ListExclusions(ctx context.Context, server, scopeID string) ([]domain.ExclusionRecord, error)
	ListOptions(ctx context.Context, server, scopeID string) ([]domain.RawOption, error)
}

// DNSClient 抽象 DNS 角色的查询接口。
type DNSClient interface {
	ListZones(ctx context.Context, server string) ([]domain.ZoneRecord, error)
	ListRecords(ctx context.Context, server, zone string) ([]domain.ResourceRecord, error)
}

// Client 汇总全部角色接口。
type Client interface {
	Directory
	DHCPClient
	DNSClient
}

// Error 为角色接口返回的带分类错误。
type Error struct {
	Kind domain.FailureKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError 构造带分类的错误。
func NewError(kind domain.FailureKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf 提取错误分类。超时与未分类错误按 Unreachable 处理。
func KindOf(err error) domain.FailureKind {
	var roleErr *Error
	if errors.As(err, &roleErr) && roleErr.Kind != "" {
		return roleErr.Kind
	}
	return domain.FailureUnreachable
}
