package role

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"roleinventory/internal/domain"
	"roleinventory/internal/util"
)

// Runner 执行一段 PowerShell 脚本并返回标准输出。
type Runner interface {
	Run(ctx context.Context, script string) ([]byte, error)
}

// ExecRunner 通过本机 powershell 进程执行脚本。
type ExecRunner struct {
	Binary  string
	Timeout time.Duration
}

// Run 实现 Runner。超时视为 Unreachable。
func (r *ExecRunner) Run(ctx context.Context, script string) ([]byte, error) {
	bin := r.Binary
	if strings.TrimSpace(bin) == "" {
		bin = "powershell.exe"
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, bin, "-NoProfile", "-NonInteractive", "-Command", script)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewError(domain.FailureUnreachable, "powershell", ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, NewError(ClassifyMessage(msg), "powershell", errors.New(msg))
	}
	return out, nil
}

// ClassifyMessage 根据 cmdlet 错误文本判断失败分类。
func ClassifyMessage(msg string) domain.FailureKind {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "access is denied"),
		strings.Contains(lower, "permissiondenied"),
		strings.Contains(lower, "unauthorizedaccess"):
		return domain.FailureAccessDenied
	case strings.Contains(lower, "objectnotfound"),
		strings.Contains(lower, "does not exist"),
		strings.Contains(lower, "cannot find"),
		strings.Contains(lower, "not found"):
		return domain.FailureNotFound
	}
	return domain.FailureUnreachable
}

// PowerShellConfig 配置 PowerShell 客户端。
type PowerShellConfig struct {
	Runner        Runner
	RetryAttempts int
	RetryBackoff  time.Duration
	Logger        *zap.Logger
}

// PowerShellClient 通过 DhcpServer/DnsServer/ActiveDirectory 模块的 cmdlet 实现 Client。
type PowerShellClient struct {
	runner   Runner
	attempts int
	backoff  time.Duration
	logger   *zap.Logger
}

// NewPowerShellClient 创建 PowerShell 客户端。
func NewPowerShellClient(cfg PowerShellConfig) (*PowerShellClient, error) {
	if cfg.Runner == nil {
		return nil, errors.New("powershell runner 不能为空")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PowerShellClient{
		runner:   cfg.Runner,
		attempts: cfg.RetryAttempts,
		backoff:  cfg.RetryBackoff,
		logger:   logger,
	}, nil
}

type psServer struct {
	Name    string `json:"Name"`
	Address string `json:"Address"`
}

const listDHCPServersScript = `Get-DhcpServerInDC | Select-Object @{n='Name';e={$_.DnsName}},@{n='Address';e={$_.IPAddress.IPAddressToString}}`

const listDNSServersScript = `Get-ADDomainController -Filter * | Select-Object @{n='Name';e={$_.HostName}},@{n='Address';e={$_.IPv4Address}}`

func (c *PowerShellClient) ListServers(ctx context.Context, r domain.Role) ([]domain.ServerNode, error) {
	script := listDHCPServersScript
	if r == domain.RoleDNS {
		script = listDNSServersScript
	}
	rows, err := query[psServer](ctx, c, "list servers", script)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ServerNode, 0, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row.Name) == "" {
			continue
		}
		out = append(out, domain.ServerNode{Name: row.Name, Address: row.Address, Role: r, Reachability: domain.ReachabilityUnknown})
	}
	return out, nil
}

type psScope struct {
	ScopeID              string  `json:"ScopeId"`
	Name                 string  `json:"Name"`
	StartRange           string  `json:"StartRange"`
	EndRange             string  `json:"EndRange"`
	SubnetMask           string  `json:"SubnetMask"`
	LeaseDurationSeconds int64   `json:"LeaseDurationSeconds"`
	State                string  `json:"State"`
	Description          string  `json:"Description"`
	DynamicUpdates       *string `json:"DynamicUpdates"`
	InUse                *uint32 `json:"InUse"`
	Free                 *uint32 `json:"Free"`
}

const listScopesScript = `$stats = @{}
Get-DhcpServerv4ScopeStatistics -ComputerName %[1]s -ErrorAction SilentlyContinue | ForEach-Object { $stats[$_.ScopeId.IPAddressToString] = $_ }
Get-DhcpServerv4Scope -ComputerName %[1]s | ForEach-Object {
  $id = $_.ScopeId.IPAddressToString
  $st = $stats[$id]
  $dns = Get-DhcpServerv4DnsSetting -ComputerName %[1]s -ScopeId $id -ErrorAction SilentlyContinue
  [pscustomobject]@{
    ScopeId = $id
    Name = $_.Name
    StartRange = $_.StartRange.IPAddressToString
    EndRange = $_.EndRange.IPAddressToString
    SubnetMask = $_.SubnetMask.IPAddressToString
    LeaseDurationSeconds = [int64]$_.LeaseDuration.TotalSeconds
    State = [string]$_.State
    Description = $_.Description
    DynamicUpdates = if ($dns) { [string]$dns.DynamicUpdates } else { $null }
    InUse = if ($st) { [uint32]$st.InUse } else { $null }
    Free = if ($st) { [uint32]$st.Free } else { $null }
  }
}`

func (c *PowerShellClient) ListScopes(ctx context.Context, server string) ([]domain.ScopeNode, error) {
	rows, err := query[psScope](ctx, c, "list scopes", fmt.Sprintf(listScopesScript, quote(server)))
	if err != nil {
		return nil, err
	}
	out := make([]domain.ScopeNode, 0, len(rows))
	for _, row := range rows {
		scope := domain.ScopeNode{
			Server:        server,
			ScopeID:       row.ScopeID,
			Name:          row.Name,
			Range:         domain.AddressRange{Start: row.StartRange, End: row.EndRange, Mask: row.SubnetMask},
			LeaseDuration: time.Duration(row.LeaseDurationSeconds) * time.Second,
			State:         domain.ScopeState(row.State),
			Description:   row.Description,
			InUse:         row.InUse,
			Free:          row.Free,
		}
		if row.DynamicUpdates != nil {
			scope.DynamicUpdates = domain.DynamicUpdates(*row.DynamicUpdates)
		}
		out = append(out, scope)
	}
	return out, nil
}

type psOption struct {
	OptionID    int      `json:"OptionId"`
	Name        string   `json:"Name"`
	Values      []string `json:"Values"`
	VendorClass string   `json:"VendorClass"`
	UserClass   string   `json:"UserClass"`
}

const optionProjection = ` | Select-Object OptionId,Name,@{n='Values';e={@($_.Value | ForEach-Object { [string]$_ })}},VendorClass,UserClass`

func (c *PowerShellClient) ListServerOptions(ctx context.Context, server string) ([]domain.RawOption, error) {
	script := fmt.Sprintf("Get-DhcpServerv4OptionValue -ComputerName %s -All", quote(server)) + optionProjection
	return c.options(ctx, "list server options", script)
}

func (c *PowerShellClient) ListOptions(ctx context.Context, server, scopeID string) ([]domain.RawOption, error) {
	script := fmt.Sprintf("Get-DhcpServerv4OptionValue -ComputerName %s -ScopeId %s -All", quote(server), quote(scopeID)) + optionProjection
	return c.options(ctx, "list options", script)
}

func (c *PowerShellClient) options(ctx context.Context, op, script string) ([]domain.RawOption, error) {
	rows, err := query[psOption](ctx, c, op, script)
	if err != nil {
		return nil, err
	}
	out := make([]domain.RawOption, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.RawOption{
			OptionID:    row.OptionID,
			Name:        row.Name,
			Values:      row.Values,
			VendorClass: row.VendorClass,
			UserClass:   row.UserClass,
		})
	}
	return out, nil
}

type psLease struct {
	IPAddress       string `json:"IPAddress"`
	ClientID        string `json:"ClientId"`
	HostName        string `json:"HostName"`
	AddressState    string `json:"AddressState"`
	LeaseExpiryTime string `json:"LeaseExpiryTime"`
}

const listLeasesScript = `Get-DhcpServerv4Lease -ComputerName %s -ScopeId %s | Select-Object @{n='IPAddress';e={$_.IPAddress.IPAddressToString}},ClientId,HostName,@{n='AddressState';e={[string]$_.AddressState}},@{n='LeaseExpiryTime';e={if ($_.LeaseExpiryTime) { $_.LeaseExpiryTime.ToUniversalTime().ToString('o') }}}`

func (c *PowerShellClient) ListLeases(ctx context.Context, server, scopeID string) ([]domain.LeaseRecord, error) {
	rows, err := query[psLease](ctx, c, "list leases", fmt.Sprintf(listLeasesScript, quote(server), quote(scopeID)))
	if err != nil {
		return nil, err
	}
	out := make([]domain.LeaseRecord, 0, len(rows))
	for _, row := range rows {
		rec := domain.LeaseRecord{
			IPAddress:    row.IPAddress,
			ClientID:     row.ClientID,
			HostName:     row.HostName,
			AddressState: row.AddressState,
		}
		if row.LeaseExpiryTime != "" {
			// 单条到期时间无效时保留租约，由遍历记录 MalformedData
			expiry, err := time.Parse(time.RFC3339, row.LeaseExpiryTime)
			if err != nil {
				rec.Attrs = map[string]string{domain.AttrInvalidExpiry: row.LeaseExpiryTime}
			} else {
				rec.Expiry = expiry
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

type psReservation struct {
	IPAddress   string `json:"IPAddress"`
	ClientID    string `json:"ClientId"`
	Name        string `json:"Name"`
	Type        string `json:"Type"`
	Description string `json:"Description"`
}

const listReservationsScript = `Get-DhcpServerv4Reservation -ComputerName %s -ScopeId %s | Select-Object @{n='IPAddress';e={$_.IPAddress.IPAddressToString}},ClientId,Name,@{n='Type';e={[string]$_.Type}},Description`

func (c *PowerShellClient) ListReservations(ctx context.Context, server, scopeID string) ([]domain.ReservationRecord, error) {
	rows, err := query[psReservation](ctx, c, "list reservations", fmt.Sprintf(listReservationsScript, quote(server), quote(scopeID)))
	if err != nil {
		return nil, err
	}
	out := make([]domain.ReservationRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ReservationRecord{
			IPAddress:   row.IPAddress,
			ClientID:    row.ClientID,
			Name:        row.Name,
			Type:        row.Type,
			Description: row.Description,
		})
	}
	return out, nil
}

type psExclusion struct {
	StartRange string `json:"StartRange"`
	EndRange   string `json:"EndRange"`
}

const listExclusionsScript = `Get-DhcpServerv4ExclusionRange -ComputerName %s -ScopeId %s | Select-Object @{n='StartRange';e={$_.StartRange.IPAddressToString}},@{n='EndRange';e={$_.EndRange.IPAddressToString}}`

func (c *PowerShellClient) ListExclusions(ctx context.Context, server, scopeID string) ([]domain.ExclusionRecord, error) {
	rows, err := query[psExclusion](ctx, c, "list exclusions", fmt.Sprintf(listExclusionsScript, quote(server), quote(scopeID)))
	if err != nil {
		return nil, err
	}
	out := make([]domain.ExclusionRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ExclusionRecord{StartAddress: row.StartRange, EndAddress: row.EndRange})
	}
	return out, nil
}

type psZone struct {
	ZoneName            string `json:"ZoneName"`
	ZoneType            string `json:"ZoneType"`
	DynamicUpdate       string `json:"DynamicUpdate"`
	IsReverseLookupZone bool   `json:"IsReverseLookupZone"`
	IsDsIntegrated      bool   `json:"IsDsIntegrated"`
}

const listZonesScript = `Get-DnsServerZone -ComputerName %s | Select-Object ZoneName,ZoneType,@{n='DynamicUpdate';e={[string]$_.DynamicUpdate}},IsReverseLookupZone,IsDsIntegrated`

func (c *PowerShellClient) ListZones(ctx context.Context, server string) ([]domain.ZoneRecord, error) {
	rows, err := query[psZone](ctx, c, "list zones", fmt.Sprintf(listZonesScript, quote(server)))
	if err != nil {
		return nil, err
	}
	out := make([]domain.ZoneRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ZoneRecord{
			Server:         server,
			Name:           row.ZoneName,
			Type:           row.ZoneType,
			DynamicUpdate:  row.DynamicUpdate,
			IsReverse:      row.IsReverseLookupZone,
			IsDsIntegrated: row.IsDsIntegrated,
		})
	}
	return out, nil
}

type psRecord struct {
	Name string `json:"Name"`
	Type string `json:"Type"`
	TTL  uint32 `json:"TTL"`
	Data string `json:"Data"`
}

const listRecordsScript = `Get-DnsServerResourceRecord -ComputerName %s -ZoneName %s | ForEach-Object {
  $d = $_.RecordData
  $data = switch ($_.RecordType) {
    'A' { $d.IPv4Address.IPAddressToString }
    'AAAA' { $d.IPv6Address.IPAddressToString }
    'CNAME' { $d.HostNameAlias }
    'MX' { "$($d.Preference) $($d.MailExchange)" }
    'NS' { $d.NameServer }
    'PTR' { $d.PtrDomainName }
    'SRV' { "$($d.Priority) $($d.Weight) $($d.Port) $($d.DomainName)" }
    'TXT' { $d.DescriptiveText }
    default { [string]$d }
  }
  [pscustomobject]@{ Name = $_.HostName; Type = [string]$_.RecordType; TTL = [uint32]$_.TimeToLive.TotalSeconds; Data = [string]$data }
}`

func (c *PowerShellClient) ListRecords(ctx context.Context, server, zone string) ([]domain.ResourceRecord, error) {
	rows, err := query[psRecord](ctx, c, "list records", fmt.Sprintf(listRecordsScript, quote(server), quote(zone)))
	if err != nil {
		return nil, err
	}
	out := make([]domain.ResourceRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ResourceRecord{Name: row.Name, Type: row.Type, TTL: row.TTL, Data: row.Data})
	}
	return out, nil
}

// query 执行脚本并把 ConvertTo-Json 的输出解码为列表，失败按可重试错误重试。
func query[T any](ctx context.Context, c *PowerShellClient, op, script string) ([]T, error) {
	full := "@(" + script + ") | ConvertTo-Json -Compress -Depth 4"
	var out []byte
	err := util.RetryIf(ctx, c.attempts, c.backoff, retryable, func() error {
		c.logger.Debug("run powershell", zap.String("op", op))
		var runErr error
		out, runErr = c.runner.Run(ctx, full)
		return runErr
	})
	if err != nil {
		var roleErr *Error
		if errors.As(err, &roleErr) {
			return nil, NewError(roleErr.Kind, op, roleErr.Err)
		}
		return nil, NewError(KindOf(err), op, err)
	}
	rows, err := decodeList[T](out)
	if err != nil {
		return nil, NewError(domain.FailureMalformedData, op, err)
	}
	return rows, nil
}

func retryable(err error) bool {
	return KindOf(err) == domain.FailureUnreachable
}

// decodeList 兼容 ConvertTo-Json 对单个对象不输出数组的行为。
func decodeList[T any](data []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '{' {
		var one T
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, fmt.Errorf("解析 PowerShell 输出失败: %w", err)
		}
		return []T{one}, nil
	}
	var list []T
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, fmt.Errorf("解析 PowerShell 输出失败: %w", err)
	}
	return list, nil
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
