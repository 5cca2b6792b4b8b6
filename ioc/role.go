package ioc

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"roleinventory/internal/app"
	"roleinventory/internal/role"
)

// InitRoleClient 按 source 配置构建角色客户端；dns.mode=axfr 时 DNS 部分改走区域传送。
func InitRoleClient(cfg app.Config, logger *zap.Logger) (role.Client, error) {
	var base role.Client
	switch cfg.Source.Kind {
	case app.SourceStatic:
		snap, err := role.LoadSnapshot(cfg.Source.Fixture)
		if err != nil {
			return nil, err
		}
		base = &role.StaticClient{Snapshot: snap}
	case app.SourcePowerShell:
		ps := cfg.Source.PowerShell
		client, err := role.NewPowerShellClient(role.PowerShellConfig{
			Runner: &role.ExecRunner{
				Binary:  ps.Binary,
				Timeout: time.Duration(ps.TimeoutSeconds) * time.Second,
			},
			RetryAttempts: ps.Retry.Attempts,
			RetryBackoff:  time.Duration(ps.Retry.BackoffSeconds) * time.Second,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		base = client
	default:
		return nil, fmt.Errorf("未知 source.kind %q", cfg.Source.Kind)
	}

	if cfg.Source.DNS.Mode != app.DNSModeAXFR {
		return base, nil
	}
	dns := cfg.Source.DNS
	return role.Composite{
		Directory:  base,
		DHCPClient: base,
		DNSClient: role.NewXfrClient(role.XfrConfig{
			Zones:   dns.Zones,
			Port:    dns.Port,
			Timeout: time.Duration(dns.TimeoutSeconds) * time.Second,
		}),
	}, nil
}
