package app

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"roleinventory/internal/alert"
	"roleinventory/internal/domain"
	"roleinventory/internal/health"
	"roleinventory/internal/report"
)

type HTTP struct {
	Listen string `yaml:"listen"`
}

type Log struct {
	Level string `yaml:"level"`
}

// Collect 控制一次采集的范围与调度。
type Collect struct {
	Roles           []string `yaml:"roles"`
	Servers         []string `yaml:"servers"`
	ParallelServers int      `yaml:"parallel_servers"`
	Cron            string   `yaml:"cron"`
	InitialRun      bool     `yaml:"initial_run"`
	TimeoutSeconds  int      `yaml:"timeout_seconds"`
}

type Retry struct {
	Attempts       int `yaml:"attempts"`
	BackoffSeconds int `yaml:"backoff_seconds"`
}

type PowerShell struct {
	Binary         string `yaml:"binary"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Retry          Retry  `yaml:"retry"`
}

// DNSSource 选择 DNS 数据来源：powershell 或 axfr。
type DNSSource struct {
	Mode           string   `yaml:"mode"`
	Zones          []string `yaml:"zones"`
	Port           int      `yaml:"port"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// Source 选择角色客户端：powershell 或 static（离线夹具）。
type Source struct {
	Kind       string     `yaml:"kind"`
	Fixture    string     `yaml:"fixture"`
	PowerShell PowerShell `yaml:"powershell"`
	DNS        DNSSource  `yaml:"dns"`
}

type Neo4j struct {
	Enabled              bool   `yaml:"enabled"`
	URI                  string `yaml:"uri"`
	Username             string `yaml:"username"`
	Password             string `yaml:"password"`
	Database             string `yaml:"database"`
	MaxConnectionPool    int    `yaml:"max_connections"`
	ConnectTimeoutSecond int    `yaml:"connect_timeout_second"`
	BatchSize            int    `yaml:"batch_size"`
}

type Config struct {
	HTTP    HTTP          `yaml:"http"`
	Log     Log           `yaml:"log"`
	Collect Collect       `yaml:"collect"`
	Source  Source        `yaml:"source"`
	Health  health.Config `yaml:"health"`
	Report  report.Config `yaml:"report"`
	Alert   alert.Config  `yaml:"alert"`
	Neo4j   Neo4j         `yaml:"neo4j"`
}

const (
	SourcePowerShell = "powershell"
	SourceStatic     = "static"
	DNSModeAXFR      = "axfr"
)

// LoadConfig 从文件加载配置并补齐默认值。
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("读取配置失败: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("解析配置失败: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("配置校验失败: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults 补齐缺省字段。
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.HTTP.Listen) == "" {
		c.HTTP.Listen = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if len(c.Collect.Roles) == 0 {
		c.Collect.Roles = []string{string(domain.RoleDHCP)}
	}
	if c.Collect.ParallelServers <= 0 {
		c.Collect.ParallelServers = 1
	}
	if c.Source.Kind == "" {
		c.Source.Kind = SourcePowerShell
	}
	if c.Source.PowerShell.Retry.Attempts <= 0 {
		c.Source.PowerShell.Retry.Attempts = 2
	}
	if c.Source.PowerShell.Retry.BackoffSeconds <= 0 {
		c.Source.PowerShell.Retry.BackoffSeconds = 1
	}
	if c.Source.DNS.Mode == "" {
		c.Source.DNS.Mode = SourcePowerShell
	}
	c.Health = c.Health.WithDefaults()
	if c.Report.OutputDir == "" {
		c.Report.OutputDir = "reports"
	}
	if len(c.Report.Formats) == 0 {
		c.Report.Formats = []string{report.FormatCSV, report.FormatHTML, report.FormatXLSX}
	}
	if c.Alert.MinTier == "" {
		c.Alert.MinTier = string(health.TierRed)
	}
	if c.Neo4j.BatchSize <= 0 {
		c.Neo4j.BatchSize = 500
	}
}

// Validate 校验互相依赖的配置项。
func (c Config) Validate() error {
	if _, err := c.RoleList(); err != nil {
		return err
	}
	switch c.Source.Kind {
	case SourcePowerShell:
	case SourceStatic:
		if strings.TrimSpace(c.Source.Fixture) == "" {
			return fmt.Errorf("source.kind=static 时必须配置 source.fixture")
		}
	default:
		return fmt.Errorf("未知 source.kind %q", c.Source.Kind)
	}
	switch c.Source.DNS.Mode {
	case SourcePowerShell:
	case DNSModeAXFR:
		if len(c.Source.DNS.Zones) == 0 {
			return fmt.Errorf("source.dns.mode=axfr 时必须配置 zones")
		}
	default:
		return fmt.Errorf("未知 source.dns.mode %q", c.Source.DNS.Mode)
	}
	if err := c.Health.Validate(); err != nil {
		return err
	}
	if _, err := health.ParseTier(c.Alert.MinTier); err != nil {
		return err
	}
	if c.Neo4j.Enabled && strings.TrimSpace(c.Neo4j.URI) == "" {
		return fmt.Errorf("neo4j.enabled 时必须配置 neo4j.uri")
	}
	return nil
}

// RoleList 解析 collect.roles。
func (c Config) RoleList() ([]domain.Role, error) {
	roles := make([]domain.Role, 0, len(c.Collect.Roles))
	for _, s := range c.Collect.Roles {
		r, ok := domain.ParseRole(s)
		if !ok {
			return nil, fmt.Errorf("未知角色 %q", s)
		}
		roles = append(roles, r)
	}
	return roles, nil
}
