package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"roleinventory/internal/alert"
	"roleinventory/internal/domain"
	"roleinventory/internal/graph"
	"roleinventory/internal/loader"
	"roleinventory/internal/metrics"
	"roleinventory/internal/report"
	"roleinventory/internal/role"
	"roleinventory/internal/traverse"
)

var (
	// ErrCollectRunning 表示上一轮采集尚未结束。
	ErrCollectRunning = errors.New("采集正在进行中")
	// ErrGraphDisabled 表示未启用 Neo4j。
	ErrGraphDisabled = errors.New("neo4j 未启用")
)

// Run 为一次完整运行：采集结果加上报表、图同步与告警的结果。
type Run struct {
	Result
	Bundle   report.Bundle
	Files    []string
	Alerted  bool
	GraphErr string
}

// Option 定制 Service，主要用于测试注入。
type Option func(*Service)

// WithAlertSender 替换告警发送器。
func WithAlertSender(sender alert.Sender) Option {
	return func(s *Service) { s.sender = sender }
}

// WithClock 替换时钟。
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service 负责装配各个 Flow 并提供统一入口。
type Service struct {
	cfg       Config
	collect   *CollectFlow
	graph     *GraphFlow
	reader    graph.Reader
	emitter   *report.Emitter
	notifier  *alert.Notifier
	sender    alert.Sender
	neoClient *loader.Client
	logger    *zap.Logger
	now       func() time.Time

	running  sync.Mutex
	latestMu sync.RWMutex
	latest   *Run
}

// NewService 根据配置构建 Service。Neo4j 与告警按配置可选。
func NewService(ctx context.Context, cfg Config, client role.Client, logger *zap.Logger, opts ...Option) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("必须提供角色客户端")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	roles, err := cfg.RoleList()
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		roles = []domain.Role{domain.RoleDHCP}
	}
	explicit, err := traverse.ParseServers(cfg.Collect.Servers, roles[0])
	if err != nil {
		return nil, err
	}
	emitter, err := report.NewEmitter(cfg.Report, logger)
	if err != nil {
		return nil, err
	}

	svc := &Service{
		cfg:     cfg,
		emitter: emitter,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}

	svc.collect = &CollectFlow{
		Engine:  traverse.NewEngine(client, cfg.Collect.ParallelServers, logger),
		Roles:   roles,
		Servers: explicit,
		Health:  cfg.Health,
		Logger:  logger,
		Now:     svc.now,
	}

	if cfg.Alert.Enabled || svc.sender != nil {
		if svc.sender == nil {
			sender, err := alert.NewSMTPSender(cfg.Alert.SMTP)
			if err != nil {
				return nil, err
			}
			svc.sender = sender
		}
		notifier, err := alert.NewNotifier(cfg.Alert.MinTier, svc.sender, logger)
		if err != nil {
			return nil, err
		}
		svc.notifier = notifier
	}

	if cfg.Neo4j.Enabled {
		neoClient, err := loader.NewClient(ctx, loader.Config{
			URI:                  cfg.Neo4j.URI,
			Username:             cfg.Neo4j.Username,
			Password:             cfg.Neo4j.Password,
			Database:             cfg.Neo4j.Database,
			MaxConnectionPool:    cfg.Neo4j.MaxConnectionPool,
			ConnectionTimeoutSec: cfg.Neo4j.ConnectTimeoutSecond,
		})
		if err != nil {
			return nil, err
		}
		svc.neoClient = neoClient
		svc.graph = NewGraphFlow(neoClient, cfg.Neo4j.BatchSize, logger)
		svc.reader = graph.NewClient(neoClient.Driver(), neoClient.Database())
	}
	return svc, nil
}

// Close 释放资源。
func (s *Service) Close(ctx context.Context) error {
	if s.logger != nil {
		_ = s.logger.Sync()
	}
	if s.neoClient != nil {
		return s.neoClient.Close(ctx)
	}
	return nil
}

// Config 返回生效的配置。
func (s *Service) Config() Config {
	return s.cfg
}

// Servers 只做服务器发现，不遍历。
func (s *Service) Servers(ctx context.Context) ([]domain.ServerNode, error) {
	return s.collect.Engine.Discover(ctx, s.collect.Roles, s.collect.Servers)
}

// Collect 执行一次完整采集：遍历、评估、写报表、同步图、告警。
// 同一时刻只允许一轮，重入返回 ErrCollectRunning。
func (s *Service) Collect(ctx context.Context) (*Run, error) {
	if !s.running.TryLock() {
		return nil, ErrCollectRunning
	}
	defer s.running.Unlock()

	// 超时只约束遍历，报表、图同步与告警仍使用调用方的上下文
	collectCtx := ctx
	if sec := s.cfg.Collect.TimeoutSeconds; sec > 0 {
		var cancel context.CancelFunc
		collectCtx, cancel = context.WithTimeout(ctx, time.Duration(sec)*time.Second)
		defer cancel()
	}

	res, err := s.collect.Run(collectCtx)
	if err != nil {
		metrics.CollectErrors.Inc()
		return nil, err
	}

	run := &Run{Result: res}
	run.Bundle = report.NewBundle(s.emitter.Title(), res.RunID, res.StartedAt, res.Inventory, res.Risk)
	files, err := s.emitter.Write(run.Bundle)
	run.Files = files
	if err != nil {
		metrics.CollectErrors.Inc()
		return nil, fmt.Errorf("写报表失败: %w", err)
	}

	// 图同步失败不影响本轮报表
	if s.graph != nil {
		if err := s.graph.Run(ctx, res); err != nil {
			metrics.GraphErrors.Inc()
			run.GraphErr = err.Error()
			s.logger.Error("图同步失败", zap.String("run_id", res.RunID), zap.Error(err))
		}
	}

	if s.notifier != nil {
		sent, err := s.notifier.Notify(ctx, res.RunID, res.Risk.Tier, res.Risk.Total, alertDetail(run))
		if err != nil {
			s.logger.Error("发送告警失败", zap.String("run_id", res.RunID), zap.Error(err))
		}
		run.Alerted = sent
	}

	metrics.ObserveRun(res.Duration, res.Inventory.Failures, res.Risk.Total, len(res.Inventory.Scopes), res.StartedAt)

	s.latestMu.Lock()
	s.latest = run
	s.latestMu.Unlock()
	return run, nil
}

// Latest 返回最近一次成功的运行。
func (s *Service) Latest() (*Run, bool) {
	s.latestMu.RLock()
	defer s.latestMu.RUnlock()
	return s.latest, s.latest != nil
}

// RecentRuns 从图中读取运行历史。
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]graph.RunSummary, error) {
	if s.reader == nil {
		return nil, ErrGraphDisabled
	}
	return graph.RecentRuns(ctx, s.reader, limit)
}

const maxAlertFindings = 20

func alertDetail(run *Run) string {
	var sb strings.Builder
	triggered := run.Risk.Triggered()
	fmt.Fprintf(&sb, "scopes: %d, failures: %d, triggered rules: %d\n", len(run.Inventory.Scopes), len(run.Inventory.Failures), len(triggered))
	for i, f := range triggered {
		if i == maxAlertFindings {
			fmt.Fprintf(&sb, "... 其余 %d 条省略\n", len(triggered)-i)
			break
		}
		fmt.Fprintf(&sb, "- %s %s (+%d) %s\n", f.ScopeKey, f.Rule, f.Weight, f.Detail)
	}
	if len(run.Files) > 0 {
		sb.WriteString("\nreports:\n")
		for _, p := range run.Files {
			sb.WriteString("  " + p + "\n")
		}
	}
	return sb.String()
}
