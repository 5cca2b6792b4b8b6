package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"roleinventory/internal/aggregate"
	"roleinventory/internal/domain"
	"roleinventory/internal/health"
	"roleinventory/internal/traverse"
)

// Result 为一次采集的完整产出。
type Result struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Inventory aggregate.Inventory
	Risk      health.RiskAssessment
}

// CollectFlow 串联服务器发现、遍历、聚合与健康评估。
type CollectFlow struct {
	Engine  *traverse.Engine
	Roles   []domain.Role
	Servers []domain.ServerNode
	Health  health.Config
	Logger  *zap.Logger
	Now     func() time.Time
}

func (f *CollectFlow) Run(ctx context.Context) (Result, error) {
	if f == nil || f.Engine == nil {
		return Result{}, fmt.Errorf("collect flow 依赖未注入完整")
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	started := now().UTC()
	res := Result{RunID: started.Format("20060102T150405Z"), StartedAt: started}

	servers, err := f.Engine.Discover(ctx, f.Roles, f.Servers)
	if err != nil {
		return res, fmt.Errorf("服务器发现失败: %w", err)
	}
	if f.Logger != nil {
		f.Logger.Info("开始采集",
			zap.String("run_id", res.RunID),
			zap.Int("servers", len(servers)))
	}

	// 上下文结束后未访问的部分已记为 Unreachable，结果仍然完整可用
	res.Inventory = aggregate.Collect(f.Engine.Walk(ctx, servers))
	if err := ctx.Err(); err != nil && f.Logger != nil {
		f.Logger.Warn("采集被中断，输出部分结果", zap.String("run_id", res.RunID), zap.Error(err))
	}
	res.Risk = health.Assess(f.Health, res.Inventory.ScopeSummaries())
	res.Duration = now().UTC().Sub(started)

	if f.Logger != nil {
		counts := res.Inventory.Counts()
		f.Logger.Info("采集完成",
			zap.String("run_id", res.RunID),
			zap.Int("scopes", counts["scopes"]),
			zap.Int("leases", counts["leases"]),
			zap.Int("records", counts["records"]),
			zap.Int("failures", len(res.Inventory.Failures)),
			zap.Int("risk_total", res.Risk.Total),
			zap.String("tier", string(res.Risk.Tier)),
			zap.Duration("duration", res.Duration))
	}
	return res, nil
}
