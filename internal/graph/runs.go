package graph

import (
	"context"
	"fmt"

	"roleinventory/internal/cypher"
)

// RunSummary 为图中一次采集运行的摘要。
type RunSummary struct {
	RunID     string `json:"run_id"`
	Total     int64  `json:"total"`
	Tier      string `json:"tier"`
	Failures  int64  `json:"failures"`
	Scopes    int64  `json:"scopes"`
	StartedAt string `json:"started_at"`
}

// RecentRuns 按 run_id 倒序返回最近 limit 次运行。
func RecentRuns(ctx context.Context, r Reader, limit int) ([]RunSummary, error) {
	if r == nil {
		return nil, fmt.Errorf("graph reader 未配置")
	}
	if limit <= 0 {
		limit = 20
	}
	records, err := r.RunRead(ctx, cypher.MustAsset("recent_runs.cql"), map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("查询运行历史失败: %w", err)
	}
	out := make([]RunSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, RunSummary{
			RunID:     asString(rec["run_id"]),
			Total:     asInt(rec["total"]),
			Tier:      asString(rec["tier"]),
			Failures:  asInt(rec["failures"]),
			Scopes:    asInt(rec["scopes"]),
			StartedAt: asString(rec["started_at"]),
		})
	}
	return out, nil
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// asInt 兼容驱动返回的 int64 与测试中的 int。
func asInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
