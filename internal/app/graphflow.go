package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"roleinventory/internal/aggregate"
	"roleinventory/internal/loader"
)

// GraphFlow 把一次采集结果写入 Neo4j：节点、关系、补边，最后清理过期数据。
// 不支持并发调用，由 Service 的采集锁串行化。
type GraphFlow struct {
	Schema  *loader.SchemaManager
	Nodes   *loader.NodeUpserter
	Rels    *loader.RelUpserter
	Fixer   *loader.EdgeFixer
	Cleaner *loader.Cleaner
	Logger  *zap.Logger

	schemaReady bool
}

// NewGraphFlow 基于同一个写接口装配 GraphFlow。
func NewGraphFlow(client loader.Runner, batchSize int, logger *zap.Logger) *GraphFlow {
	return &GraphFlow{
		Schema:  loader.NewSchemaManager(client),
		Nodes:   loader.NewNodeUpserter(client, batchSize),
		Rels:    loader.NewRelUpserter(client, batchSize),
		Fixer:   loader.NewEdgeFixer(client),
		Cleaner: loader.NewCleaner(client),
		Logger:  logger,
	}
}

func (f *GraphFlow) Run(ctx context.Context, res Result) error {
	if f == nil {
		return fmt.Errorf("graph flow 未初始化")
	}
	if f.Nodes == nil || f.Rels == nil || f.Cleaner == nil {
		return fmt.Errorf("graph flow 依赖未注入完整")
	}
	if f.Schema != nil && !f.schemaReady {
		if err := f.Schema.Ensure(ctx); err != nil {
			return fmt.Errorf("初始化 schema 失败: %w", err)
		}
		f.schemaReady = true
	}

	nodes, rels := aggregate.BuildGraphRows(res.Inventory, res.Risk, res.RunID, res.StartedAt)

	if err := f.Nodes.UpsertNodes(ctx, nodes); err != nil {
		return fmt.Errorf("写入节点失败: %w", err)
	}
	if err := f.Rels.UpsertRels(ctx, rels); err != nil {
		return fmt.Errorf("写入关系失败: %w", err)
	}
	if f.Fixer != nil {
		if err := f.Fixer.Run(ctx, res.RunID); err != nil {
			return fmt.Errorf("补边失败: %w", err)
		}
	}
	if err := f.Cleaner.HardDeleteRelationships(ctx, res.RunID); err != nil {
		return fmt.Errorf("删除过期关系失败: %w", err)
	}
	if err := f.Cleaner.HardDeleteNodes(ctx, res.RunID); err != nil {
		return fmt.Errorf("删除过期节点失败: %w", err)
	}

	if f.Logger != nil {
		f.Logger.Info("图同步完成",
			zap.String("run_id", res.RunID),
			zap.Int("nodes", len(nodes)),
			zap.Int("rels", len(rels)))
	}
	return nil
}
