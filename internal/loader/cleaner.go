package loader

import "context"

// Cleaner 删除本轮未再观察到的节点和关系，运行历史不参与清理。
type Cleaner struct {
	client Runner
}

func NewCleaner(client Runner) *Cleaner {
	return &Cleaner{client: client}
}

// HardDeleteNodes 删除 last_seen_run_id 小于 retentionRunID 的清单节点。
func (c *Cleaner) HardDeleteNodes(ctx context.Context, retentionRunID string) error {
	query := `MATCH (n:Inventory) WHERE n.last_seen_run_id < $retention_run_id AND NOT n:InventoryRun DETACH DELETE n`
	return c.client.RunWrite(ctx, query, map[string]any{"retention_run_id": retentionRunID})
}

// HardDeleteRelationships 删除 last_seen_run_id 小于 retentionRunID 的关系，OBSERVED 保留。
func (c *Cleaner) HardDeleteRelationships(ctx context.Context, retentionRunID string) error {
	query := `MATCH (:Inventory)-[r]->(:Inventory) WHERE r.last_seen_run_id < $retention_run_id AND type(r) <> 'OBSERVED' DELETE r`
	return c.client.RunWrite(ctx, query, map[string]any{"retention_run_id": retentionRunID})
}
