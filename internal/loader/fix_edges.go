package loader

import (
	"context"
	"fmt"
	"strings"

	"roleinventory/internal/cypher"
)

// EdgeFixer 按地址补 SAME_ADDRESS 边：租约对保留、A 记录对租约。
type EdgeFixer struct {
	client Runner
}

func NewEdgeFixer(client Runner) *EdgeFixer {
	return &EdgeFixer{client: client}
}

func (f *EdgeFixer) Run(ctx context.Context, runID string) error {
	statements := strings.Split(cypher.MustAsset("fix_edges.cql"), ";")
	for _, stmt := range statements {
		query := strings.TrimSpace(stmt)
		if query == "" {
			continue
		}
		params := map[string]any{"run_id": runID}
		if err := f.client.RunWrite(ctx, query, params); err != nil {
			return fmt.Errorf("补边失败: %w", err)
		}
	}
	return nil
}
