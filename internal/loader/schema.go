package loader

import (
	"context"
	"fmt"
	"strings"

	"roleinventory/internal/cypher"
)

// SchemaManager 负责初始化约束和索引，语句均为 IF NOT EXISTS，可重复执行。
type SchemaManager struct {
	client Runner
}

func NewSchemaManager(client Runner) *SchemaManager {
	return &SchemaManager{client: client}
}

func (m *SchemaManager) Ensure(ctx context.Context) error {
	statements := strings.Split(cypher.MustAsset("init_schema.cql"), ";")
	for _, raw := range statements {
		query := strings.TrimSpace(raw)
		if query == "" {
			continue
		}
		if err := m.client.RunRaw(ctx, query, nil); err != nil {
			return fmt.Errorf("执行 schema 语句失败: %w", err)
		}
	}
	return nil
}
