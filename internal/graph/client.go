package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Reader 定义只读查询接口，便于测试替换实现。
type Reader interface {
	RunRead(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}

// Client 在写入端共享的 driver 上提供只读会话，生命周期由 driver 的持有者管理。
type Client struct {
	driver   neo4j.DriverWithContext
	database string
}

func NewClient(driver neo4j.DriverWithContext, database string) *Client {
	return &Client{driver: driver, database: database}
}

// RunRead 执行只读查询并返回记录集合。
func (c *Client) RunRead(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database, AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	records, err := neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) ([]map[string]any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0)
		for res.Next(ctx) {
			out = append(out, res.Record().AsMap())
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("执行只读查询失败: %w", err)
	}
	return records, nil
}
