package ioc

import (
	"context"

	"go.uber.org/zap"

	"roleinventory/internal/app"
	"roleinventory/internal/role"
)

// InitAppService 构建采集服务，cleanup 关闭 Neo4j 连接。
func InitAppService(ctx context.Context, cfg app.Config, client role.Client, logger *zap.Logger) (*app.Service, func(), error) {
	svc, err := app.NewService(ctx, cfg, client, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := svc.Close(context.Background()); err != nil {
			logger.Warn("close app service failed", zap.Error(err))
		}
	}
	return svc, cleanup, nil
}
