//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"roleinventory/ioc"
	"roleinventory/pkg/server"
)

func InitApp(ctx context.Context, path ioc.ConfigPath) (*server.HTTPServer, func(), error) {
	panic(wire.Build(
		ioc.InitConfig,
		ioc.InitLogger,
		ioc.InitRoleClient,
		ioc.InitAppService,
		ioc.InitInventoryHandler,
		ioc.InitMetricsRegistry,
		ioc.InitGinEngine,
		ioc.InitScheduler,
		ioc.InitHeartbeat,
		server.NewHTTPServer,
	))
}
