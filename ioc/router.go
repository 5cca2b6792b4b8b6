package ioc

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"roleinventory/internal/app"
	"roleinventory/internal/metrics"
	"roleinventory/internal/router"
)

// InitInventoryHandler 构建清单 HTTP 处理器。
func InitInventoryHandler(svc *app.Service, logger *zap.Logger) *router.InventoryHandler {
	return router.NewInventoryHandler(svc, logger)
}

// InitMetricsRegistry 构建独立的 Prometheus registry。
func InitMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.MustRegister(reg)
	return reg
}

// InitGinEngine 构建 gin 引擎。
func InitGinEngine(handler *router.InventoryHandler, reg *prometheus.Registry) *gin.Engine {
	return router.NewEngine(handler, reg)
}
