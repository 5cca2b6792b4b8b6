package ioc

import (
	"go.uber.org/zap"

	"roleinventory/internal/app"
	"roleinventory/internal/job"
)

// InitScheduler 构建定时采集调度器。
func InitScheduler(cfg app.Config, svc *app.Service, logger *zap.Logger) *job.Scheduler {
	return job.NewScheduler(cfg, svc.Collect, logger)
}

// InitHeartbeat 构建每小时心跳日志任务。
func InitHeartbeat(svc *app.Service, logger *zap.Logger) *job.Heartbeat {
	return job.NewHeartbeat(svc.Latest, logger)
}
