package job

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"roleinventory/internal/app"
)

// LatestFunc 返回最近一次运行。
type LatestFunc func() (*app.Run, bool)

// Heartbeat 每小时输出一次最近运行的等级，便于在日志中确认服务存活。
type Heartbeat struct {
	logger *zap.Logger
	latest LatestFunc
	cron   *cron.Cron
}

func NewHeartbeat(latest LatestFunc, logger *zap.Logger) *Heartbeat {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Heartbeat{logger: logger, latest: latest}
}

// Start 启动按小时执行的心跳，返回停止函数。
func (h *Heartbeat) Start(parent context.Context) context.CancelFunc {
	if h == nil {
		return func() {}
	}
	c := cron.New()
	if _, err := c.AddFunc("@hourly", h.beat); err != nil {
		h.logger.Error("failed to register heartbeat", zap.Error(err))
		return func() {}
	}
	h.cron = c
	c.Start()

	stop := func() {
		<-h.cron.Stop().Done()
	}
	go func() {
		<-parent.Done()
		stop()
	}()
	return stop
}

func (h *Heartbeat) beat() {
	fields := []zap.Field{zap.Time("timestamp", time.Now())}
	if h.latest != nil {
		if run, ok := h.latest(); ok {
			fields = append(fields,
				zap.String("run_id", run.RunID),
				zap.String("tier", string(run.Risk.Tier)),
				zap.Int("failures", len(run.Inventory.Failures)))
		}
	}
	h.logger.Info("heartbeat", fields...)
}
