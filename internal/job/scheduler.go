package job

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"roleinventory/internal/app"
)

const defaultCronSpec = "0 7 * * *"

// CollectFunc 执行一次采集。
type CollectFunc func(context.Context) (*app.Run, error)

// Scheduler 按 cron 表达式定时采集；上一轮未结束时跳过本次。
type Scheduler struct {
	cronExpr   string
	initialRun bool
	logger     *zap.Logger
	cron       *cron.Cron
	collect    CollectFunc
	parent     context.Context
	wg         sync.WaitGroup
}

// NewScheduler 根据配置构建调度器。
func NewScheduler(cfg app.Config, collect CollectFunc, logger *zap.Logger) *Scheduler {
	spec := strings.TrimSpace(cfg.Collect.Cron)
	if spec == "" {
		spec = defaultCronSpec
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{cronExpr: spec, initialRun: cfg.Collect.InitialRun, logger: logger, collect: collect}
}

// Start 启动调度器，返回用于停止任务的函数。
func (s *Scheduler) Start(parent context.Context) context.CancelFunc {
	if s == nil {
		return func() {}
	}
	s.parent = parent
	c := cron.New()
	id, err := c.AddFunc(s.cronExpr, s.runOnce)
	if err != nil {
		s.logger.Error("failed to register cron job", zap.String("cron", s.cronExpr), zap.Error(err))
		return func() {}
	}
	s.cron = c
	c.Start()
	s.logger.Info("job scheduler started", zap.String("cron", s.cronExpr), zap.Time("next", c.Entry(id).Next))

	if s.initialRun {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runOnce()
		}()
	}

	var once sync.Once
	stop := func() {
		once.Do(func() {
			ctx := s.cron.Stop()
			<-ctx.Done()
			s.wg.Wait()
			s.logger.Info("job scheduler stopped")
		})
	}

	go func() {
		<-parent.Done()
		stop()
	}()

	return stop
}

func (s *Scheduler) runOnce() {
	if s.collect == nil {
		s.logger.Warn("collect function not configured")
		return
	}
	runCtx := context.Background()
	if s.parent != nil {
		if s.parent.Err() != nil {
			s.logger.Info("scheduler context cancelled, skip collect")
			return
		}
		runCtx = s.parent
	}

	start := time.Now()
	run, err := s.collect(runCtx)
	elapsed := time.Since(start)
	switch {
	case errors.Is(err, app.ErrCollectRunning):
		s.logger.Warn("previous collect still running, skip current schedule")
	case err != nil:
		s.logger.Error("scheduled collect failed", zap.Duration("duration", elapsed), zap.Error(err))
	default:
		s.logger.Info("scheduled collect completed",
			zap.String("run_id", run.RunID),
			zap.String("tier", string(run.Risk.Tier)),
			zap.Int("total", run.Risk.Total),
			zap.Duration("duration", elapsed))
	}
}
