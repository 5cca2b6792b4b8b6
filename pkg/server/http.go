package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"roleinventory/internal/app"
	"roleinventory/internal/job"
)

const shutdownTimeout = 10 * time.Second

// HTTPServer 封装 HTTP 服务运行所需的依赖。
type HTTPServer struct {
	Engine    *gin.Engine
	Logger    *zap.Logger
	Config    app.Config
	Job       *job.Scheduler
	Heartbeat *job.Heartbeat
}

// NewHTTPServer 构建 HTTPServer。
func NewHTTPServer(engine *gin.Engine, logger *zap.Logger, cfg app.Config, scheduler *job.Scheduler, heartbeat *job.Heartbeat) *HTTPServer {
	return &HTTPServer{
		Engine:    engine,
		Logger:    logger,
		Config:    cfg,
		Job:       scheduler,
		Heartbeat: heartbeat,
	}
}

// Run 启动 HTTP 服务及相关后台任务，ctx 结束时优雅退出。
func (s *HTTPServer) Run(ctx context.Context) error {
	listen := strings.TrimSpace(s.Config.HTTP.Listen)
	if listen == "" {
		listen = ":8080"
	}

	if s.Job != nil {
		defer s.Job.Start(ctx)()
	}
	if s.Heartbeat != nil {
		defer s.Heartbeat.Start(ctx)()
	}

	srv := &http.Server{Addr: listen, Handler: s.Engine, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if s.Logger != nil {
			s.Logger.Info("http server starting", zap.String("listen", listen))
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if s.Logger != nil {
		s.Logger.Info("http server shutting down")
	}
	return srv.Shutdown(shutdownCtx)
}

// Shutdown 刷新日志，Service 的连接由 wire 的 cleanup 关闭。
func (s *HTTPServer) Shutdown() {
	if s.Logger != nil {
		_ = s.Logger.Sync()
	}
}
