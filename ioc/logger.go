package ioc

import (
	"go.uber.org/zap"

	"roleinventory/internal/app"
	"roleinventory/pkg/logging"
)

// InitLogger 构建全局 logger。
func InitLogger(cfg app.Config) (*zap.Logger, error) {
	return logging.NewZapLogger(cfg.Log.Level)
}
