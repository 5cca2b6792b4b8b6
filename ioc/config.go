package ioc

import "roleinventory/internal/app"

// DefaultConfigPath 为未指定时读取的配置文件。
const DefaultConfigPath = "configs/config.yaml"

// ConfigPath 为配置文件路径，单独成型以便 wire 注入。
type ConfigPath string

// InitConfig 读取应用配置。
func InitConfig(path ConfigPath) (app.Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}
	return app.LoadConfig(string(path))
}
