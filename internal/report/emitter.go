package report

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

const (
	FormatCSV  = "csv"
	FormatHTML = "html"
	FormatXLSX = "xlsx"
)

// Config 控制报表输出。
type Config struct {
	OutputDir string   `yaml:"output_dir"`
	Formats   []string `yaml:"formats"`
	Title     string   `yaml:"title"`
}

// Emitter 按配置写出报表文件。同一 Bundle 重复写入得到相同的 CSV/HTML 内容。
type Emitter struct {
	cfg    Config
	logger *zap.Logger
}

func NewEmitter(cfg Config, logger *zap.Logger) (*Emitter, error) {
	if strings.TrimSpace(cfg.OutputDir) == "" {
		cfg.OutputDir = "reports"
	}
	if len(cfg.Formats) == 0 {
		cfg.Formats = []string{FormatCSV, FormatHTML}
	}
	for _, f := range cfg.Formats {
		switch strings.ToLower(f) {
		case FormatCSV, FormatHTML, FormatXLSX:
		default:
			return nil, fmt.Errorf("不支持的报表格式 %q", f)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Emitter{cfg: cfg, logger: logger}, nil
}

// Title 返回配置的报表标题。
func (e *Emitter) Title() string {
	if e.cfg.Title == "" {
		return "DHCP/DNS 角色清单"
	}
	return e.cfg.Title
}

// Write 写出全部格式，返回生成的文件路径。
func (e *Emitter) Write(b Bundle) ([]string, error) {
	if err := os.MkdirAll(e.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}
	var paths []string
	for _, format := range e.cfg.Formats {
		switch strings.ToLower(format) {
		case FormatCSV:
			written, err := WriteCSV(e.cfg.OutputDir, b)
			paths = append(paths, written...)
			if err != nil {
				return paths, err
			}
		case FormatHTML:
			path, err := WriteHTML(e.cfg.OutputDir, b)
			if err != nil {
				return paths, err
			}
			paths = append(paths, path)
		case FormatXLSX:
			path, err := WriteXLSX(e.cfg.OutputDir, b)
			if err != nil {
				return paths, err
			}
			paths = append(paths, path)
		}
	}
	e.logger.Info("报表已写出", zap.String("dir", e.cfg.OutputDir), zap.Int("files", len(paths)))
	return paths, nil
}
