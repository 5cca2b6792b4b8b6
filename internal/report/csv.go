package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// WriteCSV 每张表写一个 CSV 文件，返回写入的路径。
func WriteCSV(dir string, b Bundle) ([]string, error) {
	var paths []string
	for _, t := range b.Tables() {
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.Write(t.Header); err != nil {
			return paths, fmt.Errorf("写入 %s 表头失败: %w", t.Name, err)
		}
		if err := w.WriteAll(t.Rows); err != nil {
			return paths, fmt.Errorf("写入 %s 失败: %w", t.Name, err)
		}
		path := filepath.Join(dir, t.Name+".csv")
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return paths, fmt.Errorf("写文件 %s 失败: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
