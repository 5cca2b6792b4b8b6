package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
)

//go:embed templates/*.tmpl
var templates embed.FS

var reportTemplate = template.Must(template.New("report.html.tmpl").Funcs(template.FuncMap{
	"riskRow": riskRow,
}).ParseFS(templates, "templates/report.html.tmpl"))

// scopes 表最后一列为得分。
func riskRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	last := row[len(row)-1]
	return last != "" && last != "0"
}

// RenderHTML 渲染 HTML 报表。
func RenderHTML(b Bundle) ([]byte, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, b); err != nil {
		return nil, fmt.Errorf("渲染 HTML 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteHTML 写入 report.html。
func WriteHTML(dir string, b Bundle) (string, error) {
	data, err := RenderHTML(b)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "report.html")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("写文件 %s 失败: %w", path, err)
	}
	return path, nil
}
