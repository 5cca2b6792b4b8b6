package cypher

import (
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

//go:embed *.cql
var files embed.FS

var (
	parsedMu sync.Mutex
	parsed   = map[string]*template.Template{}
)

// MustTemplate 渲染指定模板，解析结果按文件名缓存；失败直接 panic，便于尽早暴露模板错误。
func MustTemplate(name string, data any) string {
	tmpl := mustParse(name)
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		panic(fmt.Errorf("execute template %s failed: %w", name, err))
	}
	return sb.String()
}

func mustParse(name string) *template.Template {
	parsedMu.Lock()
	defer parsedMu.Unlock()
	if tmpl, ok := parsed[name]; ok {
		return tmpl
	}
	tmpl, err := template.New(name).Option("missingkey=error").ParseFS(files, name)
	if err != nil {
		panic(fmt.Errorf("parse template %s failed: %w", name, err))
	}
	parsed[name] = tmpl
	return tmpl
}

// MustAsset 返回模板原文。
func MustAsset(name string) string {
	b, err := files.ReadFile(name)
	if err != nil {
		panic(fmt.Errorf("load %s failed: %w", name, err))
	}
	return string(b)
}
