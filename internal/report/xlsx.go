package report

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// WriteXLSX 把全部表写入同一个工作簿，每张表一个 sheet，另加 summary sheet。
func WriteXLSX(dir string, b Bundle) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	const summary = "summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return "", fmt.Errorf("重命名 sheet 失败: %w", err)
	}
	summaryRows := [][]any{
		{"title", b.Title},
		{"run_id", b.RunID},
		{"generated_at", b.GeneratedAt.Format("2006-01-02 15:04:05Z07:00")},
		{"risk_total", b.Risk.Total},
		{"risk_tier", string(b.Risk.Tier)},
		{"failures", b.Failures.Total},
	}
	for _, kc := range b.KindCounts() {
		summaryRows = append(summaryRows, []any{"failures_" + string(kc.Kind), kc.Count})
	}
	if err := writeRows(f, summary, summaryRows); err != nil {
		return "", err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", fmt.Errorf("创建样式失败: %w", err)
	}
	for _, t := range b.Tables() {
		if _, err := f.NewSheet(t.Name); err != nil {
			return "", fmt.Errorf("创建 sheet %s 失败: %w", t.Name, err)
		}
		rows := make([][]any, 0, len(t.Rows)+1)
		rows = append(rows, toAny(t.Header))
		for _, r := range t.Rows {
			rows = append(rows, toAny(r))
		}
		if err := writeRows(f, t.Name, rows); err != nil {
			return "", err
		}
		if len(t.Header) > 0 {
			last, _ := excelize.CoordinatesToCellName(len(t.Header), 1)
			if err := f.SetCellStyle(t.Name, "A1", last, bold); err != nil {
				return "", fmt.Errorf("设置表头样式失败: %w", err)
			}
			if err := f.SetPanes(t.Name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
				return "", fmt.Errorf("冻结表头失败: %w", err)
			}
		}
	}

	path := filepath.Join(dir, "inventory.xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("保存 %s 失败: %w", path, err)
	}
	return path, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("写入 %s 第 %d 行失败: %w", sheet, i+1, err)
		}
	}
	return nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
