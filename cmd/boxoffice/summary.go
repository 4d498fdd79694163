package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/John-Robertt/boxoffice/internal/domain"
)

func summaryLine(rr domain.RunReport) string {
	if rr.Status != domain.StatusOK {
		return fmt.Sprintf("完成：status=%s error_code=%s", rr.Status, rr.ErrorCode)
	}
	return fmt.Sprintf("完成：status=%s records=%d", rr.Status, rr.Records)
}

// printSummary 打印给人看的结果：记录数、产物路径，以及全部记录的表格（没有记录时打印“无”）。
func printSummary(w io.Writer, rr domain.RunReport, records []domain.Record) {
	fmt.Fprintln(w, summaryLine(rr))
	if rr.Status != domain.StatusOK {
		return
	}
	for _, p := range rr.Outputs {
		fmt.Fprintf(w, "  %s\n", p)
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "示例：无")
		return
	}
	renderRecords(w, records)
}

func renderRecords(w io.Writer, records []domain.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	header := make(table.Row, 0, len(domain.RecordFields))
	for _, f := range domain.RecordFields {
		header = append(header, f)
	}
	t.AppendHeader(header)

	for _, r := range records {
		vals := r.Values()
		row := make(table.Row, 0, len(vals))
		for _, v := range vals {
			row = append(row, v)
		}
		t.AppendRow(row)
	}

	t.SetStyle(table.StyleRounded)
	// 表头保持与 JSON/CSV 一致的字段名。
	t.Style().Format.Header = text.FormatDefault
	t.Render()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
