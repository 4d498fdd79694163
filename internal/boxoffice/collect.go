// Package boxoffice 从渲染后的票房表格中抽取 Record。
package boxoffice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/John-Robertt/boxoffice/internal/domain"
	"github.com/John-Robertt/boxoffice/internal/render"
)

const (
	DefaultRowSelector = "table.tablesorter tbody tr"
	DefaultTimeout     = 30 * time.Second
)

// NumericSource 决定数值字段取自哪组单元格。
type NumericSource string

const (
	// SourceHidden 读取隐藏列（5–8）的原始数值（默认）。
	SourceHidden NumericSource = "hidden"
	// SourceVisible 读取可见列（9–12）的欧式格式文本，经 number.Normalize 转换。
	SourceVisible NumericSource = "visible"
)

// ParseNumericSource 校验并解析 NumericSource（空串返回默认值）。
func ParseNumericSource(s string) (NumericSource, error) {
	switch NumericSource(strings.ToLower(strings.TrimSpace(s))) {
	case "", SourceHidden:
		return SourceHidden, nil
	case SourceVisible:
		return SourceVisible, nil
	default:
		return "", fmt.Errorf("numeric_source 只能是 hidden 或 visible，实际是 %q", s)
	}
}

type Options struct {
	RowSelector string
	Timeout     time.Duration
	Source      NumericSource
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.RowSelector) == "" {
		o.RowSelector = DefaultRowSelector
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Source == "" {
		o.Source = SourceHidden
	}
	return o
}

// RowError 给行级错误补上行号（从 1 开始，按文档顺序）。
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string { return fmt.Sprintf("第 %d 行：%v", e.Row, e.Err) }

func (e *RowError) Unwrap() error { return e.Err }

// Collect 等待表格行出现，然后按文档顺序逐行抽取。
//
// 约束：不去重、不过滤、不排序；任何一行失败都终止（不返回部分结果）。
func Collect(ctx context.Context, page render.Page, opts Options) ([]domain.Record, error) {
	opts = opts.withDefaults()

	if err := page.WaitForSelector(ctx, opts.RowSelector, opts.Timeout); err != nil {
		return nil, err
	}

	rows, err := page.Rows(ctx, opts.RowSelector)
	if err != nil {
		return nil, fmt.Errorf("读取表格行失败：%w", err)
	}

	records := make([]domain.Record, 0, len(rows))
	for i, row := range rows {
		rec, err := Extract(ctx, row, opts)
		if err != nil {
			return nil, &RowError{Row: i + 1, Err: err}
		}
		records = append(records, rec)
	}
	return records, nil
}
