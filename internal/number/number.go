// Package number 把页面上的数字文本转换为数值。
//
// 两条路径刻意分开：
//   - Normalize 处理“可见”单元格的欧式格式（€ 73.665.455 / 9.178.654,30）
//   - RawFloat/RawInt 处理隐藏单元格里已经是点号小数的原始数值（73665455.48）
//
// 两种输入对 '.' 的语义相反，合并会把其中一种算错。
package number

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/John-Robertt/boxoffice/internal/domain"
)

// ParseError 表示清洗后的文本无法解析为数字（对本次运行是致命错误）。
type ParseError struct {
	Text string // 原始输入
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("无法解析数字 %q：%v", e.Text, e.Err)
	}
	return fmt.Sprintf("无法解析数字 %q", e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Normalize 把欧式格式的可见数字文本转换为 float64。
//
// 规则（固定）：去掉 € 与 NBSP；所有 '.' 视为千分位直接删除；',' 视为小数点；
// 最后只保留数字与 '.'。清洗后为空返回缺失；多余的 '.' 原样交给解析器并返回 ParseError。
func Normalize(text domain.Opt[string]) (domain.Opt[float64], error) {
	s, ok := text.Get()
	if !ok {
		return domain.None[float64](), nil
	}

	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
	if s == "" {
		return domain.None[float64](), nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return domain.None[float64](), &ParseError{Text: text.OrZero(), Err: err}
	}
	return domain.Some(f), nil
}

// NormalizeString 是 Normalize 的便捷形式（输入总是存在）。
func NormalizeString(s string) (domain.Opt[float64], error) {
	return Normalize(domain.Some(s))
}

// RawFloat 解析隐藏单元格里的点号小数；空文本返回缺失。
func RawFloat(s string) (domain.Opt[float64], error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return domain.None[float64](), nil
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return domain.None[float64](), &ParseError{Text: s, Err: err}
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return domain.None[float64](), &ParseError{Text: s, Err: fmt.Errorf("非有限数值")}
	}
	return domain.Some(f), nil
}

// RawInt 先按浮点解析再截断为整数（容忍 "9178654.0" 这种尾随小数）；空文本返回缺失。
func RawInt(s string) (domain.Opt[int], error) {
	f, err := RawFloat(s)
	if err != nil {
		return domain.None[int](), err
	}
	v, ok := f.Get()
	if !ok {
		return domain.None[int](), nil
	}
	return Truncate(v, s)
}

// Truncate 把浮点数向零截断为 int；超出 int 范围返回 ParseError。
func Truncate(v float64, text string) (domain.Opt[int], error) {
	t := math.Trunc(v)
	if t >= math.MaxInt64 || t < math.MinInt64 {
		return domain.None[int](), &ParseError{Text: text, Err: fmt.Errorf("超出整数范围")}
	}
	return domain.Some(int(t)), nil
}
