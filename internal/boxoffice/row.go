package boxoffice

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/John-Robertt/boxoffice/internal/domain"
	"github.com/John-Robertt/boxoffice/internal/number"
	"github.com/John-Robertt/boxoffice/internal/render"
)

// 行结构（固定列位）：
//
//	0 pos, 1 titolo, 2 data（内含隐藏的 ISO span）, 3 nazione, 4 distribuzione,
//	5 incasso, 6 presenze, 7 incasso_al, 8 presenze_al            （隐藏列，原始点号小数）
//	9 incasso, 10 presenze, 11 incasso_al, 12 presenze_al         （可见列，€ 与千分位）
const (
	cellPos = iota
	cellTitle
	cellDate
	cellCountry
	cellDistributor
	cellGrossRaw
	cellAdmissionsRaw
	cellGrossCumRaw
	cellAdmissionsCumRaw
	cellGrossVisible
	cellAdmissionsVisible
	cellGrossCumVisible
	cellAdmissionsCumVisible
)

const (
	// MinCells 是 hidden 模式下一行至少需要的单元格数。
	MinCells = cellAdmissionsCumRaw + 1
	// MinCellsVisible 是 visible 模式下一行至少需要的单元格数。
	MinCellsVisible = cellAdmissionsCumVisible + 1
)

// MalformedRowError 表示行的单元格数不足（页面结构很可能已变化，本次运行必须终止）。
type MalformedRowError struct {
	Cells int
	Want  int
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("行结构异常：只有 %d 个单元格，至少需要 %d 个", e.Cells, e.Want)
}

// FieldError 标记数值解析失败发生在哪个字段。
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return fmt.Sprintf("字段 %s：%v", e.Field, e.Err) }

func (e *FieldError) Unwrap() error { return e.Err }

// Extract 把一行解析为 Record。只读取 row，不做任何修改。
func Extract(ctx context.Context, row render.Row, opts Options) (domain.Record, error) {
	opts = opts.withDefaults()

	cells, err := row.Cells(ctx)
	if err != nil {
		return domain.Record{}, err
	}
	want := MinCells
	if opts.Source == SourceVisible {
		want = MinCellsVisible
	}
	if len(cells) < want {
		return domain.Record{}, &MalformedRowError{Cells: len(cells), Want: want}
	}

	texts := make([]string, want)
	for i := 0; i < want; i++ {
		s, err := cells[i].Text(ctx)
		if err != nil {
			return domain.Record{}, fmt.Errorf("读取第 %d 列失败：%w", i, err)
		}
		texts[i] = strings.TrimSpace(s)
	}

	iso, err := isoDate(ctx, cells[cellDate])
	if err != nil {
		return domain.Record{}, err
	}

	rec := domain.Record{
		Pos:         parsePos(texts[cellPos]),
		Title:       texts[cellTitle],
		FirstRun:    texts[cellDate],
		FirstRunISO: iso,
		Country:     texts[cellCountry],
		Distributor: texts[cellDistributor],
	}

	if opts.Source == SourceVisible {
		err = fillVisible(&rec, texts)
	} else {
		err = fillRaw(&rec, texts)
	}
	if err != nil {
		return domain.Record{}, err
	}
	return rec, nil
}

// isoDate 读取日期单元格中的第一个 span（通常为 display:none，内容形如 'YYYY-MM-DD'）。
func isoDate(ctx context.Context, c render.Cell) (domain.Opt[string], error) {
	span, ok, err := c.First(ctx, "span")
	if err != nil {
		return domain.None[string](), fmt.Errorf("查找日期 span 失败：%w", err)
	}
	if !ok {
		return domain.None[string](), nil
	}
	s, err := span.Text(ctx)
	if err != nil {
		return domain.None[string](), fmt.Errorf("读取日期 span 失败：%w", err)
	}
	return domain.Some(strings.Trim(strings.TrimSpace(s), "'")), nil
}

func fillRaw(rec *domain.Record, texts []string) error {
	var err error
	if rec.Gross, err = number.RawFloat(texts[cellGrossRaw]); err != nil {
		return &FieldError{Field: "incasso", Err: err}
	}
	if rec.Admissions, err = number.RawInt(texts[cellAdmissionsRaw]); err != nil {
		return &FieldError{Field: "presenze", Err: err}
	}
	if rec.GrossCum, err = number.RawFloat(texts[cellGrossCumRaw]); err != nil {
		return &FieldError{Field: "incasso_al", Err: err}
	}
	if rec.AdmissionsCum, err = number.RawInt(texts[cellAdmissionsCumRaw]); err != nil {
		return &FieldError{Field: "presenze_al", Err: err}
	}
	return nil
}

func fillVisible(rec *domain.Record, texts []string) error {
	var err error
	if rec.Gross, err = number.NormalizeString(texts[cellGrossVisible]); err != nil {
		return &FieldError{Field: "incasso", Err: err}
	}
	if rec.Admissions, err = visibleInt(texts[cellAdmissionsVisible]); err != nil {
		return &FieldError{Field: "presenze", Err: err}
	}
	if rec.GrossCum, err = number.NormalizeString(texts[cellGrossCumVisible]); err != nil {
		return &FieldError{Field: "incasso_al", Err: err}
	}
	if rec.AdmissionsCum, err = visibleInt(texts[cellAdmissionsCumVisible]); err != nil {
		return &FieldError{Field: "presenze_al", Err: err}
	}
	return nil
}

func visibleInt(s string) (domain.Opt[int], error) {
	f, err := number.NormalizeString(s)
	if err != nil {
		return domain.None[int](), err
	}
	v, ok := f.Get()
	if !ok {
		return domain.None[int](), nil
	}
	return number.Truncate(v, s)
}

// parsePos：纯 ASCII 数字才转为整数；否则原样保留（包括空串）。
func parsePos(s string) domain.Pos {
	if s == "" {
		return domain.RawPos(s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return domain.RawPos(s)
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// 超出 int 范围：保留原文比截断更可追溯。
		return domain.RawPos(s)
	}
	return domain.NumericPos(n)
}
