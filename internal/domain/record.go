package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Record 是票房表格中一行的结构化结果（字段集合固定，顺序即 CSV 列顺序）。
//
// JSON 字段名沿用数据源的意大利语命名。
type Record struct {
	Pos           Pos          `json:"pos"`
	Title         string       `json:"titolo"`
	FirstRun      string       `json:"prima_progr"`
	FirstRunISO   Opt[string]  `json:"prima_progr_iso"`
	Country       string       `json:"nazione"`
	Distributor   string       `json:"distribuzione"`
	Gross         Opt[float64] `json:"incasso"`
	Admissions    Opt[int]     `json:"presenze"`
	GrossCum      Opt[float64] `json:"incasso_al"`
	AdmissionsCum Opt[int]     `json:"presenze_al"`
}

// RecordFields 是 Record 的字段名（与 JSON tag 一致、顺序一致）。
var RecordFields = []string{
	"pos",
	"titolo",
	"prima_progr",
	"prima_progr_iso",
	"nazione",
	"distribuzione",
	"incasso",
	"presenze",
	"incasso_al",
	"presenze_al",
}

// Values 按 RecordFields 的顺序把 Record 渲染为文本（缺失值为空串）。
func (r Record) Values() []string {
	return []string{
		r.Pos.String(),
		r.Title,
		r.FirstRun,
		r.FirstRunISO.String(),
		r.Country,
		r.Distributor,
		r.Gross.String(),
		r.Admissions.String(),
		r.GrossCum.String(),
		r.AdmissionsCum.String(),
	}
}

// Pos 是排名字段：要么是整数（Numeric），要么是原样保留的文本（Raw）。
type Pos struct {
	n       int
	raw     string
	numeric bool
}

func NumericPos(n int) Pos { return Pos{n: n, numeric: true} }

func RawPos(s string) Pos { return Pos{raw: s} }

// Int 返回整数排名；Raw 变体返回 false。
func (p Pos) Int() (int, bool) { return p.n, p.numeric }

// Raw 返回原始文本；Numeric 变体返回 false。
func (p Pos) Raw() (string, bool) { return p.raw, !p.numeric }

func (p Pos) String() string {
	if p.numeric {
		return strconv.Itoa(p.n)
	}
	return p.raw
}

func (p Pos) MarshalJSON() ([]byte, error) {
	if p.numeric {
		return []byte(strconv.Itoa(p.n)), nil
	}
	return marshalLiteral(p.raw)
}

func (p *Pos) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = RawPos(s)
		return nil
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return fmt.Errorf("pos 必须是整数或字符串：%s", string(b))
	}
	*p = NumericPos(n)
	return nil
}
