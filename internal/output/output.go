// Package output 把提取结果序列化为 JSON 与 CSV 两个文件。
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/John-Robertt/boxoffice/internal/domain"
	"github.com/John-Robertt/boxoffice/internal/infra/fsx"
)

// Write 先在内存中完整渲染 JSON 与 CSV，成功后再依次落盘；编码失败时不触碰任何文件。
// 文件系统错误原样返回。
func Write(records []domain.Record, jsonPath, csvPath string) error {
	j, err := EncodeJSON(records)
	if err != nil {
		return fmt.Errorf("编码 JSON 失败：%w", err)
	}
	c, err := EncodeCSV(records)
	if err != nil {
		return fmt.Errorf("编码 CSV 失败：%w", err)
	}
	return fsx.WriteFilesAtomic(
		fsx.File{Path: jsonPath, Data: j},
		fsx.File{Path: csvPath, Data: c},
	)
}

// EncodeJSON 输出 2 空格缩进的 JSON 数组；非 ASCII 字符原样保留，空输入为 []。
func EncodeJSON(records []domain.Record) ([]byte, error) {
	if records == nil {
		records = []domain.Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeCSV 输出带表头的 CSV（CRLF 行尾）；缺失值为空单元格。
// 空输入返回零字节（没有表头行）。
func EncodeCSV(records []domain.Record) ([]byte, error) {
	if len(records) == 0 {
		return []byte{}, nil
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = true
	if err := w.Write(domain.RecordFields); err != nil {
		return nil, err
	}
	for _, r := range records {
		if err := w.Write(r.Values()); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
