package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Opt 是显式的“有值/缺失”标记，用于 Record 中允许缺失的字段。
//
// 约束：缺失与零值/空串是两种不同状态；JSON 中缺失固定输出 null（字段本身永远存在）。
type Opt[T any] struct {
	v  T
	ok bool
}

// Some 构造一个有值的 Opt。
func Some[T any](v T) Opt[T] { return Opt[T]{v: v, ok: true} }

// None 构造一个缺失的 Opt。
func None[T any]() Opt[T] { return Opt[T]{} }

// Get 返回值与是否存在。
func (o Opt[T]) Get() (T, bool) { return o.v, o.ok }

// Present 报告是否有值。
func (o Opt[T]) Present() bool { return o.ok }

// OrZero 返回值；缺失时返回 T 的零值。
func (o Opt[T]) OrZero() T { return o.v }

func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	if f, ok := any(o.v).(float64); ok {
		s, err := formatFloatJSON(f)
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	}
	return marshalLiteral(o.v)
}

func (o *Opt[T]) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*o = Opt[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

func (o Opt[T]) String() string {
	if !o.ok {
		return ""
	}
	if f, ok := any(o.v).(float64); ok {
		return FormatFloat(f)
	}
	return fmt.Sprint(o.v)
}

// FormatFloat 以最短十进制形式输出浮点数，整数值保留 ".0"（保持 float/int 的区分）。
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return s
	}
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// marshalLiteral 与 json.Marshal 相同，但不转义 <、>、&，与输出文件的编码器保持一致。
func marshalLiteral(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func formatFloatJSON(f float64) (string, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "", fmt.Errorf("不支持的浮点值：%v", f)
	}
	return FormatFloat(f), nil
}
