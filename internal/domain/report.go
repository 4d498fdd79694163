package domain

import (
	"encoding/json"
	"time"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

const (
	ErrCodeSelectorTimeout    = "selector_timeout"
	ErrCodeMalformedRow       = "malformed_row"
	ErrCodeNumericParseFailed = "numeric_parse_failed"
	ErrCodeWriteFailed        = "write_failed"
	ErrCodeNavigateFailed     = "navigate_failed"
	ErrCodeRendererFailed     = "renderer_failed"
	ErrCodeConfigNotFound     = "config_not_found"
	ErrCodeConfigInvalid      = "config_invalid"
)

// RunReport 是一次运行的对外稳定输出（非 TTY 时写到 stdout）。
type RunReport struct {
	URL      string `json:"url"`
	Renderer string `json:"renderer"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Records int      `json:"records"`
	Outputs []string `json:"outputs"`
}

// Finalize 统一时间为 UTC，并根据 ErrorCode 推导 Status。
//
// 约束：没有部分成功——失败时 Outputs 必须为空（文件要么全写，要么一个都不写）。
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if r.ErrorCode != "" {
		r.Status = StatusFailed
		r.Outputs = []string{}
	} else {
		r.Status = StatusOK
	}
	if r.Outputs == nil {
		r.Outputs = []string{}
	}
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
