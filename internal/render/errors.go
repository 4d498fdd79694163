package render

import (
	"fmt"
	"strings"
	"time"
)

// SelectorTimeoutError 表示目标元素在等待时间内没有出现（页面结构变化或加载失败）。
type SelectorTimeoutError struct {
	Selector string
	Timeout  time.Duration
	Err      error
}

func (e *SelectorTimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("等待 %q 超时（%s）：%v", e.Selector, e.Timeout, e.Err)
	}
	return fmt.Sprintf("等待 %q 超时（%s）", e.Selector, e.Timeout)
}

func (e *SelectorTimeoutError) Unwrap() error { return e.Err }

// NavigateError 表示页面无法打开（网络错误、非 2xx、文件不存在等）。
type NavigateError struct {
	URL string
	Err error
}

func (e *NavigateError) Error() string {
	return fmt.Sprintf("打开页面 %s 失败：%v", e.URL, e.Err)
}

func (e *NavigateError) Unwrap() error { return e.Err }

// HTTPStatusError 表示站点返回了非 2xx 的 HTTP 状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}
