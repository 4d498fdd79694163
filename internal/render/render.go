package render

import (
	"context"
	"time"
)

// Renderer 把“页面如何得到”限制在 render 包内部；抽取逻辑只依赖 Page/Row/Cell 这组窄接口。
//
// 约束：
// - Open 负责导航并等待 DOMContentLoaded（静态文档在解析完成时即视为就绪）
// - Renderer 持有的底层资源（浏览器进程等）由 Close 统一释放，且 Close 必须可重复调用
// - 不做重试（失败直接返回，由上层决定终止）
type Renderer interface {
	Name() string
	Open(ctx context.Context, pageURL string) (Page, error)
	Close() error
}

// Page 是一个已加载的页面。
type Page interface {
	// WaitForSelector 在 timeout 内等待 selector 出现；超时返回 *SelectorTimeoutError。
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	// Rows 按文档顺序返回匹配 selector 的元素（不等待）。
	Rows(ctx context.Context, selector string) ([]Row, error)
	// HTML 返回当前 DOM 的序列化结果（用于快照）。
	HTML(ctx context.Context) ([]byte, error)
	Close() error
}

// Row 是表格中的一行。
type Row interface {
	// Cells 按文档顺序返回该行下的 td。
	Cells(ctx context.Context) ([]Cell, error)
}

// Cell 是一个单元格（或单元格内的嵌套元素）。
type Cell interface {
	// Text 返回渲染后的文本（语义对齐 innerText：隐藏的后代不计入，自身隐藏时返回全部文本）。
	Text(ctx context.Context) (string, error)
	// First 返回第一个匹配 selector 的后代元素；不存在时 ok=false（不等待）。
	First(ctx context.Context, selector string) (c Cell, ok bool, err error)
}
