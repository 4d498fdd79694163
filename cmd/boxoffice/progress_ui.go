package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/boxoffice/internal/app/run"
	"github.com/John-Robertt/boxoffice/internal/config"
	"github.com/John-Robertt/boxoffice/internal/render"
)

var (
	_ run.Observer = (*progressUI)(nil)
	_ run.Observer = logObserver{}
)

// progressUI 是交互终端下的阶段输出。
//
// 设计目标：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - keepalive：启动浏览器/等待表格期间长时间无输出时，定期打印一行
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time
	phase       string // 正在进行的阶段

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	fmt.Fprintf(p.w, "[%s] boxoffice run (%s)\n", now.Format("15:04:05"), eff.Renderer)
	fmt.Fprintln(p.w, "配置（生效）:")
	if eff.ConfigPath != "" {
		fmt.Fprintf(p.w, "  config: %s\n", eff.ConfigPath)
	}
	fmt.Fprintf(p.w, "  url: %s\n", truncate(eff.URL, 120))
	fmt.Fprintf(p.w, "  renderer: %s\n", formatRenderer(eff))
	fmt.Fprintf(p.w, "  selector: %s (timeout %s)\n", eff.RowSelector, eff.Timeout)
	fmt.Fprintf(p.w, "  numeric_source: %s\n", eff.NumericSource)
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
	fmt.Fprintf(p.w, "  snapshot: %s\n", onOff(eff.Snapshot))

	fmt.Fprintln(p.w, "输出:")
	fmt.Fprintf(p.w, "  json: %s\n", eff.JSONPath)
	fmt.Fprintf(p.w, "  csv: %s\n", eff.CSVPath)
	fmt.Fprintln(p.w)

	p.phase = run.PhaseOpen
	p.lastPrinted = time.Now()
	if !p.tickerStarted {
		p.startTickerLocked()
	}
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case run.PhaseOpen:
		fmt.Fprintf(p.w, "打开: renderer=%s (%s)\n", stringField(fields, "renderer"), formatShortDuration(dur))
		p.phase = run.PhaseCollect
	case run.PhaseSnapshot:
		fmt.Fprintf(p.w, "快照: %s (%s)\n", stringField(fields, "path"), formatShortDuration(dur))
	case run.PhaseCollect:
		fmt.Fprintf(p.w, "提取: rows=%d numeric_source=%s (%s)\n",
			intField(fields, "rows"), stringField(fields, "numeric_source"), formatShortDuration(dur),
		)
		p.phase = run.PhaseWrite
	case run.PhaseWrite:
		fmt.Fprintf(p.w, "写入: json=%s csv=%s (%s)\n",
			stringField(fields, "json"), stringField(fields, "csv"), formatShortDuration(dur),
		)
		p.stopTickerLocked()
	default:
		// 兜底：未知阶段也不要静默（便于调试/演进）。
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnFailed(phase, code string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "失败: phase=%s %s: %s\n", phase, code, truncate(err.Error(), 160))
	p.stopTickerLocked()
	p.lastPrinted = time.Now()
}

// Stop 停止 keepalive（可重复调用）。
func (p *progressUI) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopTickerLocked()
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}
	stopCh := p.stopCh

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if time.Since(p.lastPrinted) > threshold {
					fmt.Fprintf(p.w, "等待中: phase=%s elapsed=%s\n", p.phase, formatElapsed(time.Since(p.startedAt)))
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stopCh:
				return
			}
		}
	}()
}

func (p *progressUI) stopTickerLocked() {
	if !p.tickerStarted {
		return
	}
	close(p.stopCh)
	p.tickerStarted = false
}

// logObserver 在非交互环境下把阶段事件写成结构化日志（stderr）。
type logObserver struct {
	log *slog.Logger
}

func (o logObserver) OnStart(eff config.EffectiveConfig) {
	o.log.Info("开始抓取", "url", eff.URL, "renderer", eff.Renderer, "numeric_source", string(eff.NumericSource))
}

func (o logObserver) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	args := make([]any, 0, 2*len(fields)+4)
	args = append(args, "phase", name, "dur", formatShortDuration(dur))
	for _, k := range sortedKeys(fields) {
		args = append(args, k, fields[k])
	}
	o.log.Info("阶段完成", args...)
}

func (o logObserver) OnFailed(phase, code string, err error) {
	o.log.Error("运行失败", "phase", phase, "error_code", code, "error", err)
}

func formatRenderer(eff config.EffectiveConfig) string {
	if eff.Renderer != render.NameBrowser {
		return eff.Renderer
	}
	b := eff.Browser
	parts := []string{"browser"}
	if b.RemoteURL != "" {
		parts = append(parts, "remote="+truncate(b.RemoteURL, 80))
	} else {
		parts = append(parts, "headless="+onOff(b.Headless))
	}
	if b.Stealth {
		parts = append(parts, "stealth=on")
	}
	return strings.Join(parts, " ")
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}

func stringField(fields map[string]any, key string) string {
	if fields == nil {
		return ""
	}
	s, _ := fields[key].(string)
	return s
}
