package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/John-Robertt/boxoffice/internal/boxoffice"
	"github.com/John-Robertt/boxoffice/internal/config"
	"github.com/John-Robertt/boxoffice/internal/domain"
	"github.com/John-Robertt/boxoffice/internal/infra/cache"
	"github.com/John-Robertt/boxoffice/internal/number"
	"github.com/John-Robertt/boxoffice/internal/output"
	"github.com/John-Robertt/boxoffice/internal/render"
)

const (
	PhaseOpen     = "open"
	PhaseSnapshot = "snapshot"
	PhaseCollect  = "collect"
	PhaseWrite    = "write"
)

// Result 是一次运行的产物：对外稳定的 RunReport，以及（成功时）内存中的记录。
type Result struct {
	Report  domain.RunReport
	Records []domain.Record
}

// Execute 执行一次抓取并返回结果。
// 没有部分成功：任何错误都会中止运行，且不会写出任何输出文件。
func Execute(ctx context.Context, eff config.EffectiveConfig, reg render.Registry) Result {
	return ExecuteWithObserver(ctx, eff, reg, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出阶段信息（由上层决定是否启用）。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, reg render.Registry, obs Observer) Result {
	if obs == nil {
		obs = nopObserver{}
	}
	obs.OnStart(eff)

	rr := domain.RunReport{
		URL:       eff.URL,
		Renderer:  eff.Renderer,
		StartedAt: time.Now(),
	}
	records, outputs, err := execute(ctx, eff, reg, obs)
	rr.FinishedAt = time.Now()

	if err != nil {
		var fe *failure
		code, phase := domain.ErrCodeRendererFailed, ""
		if errors.As(err, &fe) {
			code, phase = fe.code, fe.phase
		}
		rr.ErrorCode = code
		rr.ErrorMsg = err.Error()
		rr.Finalize()
		obs.OnFailed(phase, code, err)
		return Result{Report: rr}
	}

	rr.Records = len(records)
	rr.Outputs = outputs
	rr.Finalize()
	return Result{Report: rr, Records: records}
}

func execute(ctx context.Context, eff config.EffectiveConfig, reg render.Registry, obs Observer) ([]domain.Record, []string, error) {
	started := time.Now()

	r, err := reg.New(ctx, eff.Renderer)
	if err != nil {
		return nil, nil, fail(PhaseOpen, domain.ErrCodeRendererFailed, err)
	}
	// 渲染器只释放一次：正常路径在写文件前显式释放，错误路径由 defer 兜底（此时已有更早的错误）。
	released := false
	release := func() error {
		if released {
			return nil
		}
		released = true
		return r.Close()
	}
	defer func() { _ = release() }()

	page, err := r.Open(ctx, eff.URL)
	if err != nil {
		return nil, nil, fail(PhaseOpen, domain.ErrCodeNavigateFailed, err)
	}
	pageClosed := false
	closePage := func() error {
		if pageClosed {
			return nil
		}
		pageClosed = true
		return page.Close()
	}
	defer func() { _ = closePage() }()

	obs.OnPhaseDone(PhaseOpen, map[string]any{
		"renderer": r.Name(),
		"url":      eff.URL,
	}, time.Since(started))

	opts := eff.CollectOptions()

	if eff.Snapshot {
		snapStarted := time.Now()
		path, err := snapshot(ctx, eff, page, opts)
		if err != nil {
			return nil, nil, err
		}
		obs.OnPhaseDone(PhaseSnapshot, map[string]any{"path": path}, time.Since(snapStarted))
	}

	collectStarted := time.Now()
	records, err := boxoffice.Collect(ctx, page, opts)
	if err != nil {
		return nil, nil, fail(PhaseCollect, domain.ErrCodeRendererFailed, err)
	}
	if err := closePage(); err != nil {
		return nil, nil, fail(PhaseCollect, domain.ErrCodeRendererFailed, fmt.Errorf("关闭页面失败：%w", err))
	}
	if err := release(); err != nil {
		return nil, nil, fail(PhaseCollect, domain.ErrCodeRendererFailed, fmt.Errorf("关闭渲染器失败：%w", err))
	}
	obs.OnPhaseDone(PhaseCollect, map[string]any{
		"rows":           len(records),
		"numeric_source": string(opts.Source),
	}, time.Since(collectStarted))

	writeStarted := time.Now()
	if err := output.Write(records, eff.JSONPath, eff.CSVPath); err != nil {
		return nil, nil, fail(PhaseWrite, domain.ErrCodeWriteFailed, err)
	}
	obs.OnPhaseDone(PhaseWrite, map[string]any{
		"json": eff.JSONPath,
		"csv":  eff.CSVPath,
	}, time.Since(writeStarted))

	return records, []string{eff.JSONPath, eff.CSVPath}, nil
}

// snapshot 等到行选择器出现后保存页面 HTML（调试用，可通过 file 渲染器回放）。
func snapshot(ctx context.Context, eff config.EffectiveConfig, page render.Page, opts boxoffice.Options) (string, error) {
	if err := page.WaitForSelector(ctx, opts.RowSelector, opts.Timeout); err != nil {
		return "", fail(PhaseSnapshot, domain.ErrCodeRendererFailed, err)
	}
	html, err := page.HTML(ctx)
	if err != nil {
		return "", fail(PhaseSnapshot, domain.ErrCodeRendererFailed, err)
	}
	path, err := cache.New(eff.OutDir, false).WritePage(eff.URL, html)
	if err != nil {
		return "", fail(PhaseSnapshot, domain.ErrCodeWriteFailed, err)
	}
	return path, nil
}

// failure 给错误附加阶段与 error_code；不改变错误文本。
type failure struct {
	phase string
	code  string
	err   error
}

func (f *failure) Error() string { return f.err.Error() }

func (f *failure) Unwrap() error { return f.err }

// fail 用具体错误类型决定 error_code；无法识别时使用该阶段的默认值。
func fail(phase, fallback string, err error) error {
	code := Classify(err)
	if code == "" {
		code = fallback
	}
	return &failure{phase: phase, code: code, err: err}
}

// Classify 把已知的错误类型映射为 RunReport.error_code；未知类型返回空串。
func Classify(err error) string {
	if c := config.Code(err); c != "" {
		return c
	}
	var (
		st *render.SelectorTimeoutError
		mr *boxoffice.MalformedRowError
		pe *number.ParseError
		ne *render.NavigateError
	)
	switch {
	case errors.As(err, &st):
		return domain.ErrCodeSelectorTimeout
	case errors.As(err, &mr):
		return domain.ErrCodeMalformedRow
	case errors.As(err, &pe):
		return domain.ErrCodeNumericParseFailed
	case errors.As(err, &ne):
		return domain.ErrCodeNavigateFailed
	}
	return ""
}

type nopObserver struct{}

func (nopObserver) OnStart(config.EffectiveConfig)                    {}
func (nopObserver) OnPhaseDone(string, map[string]any, time.Duration) {}
func (nopObserver) OnFailed(string, string, error)                    {}
