package run

import (
	"time"

	"github.com/John-Robertt/boxoffice/internal/config"
)

// Observer 用于把“运行阶段”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 阶段名固定：open / snapshot / collect / write；失败的阶段不会触发 OnPhaseDone。
type Observer interface {
	// OnStart 在 ExecuteWithObserver 开始时调用（早于浏览器启动，保证用户能立即看到输出）。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段成功结束时调用（用于打印阶段统计与耗时）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnFailed 在运行中止时调用一次。
	OnFailed(phase, code string, err error)
}
