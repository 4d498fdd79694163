package render

import (
	"context"
	"fmt"
	"strings"
)

const (
	NameBrowser = "browser"
	NameStatic  = "static"
	NameFile    = "file"
)

// Registry 是 renderer 构造器的只读注册表（按 name 索引）。
//
// 注册的是构造器而不是实例：浏览器只有在真正被选中时才会启动。
type Registry struct {
	byName map[string]Factory
}

// Factory 构造一个 Renderer；返回的 Renderer 归调用方所有（负责 Close）。
type Factory func(ctx context.Context) (Renderer, error)

func NewRegistry(factories map[string]Factory) (Registry, error) {
	byName := make(map[string]Factory, len(factories))
	for name, f := range factories {
		if f == nil {
			return Registry{}, fmt.Errorf("renderer %q 的构造器不能为空", name)
		}
		n := strings.ToLower(strings.TrimSpace(name))
		if n == "" {
			return Registry{}, fmt.Errorf("renderer name 不能为空")
		}
		if _, ok := byName[n]; ok {
			return Registry{}, fmt.Errorf("重复的 renderer：%q", n)
		}
		byName[n] = f
	}
	return Registry{byName: byName}, nil
}

// New 按 name 构造 renderer。
func (r Registry) New(ctx context.Context, name string) (Renderer, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	f, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("未知 renderer：%q", name)
	}
	return f(ctx)
}
