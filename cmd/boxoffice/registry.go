package main

import (
	"context"
	"log/slog"

	"github.com/John-Robertt/boxoffice/internal/config"
	"github.com/John-Robertt/boxoffice/internal/infra/browser"
	"github.com/John-Robertt/boxoffice/internal/infra/cache"
	"github.com/John-Robertt/boxoffice/internal/infra/httpx"
	"github.com/John-Robertt/boxoffice/internal/render"
	renderbrowser "github.com/John-Robertt/boxoffice/internal/render/browser"
	"github.com/John-Robertt/boxoffice/internal/render/file"
	"github.com/John-Robertt/boxoffice/internal/render/static"
)

// newRegistry 注册全部渲染器；只有被选中的那个才会真正构造（浏览器按需启动）。
func newRegistry(eff config.EffectiveConfig, logger *slog.Logger) (render.Registry, error) {
	return render.NewRegistry(map[string]render.Factory{
		render.NameBrowser: func(ctx context.Context) (render.Renderer, error) {
			r, err := renderbrowser.New(ctx, browser.Config{
				RemoteURL: eff.Browser.RemoteURL,
				Bin:       eff.Browser.Bin,
				Headless:  eff.Browser.Headless,
				Proxy:     eff.ProxyURL,
				Stealth:   eff.Browser.Stealth,
				Logger:    logger,
			}, eff.Timeout)
			if err != nil {
				return nil, err
			}
			return r, nil
		},
		render.NameStatic: func(context.Context) (render.Renderer, error) {
			c, err := httpx.NewPageClient(eff.ProxyURL, eff.Timeout)
			if err != nil {
				return nil, err
			}
			r, err := static.New(c)
			if err != nil {
				return nil, err
			}
			return r, nil
		},
		render.NameFile: func(context.Context) (render.Renderer, error) {
			store := cache.New(eff.OutDir, true)
			return file.Renderer{Snapshots: &store}, nil
		},
	})
}
