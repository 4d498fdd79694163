// Package file 从本地 HTML 文件（例如快照）加载页面。
package file

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/John-Robertt/boxoffice/internal/infra/cache"
	"github.com/John-Robertt/boxoffice/internal/render"
	"github.com/John-Robertt/boxoffice/internal/render/dom"
)

// Renderer 读取本地文件。
//
// Snapshots 非空时，http(s) URL 会回放此前保存的页面快照。
type Renderer struct {
	Snapshots *cache.Store
}

var _ render.Renderer = Renderer{}

func (Renderer) Name() string { return render.NameFile }

// Open 接受本地路径、file:// URL，或（配置了快照目录时）已有快照的 http(s) URL。
func (r Renderer) Open(ctx context.Context, pageURL string) (render.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, &render.NavigateError{URL: pageURL, Err: err}
	}
	b, err := r.load(pageURL)
	if err != nil {
		return nil, &render.NavigateError{URL: pageURL, Err: err}
	}
	p, err := dom.Parse(b)
	if err != nil {
		return nil, &render.NavigateError{URL: pageURL, Err: err}
	}
	return p, nil
}

func (Renderer) Close() error { return nil }

func (r Renderer) load(pageURL string) ([]byte, error) {
	s := strings.TrimSpace(pageURL)
	if isRemote(s) {
		if r.Snapshots == nil {
			return nil, fmt.Errorf("file 渲染器不能直接打开远程 URL：%q", s)
		}
		b, ok, err := r.Snapshots.ReadPage(s)
		if err != nil {
			return nil, err
		}
		if !ok {
			path, _ := r.Snapshots.PagePath(s)
			return nil, fmt.Errorf("快照不存在：%s", path)
		}
		return b, nil
	}
	path, err := localPath(s)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func isRemote(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

func localPath(s string) (string, error) {
	if s == "" {
		return "", errors.New("文件路径不能为空")
	}
	if !strings.HasPrefix(s, "file://") {
		return s, nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	if u.Path == "" {
		return "", errors.New("file:// URL 缺少路径")
	}
	return u.Path, nil
}
