// Package static 通过普通 HTTP GET 获取页面（不执行 JS），再交给 goquery 解析。
package static

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/John-Robertt/boxoffice/internal/render"
	"github.com/John-Robertt/boxoffice/internal/render/dom"
)

// Renderer 用于服务端已经直出表格的页面；依赖 JS 渲染的页面请使用 browser renderer。
type Renderer struct {
	client *resty.Client
}

var _ render.Renderer = (*Renderer)(nil)

// New 基于给定的 http.Client（通常来自 httpx.NewPageClient）构造 renderer。
func New(c *http.Client) (*Renderer, error) {
	if c == nil {
		return nil, errors.New("http client 不能为空")
	}
	// resty 会为每个请求补上自己的 UA；发出前去掉它，由 httpx.Transport 按请求从 UA 池选择。
	rc := resty.NewWithClient(c).SetPreRequestHook(func(_ *resty.Client, req *http.Request) error {
		req.Header.Del("User-Agent")
		return nil
	})
	return &Renderer{client: rc}, nil
}

func (r *Renderer) Name() string { return render.NameStatic }

func (r *Renderer) Open(ctx context.Context, pageURL string) (render.Page, error) {
	resp, err := r.client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return nil, &render.NavigateError{URL: pageURL, Err: err}
	}
	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return nil, &render.NavigateError{URL: pageURL, Err: &render.HTTPStatusError{
			URL:        pageURL,
			StatusCode: code,
			Location:   resp.Header().Get("Location"),
		}}
	}
	p, err := dom.Parse(resp.Body())
	if err != nil {
		return nil, &render.NavigateError{URL: pageURL, Err: err}
	}
	return p, nil
}

func (r *Renderer) Close() error { return nil }
