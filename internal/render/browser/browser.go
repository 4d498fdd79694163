// Package browser 用 go-rod 驱动真实浏览器实现 render.Renderer（用于需要 JS 渲染的页面）。
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	browserx "github.com/John-Robertt/boxoffice/internal/infra/browser"
	"github.com/John-Robertt/boxoffice/internal/render"
)

// Renderer 持有一个浏览器进程；Close 时释放。
type Renderer struct {
	mgr        *browserx.Manager
	navTimeout time.Duration
}

var _ render.Renderer = (*Renderer)(nil)

// New 启动浏览器（或连接远程实例）。启动失败时不会泄漏进程。
func New(ctx context.Context, cfg browserx.Config, navTimeout time.Duration) (*Renderer, error) {
	mgr := browserx.NewManager(cfg)
	if err := mgr.Start(ctx); err != nil {
		_ = mgr.Close()
		return nil, err
	}
	return &Renderer{mgr: mgr, navTimeout: navTimeout}, nil
}

func (r *Renderer) Name() string { return render.NameBrowser }

// Open 新建 tab 并导航，等待 DOMContentLoaded。
func (r *Renderer) Open(ctx context.Context, pageURL string) (render.Page, error) {
	page, err := r.mgr.NewPage()
	if err != nil {
		return nil, &render.NavigateError{URL: pageURL, Err: err}
	}

	navCtx := ctx
	if r.navTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, r.navTimeout)
		defer cancel()
	}

	p := page.Context(navCtx)
	// 必须在 Navigate 之前注册等待，否则可能错过事件。
	wait := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(pageURL); err != nil {
		_ = page.Close()
		return nil, &render.NavigateError{URL: pageURL, Err: err}
	}
	wait()
	if err := navCtx.Err(); err != nil {
		_ = page.Close()
		return nil, &render.NavigateError{URL: pageURL, Err: fmt.Errorf("等待 DOMContentLoaded：%w", err)}
	}

	return &Page{page: page}, nil
}

func (r *Renderer) Close() error { return r.mgr.Close() }

// Page 包装 rod.Page。
type Page struct {
	page *rod.Page
}

var _ render.Page = (*Page)(nil)

func (p *Page) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	pg := p.page.Context(ctx).Timeout(timeout)
	defer pg.CancelTimeout()

	// rod 的 Element 会轮询直到元素出现或 context 结束。
	if _, err := pg.Element(selector); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return &render.SelectorTimeoutError{Selector: selector, Timeout: timeout, Err: err}
		}
		return fmt.Errorf("查找 %q 失败：%w", selector, err)
	}
	return nil
}

func (p *Page) Rows(ctx context.Context, selector string) ([]render.Row, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}
	rows := make([]render.Row, 0, len(els))
	for _, el := range els {
		rows = append(rows, element{el: el})
	}
	return rows, nil
}

func (p *Page) HTML(ctx context.Context) ([]byte, error) {
	s, err := p.page.Context(ctx).HTML()
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (p *Page) Close() error { return p.page.Close() }

type element struct {
	el *rod.Element
}

func (e element) Cells(ctx context.Context) ([]render.Cell, error) {
	tds, err := e.el.Context(ctx).Elements("td")
	if err != nil {
		return nil, err
	}
	cells := make([]render.Cell, 0, len(tds))
	for _, td := range tds {
		cells = append(cells, element{el: td})
	}
	return cells, nil
}

// Text 返回 innerText（rod 的 Element.Text 语义）。
func (e element) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e element) First(ctx context.Context, selector string) (render.Cell, bool, error) {
	els, err := e.el.Context(ctx).Elements(selector)
	if err != nil {
		return nil, false, err
	}
	if len(els) == 0 {
		return nil, false, nil
	}
	return element{el: els[0]}, true, nil
}
