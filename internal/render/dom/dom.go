// Package dom 用 goquery 实现 render.Page：用于静态 HTTP 抓取、本地 HTML 文件与测试夹具。
package dom

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/John-Robertt/boxoffice/internal/render"
)

var errNotFound = errors.New("静态文档中不存在匹配元素")

// Page 是解析后的静态 DOM。静态文档不会再变化，所以 WaitForSelector 只检查一次。
type Page struct {
	doc *goquery.Document
	raw []byte
}

var _ render.Page = (*Page)(nil)

// Parse 把 HTML 解析为 Page。
func Parse(b []byte) (*Page, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, errors.New("html 为空")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	return &Page{doc: doc, raw: append([]byte(nil), b...)}, nil
}

func (p *Page) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return &render.SelectorTimeoutError{Selector: selector, Timeout: timeout, Err: err}
	}
	if p.doc.Find(selector).Length() > 0 {
		return nil
	}
	return &render.SelectorTimeoutError{Selector: selector, Timeout: timeout, Err: errNotFound}
}

func (p *Page) Rows(ctx context.Context, selector string) ([]render.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel := p.doc.Find(selector)
	rows := make([]render.Row, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		rows = append(rows, element{s: s})
	})
	return rows, nil
}

// HTML 返回原始文档字节（静态文档即当前 DOM）。
func (p *Page) HTML(context.Context) ([]byte, error) {
	return append([]byte(nil), p.raw...), nil
}

func (p *Page) Close() error { return nil }

// element 同时实现 Row 与 Cell。
type element struct {
	s *goquery.Selection
}

func (e element) Cells(ctx context.Context) ([]render.Cell, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tds := e.s.Find("td")
	cells := make([]render.Cell, 0, tds.Length())
	tds.Each(func(_ int, s *goquery.Selection) {
		cells = append(cells, element{s: s})
	})
	return cells, nil
}

func (e element) Text(context.Context) (string, error) {
	return InnerText(e.s), nil
}

func (e element) First(_ context.Context, selector string) (render.Cell, bool, error) {
	s := e.s.Find(selector).First()
	if s.Length() == 0 {
		return nil, false, nil
	}
	return element{s: s}, true, nil
}

// InnerText 近似浏览器 innerText：
// - 元素自身隐藏：返回全部文本（与浏览器对未渲染元素的行为一致）
// - 否则跳过隐藏的后代（内联 display:none 或 hidden 属性）以及 script/style
// - 连续空白折叠为单个空格
//
// 注意：不解析样式表，通过 class 隐藏的元素无法识别。
func InnerText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		if isHidden(n) {
			writeAll(&b, n)
			continue
		}
		writeVisible(&b, n)
	}
	return normSpace(b.String())
}

func writeVisible(b *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
		case html.ElementNode:
			if c.DataAtom == atom.Script || c.DataAtom == atom.Style || isHidden(c) {
				continue
			}
			if c.DataAtom == atom.Br {
				b.WriteByte(' ')
				continue
			}
			writeVisible(b, c)
		}
	}
}

func writeAll(b *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeAll(b, c)
	}
}

func isHidden(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "hidden":
			return true
		case "style":
			style := strings.ToLower(strings.Join(strings.Fields(a.Val), ""))
			if strings.Contains(style, "display:none") {
				return true
			}
		}
	}
	return false
}

// normSpace 只折叠 ASCII 空白；NBSP 与浏览器 innerText 一样原样保留。
func normSpace(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			return true
		}
		return false
	}), " ")
}
