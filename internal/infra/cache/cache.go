package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"

	"github.com/John-Robertt/boxoffice/internal/infra/fsx"
)

// Store 提供 <out_dir>/cache/pages/ 下的页面快照读写。
//
// 约束：
// - 回放（file 渲染器）：只允许读（ReadOnly=true）
// - 抓取时开启 snapshot：允许写（ReadOnly=false）
type Store struct {
	Root     string // <out_dir>
	ReadOnly bool
}

var ErrReadOnly = errors.New("cache: read-only")

func New(root string, readOnly bool) Store {
	return Store{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
	}
}

// PagePath 返回页面快照的路径：文件名是 URL 的 slug。
func (s Store) PagePath(pageURL string) (string, error) {
	name, err := pageKey(pageURL)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, "cache", "pages", name+".html"), nil
}

func (s Store) ReadPage(pageURL string) ([]byte, bool, error) {
	path, err := s.PagePath(pageURL)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

// WritePage 原子写入快照并返回其路径。
func (s Store) WritePage(pageURL string, html []byte) (string, error) {
	if s.ReadOnly {
		return "", ErrReadOnly
	}
	path, err := s.PagePath(pageURL)
	if err != nil {
		return "", err
	}
	if err := fsx.WriteFileAtomic(filepath.Dir(path), filepath.Base(path), html); err != nil {
		return "", err
	}
	return path, nil
}

// slug 只输出 [a-z0-9-]，天然避免路径穿越。
func pageKey(pageURL string) (string, error) {
	k := slug.Make(strings.TrimSpace(pageURL))
	if k == "" {
		return "", fmt.Errorf("无法从 URL 生成快照名：%q", pageURL)
	}
	return k, nil
}
