package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const tamburino = "https://www.cinetel.it/pages/tamburino.php"

func TestStore_ReadWritePage(t *testing.T) {
	root := t.TempDir()

	s := New(root, false)
	path, err := s.WritePage(tamburino, []byte("<html/>"))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := filepath.Join(root, "cache", "pages", "https-www-cinetel-it-pages-tamburino-php.html")
	if path != want {
		t.Fatalf("快照路径不一致：got=%q want=%q", path, want)
	}

	b, ok, err := New(root, true).ReadPage(tamburino)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !ok {
		t.Fatalf("期望命中快照，但 ok=false")
	}
	if string(b) != "<html/>" {
		t.Fatalf("内容不一致：%q", string(b))
	}
}

func TestStore_ReadMiss(t *testing.T) {
	_, ok, err := New(t.TempDir(), true).ReadPage(tamburino)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if ok {
		t.Fatalf("期望未命中")
	}
}

func TestStore_ReadOnlyRejectWrite(t *testing.T) {
	root := t.TempDir()

	s := New(root, true)
	_, err := s.WritePage(tamburino, []byte("<html/>"))
	if !errors.Is(err, ErrReadOnly) {
		t.Fatalf("期望 ErrReadOnly，实际：%v", err)
	}

	path, err := s.PagePath(tamburino)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("期望文件不存在，但 Stat err=%v", err)
	}
}

func TestStore_PagePathRejectEmpty(t *testing.T) {
	if _, err := New(t.TempDir(), false).PagePath("  "); err == nil {
		t.Fatalf("期望空 URL 报错")
	}
}
