package render

import (
	"context"
	"errors"
	"testing"
)

type stubRenderer struct{ name string }

func (s stubRenderer) Name() string                               { return s.name }
func (s stubRenderer) Open(context.Context, string) (Page, error) { return nil, errors.New("stub") }
func (s stubRenderer) Close() error                               { return nil }

func TestRegistry_NewByName(t *testing.T) {
	calls := 0
	reg, err := NewRegistry(map[string]Factory{
		NameStatic: func(context.Context) (Renderer, error) {
			calls++
			return stubRenderer{name: NameStatic}, nil
		},
		NameBrowser: func(context.Context) (Renderer, error) {
			t.Fatalf("未选中的 renderer 不应被构造")
			return nil, nil
		},
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	r, err := reg.New(context.Background(), " Static ")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if r.Name() != NameStatic {
		t.Fatalf("期望 %q，实际 %q", NameStatic, r.Name())
	}
	if calls != 1 {
		t.Fatalf("期望构造 1 次，实际 %d", calls)
	}
}

func TestRegistry_Unknown(t *testing.T) {
	reg, err := NewRegistry(map[string]Factory{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, err := reg.New(context.Background(), "nope"); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
}

func TestRegistry_DuplicateAfterNormalize(t *testing.T) {
	f := func(context.Context) (Renderer, error) { return stubRenderer{}, nil }
	_, err := NewRegistry(map[string]Factory{"file": f, " FILE ": f})
	if err == nil {
		t.Fatalf("期望重复错误，但得到 nil")
	}
}

func TestRegistry_NilFactory(t *testing.T) {
	if _, err := NewRegistry(map[string]Factory{"file": nil}); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
}
