package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/John-Robertt/boxoffice/internal/boxoffice"
	"github.com/John-Robertt/boxoffice/internal/render"
)

func TestLoadEffective_DefaultsWithoutConfig(t *testing.T) {
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigPath != "" {
		t.Fatalf("期望未使用配置文件，实际=%q", eff.ConfigPath)
	}
	if eff.URL != DefaultURL || eff.Renderer != render.NameBrowser {
		t.Fatalf("默认值不一致：url=%q renderer=%q", eff.URL, eff.Renderer)
	}
	if eff.JSONPath != filepath.Join(cwd, DefaultJSONName) || eff.CSVPath != filepath.Join(cwd, DefaultCSVName) {
		t.Fatalf("默认输出路径不一致：json=%q csv=%q", eff.JSONPath, eff.CSVPath)
	}
	if eff.RowSelector != boxoffice.DefaultRowSelector || eff.Timeout != boxoffice.DefaultTimeout {
		t.Fatalf("默认选择器/超时不一致：%q %s", eff.RowSelector, eff.Timeout)
	}
	if eff.NumericSource != boxoffice.SourceHidden {
		t.Fatalf("期望 numeric_source=hidden，实际=%q", eff.NumericSource)
	}
	if !eff.Browser.Headless || eff.Snapshot {
		t.Fatalf("期望 headless=true snapshot=false，实际 %+v snapshot=%v", eff.Browser, eff.Snapshot)
	}
}

func TestLoadEffective_ForcedConfigNotFound(t *testing.T) {
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{ConfigPath: "missing.yaml"})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoadEffective_BothConfigFilesIsInvalid(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "boxoffice.config.json"), []byte(`{}`))
	writeFile(t, filepath.Join(cwd, "boxoffice.config.yaml"), []byte("renderer: static\n"))

	_, err := LoadEffective(cwd, CLIArgs{})
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
	}
}

func TestLoadEffective_YAMLConfig(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "boxoffice.config.yaml"), []byte(`
url: https://example.com/box
renderer: static
out_dir: out
csv_name: weekly.csv
timeout: 5s
numeric_source: visible
snapshot: true
proxy:
  url: http://127.0.0.1:7890
browser:
  headless: false
  stealth: true
log_level: debug
`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigPath != filepath.Join(cwd, "boxoffice.config.yaml") {
		t.Fatalf("配置文件路径不一致：%q", eff.ConfigPath)
	}
	if eff.URL != "https://example.com/box" || eff.Renderer != render.NameStatic {
		t.Fatalf("url/renderer 不一致：%q %q", eff.URL, eff.Renderer)
	}
	if eff.CSVPath != filepath.Join(cwd, "out", "weekly.csv") || eff.JSONPath != filepath.Join(cwd, "out", DefaultJSONName) {
		t.Fatalf("输出路径不一致：json=%q csv=%q", eff.JSONPath, eff.CSVPath)
	}
	if eff.Timeout != 5*time.Second || eff.NumericSource != boxoffice.SourceVisible || !eff.Snapshot {
		t.Fatalf("timeout/numeric_source/snapshot 不一致：%s %q %v", eff.Timeout, eff.NumericSource, eff.Snapshot)
	}
	if eff.ProxyURL != "http://127.0.0.1:7890" {
		t.Fatalf("proxy.url 不一致：%q", eff.ProxyURL)
	}
	if eff.Browser.Headless || !eff.Browser.Stealth {
		t.Fatalf("browser 设置不一致：%+v", eff.Browser)
	}
	if eff.LogLevel != "debug" {
		t.Fatalf("log_level 不一致：%q", eff.LogLevel)
	}
}

func TestLoadEffective_CLIOverridesConfig(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "boxoffice.config.json"), []byte(`{"renderer":"static","snapshot":true,"timeout":"5s","out_dir":"from-config"}`))

	eff, err := LoadEffective(cwd, CLIArgs{
		URL:         "https://example.com/other",
		Renderer:    "browser",
		RendererSet: true,
		Snapshot:    false,
		SnapshotSet: true, // --snapshot=false
		Timeout:     time.Minute,
		TimeoutSet:  true,
		OutDir:      "from-cli",
		OutDirSet:   true,
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.URL != "https://example.com/other" || eff.Renderer != render.NameBrowser {
		t.Fatalf("CLI 未覆盖 url/renderer：%q %q", eff.URL, eff.Renderer)
	}
	if eff.Snapshot {
		t.Fatalf("期望 snapshot=false")
	}
	if eff.Timeout != time.Minute {
		t.Fatalf("期望 timeout=1m，实际=%s", eff.Timeout)
	}
	if eff.OutDir != filepath.Join(cwd, "from-cli") {
		t.Fatalf("期望 out_dir 来自 CLI，实际=%q", eff.OutDir)
	}
}

func TestLoadEffective_ForcedConfigRelativeOutDir(t *testing.T) {
	cwd := t.TempDir()
	cfgDir := filepath.Join(cwd, "conf")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	writeFile(t, filepath.Join(cfgDir, "custom.json"), []byte(`{"out_dir":"data"}`))

	eff, err := LoadEffective(cwd, CLIArgs{ConfigPath: "conf/custom.json"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.OutDir != filepath.Join(cfgDir, "data") {
		t.Fatalf("out_dir 应相对配置文件目录，实际=%q", eff.OutDir)
	}
}

func TestLoadEffective_IgnoresPreviousOutput(t *testing.T) {
	cwd := t.TempDir()
	// 上一次运行留下的输出不是配置文件。
	writeFile(t, filepath.Join(cwd, DefaultJSONName), []byte(`[{"pos":1}]`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigPath != "" {
		t.Fatalf("期望未使用配置文件，实际=%q", eff.ConfigPath)
	}
}

func TestLoadEffective_OutputCollidesWithConfig(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "boxoffice.json"), []byte(`{"renderer":"static"}`))

	_, err := LoadEffective(cwd, CLIArgs{ConfigPath: "boxoffice.json"})
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
	}

	writeFile(t, filepath.Join(cwd, "run.json"), []byte(`{"csv_name":"run.json","json_name":"out.json"}`))
	_, err = LoadEffective(cwd, CLIArgs{ConfigPath: "run.json"})
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("csv 与配置冲突：期望 %q，实际 err=%v", ErrCodeInvalid, err)
	}
}

func TestLoadEffective_FileRendererAcceptsPath(t *testing.T) {
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{URL: "saved/page.html", Renderer: "file", RendererSet: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.URL != "saved/page.html" {
		t.Fatalf("url 不一致：%q", eff.URL)
	}

	// 非 file 渲染器必须是 http/https。
	_, err = LoadEffective(cwd, CLIArgs{URL: "saved/page.html", Renderer: "static", RendererSet: true})
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
	}
}

func TestLoadEffective_InvalidFields(t *testing.T) {
	cases := map[string]string{
		"renderer":       `{"renderer":"nope"}`,
		"timeout":        `{"timeout":"soon"}`,
		"zero_timeout":   `{"timeout":"0s"}`,
		"numeric_source": `{"numeric_source":"both"}`,
		"proxy":          `{"proxy":{"url":"http://[::1"}}`,
		"remote_url":     `{"browser":{"remote_url":"ws://"}}`,
		"json_name":      `{"json_name":"../x.json"}`,
		"same_names":     `{"json_name":"a","csv_name":"a"}`,
		"log_level":      `{"log_level":"trace"}`,
		"url":            `{"url":"ftp://example.com/x"}`,
		"syntax":         `{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			cwd := t.TempDir()
			writeFile(t, filepath.Join(cwd, "boxoffice.config.json"), []byte(body))

			_, err := LoadEffective(cwd, CLIArgs{})
			if Code(err) != ErrCodeInvalid {
				t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
			}
		})
	}
}

func TestEffectiveConfig_CollectOptions(t *testing.T) {
	eff := EffectiveConfig{RowSelector: "tr", Timeout: time.Second, NumericSource: boxoffice.SourceVisible}
	opts := eff.CollectOptions()
	if opts.RowSelector != "tr" || opts.Timeout != time.Second || opts.Source != boxoffice.SourceVisible {
		t.Fatalf("CollectOptions 不一致：%+v", opts)
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败 %q：%v", path, err)
	}
}
