package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/boxoffice/internal/boxoffice"
	"github.com/John-Robertt/boxoffice/internal/render"
)

const (
	// ErrCodeNotFound 表示 --config 指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// DefaultURL 是 Cinetel 季度票房页面。
	DefaultURL      = "https://tamburino.cinetel.it/pages/boxoffice.php?edperiodo=c3RhZ2lvbmFsZQ="
	DefaultRenderer = render.NameBrowser
	DefaultOutDir   = "."
	DefaultJSONName = "boxoffice.json"
	DefaultCSVName  = "boxoffice.csv"
	DefaultLogLevel = "info"

	// 自动发现的配置文件名（位于 cwd）。
	jsonFileName = "boxoffice.config.json"
	yamlFileName = "boxoffice.config.yaml"
)

// CLIArgs 保留每个参数“是否显式指定”的信息，保证 CLI > 配置文件 > 默认 的覆盖顺序可实现。
// 例如 --snapshot=false 必须能覆盖 snapshot: true。
type CLIArgs struct {
	// ConfigPath 非空时强制读取该文件（不存在即 config_not_found）。
	ConfigPath string

	// URL 来自位置参数；空串表示未指定。
	URL string

	Renderer    string
	RendererSet bool

	OutDir    string
	OutDirSet bool

	Timeout    time.Duration
	TimeoutSet bool

	RowSelector    string
	RowSelectorSet bool

	NumericSource    string
	NumericSourceSet bool

	Snapshot    bool
	SnapshotSet bool

	LogLevel    string
	LogLevelSet bool
}

// FileConfig 对应 boxoffice.config.json / boxoffice.config.yaml 的解析结构（两种格式字段名一致）。
type FileConfig struct {
	URL           string         `json:"url" yaml:"url"`
	Renderer      string         `json:"renderer" yaml:"renderer"`
	OutDir        string         `json:"out_dir" yaml:"out_dir"`
	JSONName      string         `json:"json_name" yaml:"json_name"`
	CSVName       string         `json:"csv_name" yaml:"csv_name"`
	RowSelector   string         `json:"row_selector" yaml:"row_selector"`
	Timeout       string         `json:"timeout" yaml:"timeout"`
	NumericSource string         `json:"numeric_source" yaml:"numeric_source"`
	Snapshot      *bool          `json:"snapshot" yaml:"snapshot"`
	Proxy         *ProxyConfig   `json:"proxy" yaml:"proxy"`
	Browser       *BrowserConfig `json:"browser" yaml:"browser"`
	LogLevel      string         `json:"log_level" yaml:"log_level"`
}

type ProxyConfig struct {
	URL string `json:"url" yaml:"url"`
}

type BrowserConfig struct {
	RemoteURL string `json:"remote_url" yaml:"remote_url"`
	Bin       string `json:"bin" yaml:"bin"`
	Headless  *bool  `json:"headless" yaml:"headless"`
	Stealth   bool   `json:"stealth" yaml:"stealth"`
}

// Browser 是合并后的浏览器设置。
type Browser struct {
	RemoteURL string
	Bin       string
	Headless  bool
	Stealth   bool
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// ConfigPath 是实际读取的配置文件；未使用配置文件时为空。
	ConfigPath string

	URL      string
	Renderer string

	OutDir   string // 绝对路径
	JSONPath string
	CSVPath  string

	RowSelector   string
	Timeout       time.Duration
	NumericSource boxoffice.NumericSource

	Snapshot bool
	ProxyURL string
	Browser  Browser
	LogLevel string
}

// CollectOptions 返回 Table Collector 的选项。
func (c EffectiveConfig) CollectOptions() boxoffice.Options {
	return boxoffice.Options{
		RowSelector: c.RowSelector,
		Timeout:     c.Timeout,
		Source:      c.NumericSource,
	}
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Path == "" {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须读取该文件（按扩展名选择 YAML/JSON）
// 2) 否则在 cwd 下查找 boxoffice.config.json 或 boxoffice.config.yaml（可选；两者同时存在视为无效）
//
// 覆盖优先级（固定）：CLI > 配置文件 > 内置默认。
// proxy / browser / json_name / csv_name 仅由配置文件控制。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
	)

	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		var exists bool
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		cfgPath, fc, err = discover(cwdAbs)
		if err != nil {
			return EffectiveConfig{}, err
		}
	}

	// 相对 out_dir 以配置文件所在目录为基准；没有配置文件时以 cwd 为基准。
	base := cwdAbs
	if cfgPath != "" {
		base = filepath.Dir(cfgPath)
	}
	return merge(cwdAbs, base, cli, fc, cfgPath)
}

func discover(cwdAbs string) (string, FileConfig, error) {
	var found []string
	for _, name := range []string{jsonFileName, yamlFileName} {
		p := filepath.Join(cwdAbs, name)
		fi, err := os.Stat(p)
		if err == nil && !fi.IsDir() {
			found = append(found, p)
		}
	}
	switch len(found) {
	case 0:
		return "", FileConfig{}, nil
	case 1:
		fc, _, err := readFileConfig(found[0])
		if err != nil {
			return "", FileConfig{}, &Error{Code: ErrCodeInvalid, Path: found[0], Err: err}
		}
		return found[0], fc, nil
	default:
		return "", FileConfig{}, &Error{
			Code: ErrCodeInvalid,
			Path: found[0],
			Err:  fmt.Errorf("%s 与 %s 同时存在，无法确定使用哪一个", jsonFileName, yamlFileName),
		}
	}
}

func merge(cwdAbs, base string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) (EffectiveConfig, error) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	rendererName := pick(cli.RendererSet, cli.Renderer, fc.Renderer, DefaultRenderer)
	rendererName = strings.ToLower(strings.TrimSpace(rendererName))
	if err := validateRenderer(rendererName); err != nil {
		return invalid(err)
	}

	pageURL := strings.TrimSpace(cli.URL)
	if pageURL == "" {
		pageURL = strings.TrimSpace(fc.URL)
	}
	if pageURL == "" {
		pageURL = DefaultURL
	}
	if err := validateURL(rendererName, pageURL); err != nil {
		return invalid(err)
	}

	// CLI 的 --out 相对 cwd；配置文件的 out_dir 相对配置文件目录。
	var outDir string
	switch {
	case cli.OutDirSet && strings.TrimSpace(cli.OutDir) != "":
		outDir = absCleanFrom(cwdAbs, cli.OutDir)
	case strings.TrimSpace(fc.OutDir) != "":
		outDir = absCleanFrom(base, fc.OutDir)
	default:
		outDir = absCleanFrom(cwdAbs, DefaultOutDir)
	}

	jsonName := pick(false, "", fc.JSONName, DefaultJSONName)
	csvName := pick(false, "", fc.CSVName, DefaultCSVName)
	if err := validateFileName("json_name", jsonName); err != nil {
		return invalid(err)
	}
	if err := validateFileName("csv_name", csvName); err != nil {
		return invalid(err)
	}
	if jsonName == csvName {
		return invalid(fmt.Errorf("json_name 与 csv_name 不能相同：%q", jsonName))
	}

	rowSelector := pick(cli.RowSelectorSet, cli.RowSelector, fc.RowSelector, boxoffice.DefaultRowSelector)

	timeout := boxoffice.DefaultTimeout
	if cli.TimeoutSet {
		timeout = cli.Timeout
	} else if s := strings.TrimSpace(fc.Timeout); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return invalid(fmt.Errorf("timeout 无效：%w", err))
		}
		timeout = d
	}
	if timeout <= 0 {
		return invalid(fmt.Errorf("timeout 必须大于 0，实际是 %s", timeout))
	}

	source, err := boxoffice.ParseNumericSource(pick(cli.NumericSourceSet, cli.NumericSource, fc.NumericSource, ""))
	if err != nil {
		return invalid(err)
	}

	snapshot := false
	if cli.SnapshotSet {
		snapshot = cli.Snapshot
	} else if fc.Snapshot != nil {
		snapshot = *fc.Snapshot
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if proxyURL != "" {
		if _, err := url.Parse(proxyURL); err != nil {
			return invalid(fmt.Errorf("proxy.url 无效：%w", err))
		}
	}

	br := Browser{Headless: true}
	if fc.Browser != nil {
		br.RemoteURL = strings.TrimSpace(fc.Browser.RemoteURL)
		br.Bin = strings.TrimSpace(fc.Browser.Bin)
		br.Stealth = fc.Browser.Stealth
		if fc.Browser.Headless != nil {
			br.Headless = *fc.Browser.Headless
		}
	}
	if br.RemoteURL != "" {
		u, err := url.Parse(br.RemoteURL)
		if err != nil || u.Host == "" {
			return invalid(fmt.Errorf("browser.remote_url 无效：%q", br.RemoteURL))
		}
	}

	logLevel := strings.ToLower(pick(cli.LogLevelSet, cli.LogLevel, fc.LogLevel, DefaultLogLevel))
	if err := validateLogLevel(logLevel); err != nil {
		return invalid(err)
	}

	jsonPath := filepath.Join(outDir, jsonName)
	csvPath := filepath.Join(outDir, csvName)
	// 输出不得覆盖正在使用的配置文件，否则下一次运行会把记录数组当作配置读取。
	if cfgPath != "" && (jsonPath == cfgPath || csvPath == cfgPath) {
		return invalid(fmt.Errorf("输出文件与配置文件 %s 冲突", cfgPath))
	}

	return EffectiveConfig{
		ConfigPath:    cfgPath,
		URL:           pageURL,
		Renderer:      rendererName,
		OutDir:        outDir,
		JSONPath:      jsonPath,
		CSVPath:       csvPath,
		RowSelector:   rowSelector,
		Timeout:       timeout,
		NumericSource: source,
		Snapshot:      snapshot,
		ProxyURL:      proxyURL,
		Browser:       br,
		LogLevel:      logLevel,
	}, nil
}

// pick 实现 CLI > config > 默认；空白字符串视为未配置。
func pick(cliSet bool, cliVal, fileVal, def string) string {
	if cliSet && strings.TrimSpace(cliVal) != "" {
		return strings.TrimSpace(cliVal)
	}
	if s := strings.TrimSpace(fileVal); s != "" {
		return s
	}
	return def
}

func validateRenderer(name string) error {
	switch name {
	case render.NameBrowser, render.NameStatic, render.NameFile:
		return nil
	default:
		return fmt.Errorf("renderer 只能是 browser、static 或 file，实际是 %q", name)
	}
}

func validateURL(rendererName, s string) error {
	if rendererName == render.NameFile && !strings.Contains(s, "://") {
		// 本地路径：是否可读由 file 渲染器在打开时报告。
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("url 无效：%w", err)
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return fmt.Errorf("url 缺少主机名：%q", s)
		}
		return nil
	case "file":
		if rendererName == render.NameFile {
			return nil
		}
	}
	return fmt.Errorf("url 必须是 http/https：%q", s)
}

func validateFileName(field, name string) error {
	if name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("%s 只能是文件名，不能包含路径：%q", field, name)
	}
	return nil
}

func validateLogLevel(s string) error {
	switch s {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("log_level 只能是 debug、info、warn 或 error，实际是 %q", s)
	}
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析配置文件（.yaml/.yml 用 YAML，其余按 JSON）。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &fc)
	default:
		err = json.Unmarshal(b, &fc)
	}
	if err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
