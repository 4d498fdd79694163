package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/boxoffice/internal/app/run"
	"github.com/John-Robertt/boxoffice/internal/config"
	"github.com/John-Robertt/boxoffice/internal/domain"
)

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// exitError 携带进程退出码；cobra 自身的参数错误统一视为用法错误（2）。
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit %d", e.code) }

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(stderr, "参数错误：%v\n\n", err)
	if c, _, ferr := root.Find(args); ferr == nil && c != nil {
		c.SetOut(stderr)
		_ = c.Usage()
	}
	return 2
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "boxoffice",
		Short:         "抓取 Cinetel 票房表格并导出为 JSON/CSV",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(stdout, stderr))
	return root
}

type runFlags struct {
	renderer      string
	out           string
	timeout       time.Duration
	selector      string
	numericSource string
	snapshot      bool
	configPath    string
	logLevel      string
}

func newRunCmd(stdout, stderr io.Writer) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run [url]",
		Short: "运行一次抓取（url 缺省时读配置文件，最终默认 Cinetel 季度票房页）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := config.CLIArgs{
				ConfigPath:       f.configPath,
				Renderer:         f.renderer,
				RendererSet:      cmd.Flags().Changed("renderer"),
				OutDir:           f.out,
				OutDirSet:        cmd.Flags().Changed("out"),
				Timeout:          f.timeout,
				TimeoutSet:       cmd.Flags().Changed("timeout"),
				RowSelector:      f.selector,
				RowSelectorSet:   cmd.Flags().Changed("selector"),
				NumericSource:    f.numericSource,
				NumericSourceSet: cmd.Flags().Changed("numeric-source"),
				Snapshot:         f.snapshot,
				SnapshotSet:      cmd.Flags().Changed("snapshot"),
				LogLevel:         f.logLevel,
				LogLevelSet:      cmd.Flags().Changed("log-level"),
			}
			if len(args) == 1 {
				cli.URL = args[0]
			}
			if code := runCmd(cmd.Context(), cli, stdout, stderr); code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.renderer, "renderer", "", "渲染器：browser|static|file（默认 browser）")
	fl.StringVarP(&f.out, "out", "o", "", "输出目录（默认当前目录）")
	fl.DurationVar(&f.timeout, "timeout", 0, "等待表格行出现的超时（默认 30s）")
	fl.StringVar(&f.selector, "selector", "", "表格行选择器（默认 \"table.tablesorter tbody tr\"）")
	fl.StringVar(&f.numericSource, "numeric-source", "", "数值来源：hidden|visible（默认 hidden）")
	fl.BoolVar(&f.snapshot, "snapshot", false, "保存页面快照到 <out>/cache/pages/；支持 --snapshot=false 覆盖配置")
	fl.StringVarP(&f.configPath, "config", "c", "", "配置文件路径（默认查找 ./boxoffice.config.json 或 ./boxoffice.config.yaml）")
	fl.StringVar(&f.logLevel, "log-level", "", "日志级别：debug|info|warn|error（默认 info）")
	return cmd
}

func runCmd(ctx context.Context, cli config.CLIArgs, stdout, stderr io.Writer) int {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		emitReport(stdout, stderr, reportForConfigError(cli, err), nil)
		return 1
	}

	logger := newLogger(stderr, eff.LogLevel)
	if eff.ConfigPath != "" {
		logger.Debug("配置文件", "path", eff.ConfigPath)
	}

	reg, err := newRegistry(eff, logger)
	if err != nil {
		fmt.Fprintf(stderr, "初始化 renderer registry 失败：%v\n", err)
		return 1
	}

	var obs run.Observer
	if w, interactive := pickProgressWriter(stdout, stderr); interactive {
		ui := newProgressUI(w)
		defer ui.Stop()
		obs = ui
	} else {
		obs = logObserver{log: logger}
	}

	res := run.ExecuteWithObserver(ctx, eff, reg, obs)
	emitReport(stdout, stderr, res.Report, res.Records)
	if res.Report.Status != domain.StatusOK {
		return 1
	}
	return 0
}

// newLogger 返回写到 w 的 slog.Logger（charmbracelet/log 作为 handler）。
func newLogger(w io.Writer, level string) *slog.Logger {
	lvl, err := charmlog.ParseLevel(level)
	if err != nil {
		lvl = charmlog.InfoLevel
	}
	h := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           lvl,
		Prefix:          "boxoffice",
	})
	return slog.New(h)
}

func emitReport(stdout, stderr io.Writer, rr domain.RunReport, records []domain.Record) {
	if isTTY(stdout) {
		printSummary(stdout, rr, records)
		if rr.Status != domain.StatusOK {
			fmt.Fprintf(stderr, "%s: %s\n", rr.ErrorCode, rr.ErrorMsg)
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(rr)
	fmt.Fprintln(stderr, summaryLine(rr))
}

func reportForConfigError(cli config.CLIArgs, err error) domain.RunReport {
	now := time.Now().UTC()
	rr := domain.RunReport{
		URL:        cli.URL,
		Renderer:   cli.Renderer,
		StartedAt:  now,
		FinishedAt: now,
		ErrorCode:  config.Code(err),
		ErrorMsg:   err.Error(),
	}
	if rr.ErrorCode == "" {
		rr.ErrorCode = domain.ErrCodeConfigInvalid
	}
	rr.Finalize()
	return rr
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func pickProgressWriter(stdout, stderr io.Writer) (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(stderr) {
		return stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(stdout) {
		return stdout, true
	}
	return nil, false
}
