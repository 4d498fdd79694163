package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/John-Robertt/boxoffice/internal/domain"
)

func TestCLI_NoTTY_StdoutOnlyRunReportJSON(t *testing.T) {
	// 这个测试锁定对外契约：stdout 非 TTY 时只能输出一个 RunReport JSON（进度/日志必须走 stderr）。
	if testing.Short() {
		t.Skip("需要 go 工具链编译 CLI")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("未找到 go 命令")
	}

	root := t.TempDir()
	page := writePage(t, root, pageHTML)
	out := filepath.Join(root, "out")

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("读取 cwd 失败：%v", err)
	}
	repoRoot := filepath.Clean(filepath.Join(wd, "..", ".."))

	cmd := exec.Command("go", "run", "./cmd/boxoffice", "run", page, "--renderer", "file", "--out", out)
	cmd.Dir = repoRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("命令执行失败：%v\nstderr=%s\nstdout=%s", err, stderr.String(), stdout.String())
	}

	// stdout 必须是单个 JSON。
	var rr domain.RunReport
	if err := json.Unmarshal(stdout.Bytes(), &rr); err != nil {
		t.Fatalf("stdout 不是合法的 RunReport JSON：%v\nstdout=%q", err, stdout.String())
	}
	if rr.Records != 1 {
		t.Fatalf("期望 1 条记录：%+v", rr)
	}
	// 配置/阶段日志不应出现在 stdout。
	if strings.Contains(stdout.String(), "配置（生效）") || strings.Contains(stdout.String(), "阶段完成") {
		t.Fatalf("stdout 不应包含进度/日志输出：%q", stdout.String())
	}

	// stderr 至少应包含最终摘要行。
	if !strings.Contains(stderr.String(), "完成：status=ok") {
		t.Fatalf("stderr 缺少完成摘要：%q", stderr.String())
	}
}
