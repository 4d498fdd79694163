package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/John-Robertt/boxoffice/internal/config"
	"github.com/John-Robertt/boxoffice/internal/domain"
	"github.com/John-Robertt/boxoffice/internal/render"
)

const pageHTML = `<table class="tablesorter"><tbody>
<tr><td>1</td><td>Movie X</td><td><span style="display:none">'2025-12-25'</span>25/12/2025</td><td>Italy</td><td>Dist Co</td>
<td style="display:none">73665455.48</td><td style="display:none">9178654</td><td style="display:none">80000000.00</td><td style="display:none">10000000</td></tr>
</tbody></table>`

func writePage(t *testing.T, dir, html string) string {
	t.Helper()
	p := filepath.Join(dir, "page.html")
	if err := os.WriteFile(p, []byte(html), 0o644); err != nil {
		t.Fatalf("写入页面失败：%v", err)
	}
	return p
}

func decodeReport(t *testing.T, stdout *bytes.Buffer) domain.RunReport {
	t.Helper()
	var rr domain.RunReport
	dec := json.NewDecoder(bytes.NewReader(stdout.Bytes()))
	if err := dec.Decode(&rr); err != nil {
		t.Fatalf("stdout 不是合法的 RunReport JSON：%v\nstdout=%q", err, stdout.String())
	}
	if dec.More() {
		t.Fatalf("stdout 只能包含一个 JSON：%q", stdout.String())
	}
	return rr
}

func TestExecute_FileRenderer_NoTTY(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	page := writePage(t, dir, pageHTML)

	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), []string{"run", page, "--renderer", "file", "--out", out}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("期望退出码 0，实际 %d\nstderr=%s", code, stderr.String())
	}

	rr := decodeReport(t, &stdout)
	if rr.Status != domain.StatusOK || rr.Records != 1 || rr.Renderer != render.NameFile {
		t.Fatalf("报告不一致：%+v", rr)
	}
	for _, p := range []string{filepath.Join(out, "boxoffice.json"), filepath.Join(out, "boxoffice.csv")} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("期望写出 %s：%v", p, err)
		}
	}
	if !strings.Contains(stderr.String(), "完成：status=ok records=1") {
		t.Fatalf("stderr 缺少完成摘要：%q", stderr.String())
	}
}

// chdir 切换工作目录并在测试结束时恢复；不能与并行测试同时使用。
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("获取 cwd 失败：%v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("切换 cwd 失败：%v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestExecute_RepeatRunInSameDir(t *testing.T) {
	dir := t.TempDir()
	page := writePage(t, t.TempDir(), pageHTML)
	chdir(t, dir)

	for i := 1; i <= 2; i++ {
		var stdout, stderr bytes.Buffer
		code := execute(context.Background(), []string{"run", "--renderer", "file", page}, &stdout, &stderr)
		if code != 0 {
			t.Fatalf("第 %d 次运行期望退出码 0，实际 %d\nstdout=%s\nstderr=%s", i, code, stdout.String(), stderr.String())
		}
		rr := decodeReport(t, &stdout)
		if rr.Status != domain.StatusOK || rr.Records != 1 {
			t.Fatalf("第 %d 次运行报告不一致：%+v", i, rr)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, config.DefaultJSONName)); err != nil {
		t.Fatalf("期望在 cwd 写出 %s：%v", config.DefaultJSONName, err)
	}
}

func TestExecute_RunFailureExitCode1(t *testing.T) {
	dir := t.TempDir()
	page := writePage(t, dir, `<p>manutenzione</p>`)

	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), []string{"run", page, "--renderer=file", "--out", dir, "--timeout", "10ms"}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("期望退出码 1，实际 %d", code)
	}
	rr := decodeReport(t, &stdout)
	if rr.ErrorCode != domain.ErrCodeSelectorTimeout || len(rr.Outputs) != 0 {
		t.Fatalf("报告不一致：%+v", rr)
	}
}

func TestExecute_ConfigNotFound(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), []string{"run", "--config", filepath.Join(t.TempDir(), "nope.yaml")}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("期望退出码 1，实际 %d", code)
	}
	rr := decodeReport(t, &stdout)
	if rr.ErrorCode != config.ErrCodeNotFound || rr.Status != domain.StatusFailed {
		t.Fatalf("报告不一致：%+v", rr)
	}
}

func TestExecute_UsageErrors(t *testing.T) {
	for _, args := range [][]string{
		{"run", "a", "b"},
		{"run", "--nope"},
		{"run", "--timeout", "soon"},
		{"nope"},
	} {
		var stdout, stderr bytes.Buffer
		if code := execute(context.Background(), args, &stdout, &stderr); code != 2 {
			t.Fatalf("%v 期望退出码 2，实际 %d", args, code)
		}
		if stdout.Len() != 0 {
			t.Fatalf("%v 用法错误不应输出报告：%q", args, stdout.String())
		}
	}
}

func TestNewRegistry_BuildsWithoutBrowser(t *testing.T) {
	eff := config.EffectiveConfig{OutDir: t.TempDir()}
	reg, err := newRegistry(eff, newLogger(&bytes.Buffer{}, "info"))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	for _, name := range []string{render.NameStatic, render.NameFile} {
		r, err := reg.New(context.Background(), name)
		if err != nil {
			t.Fatalf("%s 不期望错误：%v", name, err)
		}
		if r.Name() != name {
			t.Fatalf("renderer 名称不一致：%q", r.Name())
		}
		_ = r.Close()
	}
}

func TestPrintSummary(t *testing.T) {
	rr := domain.RunReport{Status: domain.StatusOK, Records: 1, Outputs: []string{"a.json", "a.csv"}}
	recs := []domain.Record{{
		Pos:   domain.NumericPos(1),
		Title: "La città incantata",
		Gross: domain.Some(1234.5),
	}}

	var buf bytes.Buffer
	printSummary(&buf, rr, recs)
	out := buf.String()
	for _, want := range []string{"完成：status=ok records=1", "a.json", "titolo", "La città incantata", "1234.5"} {
		if !strings.Contains(out, want) {
			t.Fatalf("摘要缺少 %q：\n%s", want, out)
		}
	}

	buf.Reset()
	rr.Records = 0
	printSummary(&buf, rr, nil)
	if !strings.Contains(buf.String(), "示例：无") {
		t.Fatalf("空结果应打印“无”：\n%s", buf.String())
	}
}
