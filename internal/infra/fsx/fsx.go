package fsx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// 通过可替换的函数指针，让测试能稳定模拟 rename 失败。
var renameFunc = os.Rename

// PathTypeConflictError 表示目标路径类型冲突（例如期望文件但实际是目录）。
type PathTypeConflictError struct {
	Path string
	Want string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("目标路径类型冲突：%q（期望 %s，实际 %s）", e.Path, e.Want, e.Got)
}

func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// File 是一次批量写入中的一个目标文件。
type File struct {
	Path string
	Data []byte
}

// WriteFileAtomic 在 dir 下原子写入 name（临时文件 + rename），已存在则覆盖。
func WriteFileAtomic(dir, name string, data []byte) error {
	return WriteFilesAtomic(File{Path: filepath.Join(dir, name), Data: data})
}

// WriteFilesAtomic 分两阶段写入多个文件：
//
//  1. 全部写入同目录临时文件并 fsync；任一失败则清理所有临时文件，目标一个都不动
//  2. 依次 rename 到最终文件名
//
// 说明：第二阶段跨文件不是原子的（rename 本身不会部分写入，但第二个 rename 失败时第一个已生效）。
func WriteFilesAtomic(files ...File) error {
	for _, f := range files {
		if err := checkTarget(f.Path); err != nil {
			return err
		}
	}

	staged := make([]string, 0, len(files))
	defer func() {
		// rename 成功后临时文件已不存在，Remove 失败可忽略。
		for _, tmp := range staged {
			_ = os.Remove(tmp)
		}
	}()

	for _, f := range files {
		tmp, err := stage(f, 0o644)
		if err != nil {
			return err
		}
		staged = append(staged, tmp)
	}

	for i, f := range files {
		if err := renameFunc(staged[i], f.Path); err != nil {
			return err
		}
		// 目录 fsync：best-effort（不同平台/文件系统的语义差异很大）。
		_ = syncDirBestEffort(filepath.Dir(f.Path))
	}
	return nil
}

func checkTarget(path string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if fi.IsDir() {
		return &PathTypeConflictError{Path: path, Want: "file", Got: "dir"}
	}
	if !fi.Mode().IsRegular() {
		return &PathTypeConflictError{Path: path, Want: "regular file", Got: fi.Mode().Type().String()}
	}
	return nil
}

// stage 在目标同目录创建临时文件并写入、fsync、关闭，返回临时文件路径。
func stage(f File, perm os.FileMode) (string, error) {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	// 临时文件必须与目标文件在同目录，以保证 rename 的原子性。
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+".tmp-*")
	if err != nil {
		return "", err
	}
	name := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			_ = tmp.Close()
			_ = os.Remove(name)
		}
	}()

	if err := writeAll(tmp, f.Data); err != nil {
		return "", err
	}
	if err := tmp.Chmod(perm); err != nil {
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	ok = true
	return name, nil
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func syncDirBestEffort(dir string) error {
	// Windows 上目录 Sync 的语义与支持情况不稳定，这里直接跳过。
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
