package tools

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrBinaryName は Binary に使えない名前（空、パス区切りを含む）を表す。
var ErrBinaryName = errors.New("invalid binary name")

// ResolveBinary はツール定義の binary 名を PATH 上の実行ファイルの絶対パスにする。
// 名前はベア名に限る。相対・絶対パスは受け付けず、PATH に無ければエラー。
// Executor と doctor の両方がこれで解決する。
func ResolveBinary(name string) (string, error) {
	switch {
	case strings.TrimSpace(name) == "":
		return "", fmt.Errorf("%w: empty", ErrBinaryName)
	case strings.ContainsAny(name, `/\`):
		return "", fmt.Errorf("%w: %q contains a path separator", ErrBinaryName, name)
	}
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s: not found in PATH: %w", name, err)
	}
	if !filepath.IsAbs(p) {
		// PATH に "." 等の相対エントリがあると相対パスが返る
		return "", fmt.Errorf("%s: resolved to relative path %q", name, p)
	}
	return p, nil
}
