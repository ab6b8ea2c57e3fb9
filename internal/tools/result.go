// Package tools provides the invocation layer: argv building, YAML tool definitions and the subprocess executor.
package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/0x6d61/secops-mcp/pkg/schema"
)

// genericCommandFailure は stderr が空のときに使うメッセージ。
const genericCommandFailure = "Command execution failed"

// ExecutionResult は子プロセス1回分の実行結果。値として Parser に渡される。
type ExecutionResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error // プロセスを起動できなかった場合のみ非 nil
	Duration time.Duration
	TimedOut bool
}

// Failure は失敗側のバリアント。Kind でどの段階の失敗かを区別する。
type Failure struct {
	Kind    schema.ErrorKind
	Message string
	Stderr  string
	Err     error
}

func (f *Failure) Error() string {
	if f.Message != "" {
		return f.Message
	}
	if f.Err != nil {
		return f.Err.Error()
	}
	return string(f.Kind) + " failure"
}

func (f *Failure) Unwrap() error { return f.Err }

// Validationf は引数検証エラーを作る。
func Validationf(format string, args ...any) *Failure {
	return &Failure{Kind: schema.ErrorValidation, Message: fmt.Sprintf(format, args...)}
}

// Internal は想定外エラーを Failure に包む。
func Internal(err error) *Failure {
	return &Failure{Kind: schema.ErrorInternal, Message: err.Error(), Err: err}
}

// Classify は実行結果を終了コード契約に従って分類する。成功なら nil。
//
//   - 起動失敗         → execution（OS レベルのエラー文言）
//   - 非ゼロ終了/タイムアウト → command（stderr、空なら汎用メッセージ）
func Classify(res ExecutionResult) *Failure {
	if res.Err != nil && !res.TimedOut {
		return &Failure{Kind: schema.ErrorExecution, Message: res.Err.Error(), Err: res.Err}
	}
	if res.TimedOut {
		return &Failure{
			Kind:    schema.ErrorCommand,
			Message: fmt.Sprintf("tool timed out after %s", res.Duration.Round(time.Second)),
			Stderr:  strings.TrimSpace(res.Stderr),
		}
	}
	if res.ExitCode != 0 {
		stderr := strings.TrimSpace(res.Stderr)
		if stderr == "" {
			stderr = genericCommandFailure
		}
		return &Failure{
			Kind:    schema.ErrorCommand,
			Message: fmt.Sprintf("command exited with status %d", res.ExitCode),
			Stderr:  stderr,
		}
	}
	return nil
}

// Result はパイプライン1回分の明示的な結果型。
// Failure が非 nil なら失敗バリアントで、Findings は常に空。
type Result struct {
	Findings []schema.Finding
	Raw      ExecutionResult
	Failure  *Failure
}

// OK は成功バリアントを作る。
func OK(findings []schema.Finding, raw ExecutionResult) Result {
	return Result{Findings: findings, Raw: raw}
}

// Fail は失敗バリアントを作る。
func Fail(f *Failure) Result {
	return Result{Failure: f}
}

// Failed は失敗バリアントかどうかを返す。
func (r Result) Failed() bool { return r.Failure != nil }

// Envelope は Result を呼び出し元に返す Envelope に変換する。
func (r Result) Envelope(target string, categories []schema.Category) schema.Envelope {
	if r.Failure != nil {
		return schema.NewFailure(r.Failure.Kind, r.Failure.Error(), r.Failure.Stderr, categories)
	}
	return schema.NewSuccess(target, categories, r.Findings)
}
