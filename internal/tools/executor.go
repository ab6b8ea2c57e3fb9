package tools

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTimeout は Invocation 側にも設定側にも指定がないときの実行上限。
const DefaultTimeout = 30 * time.Minute

// waitDelay はキャンセル後にパイプのクローズを待つ上限。
// 孫プロセスが stdout を握ったままでも Exec が返るようにする。
const waitDelay = 5 * time.Second

// Executor は構築済み Invocation を同期実行するインターフェース。
// テストでは偽の Executor に差し替える。
type Executor interface {
	Exec(ctx context.Context, inv Invocation) ExecutionResult
}

// ProcessExecutor は Invocation を子プロセスとして実行する Executor。
// シェルは経由せず、引数トークンはそのまま argv になる。
type ProcessExecutor struct {
	// Timeout は Invocation に timeout がないときの上限。0 なら上限なし。
	Timeout time.Duration
	Log     logrus.FieldLogger
}

// NewProcessExecutor は ProcessExecutor を返す。log が nil なら標準ロガーを使う。
func NewProcessExecutor(timeout time.Duration, log logrus.FieldLogger) *ProcessExecutor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ProcessExecutor{Timeout: timeout, Log: log}
}

// Exec は inv を実行し、終了まで待って stdout/stderr 全体を返す。
// 失敗の分類は Classify が行う。
func (e *ProcessExecutor) Exec(ctx context.Context, inv Invocation) ExecutionResult {
	log := e.logger().WithFields(logrus.Fields{
		"tool": inv.Tool(),
		"argv": inv.Argv(),
	})
	startedAt := time.Now()

	absPath, err := ResolveBinary(inv.Binary())
	if err != nil {
		log.WithError(err).Warn("binary resolve failed")
		return ExecutionResult{ExitCode: -1, Err: err, Duration: time.Since(startedAt)}
	}

	timeout := inv.Timeout()
	if timeout <= 0 {
		timeout = e.Timeout
	}
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, absPath, inv.Args()...) // nosemgrep: go.lang.security.audit.dangerous-exec-command.dangerous-exec-command -- absPath は LookPath で検証済み
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	log.Debug("exec start")
	runErr := cmd.Run()

	res := ExecutionResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(startedAt),
	}
	switch {
	case runErr == nil:
	case timeout > 0 && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded):
		res.ExitCode = -1
		res.TimedOut = true
		res.Err = runCtx.Err()
	case ctx.Err() != nil:
		res.ExitCode = -1
		res.Err = ctx.Err()
	default:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
			res.Err = runErr
		}
	}

	log.WithFields(logrus.Fields{
		"exit_code": res.ExitCode,
		"duration":  res.Duration.Round(time.Millisecond).String(),
		"timed_out": res.TimedOut,
		"stdout":    len(res.Stdout),
		"stderr":    len(res.Stderr),
	}).Debug("exec done")

	return res
}

func (e *ProcessExecutor) logger() logrus.FieldLogger {
	if e.Log == nil {
		return logrus.StandardLogger()
	}
	return e.Log
}
