package ops

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/0x6d61/secops-mcp/internal/parser"
	"github.com/0x6d61/secops-mcp/internal/tools"
	"github.com/0x6d61/secops-mcp/pkg/schema"
)

// Runtime はオペレーションが共有する実行基盤。
type Runtime struct {
	Exec   tools.Executor
	Scope  *tools.ScopeGuard
	Output tools.TruncateConfig // YAML 定義に output 指定がないときの既定値
	Log    logrus.FieldLogger
}

// NewRuntime は Runtime を返す。log が nil なら標準ロガーを使う。
func NewRuntime(exec tools.Executor, scope *tools.ScopeGuard, output tools.TruncateConfig, log logrus.FieldLogger) *Runtime {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runtime{Exec: exec, Scope: scope, Output: output, Log: log}
}

// step は1ターゲット分のパイプライン入力。
type step struct {
	inv    tools.Invocation
	parser parser.Parser
	format parser.Format
	// accept は 0 以外に成功とみなす終了コードの判定（nil なら 0 のみ）。
	accept func(code int) bool
}

// run は Invocation を実行し、失敗なら分類、成功ならパースして Result を返す。
// 失敗時はパーサーを呼ばない。
func (rt *Runtime) run(ctx context.Context, s step) tools.Result {
	res := rt.Exec.Exec(ctx, s.inv)
	if res.Err == nil && !res.TimedOut && res.ExitCode != 0 && s.accept != nil && s.accept(res.ExitCode) {
		res.ExitCode = 0
	}
	if f := tools.Classify(res); f != nil {
		rt.Log.WithFields(logrus.Fields{
			"tool":      s.inv.Tool(),
			"kind":      f.Kind,
			"exit_code": res.ExitCode,
		}).Warn(f.Error())
		return tools.Fail(f)
	}
	return tools.OK(s.parser.Parse(res.Stdout, s.format), res)
}

// envelope は Result を Envelope に変換し、tool / target を埋める。
func envelope(tool, target string, categories []schema.Category, r tools.Result) schema.Envelope {
	env := r.Envelope(target, categories)
	env.Tool = tool
	return env
}

// fail は Handler 内で検出した失敗を Envelope にする。
func fail(tool string, categories []schema.Category, f *tools.Failure) schema.Envelope {
	return envelope(tool, "", categories, tools.Fail(f))
}
