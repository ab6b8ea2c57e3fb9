package ops_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/0x6d61/secops-mcp/internal/ops"
	"github.com/0x6d61/secops-mcp/internal/tools"
)

// fakeExec は Invocation を記録し、fn の結果を返す Executor。
type fakeExec struct {
	mu    sync.Mutex
	calls []tools.Invocation
	fn    func(inv tools.Invocation) tools.ExecutionResult
}

func (f *fakeExec) Exec(_ context.Context, inv tools.Invocation) tools.ExecutionResult {
	f.mu.Lock()
	f.calls = append(f.calls, inv)
	f.mu.Unlock()
	if f.fn == nil {
		return tools.ExecutionResult{}
	}
	return f.fn(inv)
}

func (f *fakeExec) Calls() []tools.Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tools.Invocation(nil), f.calls...)
}

// stdout は常に同じ stdout で成功する fn を返す。
func stdout(s string) func(tools.Invocation) tools.ExecutionResult {
	return func(tools.Invocation) tools.ExecutionResult {
		return tools.ExecutionResult{Stdout: s}
	}
}

// newTestRegistry は fake Executor と同梱ツール定義で組んだ Registry を返す。
func newTestRegistry(t *testing.T, exec tools.Executor, deny ...string) *ops.Registry {
	t.Helper()
	log, _ := test.NewNullLogger()
	scope, err := tools.NewScopeGuard(deny)
	require.NoError(t, err)

	defs := tools.NewRegistry()
	require.NoError(t, defs.LoadDefaults())

	reg, err := ops.Builtin(ops.NewRuntime(exec, scope, tools.DefaultHeadTailConfig, log), defs)
	require.NoError(t, err)
	return reg
}

// call は Registry.Call の結果を JSON 経由で map にする。
func call(t *testing.T, reg *ops.Registry, name string, args map[string]any) map[string]any {
	t.Helper()
	resp, err := reg.Call(context.Background(), name, args)
	require.NoError(t, err)
	b, err := json.Marshal(resp)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func countOf(s []string, v string) int {
	n := 0
	for _, x := range s {
		if x == v {
			n++
		}
	}
	return n
}
