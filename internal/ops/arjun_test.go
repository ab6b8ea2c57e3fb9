package ops_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x6d61/secops-mcp/internal/ops"
	"github.com/0x6d61/secops-mcp/internal/parser"
	"github.com/0x6d61/secops-mcp/internal/tools"
	"github.com/0x6d61/secops-mcp/pkg/schema"
)

func TestBuildArjun_Defaults(t *testing.T) {
	inv, f := ops.BuildArjun(ops.DefaultArjunOptions("https://a.test/search"))
	require.Nil(t, f)

	assert.Equal(t, "arjun", inv.Binary())
	assert.Equal(t, []string{
		"-u", "https://a.test/search", "-m", "GET",
		"-t", "10", "--threads", "25", "-oJ", "-",
	}, inv.Args())
}

func TestBuildArjun_AllOptions(t *testing.T) {
	o := ops.DefaultArjunOptions("https://a.test/api")
	o.Method = "post"
	o.Wordlist = "/tmp/words.txt"
	o.Headers = []string{"Cookie: s=1", "X-A: b"}
	o.Data = "a=1&b=2"
	o.Delay = 2
	o.Stable = true
	o.Format = parser.FormatText

	inv, f := ops.BuildArjun(o)
	require.Nil(t, f)
	assert.Equal(t, []string{
		"-u", "https://a.test/api", "-m", "POST", "-w", "/tmp/words.txt",
		"-H", "Cookie: s=1", "-H", "X-A: b", "-d", "a=1&b=2",
		"--delay", "2", "-t", "10", "--threads", "25", "--stable", "-oT", "-",
	}, inv.Args())
}

func TestBuildArjun_Validation(t *testing.T) {
	cases := map[string]func(o *ops.ArjunOptions){
		"empty url":      func(o *ops.ArjunOptions) { o.URL = "" },
		"bad method":     func(o *ops.ArjunOptions) { o.Method = "FETCH" },
		"negative delay": func(o *ops.ArjunOptions) { o.Delay = -1 },
		"zero threads":   func(o *ops.ArjunOptions) { o.Threads = 0 },
		"bad format":     func(o *ops.ArjunOptions) { o.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			o := ops.DefaultArjunOptions("https://a.test")
			mutate(&o)
			_, f := ops.BuildArjun(o)
			require.NotNil(t, f)
			assert.Equal(t, schema.ErrorValidation, f.Kind)
		})
	}
}

func TestCustomMatch(t *testing.T) {
	found := []schema.Finding{
		schema.ParameterFinding{Name: "id"},
		schema.ParameterFinding{Name: "debug"},
	}
	assert.Equal(t, []string{"debug", "id"}, ops.CustomMatch([]string{"debug", "admin", "id"}, found))
	assert.Equal(t, []string{}, ops.CustomMatch([]string{"admin"}, found))
}

func TestArjunScan_MethodNormalized(t *testing.T) {
	exec := &fakeExec{fn: stdout(`{"https://a.test/s":{"params":["q","page"],"method":"POST"}}`)}
	reg := newTestRegistry(t, exec)

	out := call(t, reg, "arjun_scan", map[string]any{"url": "https://a.test/s", "method": "post"})

	assert.Equal(t, true, out["success"])
	assert.Equal(t, "POST", out["method"])
	assert.Equal(t, "arjun_scan", out["tool"])
	assert.Equal(t, []any{"q", "page"}, out["parameters"])

	calls := exec.Calls()
	require.Len(t, calls, 1)
	args := calls[0].Args()
	assert.Equal(t, "POST", args[indexOf(args, "-m")+1])
}

func TestArjunScan_InvalidMethodDoesNotSpawn(t *testing.T) {
	exec := &fakeExec{}
	reg := newTestRegistry(t, exec)

	out := call(t, reg, "arjun_scan", map[string]any{"url": "https://a.test", "method": "FETCH"})

	assert.Equal(t, false, out["success"])
	assert.Equal(t, "validation", out["error_kind"])
	assert.Empty(t, exec.Calls())
}

func TestArjunCustomParameterScan(t *testing.T) {
	exec := &fakeExec{fn: stdout(`{"https://a.test/s":{"params":["id","debug","q"]}}`)}
	reg := newTestRegistry(t, exec)

	out := call(t, reg, "arjun_custom_parameter_scan", map[string]any{
		"url":           "https://a.test/s",
		"custom_params": []any{"admin", "debug", "id"},
	})

	require.Equal(t, true, out["success"])
	assert.Equal(t, []any{"admin", "debug", "id"}, out["custom_parameters_tested"])
	assert.Equal(t, []any{"debug", "id"}, out["custom_parameters_found"])
	assert.Equal(t, float64(2), out["custom_match_count"])
	assert.Len(t, out["parameters"], 3)
}

func TestArjunBulkParameterScan(t *testing.T) {
	exec := &fakeExec{fn: func(inv tools.Invocation) tools.ExecutionResult {
		args := inv.Args()
		url := args[indexOf(args, "-u")+1]
		if url == "https://b.test" {
			return tools.ExecutionResult{ExitCode: 2, Stderr: "target unreachable"}
		}
		return tools.ExecutionResult{Stdout: `{"` + url + `":{"params":["id"]}}`}
	}}
	reg := newTestRegistry(t, exec)

	out := call(t, reg, "arjun_bulk_parameter_scan", map[string]any{
		"urls":   []any{"https://a.test", "https://b.test"},
		"method": "post",
	})

	assert.Equal(t, true, out["success"])
	assert.Equal(t, "POST", out["method"])
	assert.Equal(t, float64(2), out["total_urls"])
	assert.Equal(t, float64(1), out["successful_scans"])
	assert.Equal(t, float64(1), out["failed_scans"])

	results := out["results"].(map[string]any)
	a := results["https://a.test"].(map[string]any)
	assert.Equal(t, []any{"id"}, a["parameters"])
	b := results["https://b.test"].(map[string]any)
	assert.Equal(t, false, b["success"])
	assert.Equal(t, "target unreachable", b["stderr"])
	assert.Equal(t, "command", b["error_kind"])
	assert.Empty(t, b["parameters"])

	for _, inv := range exec.Calls() {
		args := inv.Args()
		assert.Equal(t, "POST", args[indexOf(args, "-m")+1])
	}
}

func TestArjunBulkParameterScan_InvalidMethod(t *testing.T) {
	exec := &fakeExec{}
	reg := newTestRegistry(t, exec)

	out := call(t, reg, "arjun_bulk_parameter_scan", map[string]any{
		"urls":   []any{"https://a.test"},
		"method": "BREW",
	})
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "validation", out["error_kind"])
	assert.Empty(t, exec.Calls())
}
