package ops_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x6d61/secops-mcp/internal/ops"
	"github.com/0x6d61/secops-mcp/internal/tools"
)

const nmapOut = `<?xml version="1.0"?>
<nmaprun scanner="nmap">
<host><status state="up"/>
<address addr="10.0.0.5" addrtype="ipv4"/>
<ports>
<port protocol="tcp" portid="22"><state state="open"/><service name="ssh"/></port>
<port protocol="tcp" portid="443"><state state="open"/><service name="https"/></port>
</ports>
</host>
</nmaprun>`

func TestPassthrough_Nmap(t *testing.T) {
	exec := &fakeExec{fn: stdout(nmapOut)}
	reg := newTestRegistry(t, exec)

	out := call(t, reg, "nmap_wrapper", map[string]any{"target": "10.0.0.5", "ports": "22,443"})

	require.Equal(t, true, out["success"], out)
	assert.Equal(t, "nmap_wrapper", out["tool"])
	assert.Equal(t, "10.0.0.5", out["target"])
	hosts := out["hosts"].([]any)
	require.Len(t, hosts, 2)
	assert.Equal(t, float64(443), hosts[1].(map[string]any)["port"])
	// output: none
	assert.NotContains(t, out, "output")

	calls := exec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"nmap", "-sV", "-p", "22,443", "-oX", "-", "10.0.0.5"}, calls[0].Argv())
	assert.Equal(t, "nmap_wrapper", calls[0].Tool())
	assert.Equal(t, "1h0m0s", calls[0].Timeout().String())
}

func TestPassthrough_EnumRejected(t *testing.T) {
	exec := &fakeExec{}
	reg := newTestRegistry(t, exec)

	out := call(t, reg, "nmap_wrapper", map[string]any{"target": "10.0.0.5", "scan_type": "sX; rm -rf /"})

	assert.Equal(t, false, out["success"])
	assert.Equal(t, "validation", out["error_kind"])
	assert.Empty(t, exec.Calls())
}

func TestPassthrough_HashcatExitOneAccepted(t *testing.T) {
	exec := &fakeExec{fn: func(tools.Invocation) tools.ExecutionResult {
		return tools.ExecutionResult{ExitCode: 1}
	}}
	reg := newTestRegistry(t, exec)

	out := call(t, reg, "hashcat_wrapper", map[string]any{
		"hash_file": "/tmp/h.txt", "wordlist": "/tmp/w.txt", "hash_type": "0",
	})

	assert.Equal(t, true, out["success"])
	assert.Equal(t, []any{}, out["credentials"])
}

func TestPassthrough_HashcatCracked(t *testing.T) {
	// --outfile-format 1,3: 平文は 16 進（"pass:word"）
	exec := &fakeExec{fn: stdout("5f4dcc3b5aa765d61d8327deb882cf99:706173733a776f7264\n")}
	reg := newTestRegistry(t, exec)

	out := call(t, reg, "hashcat_wrapper", map[string]any{
		"hash_file": "/tmp/h.txt", "wordlist": "/tmp/w.txt", "hash_type": "0",
	})

	require.Equal(t, true, out["success"])
	creds := out["credentials"].([]any)
	require.Len(t, creds, 1)
	assert.Equal(t, "5f4dcc3b5aa765d61d8327deb882cf99", creds[0].(map[string]any)["hash"])
	assert.Equal(t, "pass:word", creds[0].(map[string]any)["plain"])

	args := exec.Calls()[0].Args()
	assert.Equal(t, "1,3", args[indexOf(args, "--outfile-format")+1])
}

func TestPassthrough_HashcatOtherExitFails(t *testing.T) {
	exec := &fakeExec{fn: func(tools.Invocation) tools.ExecutionResult {
		return tools.ExecutionResult{ExitCode: 255, Stderr: "No hashes loaded."}
	}}
	reg := newTestRegistry(t, exec)

	out := call(t, reg, "hashcat_wrapper", map[string]any{
		"hash_file": "/tmp/h.txt", "wordlist": "/tmp/w.txt", "hash_type": "0",
	})
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "No hashes loaded.", out["stderr"])
}

func TestPassthrough_HttpxJoinAndRepeat(t *testing.T) {
	exec := &fakeExec{fn: stdout(`{"url":"https://a.test","status_code":200,"content_length":12,"title":"A"}` + "\n")}
	reg := newTestRegistry(t, exec)

	out := call(t, reg, "httpx_wrapper", map[string]any{
		"urls":         []any{"https://a.test", "https://b.test"},
		"status_codes": []any{float64(200), float64(301)},
	})

	require.Equal(t, true, out["success"])
	assert.Equal(t, "https://a.test,https://b.test", out["target"])
	assert.Len(t, out["urls"], 1)

	args := exec.Calls()[0].Args()
	assert.Equal(t, 2, countOf(args, "-u"))
	assert.Equal(t, "200,301", args[indexOf(args, "-mc")+1])
}

func TestPassthrough_NucleiFormatParam(t *testing.T) {
	jsonl := `{"template-id":"git-config","info":{"name":"Git Config","severity":"medium"},"matched-at":"https://a.test/.git/config"}` + "\n"
	exec := &fakeExec{fn: stdout(jsonl)}
	reg := newTestRegistry(t, exec)

	out := call(t, reg, "nuclei_scan_wrapper", map[string]any{"target": "https://a.test"})
	require.Equal(t, true, out["success"])
	assert.Len(t, out["vulns"], 1)
	assert.Contains(t, out["output"], "git-config")
	assert.Contains(t, exec.Calls()[0].Args(), "-jsonl")

	exec = &fakeExec{fn: stdout("[git-config] [http] [medium] https://a.test/.git/config\n")}
	reg = newTestRegistry(t, exec)

	out = call(t, reg, "nuclei_scan_wrapper", map[string]any{"target": "https://a.test", "output_format": "txt"})
	require.Equal(t, true, out["success"])
	assert.Len(t, out["vulns"], 1)
	assert.NotContains(t, exec.Calls()[0].Args(), "-jsonl")
	assert.NotContains(t, exec.Calls()[0].Args(), "")
}

func TestPassthrough_ScopeDenied(t *testing.T) {
	exec := &fakeExec{}
	reg := newTestRegistry(t, exec, `\.gov$`)

	out := call(t, reg, "httpx_wrapper", map[string]any{"urls": []any{"https://a.test", "portal.gov"}})

	assert.Equal(t, false, out["success"])
	assert.Equal(t, "validation", out["error_kind"])
	assert.True(t, strings.Contains(out["error"].(string), "portal.gov"))
	assert.Empty(t, exec.Calls())
}

func TestPassthrough_MissingBinaryIsExecutionFailure(t *testing.T) {
	exec := &fakeExec{fn: func(tools.Invocation) tools.ExecutionResult {
		return tools.ExecutionResult{ExitCode: -1, Err: assert.AnError}
	}}
	reg := newTestRegistry(t, exec)

	out := call(t, reg, "subfinder_wrapper", map[string]any{"domain": "a.test"})
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "execution", out["error_kind"])
	assert.Equal(t, []any{}, out["hosts"])
}

func TestBuiltin_RejectsCollision(t *testing.T) {
	log, _ := test.NewNullLogger()
	defs := tools.NewRegistry()
	def, err := tools.ParseToolDef([]byte("name: gospider_scan\nbinary: gospider\n"))
	require.NoError(t, err)
	defs.Register(def)

	_, err = ops.Builtin(ops.NewRuntime(&fakeExec{}, nil, tools.DefaultHeadTailConfig, log), defs)
	assert.Error(t, err)
}

func TestBuiltin_RawArgsWithoutTemplate(t *testing.T) {
	log, _ := test.NewNullLogger()
	defs := tools.NewRegistry()
	def, err := tools.ParseToolDef([]byte("name: whatweb_wrapper\nbinary: whatweb\nparser: text\ndefault_args: [\"--color=never\"]\n"))
	require.NoError(t, err)
	defs.Register(def)

	exec := &fakeExec{fn: stdout("https://a.test [200 OK] Apache\n")}
	reg, err := ops.Builtin(ops.NewRuntime(exec, nil, tools.DefaultHeadTailConfig, log), defs)
	require.NoError(t, err)

	out := call(t, reg, "whatweb_wrapper", map[string]any{"_args": []any{"-a", "3", "https://a.test"}})
	require.Equal(t, true, out["success"])
	assert.Equal(t, []string{"--color=never", "-a", "3", "https://a.test"}, exec.Calls()[0].Args())
	assert.Len(t, out["urls"], 1)
}

func TestPassthrough_IntRangeRejected(t *testing.T) {
	cases := map[string]any{
		"beyond int":       1e19,
		"two to the 63":    float64(1 << 63),
		"huge json number": json.Number("99999999999999999999"),
		"port above 65535": 70000,
		"port zero":        float64(0),
		"fraction":         443.5,
		"huge string":      "99999999999999999999",
	}
	for name, port := range cases {
		t.Run(name, func(t *testing.T) {
			exec := &fakeExec{}
			reg := newTestRegistry(t, exec)

			out := call(t, reg, "tlsx_wrapper", map[string]any{"host": "a.test", "port": port})

			assert.Equal(t, false, out["success"])
			assert.Equal(t, "validation", out["error_kind"])
			assert.Contains(t, out["error"], "port")
			assert.Empty(t, exec.Calls(), "範囲外ではツールを起動しない")
		})
	}
}

func TestPassthrough_IntRangeAccepted(t *testing.T) {
	exec := &fakeExec{}
	reg := newTestRegistry(t, exec)

	out := call(t, reg, "tlsx_wrapper", map[string]any{"host": "a.test", "port": float64(65535)})

	require.Equal(t, true, out["success"])
	args := exec.Calls()[0].Args()
	assert.Equal(t, "65535", args[indexOf(args, "-p")+1])
}

func TestPassthrough_IntListElementRange(t *testing.T) {
	exec := &fakeExec{}
	reg := newTestRegistry(t, exec)

	out := call(t, reg, "httpx_wrapper", map[string]any{
		"urls":         []any{"https://a.test"},
		"status_codes": []any{float64(200), float64(999)},
	})

	assert.Equal(t, false, out["success"])
	assert.Contains(t, out["error"], "<= 599")
	assert.Empty(t, exec.Calls())
}
