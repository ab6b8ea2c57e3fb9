package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x6d61/secops-mcp/internal/mcp"
	"github.com/0x6d61/secops-mcp/internal/ops"
	"github.com/0x6d61/secops-mcp/internal/tools"
)

func TestBuildArgs(t *testing.T) {
	args, err := buildArgs(`{"target":"https://a.test","depth":2}`, []string{
		"headers=Cookie: a=1",
		"headers=X-Test: yes",
		"include_subs=true",
		"concurrent=5",
		"ports=22,80",
		"target=https://b.test",
	})
	require.NoError(t, err)

	assert.Equal(t, []any{"https://a.test", "https://b.test"}, args["target"])
	assert.Equal(t, float64(2), args["depth"])
	assert.Equal(t, []any{"Cookie: a=1", "X-Test: yes"}, args["headers"])
	assert.Equal(t, true, args["include_subs"])
	assert.Equal(t, float64(5), args["concurrent"])
	assert.Equal(t, "22,80", args["ports"])
}

func TestBuildArgs_Errors(t *testing.T) {
	_, err := buildArgs(`[1]`, nil)
	assert.Error(t, err)

	_, err = buildArgs("", []string{"novalue"})
	assert.Error(t, err)

	_, err = buildArgs("", []string{"=x"})
	assert.Error(t, err)
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, "10.0.0.5", parseValue("10.0.0.5"))
	assert.Equal(t, float64(3), parseValue("3"))
	assert.Equal(t, false, parseValue("false"))
	assert.Equal(t, []any{"a", "b"}, parseValue(`["a","b"]`))
	// JSON オブジェクトや文字列リテラルは生の文字列のまま
	assert.Equal(t, `{"a":1}`, parseValue(`{"a":1}`))
	assert.Equal(t, `"quoted"`, parseValue(`"quoted"`))
}

// writeConfig は一時ディレクトリに設定と空の tools_dir を作り、--config 用のパスを返す。
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "tools_dir: " + filepath.Join(dir, "tools") + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestToolsCommand(t *testing.T) {
	out, err := execute(t, "tools", "--config", writeConfig(t), "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, "gospider_scan")
	assert.Contains(t, out, "nmap_wrapper")
}

func TestToolsCommand_TagFilter(t *testing.T) {
	out, err := execute(t, "tools", "--tag", "dns", "--config", writeConfig(t), "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, "amass_wrapper")
	assert.Contains(t, out, "subfinder_wrapper")
	assert.NotContains(t, out, "gospider_scan")
	assert.NotContains(t, out, "nmap_wrapper")
}

func TestToolsCommand_JSONIncludesTags(t *testing.T) {
	out, err := execute(t, "tools", "--json", "--tag", "crack", "--config", writeConfig(t), "--env-file", "")
	require.NoError(t, err)
	var infos []ops.Info
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "hashcat_wrapper", infos[0].Name)
	assert.Equal(t, []string{"crack"}, infos[0].Tags)
}

func TestRunCommand_ValidationFailure(t *testing.T) {
	out, err := execute(t, "run", "gospider_scan", "--json", "--config", writeConfig(t), "--env-file", "")
	require.Error(t, err)
	var fe failedError
	assert.ErrorAs(t, err, &fe)
	assert.Contains(t, out, `"error_kind": "validation"`)
}

func TestRunCommand_UnknownOperation(t *testing.T) {
	_, err := execute(t, "run", "nope", "--config", writeConfig(t), "--env-file", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ops.ErrUnknownOperation)
}

func TestRunCommand_FakeTool(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake tool")
	}
	dir := t.TempDir()
	script := "#!/bin/sh\necho '{\"output\":\"https://a.test/login.php\",\"type\":\"url\",\"stat\":200}'\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gospider"), []byte(script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	out, err := execute(t, "run", "gospider_scan", "--arg", "target=https://a.test", "--json",
		"--config", writeConfig(t), "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, `"success": true`)
	assert.Contains(t, out, "https://a.test/login.php")
}

func TestProgressWriter_OnlyOnTerminal(t *testing.T) {
	assert.Nil(t, progressWriter(&bytes.Buffer{}, false), "バッファには描かない")

	f, err := os.Create(filepath.Join(t.TempDir(), "stderr"))
	require.NoError(t, err)
	defer f.Close()
	assert.Nil(t, progressWriter(f, false), "端末でないファイルには描かない")

	assert.Nil(t, progressWriter(os.Stderr, true), "--no-progress")
}

func TestEnvFileOverridesToolsDir(t *testing.T) {
	dir := t.TempDir()
	toolsDir := filepath.Join(dir, "extra")
	require.NoError(t, os.MkdirAll(toolsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(toolsDir, "whatweb.yaml"),
		[]byte("name: whatweb_wrapper\nbinary: whatweb\nparser: text\n"), 0o644))
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SECOPS_TOOLS_DIR="+toolsDir+"\n"), 0o644))
	t.Setenv("SECOPS_TOOLS_DIR", "")
	require.NoError(t, os.Unsetenv("SECOPS_TOOLS_DIR"))

	out, err := execute(t, "tools", "--config", filepath.Join(dir, "missing.yaml"), "--env-file", envFile)
	require.NoError(t, err)
	assert.Contains(t, out, "whatweb_wrapper")
}

func TestSelfTest(t *testing.T) {
	log, _ := test.NewNullLogger()
	reg, err := ops.Builtin(ops.NewRuntime(tools.NewProcessExecutor(0, log), nil, tools.DefaultHeadTailConfig, log), nil)
	require.NoError(t, err)

	n, err := selfTest(context.Background(), mcp.NewServer(reg, log, "test"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestCheckBinaries(t *testing.T) {
	var out bytes.Buffer
	missing := checkBinaries(&out, []string{"definitely-not-installed-secops"})
	assert.Equal(t, 1, missing)
	assert.Contains(t, out.String(), "not found")
}
