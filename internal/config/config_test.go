package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/0x6d61/secops-mcp/internal/config"
	"github.com/0x6d61/secops-mcp/internal/tools"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeConfig(t, `log:
  level: debug
  format: json
  output: file
  file_path: /var/log/secops.log
  max_size: 10
executor:
  timeout: 600
output:
  head_lines: 20
  tail_lines: 10
tools_dir: /opt/secops/tools
scope:
  deny:
    - '\.gov$'
    - '^10\.'
http:
  addr: ":9000"
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" || cfg.Log.Output != "file" {
		t.Errorf("unexpected log config: %+v", cfg.Log)
	}
	if cfg.Log.MaxSize != 10 {
		t.Errorf("MaxSize = %d, want 10", cfg.Log.MaxSize)
	}
	// 未指定の項目はデフォルト
	if cfg.Log.MaxBackups != 5 {
		t.Errorf("MaxBackups = %d, want default 5", cfg.Log.MaxBackups)
	}
	if got := cfg.Executor.TimeoutDuration(); got != 10*time.Minute {
		t.Errorf("timeout = %v, want 10m", got)
	}
	if tc := cfg.Output.TruncateConfig(); tc.HeadLines != 20 || tc.TailLines != 10 || tc.Strategy != tools.StrategyHeadTail {
		t.Errorf("unexpected truncate config: %+v", tc)
	}
	if cfg.ToolsDir != "/opt/secops/tools" {
		t.Errorf("ToolsDir = %q", cfg.ToolsDir)
	}
	if len(cfg.Scope.Deny) != 2 || cfg.Scope.Deny[0] != `\.gov$` {
		t.Errorf("unexpected scope: %v", cfg.Scope.Deny)
	}
	if cfg.HTTP.Addr != ":9000" {
		t.Errorf("HTTP.Addr = %q", cfg.HTTP.Addr)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_SECOPS_HOME", "/home/testuser")
	path := writeConfig(t, `tools_dir: "${TEST_SECOPS_HOME}/tools"
log:
  file_path: "${TEST_SECOPS_HOME}/secops.log"
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ToolsDir != "/home/testuser/tools" {
		t.Errorf("expected expanded tools_dir, got %q", cfg.ToolsDir)
	}
	if cfg.Log.FilePath != "/home/testuser/secops.log" {
		t.Errorf("expected expanded file_path, got %q", cfg.Log.FilePath)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SECOPS_LOG_LEVEL", "warn")
	t.Setenv("SECOPS_TOOLS_DIR", "/srv/tools")
	path := writeConfig(t, "log:\n  level: debug\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Level = %q, want warn", cfg.Log.Level)
	}
	if cfg.ToolsDir != "/srv/tools" {
		t.Errorf("ToolsDir = %q, want /srv/tools", cfg.ToolsDir)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := config.Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected nil error for missing file, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil default config")
	}
	if cfg.Log.Level != "info" || cfg.Log.Output != "stderr" {
		t.Errorf("unexpected default log config: %+v", cfg.Log)
	}
	if got := cfg.Executor.TimeoutDuration(); got != 30*time.Minute {
		t.Errorf("default timeout = %v, want 30m", got)
	}
	if cfg.Output.HeadLines != 50 || cfg.Output.TailLines != 30 {
		t.Errorf("unexpected default output: %+v", cfg.Output)
	}
	if len(cfg.Scope.Deny) != 0 {
		t.Errorf("expected empty deny list, got %d", len(cfg.Scope.Deny))
	}
}

// timeout: 0 は無制限として残る
func TestLoad_ZeroTimeoutDisables(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "executor:\n  timeout: 0\n"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := cfg.Executor.TimeoutDuration(); got != 0 {
		t.Errorf("timeout = %v, want 0", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := config.Load(writeConfig(t, `{{{invalid`)); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := map[string]string{
		"log format":      "log:\n  format: xml\n",
		"log output":      "log:\n  output: syslog\n",
		"negative":        "executor:\n  timeout: -5\n",
		"bad scope regex": "scope:\n  deny: ['([']\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := config.Load(writeConfig(t, content)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
