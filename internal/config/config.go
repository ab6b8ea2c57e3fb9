// Package config は secops-mcp の設定ファイル（config/config.yaml）を読み込む。
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/0x6d61/secops-mcp/internal/tools"
)

// DefaultPath は --config 未指定時に読む設定ファイル。
const DefaultPath = "config/config.yaml"

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// LogConfig はログ出力の設定
type LogConfig struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	Format     string `yaml:"format"`      // text, json
	Output     string `yaml:"output"`      // stderr, stdout, file
	FilePath   string `yaml:"file_path"`   // output: file のときの出力先
	MaxSize    int    `yaml:"max_size"`    // MB
	MaxBackups int    `yaml:"max_backups"` // 保持する世代数
	MaxAge     int    `yaml:"max_age"`     // 日
	Compress   bool   `yaml:"compress"`
}

// ExecutorConfig はツール実行の設定
type ExecutorConfig struct {
	// Timeout はツール定義に timeout がないときの上限（秒）。0 で無制限。
	Timeout *int `yaml:"timeout"`
}

// TimeoutDuration は Timeout を time.Duration で返す。
func (c ExecutorConfig) TimeoutDuration() time.Duration {
	if c.Timeout == nil {
		return tools.DefaultTimeout
	}
	return time.Duration(*c.Timeout) * time.Second
}

// OutputConfig はパススルー系ツールの生出力の切り捨て既定値
type OutputConfig struct {
	HeadLines int `yaml:"head_lines"`
	TailLines int `yaml:"tail_lines"`
}

// TruncateConfig は head/tail 戦略の TruncateConfig に変換する。
func (c OutputConfig) TruncateConfig() tools.TruncateConfig {
	return tools.TruncateConfig{
		Strategy:  tools.StrategyHeadTail,
		HeadLines: c.HeadLines,
		TailLines: c.TailLines,
	}
}

// ScopeConfig は対象にしてはいけないターゲットの正規表現
type ScopeConfig struct {
	Deny []string `yaml:"deny"`
}

// HTTPConfig は serve --http の待ち受け設定
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// AppConfig は config/config.yaml の統合設定構造
type AppConfig struct {
	Log      LogConfig      `yaml:"log"`
	Executor ExecutorConfig `yaml:"executor"`
	Output   OutputConfig   `yaml:"output"`
	ToolsDir string         `yaml:"tools_dir"` // 追加のツール定義 YAML を置くディレクトリ
	Scope    ScopeConfig    `yaml:"scope"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// applyDefaults はゼロ値のフィールドにデフォルト値を適用する
func (c *AppConfig) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stderr"
	}
	if c.Log.FilePath == "" {
		c.Log.FilePath = "logs/secops-mcp.log"
	}
	if c.Log.MaxSize == 0 {
		c.Log.MaxSize = 100
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 5
	}
	if c.Log.MaxAge == 0 {
		c.Log.MaxAge = 30
	}
	if c.Executor.Timeout == nil {
		sec := int(tools.DefaultTimeout / time.Second)
		c.Executor.Timeout = &sec
	}
	if c.Output.HeadLines == 0 {
		c.Output.HeadLines = tools.DefaultHeadTailConfig.HeadLines
	}
	if c.Output.TailLines == 0 {
		c.Output.TailLines = tools.DefaultHeadTailConfig.TailLines
	}
	if c.ToolsDir == "" {
		c.ToolsDir = "tools"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = "127.0.0.1:8080"
	}
}

// applyEnv は SECOPS_* 環境変数（.env 経由を含む）で設定を上書きする。
func (c *AppConfig) applyEnv() {
	if v := os.Getenv("SECOPS_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SECOPS_TOOLS_DIR"); v != "" {
		c.ToolsDir = v
	}
	if v := os.Getenv("SECOPS_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
}

// Validate は値の範囲を検査する。
func (c *AppConfig) Validate() error {
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	switch c.Log.Output {
	case "stderr", "stdout", "file":
	default:
		return fmt.Errorf("config: log.output must be stderr, stdout or file, got %q", c.Log.Output)
	}
	if c.Executor.Timeout != nil && *c.Executor.Timeout < 0 {
		return fmt.Errorf("config: executor.timeout must be >= 0, got %d", *c.Executor.Timeout)
	}
	if c.Output.HeadLines < 0 || c.Output.TailLines < 0 {
		return errors.New("config: output.head_lines and output.tail_lines must be >= 0")
	}
	if _, err := tools.NewScopeGuard(c.Scope.Deny); err != nil {
		return fmt.Errorf("config: scope.deny: %w", err)
	}
	return nil
}

// Load は config/config.yaml を読み込む。
// ${VAR} 環境変数を展開する。
// ファイルが存在しない場合はデフォルトの AppConfig を返す。
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := &AppConfig{}
			cfg.applyEnv()
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	// 環境変数を展開（パス・アドレス・スコープの ${VAR}）
	cfg.ToolsDir = expandEnvString(cfg.ToolsDir)
	cfg.Log.FilePath = expandEnvString(cfg.Log.FilePath)
	cfg.HTTP.Addr = expandEnvString(cfg.HTTP.Addr)
	for i := range cfg.Scope.Deny {
		cfg.Scope.Deny[i] = expandEnvString(cfg.Scope.Deny[i])
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandEnvString は文字列内の ${VAR} をホスト環境変数で展開する
func expandEnvString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}
