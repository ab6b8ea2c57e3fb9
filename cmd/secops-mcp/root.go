package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/0x6d61/secops-mcp/internal/config"
	"github.com/0x6d61/secops-mcp/internal/logger"
	"github.com/0x6d61/secops-mcp/internal/ops"
	"github.com/0x6d61/secops-mcp/internal/tools"
)

// rootOptions は全サブコマンド共通のフラグ。
type rootOptions struct {
	configPath string
	envFile    string
	logLevel   string
}

// failedError はオペレーションが失敗 Envelope を返したことを表す。
// 結果は出力済みなので main ではメッセージを出さずに終了コードだけ返す。
type failedError struct{ op string }

func (e failedError) Error() string { return "operation " + e.op + " failed" }

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "secops-mcp",
		Short: "Expose security CLI tools as structured operations",
		Long: `secops-mcp wraps security command-line tools (gospider, arjun, nuclei, nmap, ...)
as callable operations that return normalized JSON envelopes.

Examples:
  secops-mcp serve                          # MCP over stdio
  secops-mcp serve --http                   # HTTP API on http.addr
  secops-mcp run gospider_scan --arg target=https://example.com
  secops-mcp run arjun_bulk_parameter_scan --args '{"urls":["https://a","https://b"]}' --markdown
  secops-mcp tools`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "config file path")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the config")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCmd(opts),
		newRunCmd(opts),
		newToolsCmd(opts),
		newDoctorCmd(opts),
	)
	return cmd
}

// app は設定から組み立てた実行時の依存一式。
type app struct {
	cfg  *config.AppConfig
	log  *logger.Logger
	defs *tools.Registry
	reg  *ops.Registry
}

// newApp は .env → 設定 → ロガー → ツール定義 → Registry の順に組み立てる。
// stdoutReserved は stdout をプロトコルに使うモード（stdio serve）で true。
func newApp(opts *rootOptions, stdoutReserved bool) (*app, error) {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", opts.envFile, err)
		}
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	log, err := logger.New(cfg.Log, logger.Options{StdoutReserved: stdoutReserved})
	if err != nil {
		return nil, err
	}

	scope, err := tools.NewScopeGuard(cfg.Scope.Deny)
	if err != nil {
		return nil, err
	}

	defs := tools.NewRegistry()
	if err := defs.LoadDefaults(); err != nil {
		return nil, fmt.Errorf("load built-in tool definitions: %w", err)
	}
	if err := defs.LoadDir(cfg.ToolsDir); err != nil {
		return nil, fmt.Errorf("load tool definitions from %s: %w", cfg.ToolsDir, err)
	}

	exec := tools.NewProcessExecutor(cfg.Executor.TimeoutDuration(), log)
	rt := ops.NewRuntime(exec, scope, cfg.Output.TruncateConfig(), log)
	reg, err := ops.Builtin(rt, defs)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"config":     opts.configPath,
		"operations": len(reg.List()),
		"tools_dir":  cfg.ToolsDir,
	}).Debug("app initialized")
	return &app{cfg: cfg, log: log, defs: defs, reg: reg}, nil
}

func (a *app) Close() error { return a.log.Close() }
