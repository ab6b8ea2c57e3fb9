package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/0x6d61/secops-mcp/internal/ops"
	"github.com/0x6d61/secops-mcp/internal/render"
)

type runOptions struct {
	argsJSON string
	kv       []string
	asJSON   bool
	markdown bool
	width    int
	quiet    bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <operation>",
		Short: "Run one operation and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := buildArgs(o.argsJSON, o.kv)
			if err != nil {
				return err
			}
			a, err := newApp(root, false)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			call := func() callResult {
				resp, err := a.reg.Call(ctx, args[0], raw)
				return callResult{resp, err}
			}
			var res callResult
			if w := progressWriter(cmd.ErrOrStderr(), o.quiet); w != nil {
				res = render.Spin(w, args[0], call)
			} else {
				res = call()
			}
			resp, err := res.resp, res.err
			if err != nil {
				return err
			}
			if err := writeResult(cmd.OutOrStdout(), resp, o); err != nil {
				return err
			}
			if !resp.Succeeded() {
				return failedError{op: args[0]}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&o.argsJSON, "args", "", "arguments as a JSON object")
	cmd.Flags().StringArrayVar(&o.kv, "arg", nil, "argument as key=value (repeatable; repeated keys build a list)")
	cmd.Flags().BoolVar(&o.asJSON, "json", false, "print the raw JSON envelope")
	cmd.Flags().BoolVar(&o.markdown, "markdown", false, "print a rendered markdown report")
	cmd.Flags().IntVar(&o.width, "width", 0, "output width (default: terminal width or 100)")
	cmd.Flags().BoolVar(&o.quiet, "no-progress", false, "do not show the progress spinner on stderr")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")
	return cmd
}

type callResult struct {
	resp ops.Response
	err  error
}

// progressWriter はスピナーを描いてよい出力先を返す。端末でなければ nil。
func progressWriter(stderr io.Writer, disabled bool) io.Writer {
	if disabled {
		return nil
	}
	f, ok := stderr.(*os.File)
	if !ok || !term.IsTerminal(f.Fd()) {
		return nil
	}
	return f
}

// buildArgs は --args の JSON と --arg key=value を1つの引数マップにまとめる。
// --arg の値は JSON として読めればその値（数値・真偽値・配列）、読めなければ文字列。
// 同じキーを繰り返すとリストになる。
func buildArgs(argsJSON string, kv []string) (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(argsJSON) != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return nil, fmt.Errorf("--args must be a JSON object: %w", err)
		}
	}

	repeated := map[string]bool{}
	for _, pair := range kv {
		key, val, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("--arg %q: expected key=value", pair)
		}
		v := parseValue(val)
		prev, exists := args[key]
		switch {
		case !exists:
			args[key] = v
		case repeated[key]:
			args[key] = append(prev.([]any), v)
		default:
			args[key] = []any{prev, v}
			repeated[key] = true
		}
	}
	return args, nil
}

func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		switch v.(type) {
		case float64, bool, []any:
			return v
		}
	}
	return s
}

func writeResult(w io.Writer, resp ops.Response, o *runOptions) error {
	width := o.width
	if width <= 0 {
		width = terminalWidth()
	}
	switch {
	case o.asJSON:
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case o.markdown:
		out, err := render.RenderMarkdown(render.Markdown(resp), width)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	default:
		_, err := io.WriteString(w, render.Summary(resp, width))
		return err
	}
}

func terminalWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	return 100
}
