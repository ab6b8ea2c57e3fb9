package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/0x6d61/secops-mcp/internal/mcp"
	"github.com/0x6d61/secops-mcp/internal/tools"
)

// builtinBinaries は YAML 定義を持たない組み込みオペレーションの実行ファイル。
var builtinBinaries = []string{"arjun", "gospider"}

func newDoctorCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check installed tool binaries and the MCP protocol path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(root, false)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			missing := checkBinaries(out, a.binaries())

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			n, err := selfTest(ctx, mcp.NewServer(a.reg, a.log, version))
			if err != nil {
				return fmt.Errorf("mcp self-test: %w", err)
			}
			fmt.Fprintf(out, "mcp: ok (%d tools)\n", n)
			if missing > 0 {
				fmt.Fprintf(out, "%d tool binaries not found on PATH\n", missing)
			}
			return nil
		},
	}
}

// binaries は全オペレーションが使う実行ファイル名を重複なく返す。
func (a *app) binaries() []string {
	seen := map[string]bool{}
	for _, b := range builtinBinaries {
		seen[b] = true
	}
	for _, def := range a.defs.All() {
		seen[def.Binary] = true
	}
	out := make([]string, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

func checkBinaries(w io.Writer, binaries []string) int {
	missing := 0
	for _, b := range binaries {
		path, err := tools.ResolveBinary(b)
		if err != nil {
			missing++
			fmt.Fprintf(w, "✗ %-12s not found\n", b)
			continue
		}
		fmt.Fprintf(w, "✓ %-12s %s\n", b, path)
	}
	return missing
}

// selfTest は Server をパイプ上で動かし、Client で initialize → ping → tools/list を通す。
func selfTest(ctx context.Context, srv *mcp.Server) (int, error) {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, inR, outW)
		_ = outW.Close()
	}()

	client := mcp.NewClient(inW, outR)
	defer func() {
		_ = client.Close()
		cancel()
		<-done
	}()

	if _, err := client.Initialize(ctx); err != nil {
		return 0, err
	}
	if err := client.Ping(ctx); err != nil {
		return 0, err
	}
	list, err := client.ListTools(ctx)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}
