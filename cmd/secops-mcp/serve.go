package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/0x6d61/secops-mcp/internal/httpapi"
	"github.com/0x6d61/secops-mcp/internal/mcp"
)

// useConfigAddr は --http を値なしで指定したときの目印。
const useConfigAddr = "config"

func newServeCmd(opts *rootOptions) *cobra.Command {
	var httpAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve operations over MCP stdio (default) or HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stdio := httpAddr == ""
			a, err := newApp(opts, stdio)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if stdio {
				return mcp.NewServer(a.reg, a.log, version).Serve(ctx, os.Stdin, os.Stdout)
			}
			addr := httpAddr
			if addr == useConfigAddr {
				addr = a.cfg.HTTP.Addr
			}
			return httpapi.Serve(ctx, addr, httpapi.NewRouter(a.reg, a.log), a.log)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve HTTP instead of stdio (optionally on the given addr)")
	cmd.Flags().Lookup("http").NoOptDefVal = useConfigAddr
	return cmd
}
