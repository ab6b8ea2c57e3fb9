package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/0x6d61/secops-mcp/internal/ops"
	"github.com/0x6d61/secops-mcp/internal/render"
)

func newToolsCmd(root *rootOptions) *cobra.Command {
	var (
		asJSON bool
		tag    string
	)
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List available operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(root, false)
			if err != nil {
				return err
			}
			defer a.Close()

			infos := filterByTag(a.reg.List(), tag)
			if asJSON {
				data, err := json.MarshalIndent(infos, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), render.Tools(infos, terminalWidth()))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print name, description, tags and inputSchema as JSON")
	cmd.Flags().StringVar(&tag, "tag", "", "only list operations carrying this tag")
	return cmd
}

// filterByTag は tag を持つオペレーションだけを返す。tag が空なら全件。
func filterByTag(infos []ops.Info, tag string) []ops.Info {
	if tag == "" {
		return infos
	}
	var out []ops.Info
	for _, info := range infos {
		if slices.Contains(info.Tags, tag) {
			out = append(out, info)
		}
	}
	return out
}
