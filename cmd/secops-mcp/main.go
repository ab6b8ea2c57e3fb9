// Command secops-mcp は CLI セキュリティツールを MCP / HTTP / CLI から
// 呼べるオペレーションとして公開する。
package main

import (
	"errors"
	"fmt"
	"os"
)

// version はビルド時に -ldflags "-X main.version=..." で上書きする。
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var fe failedError
		if !errors.As(err, &fe) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
