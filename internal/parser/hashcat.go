package parser

import (
	"encoding/hex"
	"strings"

	"github.com/0x6d61/secops-mcp/pkg/schema"
)

// Hashcat は `--outfile-format 1,3` で出した cracked 行 "hash[:salt]:hex(plain)" を読む。
// 平文は 16 進なのでコロンを含まず、最後のコロンで必ず正しく分割できる。
// hash 側（salt 付きなど）はコロンを含んでよい。末尾が 16 進でない行は捨てる。
type Hashcat struct{}

func (Hashcat) ID() string { return "hashcat" }

func (Hashcat) Categories() []schema.Category {
	return []schema.Category{schema.CategoryCredentials}
}

func (Hashcat) Parse(raw string, _ Format) []schema.Finding {
	var out []schema.Finding
	walk(raw, FormatText, func(r record) {
		if r.Doc != nil {
			return
		}
		i := strings.LastIndex(r.Text, ":")
		if i <= 0 {
			return
		}
		plain, err := hex.DecodeString(r.Text[i+1:])
		if err != nil {
			return
		}
		out = append(out, schema.CredentialFinding{Hash: r.Text[:i], Plain: string(plain)})
	})
	return out
}
