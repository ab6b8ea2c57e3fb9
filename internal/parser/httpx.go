package parser

import (
	"strings"

	"github.com/0x6d61/secops-mcp/pkg/schema"
)

// Httpx は httpx -json の行を読む。テキスト出力では URL で始まる行を読む。
type Httpx struct{}

func (Httpx) ID() string { return "httpx" }

func (Httpx) Categories() []schema.Category {
	return []schema.Category{schema.CategoryURLs}
}

func (Httpx) Parse(raw string, format Format) []schema.Finding {
	var out []schema.Finding
	walk(raw, format, func(r record) {
		if r.Doc == nil {
			// "https://a.test [200] [Title]" の先頭フィールド
			if f := strings.Fields(r.Text); len(f) > 0 && strings.HasPrefix(f[0], "http") {
				out = append(out, schema.URLFinding{URL: f[0], Source: "httpx"})
			}
			return
		}
		m, ok := r.Doc.(map[string]any)
		if !ok {
			return
		}
		u := str(m, "url")
		if u == "" {
			return
		}
		out = append(out, schema.URLFinding{
			URL:    u,
			Source: "httpx",
			Tag:    str(m, "title", "webserver"),
			Status: num(m, "status_code", "status-code"),
			Length: num(m, "content_length", "content-length"),
		})
	})
	return out
}
