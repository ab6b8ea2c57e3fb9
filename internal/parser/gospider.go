package parser

import (
	"strings"

	"github.com/0x6d61/secops-mcp/pkg/schema"
)

// Gospider は gospider の --json 行（type: url / form / secret）を読む。
// テキスト出力では http で始まる行だけを URL として扱う。
type Gospider struct{}

func (Gospider) ID() string { return "gospider" }

func (Gospider) Categories() []schema.Category {
	return []schema.Category{schema.CategoryURLs, schema.CategoryForms, schema.CategorySecrets}
}

func (Gospider) Parse(raw string, format Format) []schema.Finding {
	var out []schema.Finding
	walk(raw, format, func(r record) {
		if r.Doc == nil {
			if strings.HasPrefix(r.Text, "http") {
				out = append(out, schema.URLFinding{URL: r.Text, Source: "crawl", Tag: "url"})
			}
			return
		}
		m, ok := r.Doc.(map[string]any)
		if !ok {
			return
		}
		output := str(m, "output")
		if output == "" {
			return
		}
		source, tag := str(m, "source"), str(m, "tag")
		switch str(m, "type") {
		case "url":
			out = append(out, schema.URLFinding{
				URL:    output,
				Source: source,
				Tag:    tag,
				Status: num(m, "status_code", "stat"),
				Length: num(m, "length"),
			})
		case "form":
			out = append(out, schema.FormFinding{URL: output, Source: source, Tag: tag})
		case "secret":
			out = append(out, schema.SecretFinding{Secret: output, Source: source, Tag: tag})
		}
	})
	return out
}
