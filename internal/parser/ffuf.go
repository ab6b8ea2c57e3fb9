package parser

import (
	"github.com/0x6d61/secops-mcp/pkg/schema"
)

// Ffuf は ffuf -json の行出力と -of json の文書（{"results": [...]}）の両方を読む。
type Ffuf struct{}

func (Ffuf) ID() string { return "ffuf" }

func (Ffuf) Categories() []schema.Category {
	return []schema.Category{schema.CategoryURLs}
}

func (Ffuf) Parse(raw string, _ Format) []schema.Finding {
	var out []schema.Finding
	walk(raw, FormatJSON, func(r record) {
		m, ok := r.Doc.(map[string]any)
		if !ok {
			return
		}
		if results, ok := m["results"].([]any); ok {
			for _, res := range results {
				if rm, ok := res.(map[string]any); ok {
					if f, ok := ffufResult(rm); ok {
						out = append(out, f)
					}
				}
			}
			return
		}
		if f, ok := ffufResult(m); ok {
			out = append(out, f)
		}
	})
	return out
}

func ffufResult(m map[string]any) (schema.URLFinding, bool) {
	u := str(m, "url")
	if u == "" {
		return schema.URLFinding{}, false
	}
	return schema.URLFinding{
		URL:    u,
		Source: "ffuf",
		Tag:    str(m, "redirectlocation"),
		Status: num(m, "status"),
		Length: num(m, "length"),
	}, true
}
