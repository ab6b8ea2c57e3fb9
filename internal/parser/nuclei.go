package parser

import (
	"regexp"

	"github.com/0x6d61/secops-mcp/pkg/schema"
)

// Nuclei は nuclei -jsonl の行を読む。テキスト出力では
// "[template-id] [protocol] [severity] matched-at" 形式の行を読む。
type Nuclei struct{}

func (Nuclei) ID() string { return "nuclei" }

func (Nuclei) Categories() []schema.Category {
	return []schema.Category{schema.CategoryVulns}
}

var nucleiLineRe = regexp.MustCompile(`^\[([^\]]+)\] \[([^\]]+)\] \[([^\]]+)\] (\S+)`)

func (Nuclei) Parse(raw string, format Format) []schema.Finding {
	var out []schema.Finding
	for _, line := range splitLines(raw) {
		if doc, ok := decodeLine(line); ok {
			m, ok := doc.(map[string]any)
			if !ok {
				continue
			}
			id := str(m, "template-id", "templateID")
			if id == "" {
				continue
			}
			info := obj(m, "info")
			out = append(out, schema.VulnFinding{
				TemplateID: id,
				Name:       str(info, "name"),
				Severity:   str(info, "severity"),
				MatchedAt:  str(m, "matched-at", "matched", "host"),
			})
			continue
		}
		if format == FormatJSON {
			continue
		}
		if m := nucleiLineRe.FindStringSubmatch(line); m != nil {
			out = append(out, schema.VulnFinding{TemplateID: m[1], Severity: m[3], MatchedAt: m[4]})
		}
	}
	return out
}
