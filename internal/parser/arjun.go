package parser

import (
	"sort"

	"github.com/0x6d61/secops-mcp/pkg/schema"
)

// Arjun は arjun の出力からパラメータ名を集める。
//
// 1行の JSON は次のいずれか:
//   - {"parameters": [...]} または {"parameters": "name"}
//   - ["a", "b"]
//   - "name"
//   - {"<url>": {"params": [...], ...}}（arjun -oJ のファイル形式）
//
// テキスト行はそのままパラメータ名として扱う。
type Arjun struct{}

func (Arjun) ID() string { return "arjun" }

func (Arjun) Categories() []schema.Category {
	return []schema.Category{schema.CategoryParameters}
}

func (Arjun) Parse(raw string, format Format) []schema.Finding {
	var out []schema.Finding
	add := func(names []string) {
		for _, n := range names {
			out = append(out, schema.ParameterFinding{Name: n})
		}
	}
	walk(raw, format, func(r record) {
		switch doc := r.Doc.(type) {
		case nil:
			add([]string{r.Text})
		case string, []any:
			add(stringList(doc))
		case map[string]any:
			if v, ok := doc["parameters"]; ok {
				add(stringList(v))
				return
			}
			urls := make([]string, 0, len(doc))
			for u := range doc {
				urls = append(urls, u)
			}
			sort.Strings(urls)
			for _, u := range urls {
				if e, ok := doc[u].(map[string]any); ok {
					add(stringList(e["params"]))
				}
			}
		}
	})
	return out
}
