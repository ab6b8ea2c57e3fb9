package ops

import (
	"net/url"
	"path"
	"strings"

	"github.com/0x6d61/secops-mcp/internal/tools"
	"github.com/0x6d61/secops-mcp/pkg/schema"
)

// Filter は成功 Envelope の urls に対する後段フィルタ。
//
// 拡張子は URL のパス部分で判定する（大文字小文字を区別せず、先頭のドットは任意）。
// 長さ条件は Length を持つ発見物にだけ適用し、持たないものは残す。
type Filter struct {
	Extensions        []string
	ExcludeExtensions []string
	MinLength         *int
	MaxLength         *int
}

// Validate は min_length > max_length を拒否する。負の値は引数宣言の min で弾く。
func (f Filter) Validate() *tools.Failure {
	if f.MinLength != nil && f.MaxLength != nil && *f.MinLength > *f.MaxLength {
		return tools.Validationf("min_length (%d) must not exceed max_length (%d)", *f.MinLength, *f.MaxLength)
	}
	return nil
}

// Apply は env の urls を絞り込み、件数を再計算して filtered を立てる。
// 失敗 Envelope には何もしない。
func (f Filter) Apply(env *schema.Envelope) {
	if !env.Success {
		return
	}
	include := normalizeExts(f.Extensions)
	exclude := normalizeExts(f.ExcludeExtensions)

	items := env.Items(schema.CategoryURLs)
	kept := make([]schema.Finding, 0, len(items))
	for _, it := range items {
		if f.keep(it, include, exclude) {
			kept = append(kept, it)
		}
	}
	env.SetItems(schema.CategoryURLs, kept)
	env.Filtered = true
}

func (f Filter) keep(it schema.Finding, include, exclude []string) bool {
	u, ok := it.(schema.URLFinding)
	if !ok {
		return true
	}
	if len(include) > 0 && !hasExt(u.URL, include) {
		return false
	}
	if len(exclude) > 0 && hasExt(u.URL, exclude) {
		return false
	}
	if u.Length != nil {
		if f.MinLength != nil && *u.Length < *f.MinLength {
			return false
		}
		if f.MaxLength != nil && *u.Length > *f.MaxLength {
			return false
		}
	}
	return true
}

// normalizeExts は "PHP" / ".php" を "php" にそろえる。空要素は捨てる。
func normalizeExts(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

// hasExt は raw の拡張子が exts のいずれかと一致するか判定する。
// URL として読めなければ文字列の末尾で判定する。
func hasExt(raw string, exts []string) bool {
	var ext string
	if u, err := url.Parse(raw); err == nil {
		ext = strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	} else {
		lower := strings.ToLower(raw)
		for _, e := range exts {
			if strings.HasSuffix(lower, "."+e) {
				return true
			}
		}
		return false
	}
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
