package parser

import (
	"regexp"
	"strings"

	"github.com/0x6d61/secops-mcp/pkg/schema"
)

// HostList はホスト名の列を読む（subfinder -oJ, tlsx -json, amass の行出力）。
// 同じホスト（ポート込み）は最初の1件だけ残す。
type HostList struct{}

func (HostList) ID() string { return "hostlist" }

func (HostList) Categories() []schema.Category {
	return []schema.Category{schema.CategoryHosts}
}

// amassNameRe は "www.example.com (FQDN) --> a_record --> 1.2.3.4 (IPAddress)" の FQDN を拾う。
var amassNameRe = regexp.MustCompile(`(\S+) \(FQDN\)`)

func (HostList) Parse(raw string, format Format) []schema.Finding {
	var out []schema.Finding
	seen := make(map[string]bool)
	add := func(h schema.HostFinding) {
		h.Host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(h.Host)), ".")
		if h.Host == "" || !looksLikeHost(h.Host) {
			return
		}
		if key := h.Value(); !seen[key] {
			seen[key] = true
			out = append(out, h)
		}
	}

	walk(raw, format, func(r record) {
		if r.Doc == nil {
			if names := amassNameRe.FindAllStringSubmatch(r.Text, -1); names != nil {
				for _, n := range names {
					add(schema.HostFinding{Host: n[1]})
				}
				return
			}
			if f := strings.Fields(r.Text); len(f) > 0 {
				add(schema.HostFinding{Host: f[0]})
			}
			return
		}
		m, ok := r.Doc.(map[string]any)
		if !ok {
			return
		}
		h := schema.HostFinding{
			Host: str(m, "host", "name"),
			IP:   str(m, "ip"),
		}
		if p := num(m, "port"); p != nil {
			h.Port = *p
		}
		if h.Port > 0 && str(m, "tls_version") != "" {
			h.Protocol = "tls"
			h.Service = str(m, "tls_version")
		}
		if h.Host == "" {
			h.Host = h.IP
		}
		add(h)
	})
	return out
}

// looksLikeHost は URL・パス・空白を含まない値だけを受け付ける。
func looksLikeHost(s string) bool {
	return !strings.ContainsAny(s, "/ \t") && !strings.Contains(s, "://") && strings.ContainsAny(s, ".:")
}
