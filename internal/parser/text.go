package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/0x6d61/secops-mcp/pkg/schema"
)

// Text は構造化出力を持たないツール（wfuzz, sqlmap, xsstrike, dirsearch）向け。
// 各行から URL・IPv4・CVE・"22/tcp open ssh" 形式のポート行を拾う。
// ポート行は直前に現れた IP に紐づける。同じ値は最初の 1 件だけ残す。
type Text struct{}

func (Text) ID() string { return "text" }

func (Text) Categories() []schema.Category {
	return []schema.Category{schema.CategoryURLs, schema.CategoryHosts, schema.CategoryVulns}
}

var (
	reURL  = regexp.MustCompile(`https?://[^\s"'<>]+`)
	reCVE  = regexp.MustCompile(`\bCVE-\d{4}-\d{4,}\b`)
	reIPv4 = regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|[01]?\d\d?)\.){3}(?:25[0-5]|2[0-4]\d|[01]?\d\d?)\b`)
	rePort = regexp.MustCompile(`^(\d{1,5})/(tcp|udp)\s+open\s*(\S*)`)
)

func (Text) Parse(raw string, _ Format) []schema.Finding {
	var out []schema.Finding
	seen := make(map[string]bool)
	add := func(key string, f schema.Finding) {
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, f)
	}

	host := "" // 直近に現れた IP。ポート行の帰属先
	for _, line := range splitLines(raw) {
		for _, u := range reURL.FindAllString(line, -1) {
			// 文末の句読点・閉じ括弧は URL に含めない
			u = strings.TrimRight(u, ".,;:)]")
			add("url:"+u, schema.URLFinding{URL: u, Source: "output", Tag: "url"})
		}
		for i, ip := range reIPv4.FindAllString(line, -1) {
			if strings.HasPrefix(ip, "127.") || ip == "0.0.0.0" {
				continue
			}
			if i == 0 {
				host = ip
			}
			add("ip:"+ip, schema.HostFinding{Host: ip, IP: ip})
		}
		if m := rePort.FindStringSubmatch(line); m != nil {
			port, _ := strconv.Atoi(m[1])
			add("port:"+host+":"+m[1]+"/"+m[2], schema.HostFinding{Host: host, IP: host, Port: port, Protocol: m[2], Service: m[3]})
		}
		for _, id := range reCVE.FindAllString(line, -1) {
			add("cve:"+id, schema.VulnFinding{TemplateID: id, Name: line})
		}
	}
	return out
}
