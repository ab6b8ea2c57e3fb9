package parser

import (
	"encoding/xml"
	"regexp"
	"strconv"
	"strings"

	"github.com/0x6d61/secops-mcp/pkg/schema"
)

// Nmap は nmap -oX - の XML を読み、XML がなければ通常出力の表をフォールバックで読む。
type Nmap struct{}

func (Nmap) ID() string { return "nmap" }

func (Nmap) Categories() []schema.Category {
	return []schema.Category{schema.CategoryHosts}
}

func (Nmap) Parse(raw string, _ Format) []schema.Finding {
	if out, ok := parseNmapXML(raw); ok {
		return out
	}
	return parseNmapText(raw)
}

// nmapRun は nmap -oX の出力構造
type nmapRun struct {
	XMLName xml.Name   `xml:"nmaprun"`
	Hosts   []nmapHost `xml:"host"`
}

type nmapHost struct {
	Status    nmapState     `xml:"status"`
	Addresses []nmapAddress `xml:"address"`
	Hostnames []nmapName    `xml:"hostnames>hostname"`
	Ports     []nmapPort    `xml:"ports>port"`
}

type nmapAddress struct {
	Addr     string `xml:"addr,attr"`
	AddrType string `xml:"addrtype,attr"`
}

type nmapName struct {
	Name string `xml:"name,attr"`
}

type nmapPort struct {
	Protocol string      `xml:"protocol,attr"`
	PortID   int         `xml:"portid,attr"`
	State    nmapState   `xml:"state"`
	Service  nmapService `xml:"service"`
}

type nmapState struct {
	State string `xml:"state,attr"`
}

type nmapService struct {
	Name    string `xml:"name,attr"`
	Product string `xml:"product,attr"`
	Version string `xml:"version,attr"`
}

// parseNmapXML は XML 部分があれば open ポートごとに HostFinding を返す。
// ポート情報のない up ホスト（-sn）はポートなしで1件返す。
func parseNmapXML(raw string) ([]schema.Finding, bool) {
	start := strings.Index(raw, "<nmaprun")
	end := strings.Index(raw, "</nmaprun>")
	if start < 0 || end < start {
		return nil, false
	}
	var run nmapRun
	if err := xml.Unmarshal([]byte(raw[start:end+len("</nmaprun>")]), &run); err != nil {
		return nil, false
	}

	var out []schema.Finding
	for _, h := range run.Hosts {
		ip := ""
		for _, a := range h.Addresses {
			if a.AddrType != "mac" {
				ip = a.Addr
				break
			}
		}
		host := ip
		if len(h.Hostnames) > 0 && h.Hostnames[0].Name != "" {
			host = h.Hostnames[0].Name
		}
		if host == "" {
			continue
		}

		open := 0
		for _, p := range h.Ports {
			if p.State.State != "open" {
				continue
			}
			open++
			out = append(out, schema.HostFinding{
				Host:     host,
				IP:       ip,
				Port:     p.PortID,
				Protocol: p.Protocol,
				Service:  p.Service.Name,
				Banner:   strings.TrimSpace(p.Service.Product + " " + p.Service.Version),
			})
		}
		if open == 0 && len(h.Ports) == 0 && h.Status.State == "up" {
			out = append(out, schema.HostFinding{Host: host, IP: ip})
		}
	}
	return out, true
}

var (
	// "Nmap scan report for example.com (93.184.216.34)" / "Nmap scan report for 10.0.0.5"
	nmapReportRe = regexp.MustCompile(`^Nmap scan report for (\S+)(?: \(([^)]+)\))?`)
	// "22/tcp   open  ssh     OpenSSH 8.0"
	nmapPortRe = regexp.MustCompile(`^(\d+)/(tcp|udp)\s+open\s+(\S+)\s*(.*)$`)
)

// parseNmapText は通常出力の PORT/STATE/SERVICE 表を読む。
func parseNmapText(raw string) []schema.Finding {
	var out []schema.Finding
	host, ip := "", ""
	for _, line := range splitLines(raw) {
		if m := nmapReportRe.FindStringSubmatch(line); m != nil {
			host, ip = m[1], m[2]
			if ip == "" {
				ip = host
			}
			continue
		}
		m := nmapPortRe.FindStringSubmatch(line)
		if m == nil || host == "" {
			continue
		}
		port, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, schema.HostFinding{
			Host:     host,
			IP:       ip,
			Port:     port,
			Protocol: m[2],
			Service:  m[3],
			Banner:   strings.TrimSpace(m[4]),
		})
	}
	return out
}
