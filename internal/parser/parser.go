// Package parser normalizes raw tool stdout into schema findings.
//
// 各パーサーは純粋関数で、同じ入力に対して常に同じ結果を返す。
// 読めない行は黙って捨てる（1行の異常で他の行を失わない）。
package parser

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/0x6d61/secops-mcp/pkg/schema"
)

// Format はツールに要求した出力形式。
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "txt"
)

// ParseFormat は文字列を Format に変換する。空文字は json とみなす。
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json", "jsonl":
		return FormatJSON, nil
	case "txt", "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want json or txt)", s)
	}
}

// Parser はツール1種類分の出力パーサー。
type Parser interface {
	// ID はツール定義の parser フィールドで使う識別子。
	ID() string
	// Categories はこのパーサーが生成しうるカテゴリ（0件でも Envelope に出す）。
	Categories() []schema.Category
	// Parse は stdout 全体を発見物の列に変換する。
	Parse(raw string, format Format) []schema.Finding
}

var parsers = map[string]Parser{}

func register(p Parser) { parsers[p.ID()] = p }

func init() {
	for _, p := range []Parser{
		Gospider{}, Arjun{}, Ffuf{}, Nmap{}, Nuclei{},
		Httpx{}, HostList{}, Hashcat{}, Text{},
	} {
		register(p)
	}
}

// Lookup は id のパーサーを返す。空文字は text パーサー。
func Lookup(id string) (Parser, bool) {
	if id == "" {
		id = Text{}.ID()
	}
	p, ok := parsers[id]
	return p, ok
}

// IDs は登録済みパーサー ID を名前順で返す。
func IDs() []string {
	ids := make([]string, 0, len(parsers))
	for id := range parsers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// record は1行分の入力。JSON として読めたら Doc、読めなかったら Text が入る。
type record struct {
	Doc  any
	Text string
}

// walk は raw を行ごとに読み、各行をまず JSON として解釈する。
//
//   - json: JSON として読めない行は捨てる
//   - txt : JSON として読めない行は素のテキストとして渡す
//     （空行と "[" で始まるバナー行は除く）
func walk(raw string, format Format, fn func(record)) {
	for _, line := range splitLines(raw) {
		if doc, ok := decodeLine(line); ok {
			fn(record{Doc: doc})
			continue
		}
		if format == FormatJSON || strings.HasPrefix(line, "[") {
			continue
		}
		fn(record{Text: line})
	}
}

// splitLines は前後の空白を落とした空でない行を返す。
func splitLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// decodeLine は line が単独の JSON 値なら true を返す。
func decodeLine(line string) (any, bool) {
	if line == "" {
		return nil, false
	}
	// 数値・真偽値だけの行は JSON ではなくテキストとして扱う
	switch line[0] {
	case '{', '[', '"':
	default:
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(line), &v); err != nil {
		return nil, false
	}
	return v, true
}

// str は m[key] が文字列ならそれを返す。
func str(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// num は m[key] を整数として読む。数値または数字だけの文字列を受け付ける。
func num(m map[string]any, keys ...string) *int {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			n := int(v)
			return &n
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return &n
			}
		}
	}
	return nil
}

// obj は m[key] がオブジェクトならそれを返す。
func obj(m map[string]any, key string) map[string]any {
	o, _ := m[key].(map[string]any)
	return o
}

// stringList は v を文字列スライスとして読む（文字列1つも受け付ける）。非文字列要素は捨てる。
func stringList(v any) []string {
	switch val := v.(type) {
	case string:
		if val = strings.TrimSpace(val); val != "" {
			return []string{val}
		}
	case []any:
		out := make([]string, 0, len(val))
		for _, e := range val {
			if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return nil
}
