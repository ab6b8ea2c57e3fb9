package tools

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// tokenRe は "{key}"・"{key!}"（必須）・"{key?}"（真偽スイッチ）を検出する。
var tokenRe = regexp.MustCompile(`\{(\w+)([!?]?)\}`)

// BuildCLIArgs は args_template と map[string]any の args から CLI 引数スライスを生成する。
//
// テンプレートルール:
//   - {key}  : args[key] が存在すれば展開。なければトークングループを除去。
//   - {key!} : args[key] が必須。なければエラー。
//   - {key?} : args[key] が true のときだけグループのリテラルを出力（プレースホルダ自体は消える）。
//   - スカラー値: 1つのトークンとして展開（空白を含んでも分割しない）
//   - 配列値:     要素ごとにグループ全体を繰り返す（"-H {headers}" → -H a -H b）
//   - template が空: args["_args"] の配列をそのまま返す
func BuildCLIArgs(template string, args map[string]any) ([]string, error) {
	if strings.TrimSpace(template) == "" {
		if raw, ok := args["_args"]; ok {
			return toStringSlice(raw)
		}
		return nil, nil
	}

	groups := splitGroups(template)
	var result []string

	for _, group := range groups {
		expanded, err := expandGroup(group, args)
		if err != nil {
			return nil, err
		}
		result = append(result, expanded...)
	}

	return result, nil
}

// splitGroups はテンプレートを「グループ」に分割する。
// グループとは、{key} を含むトークンと直前のリテラル（フラグ）のまとまり。
// 例: "-p {ports} {target}" → [["-p", "{ports}"], ["{target}"]]
func splitGroups(template string) [][]string {
	tokens := strings.Fields(template)
	var groups [][]string
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if !tokenRe.MatchString(tok) && i+1 < len(tokens) && tokenRe.MatchString(tokens[i+1]) {
			// 次が {key} → 前置リテラルとして同一グループに
			groups = append(groups, []string{tok, tokens[i+1]})
			i++
			continue
		}
		groups = append(groups, []string{tok})
	}
	return groups
}

// expandGroup はグループ内の {key} を展開する。
func expandGroup(group []string, args map[string]any) ([]string, error) {
	var placeholder []string // [full, key, marker]
	for _, tok := range group {
		if m := tokenRe.FindStringSubmatch(tok); m != nil {
			if placeholder != nil || len(tokenRe.FindAllString(tok, -1)) > 1 {
				return nil, fmt.Errorf("BuildCLIArgs: group %q has more than one placeholder", strings.Join(group, " "))
			}
			placeholder = m
		}
	}
	if placeholder == nil {
		// リテラルのみ → そのまま
		return group, nil
	}

	full, key, marker := placeholder[0], placeholder[1], placeholder[2]
	val, exists := args[key]
	if !exists || val == nil {
		if marker == "!" {
			return nil, fmt.Errorf("BuildCLIArgs: required key %q missing in args", key)
		}
		return nil, nil
	}

	if marker == "?" {
		on, ok := val.(bool)
		if !ok {
			return nil, fmt.Errorf("BuildCLIArgs: key %q: switch expects bool, got %T", key, val)
		}
		if !on {
			return nil, nil
		}
		var out []string
		for _, tok := range group {
			if rest := strings.ReplaceAll(tok, full, ""); rest != "" {
				out = append(out, rest)
			}
		}
		return out, nil
	}

	values, err := toStringSlice(val)
	if err != nil {
		return nil, fmt.Errorf("BuildCLIArgs: key %q: %w", key, err)
	}
	if len(values) == 0 {
		if marker == "!" {
			return nil, fmt.Errorf("BuildCLIArgs: required key %q is empty", key)
		}
		return nil, nil
	}

	// 要素ごとにグループを繰り返す。置換結果は常に1トークン。
	out := make([]string, 0, len(group)*len(values))
	for _, v := range values {
		for _, tok := range group {
			out = append(out, strings.ReplaceAll(tok, full, v))
		}
	}
	return out, nil
}

// toStringSlice は any 値を []string に変換する。
// string → ["value"]（分割しない）
// []any / []string / []int → 各要素を文字列化
func toStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil, nil
		}
		return []string{val}, nil
	case []string:
		return val, nil
	case []int:
		result := make([]string, 0, len(val))
		for _, n := range val {
			result = append(result, strconv.Itoa(n))
		}
		return result, nil
	case []any:
		result := make([]string, 0, len(val))
		for i, elem := range val {
			s, err := scalarString(elem)
			if err != nil {
				return nil, fmt.Errorf("element[%d]: %w", i, err)
			}
			result = append(result, s)
		}
		return result, nil
	case nil:
		return nil, nil
	default:
		s, err := scalarString(val)
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
}

// scalarString はスカラー値をトークン文字列にする。JSON 由来の整数値 float64 は小数点なしで出す。
func scalarString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		if val == math.Trunc(val) {
			return strconv.FormatInt(int64(val), 10), nil
		}
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
