package ops

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/0x6d61/secops-mcp/internal/tools"
)

// ParamType は引数の型。
type ParamType string

const (
	TypeString     ParamType = "string"
	TypeInt        ParamType = "int"
	TypeBool       ParamType = "bool"
	TypeStringList ParamType = "string_list"
	TypeIntList    ParamType = "int_list"
)

// Param はオペレーション引数の宣言。
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	Default     any
	Enum        []string
	Min         *int
	Max         *int
}

// Args は検証・型変換済みの引数。値の型は Param.Type に対応する
// （string / int / bool / []string / []int）。
type Args map[string]any

func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

func (a Args) String(key string) string {
	s, _ := a[key].(string)
	return s
}

func (a Args) Int(key string) int {
	n, _ := a[key].(int)
	return n
}

// IntPtr は指定されていれば値へのポインタ、なければ nil を返す。
func (a Args) IntPtr(key string) *int {
	n, ok := a[key].(int)
	if !ok {
		return nil
	}
	return &n
}

func (a Args) Bool(key string) bool {
	b, _ := a[key].(bool)
	return b
}

func (a Args) Strings(key string) []string {
	s, _ := a[key].([]string)
	return s
}

func (a Args) Ints(key string) []int {
	n, _ := a[key].([]int)
	return n
}

func intp(n int) *int { return &n }

// bind は生の引数を params に従って検証・変換する。
// 宣言にないキー、必須引数の欠落、型・列挙・範囲の違反は validation 失敗になる。
func bind(params []Param, raw map[string]any) (Args, *tools.Failure) {
	known := make(map[string]bool, len(params))
	for _, p := range params {
		known[p.Name] = true
	}
	var unknown []string
	for k := range raw {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, tools.Validationf("unknown argument(s): %s", strings.Join(unknown, ", "))
	}

	args := make(Args, len(params))
	for _, p := range params {
		v, ok := raw[p.Name]
		if !ok || v == nil {
			if p.Required {
				return nil, tools.Validationf("missing required argument %q", p.Name)
			}
			if p.Default == nil {
				continue
			}
			v = p.Default
		}
		val, err := coerce(p.Type, v)
		if err != nil {
			return nil, tools.Validationf("argument %q: %v", p.Name, err)
		}
		if f := p.check(val); f != nil {
			return nil, f
		}
		args[p.Name] = val
	}
	return args, nil
}

// check は必須値の空チェック・列挙・範囲を検証する。
func (p Param) check(val any) *tools.Failure {
	switch v := val.(type) {
	case string:
		if p.Required && strings.TrimSpace(v) == "" {
			return tools.Validationf("argument %q must not be empty", p.Name)
		}
		if !p.allowed(v) {
			return tools.Validationf("argument %q must be one of [%s], got %q", p.Name, strings.Join(p.Enum, ", "), v)
		}
	case int:
		if f := p.checkRange(v); f != nil {
			return f
		}
		if !p.allowed(strconv.Itoa(v)) {
			return tools.Validationf("argument %q must be one of [%s], got %d", p.Name, strings.Join(p.Enum, ", "), v)
		}
	case []string:
		if p.Required && len(v) == 0 {
			return tools.Validationf("argument %q must not be empty", p.Name)
		}
		for _, s := range v {
			if strings.TrimSpace(s) == "" {
				return tools.Validationf("argument %q contains an empty element", p.Name)
			}
			if !p.allowed(s) {
				return tools.Validationf("argument %q: %q is not one of [%s]", p.Name, s, strings.Join(p.Enum, ", "))
			}
		}
	case []int:
		if p.Required && len(v) == 0 {
			return tools.Validationf("argument %q must not be empty", p.Name)
		}
		for _, n := range v {
			if f := p.checkRange(n); f != nil {
				return f
			}
		}
	}
	return nil
}

func (p Param) checkRange(n int) *tools.Failure {
	if p.Min != nil && n < *p.Min {
		return tools.Validationf("argument %q must be >= %d, got %d", p.Name, *p.Min, n)
	}
	if p.Max != nil && n > *p.Max {
		return tools.Validationf("argument %q must be <= %d, got %d", p.Name, *p.Max, n)
	}
	return nil
}

func (p Param) allowed(s string) bool {
	if len(p.Enum) == 0 {
		return true
	}
	for _, e := range p.Enum {
		if e == s {
			return true
		}
	}
	return false
}

// coerce は JSON 由来の値（float64, []any など）や CLI 由来の文字列を t に変換する。
func coerce(t ParamType, v any) (any, error) {
	switch t {
	case TypeString, "":
		switch s := v.(type) {
		case string:
			return s, nil
		case float64, int, json.Number:
			return fmt.Sprint(s), nil
		}
		return nil, fmt.Errorf("expected string, got %T", v)
	case TypeInt:
		return toInt(v)
	case TypeBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(b))
			if err != nil {
				return nil, fmt.Errorf("expected boolean, got %q", b)
			}
			return parsed, nil
		}
		return nil, fmt.Errorf("expected boolean, got %T", v)
	case TypeStringList:
		switch l := v.(type) {
		case string:
			// 1つの文字列は1要素として扱う（区切り文字で分割しない）
			return []string{l}, nil
		case []string:
			return append([]string(nil), l...), nil
		case []any:
			out := make([]string, 0, len(l))
			for i, e := range l {
				s, ok := e.(string)
				if !ok {
					return nil, fmt.Errorf("element %d: expected string, got %T", i, e)
				}
				out = append(out, s)
			}
			return out, nil
		}
		return nil, fmt.Errorf("expected list of strings, got %T", v)
	case TypeIntList:
		switch l := v.(type) {
		case string:
			var out []int
			for _, part := range strings.Split(l, ",") {
				if part = strings.TrimSpace(part); part == "" {
					continue
				}
				n, err := toInt(part)
				if err != nil {
					return nil, err
				}
				out = append(out, n.(int))
			}
			return out, nil
		case []int:
			return append([]int(nil), l...), nil
		case []any:
			out := make([]int, 0, len(l))
			for i, e := range l {
				n, err := toInt(e)
				if err != nil {
					return nil, fmt.Errorf("element %d: %w", i, err)
				}
				out = append(out, n.(int))
			}
			return out, nil
		}
		return nil, fmt.Errorf("expected list of integers, got %T", v)
	}
	return nil, fmt.Errorf("unknown parameter type %q", t)
}

// toInt は整数として表せる値だけを int にする。
// 小数部を持つ値と int の範囲外の値は拒否する（丸めも桁あふれもさせない）。
func toInt(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		if int64(int(n)) != n {
			return nil, fmt.Errorf("integer %d out of range", n)
		}
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return nil, fmt.Errorf("expected integer, got %v", n)
		}
		// float64(math.MaxInt) は 2^63 に丸まるので上限は >= で判定する
		if n < math.MinInt || n >= math.MaxInt {
			return nil, fmt.Errorf("integer %v out of range", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("expected integer in range, got %s", n)
		}
		return toInt(i)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return nil, fmt.Errorf("expected integer in range, got %q", n)
		}
		return i, nil
	}
	return nil, fmt.Errorf("expected integer, got %T", v)
}

// inputSchema は params を JSON Schema（MCP の inputSchema）に変換する。
func inputSchema(params []Param) map[string]any {
	props := make(map[string]any, len(params))
	required := []string{}
	for _, p := range params {
		prop := map[string]any{}
		switch p.Type {
		case TypeInt:
			prop["type"] = "integer"
		case TypeBool:
			prop["type"] = "boolean"
		case TypeStringList:
			prop["type"] = "array"
			prop["items"] = map[string]any{"type": "string"}
		case TypeIntList:
			prop["type"] = "array"
			prop["items"] = map[string]any{"type": "integer"}
		default:
			prop["type"] = "string"
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		if len(p.Enum) > 0 {
			switch p.Type {
			case TypeStringList:
				prop["items"] = map[string]any{"type": "string", "enum": p.Enum}
			case TypeInt:
				nums := make([]int, 0, len(p.Enum))
				for _, e := range p.Enum {
					if n, err := strconv.Atoi(e); err == nil {
						nums = append(nums, n)
					}
				}
				prop["enum"] = nums
			default:
				prop["enum"] = p.Enum
			}
		}
		bounds := prop
		if p.Type == TypeIntList {
			bounds = prop["items"].(map[string]any)
		}
		if p.Min != nil {
			bounds["minimum"] = *p.Min
		}
		if p.Max != nil {
			bounds["maximum"] = *p.Max
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}
