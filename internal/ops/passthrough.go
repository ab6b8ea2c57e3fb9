package ops

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/0x6d61/secops-mcp/internal/parser"
	"github.com/0x6d61/secops-mcp/internal/tools"
	"github.com/0x6d61/secops-mcp/pkg/schema"
)

// passthroughOperation は YAML のツール定義を Operation に変換する。
// 引数はテンプレートから argv になり、出力は定義された parser で正規化され、
// 切り捨て済みの生出力が output に付く。
func passthroughOperation(rt *Runtime, def *tools.ToolDef) (Operation, error) {
	p, ok := parser.Lookup(def.Parser)
	if !ok {
		return Operation{}, fmt.Errorf("tool %s: unknown parser %q (available: %s)", def.Name, def.Parser, strings.Join(parser.IDs(), ", "))
	}
	if def.FormatParam == "" {
		if _, err := parser.ParseFormat(def.Format); err != nil {
			return Operation{}, fmt.Errorf("tool %s: %w", def.Name, err)
		}
	}

	params := make([]Param, 0, len(def.Params))
	for _, pd := range def.Params {
		t := ParamType(pd.Type)
		if t == "" {
			t = TypeString
		}
		params = append(params, Param{
			Name:        pd.Name,
			Type:        t,
			Description: pd.Description,
			Required:    pd.Required,
			Default:     pd.Default,
			Enum:        pd.Enum,
			Min:         pd.Min,
			Max:         pd.Max,
		})
	}
	if len(params) == 0 && strings.TrimSpace(def.ArgsTemplate) == "" {
		// テンプレートなしのツールは _args をそのまま渡す
		params = append(params, Param{Name: "_args", Type: TypeStringList, Description: "Raw arguments"})
	}

	targetKey := def.TargetParam()
	cats := p.Categories()

	handler := func(ctx context.Context, a Args) Response {
		targets := targetValues(a, targetKey)
		if f := rt.Scope.Check(targets...); f != nil {
			return fail(def.Name, cats, f)
		}

		formatName := def.Format
		if def.FormatParam != "" {
			formatName = a.String(def.FormatParam)
		}
		format, err := parser.ParseFormat(formatName)
		if err != nil {
			return fail(def.Name, cats, tools.Validationf("%v", err))
		}

		cli, err := tools.BuildCLIArgs(def.ArgsTemplate, templateValues(def, a))
		if err != nil {
			return fail(def.Name, cats, tools.Validationf("%v", err))
		}
		argv := append(append([]string{}, def.DefaultArgs...), cli...)
		inv := tools.NewInvocation(def.Name, def.Binary, argv, time.Duration(def.TimeoutSec)*time.Second)

		res := rt.run(ctx, step{inv: inv, parser: p, format: format, accept: def.IsSuccessCode})
		env := envelope(def.Name, strings.Join(targets, ","), cats, res)
		if env.Success {
			env.Output = def.Output.ToTruncateConfig(rt.Output).Apply(res.Raw.Stdout)
		}
		return env
	}

	return Operation{
		Name:        def.Name,
		Description: def.Description,
		Tags:        def.Tags,
		Params:      params,
		Categories:  cats,
		Handler:     handler,
	}, nil
}

// targetValues は target 引数の値を文字列の列で返す。
func targetValues(a Args, key string) []string {
	if key == "" {
		return nil
	}
	switch v := a[key].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case int:
		return []string{strconv.Itoa(v)}
	}
	return nil
}

// templateValues は map / join を適用してテンプレートに渡す値を作る。
func templateValues(def *tools.ToolDef, a Args) map[string]any {
	values := make(map[string]any, len(a))
	for k, v := range a {
		values[k] = v
	}
	for _, pd := range def.Params {
		v, ok := values[pd.Name]
		if !ok {
			continue
		}
		if len(pd.Map) > 0 {
			if s, isStr := v.(string); isStr {
				if mapped, hit := pd.Map[s]; hit {
					values[pd.Name] = mapped
				}
			}
		}
		if pd.Join != "" {
			switch l := v.(type) {
			case []string:
				values[pd.Name] = strings.Join(l, pd.Join)
			case []int:
				parts := make([]string, len(l))
				for i, n := range l {
					parts[i] = strconv.Itoa(n)
				}
				values[pd.Name] = strings.Join(parts, pd.Join)
			}
		}
	}
	return values
}

// Builtin は gospider / arjun の組み込みオペレーションと defs の YAML ツールを登録した Registry を返す。
func Builtin(rt *Runtime, defs *tools.Registry) (*Registry, error) {
	reg := NewRegistry(rt.Log)
	builtins := append(gospiderOperations(rt), arjunOperations(rt)...)
	for _, op := range builtins {
		if err := reg.Register(op); err != nil {
			return nil, err
		}
	}
	if defs == nil {
		return reg, nil
	}
	for _, def := range defs.All() {
		if _, exists := reg.Get(def.Name); exists {
			return nil, fmt.Errorf("tool definition %s collides with a built-in operation", def.Name)
		}
		op, err := passthroughOperation(rt, def)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(op); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

var _ Response = schema.Envelope{}
var _ Response = schema.BulkResult{}
