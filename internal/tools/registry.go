package tools

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultDefs は同梱のツール定義（nmap, ffuf, nuclei など）。
//
//go:embed defaults/*.yaml
var defaultDefs embed.FS

// paramTypes は ParamDef.Type として許可する型。
var paramTypes = map[string]bool{
	"":            true, // 省略時 string
	"string":      true,
	"int":         true,
	"bool":        true,
	"string_list": true,
	"int_list":    true,
}

// Registry はロード済みツール定義を管理する。
// 同名の定義は後からロードしたもので上書きされる（tools_dir で同梱定義を差し替えられる）。
type Registry struct {
	defs map[string]*ToolDef
}

// NewRegistry は空の Registry を返す。
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*ToolDef)}
}

// LoadDefaults は同梱の defaults/*.yaml をロードする。
func (r *Registry) LoadDefaults() error {
	return r.LoadFS(defaultDefs, "defaults")
}

// LoadDir は dir 以下の *.yaml / *.yml ファイルをロードする。
// ディレクトリが存在しない場合は何もしない。
func (r *Registry) LoadDir(dir string) error {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return r.LoadFS(os.DirFS(dir), ".")
}

// LoadFS は fsys の root 以下の YAML 定義をロードする。
func (r *Registry) LoadFS(fsys fs.FS, root string) error {
	return fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ext := path.Ext(p); ext != ".yaml" && ext != ".yml" {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		def, err := ParseToolDef(data)
		if err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
		r.defs[def.Name] = def
		return nil
	})
}

// ParseToolDef は YAML を ToolDef にデコードして検証する。
func ParseToolDef(data []byte) (*ToolDef, error) {
	var def ToolDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate は定義の整合性を検査する。
func (d *ToolDef) Validate() error {
	if d.Name == "" {
		return errors.New("tool definition missing 'name' field")
	}
	if strings.TrimSpace(d.Binary) == "" {
		return fmt.Errorf("tool %s: missing 'binary' field", d.Name)
	}
	if strings.ContainsAny(d.Binary, `/\`) {
		return fmt.Errorf("tool %s: binary must be a bare name, got %q", d.Name, d.Binary)
	}
	seen := make(map[string]bool, len(d.Params))
	for _, p := range d.Params {
		if p.Name == "" {
			return fmt.Errorf("tool %s: param without name", d.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("tool %s: duplicate param %q", d.Name, p.Name)
		}
		seen[p.Name] = true
		if !paramTypes[p.Type] {
			return fmt.Errorf("tool %s: param %q has unknown type %q", d.Name, p.Name, p.Type)
		}
		if p.Min != nil || p.Max != nil {
			if p.Type != "int" && p.Type != "int_list" {
				return fmt.Errorf("tool %s: param %q: min/max need type int or int_list", d.Name, p.Name)
			}
			if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
				return fmt.Errorf("tool %s: param %q: min %d > max %d", d.Name, p.Name, *p.Min, *p.Max)
			}
		}
	}
	for _, m := range tokenRe.FindAllStringSubmatch(d.ArgsTemplate, -1) {
		if len(d.Params) > 0 && !seen[m[1]] {
			return fmt.Errorf("tool %s: template references undeclared param %q", d.Name, m[1])
		}
	}
	switch d.Output.Strategy {
	case "", StrategyHeadTail, StrategyNone:
	default:
		return fmt.Errorf("tool %s: unknown output strategy %q", d.Name, d.Output.Strategy)
	}
	if d.FormatParam != "" && !seen[d.FormatParam] {
		return fmt.Errorf("tool %s: format_param %q is not a declared param", d.Name, d.FormatParam)
	}
	return nil
}

// Register はプログラム的に ToolDef を登録する（テスト・組み込みツール向け）。
func (r *Registry) Register(def *ToolDef) {
	r.defs[def.Name] = def
}

// Get は name の ToolDef を返す。
func (r *Registry) Get(name string) (*ToolDef, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// All は登録済みの全 ToolDef を名前順で返す。
func (r *Registry) All() []*ToolDef {
	result := make([]*ToolDef, 0, len(r.defs))
	for _, d := range r.defs {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}
