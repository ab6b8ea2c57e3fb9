package tools

// ToolDef はYAMLから読み込むツール定義。
// Goコードを書かずに tools/*.yaml を追加するだけで新しいオペレーションが使える。
type ToolDef struct {
	Name         string       `yaml:"name"`   // 公開するオペレーション名（例: nmap_wrapper）
	Binary       string       `yaml:"binary"` // PATH 上の実行ファイル名
	Description  string       `yaml:"description"`
	Tags         []string     `yaml:"tags"`
	TimeoutSec   int          `yaml:"timeout"`
	DefaultArgs  []string     `yaml:"default_args"`
	ArgsTemplate string       `yaml:"args_template"`
	Target       string       `yaml:"target"`        // Envelope の target に使う引数名
	Parser       string       `yaml:"parser"`        // 出力パーサー ID（省略時 text）
	Format       string       `yaml:"format"`        // パーサーに渡す形式ヒント json / txt
	FormatParam  string       `yaml:"format_param"`  // 形式ヒントを引数から取る場合の引数名
	SuccessCodes []int        `yaml:"success_codes"` // 0 以外に成功とみなす終了コード
	Params       []ParamDef   `yaml:"params"`
	Output       OutputConfig `yaml:"output"`
}

// ParamDef はオペレーション引数のスキーマ宣言。
type ParamDef struct {
	Name        string            `yaml:"name"`
	Type        string            `yaml:"type"` // string, int, bool, string_list, int_list
	Required    bool              `yaml:"required"`
	Default     any               `yaml:"default"`
	Enum        []string          `yaml:"enum"`
	Min         *int              `yaml:"min"`  // int / int_list の下限（両端含む）
	Max         *int              `yaml:"max"`  // int / int_list の上限（両端含む）
	Join        string            `yaml:"join"` // 配列をこの区切りで1トークンに結合する
	Map         map[string]string `yaml:"map"`  // 値をトークンに読み替える（空文字ならグループごと消える）
	Description string            `yaml:"description"`
}

// OutputConfig はツール出力の切り捨て設定。
type OutputConfig struct {
	Strategy  TruncateStrategy `yaml:"strategy"`
	HeadLines int              `yaml:"head_lines"`
	TailLines int              `yaml:"tail_lines"`
}

// ToTruncateConfig は TruncateConfig に変換する。未指定の値は fallback から埋める。
func (o OutputConfig) ToTruncateConfig(fallback TruncateConfig) TruncateConfig {
	if o.Strategy == StrategyNone {
		return TruncateConfig{Strategy: StrategyNone}
	}
	cfg := TruncateConfig{Strategy: StrategyHeadTail, HeadLines: o.HeadLines, TailLines: o.TailLines}
	if cfg.HeadLines == 0 {
		cfg.HeadLines = fallback.HeadLines
	}
	if cfg.TailLines == 0 {
		cfg.TailLines = fallback.TailLines
	}
	return cfg
}

// TargetParam は Envelope の target に使う引数名を返す。
func (d *ToolDef) TargetParam() string {
	if d.Target != "" {
		return d.Target
	}
	for _, p := range d.Params {
		if p.Required {
			return p.Name
		}
	}
	return ""
}

// IsSuccessCode は終了コード code を成功とみなすかを返す。
func (d *ToolDef) IsSuccessCode(code int) bool {
	if code == 0 {
		return true
	}
	for _, c := range d.SuccessCodes {
		if c == code {
			return true
		}
	}
	return false
}
