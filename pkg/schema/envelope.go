package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorKind は失敗の分類。
type ErrorKind string

const (
	// ErrorValidation は引数が宣言された範囲外（プロセス起動前に検出）。
	ErrorValidation ErrorKind = "validation"
	// ErrorExecution はツールの実行ファイルを起動できなかった。
	ErrorExecution ErrorKind = "execution"
	// ErrorCommand はツールが非ゼロ終了した（またはタイムアウトで停止された）。
	ErrorCommand ErrorKind = "command"
	// ErrorInternal はそれ以外の想定外エラー。
	ErrorInternal ErrorKind = "internal"
)

// Envelope は全オペレーション共通の成功/失敗レスポンス。
//
// 不変条件:
//   - Success=false なら発見物は空で Error は空でない
//   - Success=true なら stats / count は各カテゴリの長さと一致する（MarshalJSON で都度算出）
type Envelope struct {
	Success bool
	Tool    string
	Target  string
	Method  string

	Filtered bool
	Output   string         // パススルー系ツールの切り捨て済み生出力
	Extra    map[string]any // オペレーション固有の追加フィールド

	Error     string
	ErrorKind ErrorKind
	Stderr    string

	order    []Category
	findings map[Category][]Finding
}

// NewSuccess は成功 Envelope を作る。categories は発見物が0件でも JSON に出すカテゴリ。
func NewSuccess(target string, categories []Category, findings []Finding) Envelope {
	env := Envelope{Success: true, Target: target}
	env.declare(categories)
	for _, f := range findings {
		env.Add(f)
	}
	return env
}

// NewFailure は失敗 Envelope を作る。発見物は常に空。
func NewFailure(kind ErrorKind, message, stderr string, categories []Category) Envelope {
	if message == "" {
		message = "operation failed"
	}
	env := Envelope{Success: false, ErrorKind: kind, Error: message, Stderr: stderr}
	env.declare(categories)
	return env
}

func (e *Envelope) declare(categories []Category) {
	if e.findings == nil {
		e.findings = make(map[Category][]Finding)
	}
	for _, c := range categories {
		if _, ok := e.findings[c]; ok {
			continue
		}
		e.order = append(e.order, c)
		e.findings[c] = []Finding{}
	}
}

// Add は発見物を追加する。失敗 Envelope には追加しない。
func (e *Envelope) Add(f Finding) {
	if !e.Success || f == nil {
		return
	}
	c := f.Category()
	e.declare([]Category{c})
	e.findings[c] = append(e.findings[c], f)
}

// Succeeded は呼び出しが成功したかを返す。
func (e Envelope) Succeeded() bool { return e.Success }

// Categories は宣言順のカテゴリ一覧を返す。
func (e Envelope) Categories() []Category {
	out := make([]Category, len(e.order))
	copy(out, e.order)
	return out
}

// Items はカテゴリ c の発見物を返す。
func (e Envelope) Items(c Category) []Finding {
	return e.findings[c]
}

// SetItems はカテゴリ c の発見物を置き換える（後段フィルタ用）。
func (e *Envelope) SetItems(c Category, items []Finding) {
	if !e.Success {
		return
	}
	e.declare([]Category{c})
	if items == nil {
		items = []Finding{}
	}
	e.findings[c] = items
}

// Count は発見物の総数。
func (e Envelope) Count() int {
	n := 0
	for _, c := range e.order {
		n += len(e.findings[c])
	}
	return n
}

// Stats はカテゴリごとの件数を "total_<category>" キーで返す。
func (e Envelope) Stats() map[string]int {
	stats := make(map[string]int, len(e.order))
	for _, c := range e.order {
		stats["total_"+string(c)] = len(e.findings[c])
	}
	return stats
}

// Lite はバルク結果に埋め込むための軽量版を返す（target や生出力を除く）。
func (e Envelope) Lite() Envelope {
	lite := e
	lite.Tool = ""
	lite.Target = ""
	lite.Method = ""
	lite.Output = ""
	return lite
}

// Check は Envelope の不変条件を検証する。
func (e Envelope) Check() error {
	if e.Success {
		if e.Error != "" {
			return errors.New("success envelope carries an error message")
		}
		return nil
	}
	if e.Error == "" {
		return errors.New("failure envelope without error message")
	}
	if n := e.Count(); n != 0 {
		return fmt.Errorf("failure envelope carries %d findings", n)
	}
	return nil
}

// MarshalJSON は呼び出し元に返す JSON 形状を組み立てる。
func (e Envelope) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.order)+8)
	for k, v := range e.Extra {
		out[k] = v
	}
	out["success"] = e.Success
	if e.Tool != "" {
		out["tool"] = e.Tool
	}
	if e.Target != "" {
		out["target"] = e.Target
	}
	if e.Method != "" {
		out["method"] = e.Method
	}
	for _, c := range e.order {
		items := e.findings[c]
		if items == nil {
			items = []Finding{}
		}
		out[string(c)] = items
	}
	out["stats"] = e.Stats()
	out["count"] = e.Count()
	if e.Filtered {
		out["filtered"] = true
	}
	if e.Output != "" {
		out["output"] = e.Output
	}
	if !e.Success {
		out["error"] = e.Error
		if e.ErrorKind != "" {
			out["error_kind"] = e.ErrorKind
		}
		if e.Stderr != "" {
			out["stderr"] = e.Stderr
		}
	}
	return json.Marshal(out)
}

// BulkEntry はバルク実行の1ターゲット分の結果。
type BulkEntry struct {
	Target string
	Result Envelope
}

// BulkResult はファンアウト実行の集約結果。
// 外側の success は「バッチが完走したこと」を表し、個々の成否は Entries に残る。
type BulkResult struct {
	Method  string
	Unit    string // total_<Unit> のキー名（"urls", "targets" など）
	Entries []BulkEntry
}

// Record はターゲットの結果を追記する。既に同じターゲットがあれば上書きする。
func (b *BulkResult) Record(target string, env Envelope) {
	for i := range b.Entries {
		if b.Entries[i].Target == target {
			b.Entries[i].Result = env
			return
		}
	}
	b.Entries = append(b.Entries, BulkEntry{Target: target, Result: env})
}

// Get はターゲットの結果を返す。
func (b BulkResult) Get(target string) (Envelope, bool) {
	for _, e := range b.Entries {
		if e.Target == target {
			return e.Result, true
		}
	}
	return Envelope{}, false
}

func (b BulkResult) Total() int { return len(b.Entries) }

// Succeeded は常に true（個々のターゲットの失敗はバッチの失敗ではない）。
func (b BulkResult) Succeeded() bool { return true }

// Successful は成功したターゲット数。
func (b BulkResult) Successful() int {
	n := 0
	for _, e := range b.Entries {
		if e.Result.Success {
			n++
		}
	}
	return n
}

// Failed は失敗したターゲット数。
func (b BulkResult) Failed() int { return b.Total() - b.Successful() }

// MarshalJSON は results を入力順のオブジェクトとして書き出す。
func (b BulkResult) MarshalJSON() ([]byte, error) {
	unit := b.Unit
	if unit == "" {
		unit = "targets"
	}

	var buf bytes.Buffer
	buf.WriteString(`{"success":true`)
	if b.Method != "" {
		if err := writeField(&buf, "method", b.Method); err != nil {
			return nil, err
		}
	}
	for _, kv := range []struct {
		key string
		val int
	}{
		{"total_" + unit, b.Total()},
		{"successful_scans", b.Successful()},
		{"failed_scans", b.Failed()},
	} {
		if err := writeField(&buf, kv.key, kv.val); err != nil {
			return nil, err
		}
	}

	buf.WriteString(`,"results":{`)
	for i, e := range b.Entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Target)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Result.Lite())
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

func writeField(buf *bytes.Buffer, key string, val any) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	buf.WriteByte(',')
	k, _ := json.Marshal(key)
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(b)
	return nil
}
