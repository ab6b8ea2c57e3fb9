// Package ops implements the callable operations: argument validation, the
// single-target pipeline, bulk fan-out and post-filtering.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/0x6d61/secops-mcp/internal/tools"
	"github.com/0x6d61/secops-mcp/pkg/schema"
)

// ErrUnknownOperation は登録されていないオペレーション名で呼ばれたときのエラー。
var ErrUnknownOperation = errors.New("unknown operation")

// Response はオペレーションの戻り値（schema.Envelope または schema.BulkResult）。
type Response interface {
	json.Marshaler
	Succeeded() bool
}

// Handler は検証済み引数を受け取って結果を返す。失敗も Response として返す。
type Handler func(ctx context.Context, args Args) Response

// Operation は呼び出し可能なオペレーション1つ分。
type Operation struct {
	Name        string
	Description string
	// Tags は一覧での分類（recon, crawl など）。
	Tags   []string
	Params []Param
	// Categories は引数エラーなど Handler に届く前の失敗 Envelope に出すカテゴリ。
	Categories []schema.Category
	Handler    Handler
}

// Info は一覧表示用のオペレーション情報。
type Info struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Tags        []string       `json:"tags,omitempty"`
	InputSchema map[string]any `json:"inputSchema"`
}

// Registry はオペレーション名から Operation を引く。登録順を保持する。
type Registry struct {
	ops   map[string]*Operation
	order []string
	log   logrus.FieldLogger
}

// NewRegistry は空の Registry を返す。log が nil なら標準ロガーを使う。
func NewRegistry(log logrus.FieldLogger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Registry{ops: make(map[string]*Operation), log: log}
}

// Register はオペレーションを登録する。同名の二重登録はエラー。
func (r *Registry) Register(op Operation) error {
	if op.Name == "" {
		return errors.New("operation name must not be empty")
	}
	if op.Handler == nil {
		return fmt.Errorf("operation %s: nil handler", op.Name)
	}
	if _, dup := r.ops[op.Name]; dup {
		return fmt.Errorf("operation %s already registered", op.Name)
	}
	r.ops[op.Name] = &op
	r.order = append(r.order, op.Name)
	return nil
}

// Get は name の Operation を返す。
func (r *Registry) Get(name string) (*Operation, bool) {
	op, ok := r.ops[name]
	return op, ok
}

// List は登録順にオペレーション情報を返す。
func (r *Registry) List() []Info {
	out := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		op := r.ops[name]
		out = append(out, Info{
			Name:        op.Name,
			Description: op.Description,
			Tags:        op.Tags,
			InputSchema: inputSchema(op.Params),
		})
	}
	return out
}

// Call は name のオペレーションを raw 引数で実行する。
//
// エラーを返すのは name が未登録の場合だけ。引数エラー・ツールの失敗・
// Handler 内の panic はすべて失敗 Envelope として返る。
func (r *Registry) Call(ctx context.Context, name string, raw map[string]any) (resp Response, err error) {
	op, ok := r.ops[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, name)
	}
	log := r.log.WithField("operation", name)
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			log.WithField("stack", string(debug.Stack())).Errorf("operation panicked: %v", p)
			resp = failure(op, tools.Internal(fmt.Errorf("operation %s panicked: %v", name, p)))
		}
		log.WithFields(logrus.Fields{
			"success":  resp != nil && resp.Succeeded(),
			"duration": time.Since(start).Round(time.Millisecond).String(),
		}).Info("operation finished")
	}()

	args, f := bind(op.Params, raw)
	if f != nil {
		log.WithField("error", f.Message).Debug("argument validation failed")
		return failure(op, f), nil
	}
	return op.Handler(ctx, args), nil
}

// failure は op の宣言カテゴリで失敗 Envelope を作る。
func failure(op *Operation, f *tools.Failure) schema.Envelope {
	env := schema.NewFailure(f.Kind, f.Error(), f.Stderr, op.Categories)
	env.Tool = op.Name
	return env
}
