package ops

import (
	"context"
	"fmt"

	"github.com/0x6d61/secops-mcp/internal/tools"
	"github.com/0x6d61/secops-mcp/pkg/schema"
)

// TargetFunc は1ターゲット分の処理。失敗も Envelope で返す。
type TargetFunc func(ctx context.Context, target string) schema.Envelope

// FanOut は targets を入力順に1つずつ run に渡し、結果を BulkResult にまとめる。
//
// 重複したターゲットは最初の1回だけ実行する。あるターゲットの失敗は
// 後続を止めない。ctx がキャンセルされた場合、残りのターゲットは
// 実行せずに失敗として記録する。
func FanOut(ctx context.Context, method, unit string, categories []schema.Category, targets []string, run TargetFunc) schema.BulkResult {
	bulk := schema.BulkResult{Method: method, Unit: unit}
	seen := make(map[string]bool, len(targets))
	for _, target := range targets {
		if seen[target] {
			continue
		}
		seen[target] = true

		if err := ctx.Err(); err != nil {
			f := &tools.Failure{Kind: schema.ErrorExecution, Message: fmt.Sprintf("not started: %v", err), Err: err}
			bulk.Record(target, tools.Fail(f).Envelope(target, categories))
			continue
		}
		bulk.Record(target, runTarget(ctx, target, categories, run))
	}
	return bulk
}

// runTarget は run の panic をそのターゲットの internal 失敗に変換する。
func runTarget(ctx context.Context, target string, categories []schema.Category, run TargetFunc) (env schema.Envelope) {
	defer func() {
		if p := recover(); p != nil {
			env = tools.Fail(tools.Internal(fmt.Errorf("target %s panicked: %v", target, p))).Envelope(target, categories)
		}
	}()
	return run(ctx, target)
}
