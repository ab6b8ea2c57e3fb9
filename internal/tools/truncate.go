package tools

import (
	"fmt"
	"strings"
)

// TruncateStrategy はパススルー系ツールの Envelope.output に生 stdout をどう載せるか。
type TruncateStrategy string

const (
	// StrategyHeadTail は先頭 HeadLines 行と末尾 TailLines 行を残し、間を 1 行の目印に置き換える。
	StrategyHeadTail TruncateStrategy = "head_tail"
	// StrategyNone は output を付けない。構造化パーサーの結果だけで足りるツール向け。
	StrategyNone TruncateStrategy = "none"
)

// TruncateConfig は切り捨て設定。
type TruncateConfig struct {
	Strategy  TruncateStrategy
	HeadLines int
	TailLines int
}

// DefaultHeadTailConfig は config の output セクションが空のときの既定値。
var DefaultHeadTailConfig = TruncateConfig{
	Strategy:  StrategyHeadTail,
	HeadLines: 50,
	TailLines: 30,
}

// Apply は stdout 全体に切り捨てを適用する。
// 末尾の改行は落とす。空出力と StrategyNone は空文字。
func (c TruncateConfig) Apply(stdout string) string {
	if c.Strategy == StrategyNone {
		return ""
	}
	stdout = strings.TrimRight(stdout, "\n")
	if stdout == "" {
		return ""
	}
	lines := strings.Split(stdout, "\n")

	head, tail := max(c.HeadLines, 0), max(c.TailLines, 0)
	if head+tail >= len(lines) {
		return stdout
	}
	omitted := len(lines) - head - tail
	parts := make([]string, 0, head+tail+1)
	parts = append(parts, lines[:head]...)
	parts = append(parts, fmt.Sprintf("... %d lines omitted ...", omitted))
	parts = append(parts, lines[len(lines)-tail:]...)
	return strings.Join(parts, "\n")
}
