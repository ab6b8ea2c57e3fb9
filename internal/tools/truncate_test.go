package tools_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/0x6d61/secops-mcp/internal/tools"
)

func numbered(n int) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "line %d\n", i)
	}
	return sb.String()
}

func TestTruncateConfig_Apply(t *testing.T) {
	cfg := tools.TruncateConfig{Strategy: tools.StrategyHeadTail, HeadLines: 2, TailLines: 1}

	tests := []struct {
		name   string
		cfg    tools.TruncateConfig
		stdout string
		want   string
	}{
		{"fits", cfg, numbered(3), "line 1\nline 2\nline 3"},
		{"cut", cfg, numbered(10), "line 1\nline 2\n... 7 lines omitted ...\nline 10"},
		{"tail only", tools.TruncateConfig{Strategy: tools.StrategyHeadTail, TailLines: 1}, numbered(3), "... 2 lines omitted ...\nline 3"},
		{"empty", cfg, "", ""},
		{"newlines only", cfg, "\n\n", ""},
		{"none", tools.TruncateConfig{Strategy: tools.StrategyNone}, numbered(3), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Apply(tt.stdout))
		})
	}
}

func TestOutputConfig_ToTruncateConfig(t *testing.T) {
	fallback := tools.TruncateConfig{Strategy: tools.StrategyHeadTail, HeadLines: 7, TailLines: 3}

	assert.Equal(t, fallback, tools.OutputConfig{}.ToTruncateConfig(fallback))
	assert.Equal(t,
		tools.TruncateConfig{Strategy: tools.StrategyHeadTail, HeadLines: 20, TailLines: 3},
		tools.OutputConfig{Strategy: tools.StrategyHeadTail, HeadLines: 20}.ToTruncateConfig(fallback))
	assert.Equal(t,
		tools.TruncateConfig{Strategy: tools.StrategyNone},
		tools.OutputConfig{Strategy: tools.StrategyNone, HeadLines: 5}.ToTruncateConfig(fallback))
}
