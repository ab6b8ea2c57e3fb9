// Package render はオペレーション結果を端末向けに整形する
// （lipgloss のサマリー、glamour の Markdown レポート）。
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-runewidth"

	"github.com/0x6d61/secops-mcp/internal/ops"
	"github.com/0x6d61/secops-mcp/pkg/schema"
)

// maxItems は1カテゴリあたりに表示する発見物の上限。
const maxItems = 50

// Summary は結果を lipgloss で装飾した短いサマリーにする。
func Summary(resp ops.Response, width int) string {
	if width <= 0 {
		width = 80
	}
	var body string
	switch r := resp.(type) {
	case schema.Envelope:
		body = envelopeSummary(r, width)
	case schema.BulkResult:
		body = bulkSummary(r, width)
	default:
		return ""
	}
	return summaryBoxStyle.Width(width-2).Render(strings.TrimRight(body, "\n")) + "\n"
}

func envelopeSummary(env schema.Envelope, width int) string {
	var sb strings.Builder
	head := toolStyle.Render(env.Tool)
	if env.Target != "" {
		head += " " + Truncate(env.Target, width-runewidth.StringWidth(env.Tool)-8)
	}
	sb.WriteString(head + "\n")

	if !env.Success {
		sb.WriteString(failureStyle.Render("FAILED") + " " + string(env.ErrorKind) + ": " + env.Error + "\n")
		if env.Stderr != "" {
			sb.WriteString(mutedStyle.Render(Truncate(firstLine(env.Stderr), width-6)) + "\n")
		}
		return sb.String()
	}

	sb.WriteString(successStyle.Render("OK"))
	if env.Method != "" {
		sb.WriteString(" " + env.Method)
	}
	if env.Filtered {
		sb.WriteString(mutedStyle.Render(" (filtered)"))
	}
	sb.WriteString("\n")
	for _, c := range env.Categories() {
		items := env.Items(c)
		sb.WriteString(fmt.Sprintf("%-12s %s\n", c, countStyle.Render(fmt.Sprint(len(items)))))
		for i, f := range items {
			if i == 5 {
				sb.WriteString(mutedStyle.Render(fmt.Sprintf("  ⋯ +%d more", len(items)-i)) + "\n")
				break
			}
			sb.WriteString("  " + Truncate(f.Value(), width-8) + "\n")
		}
	}
	return sb.String()
}

func bulkSummary(b schema.BulkResult, width int) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("%d targets", b.Total())))
	if b.Method != "" {
		sb.WriteString(" " + b.Method)
	}
	sb.WriteString("  " + successStyle.Render(fmt.Sprintf("%d ok", b.Successful())))
	sb.WriteString("  " + failureStyle.Render(fmt.Sprintf("%d failed", b.Failed())) + "\n")
	for _, e := range b.Entries {
		status := successStyle.Render("✓")
		detail := fmt.Sprintf("%d findings", e.Result.Count())
		if !e.Result.Success {
			status = failureStyle.Render("✗")
			detail = e.Result.Error
		}
		line := Truncate(e.Target, width/2) + "  " + mutedStyle.Render(Truncate(detail, width/2-8))
		sb.WriteString(status + " " + line + "\n")
	}
	return sb.String()
}

// Markdown は結果を Markdown のレポートにする。
func Markdown(resp ops.Response) string {
	switch r := resp.(type) {
	case schema.Envelope:
		return envelopeMarkdown(r, 2)
	case schema.BulkResult:
		return bulkMarkdown(r)
	}
	return ""
}

func envelopeMarkdown(env schema.Envelope, level int) string {
	var sb strings.Builder
	h := strings.Repeat("#", level)
	if env.Tool != "" {
		fmt.Fprintf(&sb, "%s %s\n\n", h, env.Tool)
	}
	if env.Target != "" {
		fmt.Fprintf(&sb, "- **Target:** `%s`\n", env.Target)
	}
	if env.Method != "" {
		fmt.Fprintf(&sb, "- **Method:** %s\n", env.Method)
	}
	if !env.Success {
		fmt.Fprintf(&sb, "- **Status:** failed (%s)\n- **Error:** %s\n", env.ErrorKind, env.Error)
		if env.Stderr != "" {
			fmt.Fprintf(&sb, "\n```\n%s\n```\n", strings.TrimSpace(env.Stderr))
		}
		return sb.String()
	}
	fmt.Fprintf(&sb, "- **Status:** success\n- **Findings:** %d\n", env.Count())
	if env.Filtered {
		sb.WriteString("- **Filtered:** yes\n")
	}
	for _, c := range env.Categories() {
		items := env.Items(c)
		fmt.Fprintf(&sb, "\n%s# %s (%d)\n\n", h, c, len(items))
		if len(items) == 0 {
			sb.WriteString("_none_\n")
			continue
		}
		for i, f := range items {
			if i == maxItems {
				fmt.Fprintf(&sb, "- … %d more\n", len(items)-i)
				break
			}
			fmt.Fprintf(&sb, "- `%s`\n", strings.ReplaceAll(f.Value(), "`", "'"))
		}
	}
	if env.Output != "" {
		fmt.Fprintf(&sb, "\n%s# output\n\n```\n%s\n```\n", h, env.Output)
	}
	return sb.String()
}

func bulkMarkdown(b schema.BulkResult) string {
	var sb strings.Builder
	sb.WriteString("## Bulk scan\n\n")
	if b.Method != "" {
		fmt.Fprintf(&sb, "- **Method:** %s\n", b.Method)
	}
	fmt.Fprintf(&sb, "- **Targets:** %d\n- **Successful:** %d\n- **Failed:** %d\n\n", b.Total(), b.Successful(), b.Failed())
	sb.WriteString("| Target | Status | Findings |\n|---|---|---|\n")
	for _, e := range b.Entries {
		status := "ok"
		if !e.Result.Success {
			status = "failed: " + strings.ReplaceAll(e.Result.Error, "|", `\|`)
		}
		fmt.Fprintf(&sb, "| %s | %s | %d |\n", e.Target, status, e.Result.Count())
	}
	for _, e := range b.Entries {
		if e.Result.Success && e.Result.Count() > 0 {
			fmt.Fprintf(&sb, "\n### %s\n\n", e.Target)
			sb.WriteString(envelopeMarkdown(e.Result, 4))
		}
	}
	return sb.String()
}

// RenderMarkdown は glamour で Markdown を端末向けにレンダリングする。
// 非 TTY でも同じ見た目になるよう dark スタイルを明示する。
func RenderMarkdown(md string, width int) (string, error) {
	// dark スタイルの左右マージン分を差し引く
	wrapWidth := width - 4
	if wrapWidth < 20 {
		wrapWidth = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		return "", fmt.Errorf("render: create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render: markdown: %w", err)
	}
	return out, nil
}

// Tools はオペレーション一覧を名前・説明・タグで 1 行ずつ整形する。
func Tools(infos []ops.Info, width int) string {
	if width <= 0 {
		width = 80
	}
	nameWidth := 0
	for _, info := range infos {
		if w := runewidth.StringWidth(info.Name); w > nameWidth {
			nameWidth = w
		}
	}
	var sb strings.Builder
	for _, info := range infos {
		name := runewidth.FillRight(info.Name, nameWidth)
		tags := ""
		if len(info.Tags) > 0 {
			tags = " [" + strings.Join(info.Tags, ",") + "]"
		}
		// タグは説明より優先して残す。入りきらなければタグも切る
		tags = Truncate(tags, width-nameWidth-2)
		desc := Truncate(info.Description, width-nameWidth-2-runewidth.StringWidth(tags))
		sb.WriteString(toolStyle.Render(name) + "  " + desc + mutedStyle.Render(tags) + "\n")
	}
	return sb.String()
}

// Truncate は表示幅 n に収まるよう s を切り詰める（全角文字は幅2）。
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	return runewidth.Truncate(s, n, "…")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
