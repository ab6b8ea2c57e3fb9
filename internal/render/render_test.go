package render_test

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x6d61/secops-mcp/internal/ops"
	"github.com/0x6d61/secops-mcp/internal/render"
	"github.com/0x6d61/secops-mcp/pkg/schema"
)

var urlCats = []schema.Category{schema.CategoryURLs, schema.CategoryForms}

func sampleEnvelope() schema.Envelope {
	env := schema.NewSuccess("https://a.test", urlCats, []schema.Finding{
		schema.URLFinding{URL: "https://a.test/a.php"},
		schema.URLFinding{URL: "https://a.test/b.js"},
	})
	env.Tool = "gospider_scan"
	return env
}

func TestMarkdown_Envelope(t *testing.T) {
	md := render.Markdown(sampleEnvelope())

	assert.Contains(t, md, "## gospider_scan")
	assert.Contains(t, md, "**Target:** `https://a.test`")
	assert.Contains(t, md, "### urls (2)")
	assert.Contains(t, md, "- `https://a.test/a.php`")
	assert.Contains(t, md, "### forms (0)")
	assert.Contains(t, md, "_none_")
}

func TestMarkdown_Failure(t *testing.T) {
	env := schema.NewFailure(schema.ErrorCommand, "command exited with status 1", "boom\n", urlCats)
	env.Tool = "gospider_scan"

	md := render.Markdown(env)
	assert.Contains(t, md, "failed (command)")
	assert.Contains(t, md, "```\nboom\n```")
	assert.NotContains(t, md, "### urls")
}

func TestMarkdown_Bulk(t *testing.T) {
	bulk := schema.BulkResult{Method: "GET", Unit: "urls"}
	bulk.Record("https://a.test", sampleEnvelope())
	bulk.Record("https://b.test", schema.NewFailure(schema.ErrorExecution, "exec: not found", "", urlCats))

	md := render.Markdown(bulk)
	assert.Contains(t, md, "- **Targets:** 2")
	assert.Contains(t, md, "| https://a.test | ok | 2 |")
	assert.Contains(t, md, "| https://b.test | failed: exec: not found | 0 |")
	assert.Contains(t, md, "### https://a.test")
}

func TestRenderMarkdown(t *testing.T) {
	out, err := render.RenderMarkdown(render.Markdown(sampleEnvelope()), 80)
	require.NoError(t, err)
	assert.Contains(t, out, "gospider_scan")
	assert.Contains(t, out, "https://a.test/a.php")
}

func TestSummary(t *testing.T) {
	out := render.Summary(sampleEnvelope(), 60)
	assert.Contains(t, out, "gospider_scan")
	assert.Contains(t, out, "OK")
	assert.Contains(t, out, "https://a.test/b.js")

	failed := schema.NewFailure(schema.ErrorValidation, "missing required argument \"target\"", "", urlCats)
	out = render.Summary(failed, 60)
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "validation")

	bulk := schema.BulkResult{Unit: "targets"}
	bulk.Record("A", sampleEnvelope())
	out = render.Summary(bulk, 60)
	assert.Contains(t, out, "1 targets")
	assert.Contains(t, out, "1 ok")
}

func TestTools(t *testing.T) {
	out := render.Tools([]ops.Info{
		{Name: "nmap_wrapper", Description: "Scan a host with nmap", Tags: []string{"network", "recon"}},
		{Name: "arjun_scan", Description: strings.Repeat("long description ", 20), Tags: []string{"params", "web"}},
	}, 60)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "nmap_wrapper")
	assert.Contains(t, lines[0], "[network,recon]")
	// 説明が長くてもタグは残る
	assert.Contains(t, lines[1], "[params,web]")
	for _, l := range lines {
		assert.LessOrEqual(t, runewidth.StringWidth(l), 60, l)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", render.Truncate("abc", 5))
	assert.Equal(t, "abcd…", render.Truncate("abcdefgh", 5))
	// 全角は幅2
	got := render.Truncate("ポートスキャン結果", 7)
	assert.LessOrEqual(t, runewidth.StringWidth(got), 7)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.Equal(t, "", render.Truncate("abc", 0))
}
