package ops

import (
	"context"
	"time"

	"github.com/0x6d61/secops-mcp/internal/parser"
	"github.com/0x6d61/secops-mcp/internal/tools"
	"github.com/0x6d61/secops-mcp/pkg/schema"
)

const gospiderBinary = "gospider"

// GospiderOptions は gospider 1回分の設定。
type GospiderOptions struct {
	Target             string
	Depth              int
	Concurrent         int
	Timeout            int // リクエスト単位のタイムアウト（秒）
	UserAgent          string
	Headers            []string
	IncludeSubs        bool
	IncludeOtherSource bool
	Format             parser.Format
}

// DefaultGospiderOptions は既定値を埋めた GospiderOptions を返す。
func DefaultGospiderOptions(target string) GospiderOptions {
	return GospiderOptions{
		Target:     target,
		Depth:      3,
		Concurrent: 10,
		Timeout:    10,
		Format:     parser.FormatJSON,
	}
}

// Validate はプロセス起動前に検出できる誤りを返す。
func (o GospiderOptions) Validate() *tools.Failure {
	switch {
	case o.Target == "":
		return tools.Validationf("target must not be empty")
	case o.Depth < 0:
		return tools.Validationf("depth must be >= 0, got %d", o.Depth)
	case o.Concurrent < 1:
		return tools.Validationf("concurrent must be >= 1, got %d", o.Concurrent)
	case o.Timeout < 1:
		return tools.Validationf("timeout must be >= 1, got %d", o.Timeout)
	case o.Format != parser.FormatJSON && o.Format != parser.FormatText:
		return tools.Validationf("output_format must be json or txt, got %q", o.Format)
	}
	return nil
}

// BuildGospider は gospider の Invocation を組み立てる。
//
//	gospider -s <target> -d <depth> -c <concurrent> -t <timeout>
//	         [-u <ua>] [-H <header>]... [--subs] [--other-source] [--json]
func BuildGospider(o GospiderOptions) (tools.Invocation, *tools.Failure) {
	if f := o.Validate(); f != nil {
		return tools.Invocation{}, f
	}
	argv := tools.NewArgv().
		Flag("-s", o.Target).
		Int("-d", o.Depth).
		Int("-c", o.Concurrent).
		Int("-t", o.Timeout).
		Flag("-u", o.UserAgent).
		Repeat("-H", o.Headers).
		Bool("--subs", o.IncludeSubs).
		Bool("--other-source", o.IncludeOtherSource).
		Bool("--json", o.Format == parser.FormatJSON)
	return tools.NewInvocation(gospiderBinary, gospiderBinary, argv.Tokens(), 0), nil
}

// Gospider はクロールを1回実行して Envelope を返す。
func (rt *Runtime) Gospider(ctx context.Context, tool string, o GospiderOptions) schema.Envelope {
	p := parser.Gospider{}
	if f := rt.Scope.Check(o.Target); f != nil {
		return fail(tool, p.Categories(), f)
	}
	inv, f := BuildGospider(o)
	if f != nil {
		return fail(tool, p.Categories(), f)
	}
	res := rt.run(ctx, step{inv: inv, parser: p, format: o.Format})
	return envelope(tool, o.Target, p.Categories(), res)
}

var gospiderCommonParams = []Param{
	{Name: "depth", Type: TypeInt, Default: 3, Min: intp(0), Description: "Maximum crawling depth"},
	{Name: "concurrent", Type: TypeInt, Default: 10, Min: intp(1), Description: "Number of concurrent requests"},
	{Name: "timeout", Type: TypeInt, Default: 10, Min: intp(1), Description: "Request timeout in seconds"},
	{Name: "include_subs", Type: TypeBool, Default: false, Description: "Include subdomains"},
}

func gospiderOptionsFrom(target string, a Args) GospiderOptions {
	o := DefaultGospiderOptions(target)
	o.Depth = a.Int("depth")
	o.Concurrent = a.Int("concurrent")
	o.Timeout = a.Int("timeout")
	o.IncludeSubs = a.Bool("include_subs")
	o.UserAgent = a.String("user_agent")
	o.Headers = a.Strings("headers")
	o.IncludeOtherSource = a.Bool("include_other_source")
	if a.Has("output_format") {
		o.Format = parser.Format(a.String("output_format"))
	}
	return o
}

func gospiderOperations(rt *Runtime) []Operation {
	cats := parser.Gospider{}.Categories()

	scanParams := append([]Param{
		{Name: "target", Type: TypeString, Required: true, Description: "Target URL or domain to crawl"},
	}, gospiderCommonParams...)
	scanParams = append(scanParams,
		Param{Name: "user_agent", Type: TypeString, Description: "Custom User-Agent"},
		Param{Name: "headers", Type: TypeStringList, Description: "Custom headers (\"Name: value\")"},
		Param{Name: "include_other_source", Type: TypeBool, Default: false, Description: "Also use robots.txt, sitemap.xml and third-party sources"},
		Param{Name: "output_format", Type: TypeString, Default: "json", Enum: []string{"json", "txt"}, Description: "gospider output format"},
	)

	filteredParams := append([]Param{
		{Name: "target", Type: TypeString, Required: true, Description: "Target URL or domain to crawl"},
		{Name: "extensions", Type: TypeStringList, Description: "Keep only URLs with these extensions"},
		{Name: "exclude_extensions", Type: TypeStringList, Description: "Drop URLs with these extensions"},
		{Name: "min_length", Type: TypeInt, Min: intp(0), Description: "Drop URLs whose response is shorter"},
		{Name: "max_length", Type: TypeInt, Min: intp(0), Description: "Drop URLs whose response is longer"},
	}, gospiderCommonParams...)

	bulkParams := append([]Param{
		{Name: "targets", Type: TypeStringList, Required: true, Description: "Targets to crawl one after another"},
	}, gospiderCommonParams...)

	return []Operation{
		{
			Name:        "gospider_scan",
			Description: "Crawl a web target with gospider and return discovered URLs, forms and secrets.",
			Tags:        []string{"crawl", "recon"},
			Params:      scanParams,
			Categories:  cats,
			Handler: func(ctx context.Context, a Args) Response {
				return rt.Gospider(ctx, "gospider_scan", gospiderOptionsFrom(a.String("target"), a))
			},
		},
		{
			Name:        "gospider_filtered_scan",
			Description: "Crawl with gospider, then filter URLs by extension and response length.",
			Tags:        []string{"crawl", "recon"},
			Params:      filteredParams,
			Categories:  cats,
			Handler: func(ctx context.Context, a Args) Response {
				filter := Filter{
					Extensions:        a.Strings("extensions"),
					ExcludeExtensions: a.Strings("exclude_extensions"),
					MinLength:         a.IntPtr("min_length"),
					MaxLength:         a.IntPtr("max_length"),
				}
				if f := filter.Validate(); f != nil {
					return fail("gospider_filtered_scan", cats, f)
				}
				env := rt.Gospider(ctx, "gospider_filtered_scan", gospiderOptionsFrom(a.String("target"), a))
				filter.Apply(&env)
				return env
			},
		},
		{
			Name:        "gospider_bulk_scan",
			Description: "Crawl several targets sequentially with gospider and aggregate per-target results.",
			Tags:        []string{"crawl", "recon", "bulk"},
			Params:      bulkParams,
			Categories:  cats,
			Handler: func(ctx context.Context, a Args) Response {
				return FanOut(ctx, "", "targets", cats, a.Strings("targets"), func(ctx context.Context, target string) schema.Envelope {
					start := time.Now()
					env := rt.Gospider(ctx, "gospider_bulk_scan", gospiderOptionsFrom(target, a))
					rt.Log.WithField("target", target).WithField("duration", time.Since(start).Round(time.Millisecond).String()).Info("bulk target finished")
					return env
				})
			},
		},
	}
}
