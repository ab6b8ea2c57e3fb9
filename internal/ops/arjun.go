package ops

import (
	"context"
	"strings"

	"github.com/0x6d61/secops-mcp/internal/parser"
	"github.com/0x6d61/secops-mcp/internal/tools"
	"github.com/0x6d61/secops-mcp/pkg/schema"
)

const arjunBinary = "arjun"

// arjunMethods は arjun が受け付ける -m の値。
var arjunMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS", "JSON", "XML"}

// ArjunOptions は arjun 1回分の設定。
type ArjunOptions struct {
	URL      string
	Method   string
	Wordlist string
	Headers  []string
	Data     string
	Delay    int
	Timeout  int
	Threads  int
	Stable   bool
	Format   parser.Format
}

// DefaultArjunOptions は既定値を埋めた ArjunOptions を返す。
func DefaultArjunOptions(url string) ArjunOptions {
	return ArjunOptions{
		URL:     url,
		Method:  "GET",
		Timeout: 10,
		Threads: 25,
		Format:  parser.FormatJSON,
	}
}

// normalizeMethod は method を大文字にして許可リストと照合する。
func normalizeMethod(method string) (string, *tools.Failure) {
	m := strings.ToUpper(strings.TrimSpace(method))
	for _, allowed := range arjunMethods {
		if m == allowed {
			return m, nil
		}
	}
	return "", tools.Validationf("method must be one of %s, got %q", strings.Join(arjunMethods, ", "), method)
}

// Validate はプロセス起動前に検出できる誤りを返す。Method は正規化される。
func (o *ArjunOptions) Validate() *tools.Failure {
	if o.URL == "" {
		return tools.Validationf("url must not be empty")
	}
	m, f := normalizeMethod(o.Method)
	if f != nil {
		return f
	}
	o.Method = m
	switch {
	case o.Delay < 0:
		return tools.Validationf("delay must be >= 0, got %d", o.Delay)
	case o.Timeout < 1:
		return tools.Validationf("timeout must be >= 1, got %d", o.Timeout)
	case o.Threads < 1:
		return tools.Validationf("threads must be >= 1, got %d", o.Threads)
	case o.Format != parser.FormatJSON && o.Format != parser.FormatText:
		return tools.Validationf("output_format must be json or txt, got %q", o.Format)
	}
	return nil
}

// BuildArjun は arjun の Invocation を組み立てる。
//
//	arjun -u <url> -m <METHOD> [-w <wordlist>] [-H <header>]... [-d <data>]
//	      [--delay <n>] -t <timeout> --threads <n> [--stable] (-oJ|-oT) -
func BuildArjun(o ArjunOptions) (tools.Invocation, *tools.Failure) {
	if f := o.Validate(); f != nil {
		return tools.Invocation{}, f
	}
	argv := tools.NewArgv().
		Flag("-u", o.URL).
		Flag("-m", o.Method).
		Flag("-w", o.Wordlist).
		Repeat("-H", o.Headers).
		Flag("-d", o.Data)
	if o.Delay > 0 {
		argv.Int("--delay", o.Delay)
	}
	argv.Int("-t", o.Timeout).
		Int("--threads", o.Threads).
		Bool("--stable", o.Stable)
	if o.Format == parser.FormatJSON {
		argv.Add("-oJ", "-")
	} else {
		argv.Add("-oT", "-")
	}
	return tools.NewInvocation(arjunBinary, arjunBinary, argv.Tokens(), 0), nil
}

// Arjun はパラメータ探索を1回実行して Envelope を返す。
func (rt *Runtime) Arjun(ctx context.Context, tool string, o ArjunOptions) schema.Envelope {
	p := parser.Arjun{}
	if f := o.Validate(); f != nil {
		return fail(tool, p.Categories(), f)
	}
	if f := rt.Scope.Check(o.URL); f != nil {
		return fail(tool, p.Categories(), f)
	}
	inv, f := BuildArjun(o)
	if f != nil {
		return fail(tool, p.Categories(), f)
	}
	env := envelope(tool, o.URL, p.Categories(), rt.run(ctx, step{inv: inv, parser: p, format: o.Format}))
	if env.Success {
		env.Method = o.Method
	}
	return env
}

// CustomMatch は custom の中で found に含まれるものを custom の順で返す。
func CustomMatch(custom []string, found []schema.Finding) []string {
	have := make(map[string]bool, len(found))
	for _, f := range found {
		have[f.Value()] = true
	}
	matched := []string{}
	for _, c := range custom {
		if have[c] {
			matched = append(matched, c)
		}
	}
	return matched
}

func arjunOptionsFrom(url string, a Args) ArjunOptions {
	o := DefaultArjunOptions(url)
	o.Method = a.String("method")
	o.Wordlist = a.String("wordlist")
	o.Headers = a.Strings("headers")
	o.Data = a.String("data")
	o.Delay = a.Int("delay")
	if a.Has("timeout") {
		o.Timeout = a.Int("timeout")
	}
	if a.Has("threads") {
		o.Threads = a.Int("threads")
	}
	o.Stable = a.Bool("stable")
	if a.Has("output_format") {
		o.Format = parser.Format(a.String("output_format"))
	}
	return o
}

func arjunOperations(rt *Runtime) []Operation {
	cats := parser.Arjun{}.Categories()
	method := Param{Name: "method", Type: TypeString, Default: "GET", Description: "HTTP method (GET, POST, PUT, PATCH, DELETE, HEAD, OPTIONS, JSON, XML)"}
	wordlist := Param{Name: "wordlist", Type: TypeString, Description: "Custom wordlist path"}
	threads := Param{Name: "threads", Type: TypeInt, Default: 25, Min: intp(1), Description: "Number of threads"}
	timeout := Param{Name: "timeout", Type: TypeInt, Default: 10, Min: intp(1), Description: "Request timeout in seconds"}
	stable := Param{Name: "stable", Type: TypeBool, Default: false, Description: "Stable mode (fewer false positives)"}

	return []Operation{
		{
			Name:        "arjun_scan",
			Description: "Discover hidden HTTP parameters of a URL with Arjun.",
			Tags:        []string{"params", "web"},
			Params: []Param{
				{Name: "url", Type: TypeString, Required: true, Description: "Target URL"},
				method,
				wordlist,
				{Name: "headers", Type: TypeStringList, Description: "Custom headers (\"Name: value\")"},
				{Name: "data", Type: TypeString, Description: "Request body for POST-like methods"},
				{Name: "delay", Type: TypeInt, Default: 0, Min: intp(0), Description: "Delay between requests in seconds"},
				timeout,
				threads,
				stable,
				{Name: "output_format", Type: TypeString, Default: "json", Enum: []string{"json", "txt"}, Description: "Arjun output format"},
			},
			Categories: cats,
			Handler: func(ctx context.Context, a Args) Response {
				return rt.Arjun(ctx, "arjun_scan", arjunOptionsFrom(a.String("url"), a))
			},
		},
		{
			Name:        "arjun_bulk_parameter_scan",
			Description: "Run Arjun against several URLs sequentially and aggregate per-URL parameters.",
			Tags:        []string{"params", "web", "bulk"},
			Params: []Param{
				{Name: "urls", Type: TypeStringList, Required: true, Description: "Target URLs"},
				method,
				wordlist,
				threads,
				stable,
			},
			Categories: cats,
			Handler: func(ctx context.Context, a Args) Response {
				m, f := normalizeMethod(a.String("method"))
				if f != nil {
					return fail("arjun_bulk_parameter_scan", cats, f)
				}
				return FanOut(ctx, m, "urls", cats, a.Strings("urls"), func(ctx context.Context, url string) schema.Envelope {
					return rt.Arjun(ctx, "arjun_bulk_parameter_scan", arjunOptionsFrom(url, a))
				})
			},
		},
		{
			Name:        "arjun_custom_parameter_scan",
			Description: "Run Arjun and report which of the given custom parameters were discovered.",
			Tags:        []string{"params", "web"},
			Params: []Param{
				{Name: "url", Type: TypeString, Required: true, Description: "Target URL"},
				method,
				{Name: "custom_params", Type: TypeStringList, Description: "Parameters to look for in the results"},
				wordlist,
				timeout,
				threads,
				stable,
			},
			Categories: cats,
			Handler: func(ctx context.Context, a Args) Response {
				env := rt.Arjun(ctx, "arjun_custom_parameter_scan", arjunOptionsFrom(a.String("url"), a))
				custom := a.Strings("custom_params")
				if !env.Success || len(custom) == 0 {
					return env
				}
				matched := CustomMatch(custom, env.Items(schema.CategoryParameters))
				env.Extra = map[string]any{
					"custom_parameters_tested": custom,
					"custom_parameters_found":  matched,
					"custom_match_count":       len(matched),
				}
				return env
			},
		},
	}
}
