package tools

import (
	"strconv"
	"time"
)

// Invocation は構築済みのツール呼び出し。Command Builder が作り Executor が消費する。
// 一度作ったら変更しない（Args は取り出すたびにコピーを返す）。
type Invocation struct {
	tool    string
	binary  string
	args    []string
	timeout time.Duration
}

// NewInvocation は Invocation を作る。args はコピーされる。
func NewInvocation(tool, binary string, args []string, timeout time.Duration) Invocation {
	cp := make([]string, len(args))
	copy(cp, args)
	return Invocation{tool: tool, binary: binary, args: cp, timeout: timeout}
}

func (i Invocation) Tool() string           { return i.tool }
func (i Invocation) Binary() string         { return i.binary }
func (i Invocation) Timeout() time.Duration { return i.timeout }

// Args は引数トークン列のコピーを返す。
func (i Invocation) Args() []string {
	cp := make([]string, len(i.args))
	copy(cp, i.args)
	return cp
}

// Argv は binary を先頭にしたトークン列を返す（ログ・テスト用）。
func (i Invocation) Argv() []string {
	return append([]string{i.binary}, i.args...)
}

// Argv は Command Builder 用のトークン列ビルダー。
// 値は常に独立したトークンとして追加され、シェル解釈は一切行われない。
type Argv struct {
	tokens []string
}

// NewArgv は先頭トークン群（サブコマンド等）から Argv を作る。
func NewArgv(head ...string) *Argv {
	return &Argv{tokens: append([]string(nil), head...)}
}

// Add はトークンをそのまま追加する。
func (a *Argv) Add(tokens ...string) *Argv {
	a.tokens = append(a.tokens, tokens...)
	return a
}

// Flag は value が空でなければ flag value の組を追加する。
func (a *Argv) Flag(flag, value string) *Argv {
	if value == "" {
		return a
	}
	a.tokens = append(a.tokens, flag, value)
	return a
}

// Int は flag value の組を常に追加する。
func (a *Argv) Int(flag string, value int) *Argv {
	a.tokens = append(a.tokens, flag, strconv.Itoa(value))
	return a
}

// Bool は on のときだけ flag を1つ追加する。
func (a *Argv) Bool(flag string, on bool) *Argv {
	if on {
		a.tokens = append(a.tokens, flag)
	}
	return a
}

// Repeat は values の要素ごとに flag value の組を入力順に追加する。
func (a *Argv) Repeat(flag string, values []string) *Argv {
	for _, v := range values {
		a.tokens = append(a.tokens, flag, v)
	}
	return a
}

// Tokens はここまでのトークン列のコピーを返す。
func (a *Argv) Tokens() []string {
	cp := make([]string, len(a.tokens))
	copy(cp, a.tokens)
	return cp
}
