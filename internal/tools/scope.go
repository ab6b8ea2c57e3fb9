package tools

import (
	"fmt"
	"regexp"
)

// ScopeGuard はスキャン対象の拒否パターンを保持する。
// 対象（URL・ホスト）がいずれかに一致したらツールを起動せず validation 失敗にする。
type ScopeGuard struct {
	patterns []*regexp.Regexp
}

// NewScopeGuard は patterns をコンパイルして ScopeGuard を返す。
// 不正な正規表現はエラーとして返す（設定ミスを黙って無視しない）。
func NewScopeGuard(patterns []string) (*ScopeGuard, error) {
	g := &ScopeGuard{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("scope deny pattern %q: %w", p, err)
		}
		g.patterns = append(g.patterns, re)
	}
	return g, nil
}

// Match は target が拒否パターンのいずれかに一致するか検査する。
// nil の ScopeGuard は何も拒否しない。
func (g *ScopeGuard) Match(target string) bool {
	if g == nil {
		return false
	}
	for _, re := range g.patterns {
		if re.MatchString(target) {
			return true
		}
	}
	return false
}

// Check は targets のうち最初に拒否されたものを validation 失敗として返す。
func (g *ScopeGuard) Check(targets ...string) *Failure {
	for _, t := range targets {
		if g.Match(t) {
			return Validationf("target %q is out of scope", t)
		}
	}
	return nil
}
