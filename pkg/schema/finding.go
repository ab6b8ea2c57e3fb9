// Package schema defines the shared JSON types returned to callers: findings, envelopes and bulk results.
package schema

import (
	"encoding/json"
	"strconv"
)

// Category は発見物の分類。Envelope ではカテゴリ名がそのまま JSON キーになる。
type Category string

const (
	CategoryURLs        Category = "urls"
	CategoryParameters  Category = "parameters"
	CategoryForms       Category = "forms"
	CategorySecrets     Category = "secrets"
	CategoryHosts       Category = "hosts"
	CategoryCredentials Category = "credentials"
	CategoryVulns       Category = "vulns"
)

// Finding はツール出力から正規化された単一の発見物。
// どの種別も最低1つの人間が読める文字列値（Value）を持つ。
type Finding interface {
	Category() Category
	Value() string
}

// URLFinding はクローラー・ファザーが見つけた URL。
type URLFinding struct {
	URL    string `json:"url"`
	Source string `json:"source,omitempty"`
	Tag    string `json:"tag,omitempty"`
	Status *int   `json:"status"`
	Length *int   `json:"length,omitempty"`
}

func (f URLFinding) Category() Category { return CategoryURLs }
func (f URLFinding) Value() string      { return f.URL }

// ParameterFinding は発見された HTTP パラメータ名。
// 呼び出し側との互換のため JSON では素の文字列として出力する。
type ParameterFinding struct {
	Name string
}

func (f ParameterFinding) Category() Category { return CategoryParameters }
func (f ParameterFinding) Value() string      { return f.Name }

// MarshalJSON はパラメータ名を文字列として書き出す。
func (f ParameterFinding) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Name)
}

// FormFinding は HTML フォームを含むページ。
type FormFinding struct {
	URL    string `json:"url"`
	Source string `json:"source,omitempty"`
	Tag    string `json:"tag,omitempty"`
}

func (f FormFinding) Category() Category { return CategoryForms }
func (f FormFinding) Value() string      { return f.URL }

// SecretFinding は応答本文などから見つかった秘密情報（API キー等）。
type SecretFinding struct {
	Secret string `json:"secret"`
	Source string `json:"source,omitempty"`
	Tag    string `json:"tag,omitempty"`
}

func (f SecretFinding) Category() Category { return CategorySecrets }
func (f SecretFinding) Value() string      { return f.Secret }

// HostFinding はホスト・サブドメイン・開放ポート。
type HostFinding struct {
	Host     string `json:"host"`
	IP       string `json:"ip,omitempty"`
	Port     int    `json:"port,omitempty"`
	Protocol string `json:"protocol,omitempty"`
	Service  string `json:"service,omitempty"`
	Banner   string `json:"banner,omitempty"`
}

func (f HostFinding) Category() Category { return CategoryHosts }

// Value はポートがあれば host:port 形式で返す。
func (f HostFinding) Value() string {
	if f.Port > 0 {
		return f.Host + ":" + strconv.Itoa(f.Port)
	}
	return f.Host
}

// CredentialFinding は解析済みハッシュと平文の組。
type CredentialFinding struct {
	Hash  string `json:"hash"`
	Plain string `json:"plain"`
}

func (f CredentialFinding) Category() Category { return CategoryCredentials }

// Value は平文を返す。空パスワードの場合はハッシュを返す。
func (f CredentialFinding) Value() string {
	if f.Plain == "" {
		return f.Hash
	}
	return f.Plain
}

// VulnFinding はテンプレートスキャナが報告した脆弱性。
type VulnFinding struct {
	TemplateID string `json:"template_id"`
	Name       string `json:"name,omitempty"`
	Severity   string `json:"severity,omitempty"`
	MatchedAt  string `json:"matched_at,omitempty"`
}

func (f VulnFinding) Category() Category { return CategoryVulns }

// Value は matched_at があればそれを、なければテンプレート ID を返す。
func (f VulnFinding) Value() string {
	if f.MatchedAt != "" {
		return f.TemplateID + " @ " + f.MatchedAt
	}
	return f.TemplateID
}

// IntPtr は省略可能な数値フィールド用のヘルパー。
func IntPtr(v int) *int { return &v }
