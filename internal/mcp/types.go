// Package mcp は MCP (Model Context Protocol) でオペレーションを公開する。
// JSON-RPC 2.0 over stdio（改行区切り）のサーバーと、同じプロトコルを話す
// クライアントを持つ。
package mcp

import (
	"encoding/json"
	"fmt"
)

// ProtocolVersion はサーバーが名乗る MCP のプロトコルバージョン。
const ProtocolVersion = "2024-11-05"

// JSON-RPC 2.0 のエラーコード
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// ToolSchema は tools/list レスポンスにおけるツール定義
type ToolSchema struct {
	// Name はツールの一意な名前
	Name string `json:"name"`
	// Description はツールの説明
	Description string `json:"description"`
	// InputSchema はツール引数の JSON Schema
	InputSchema map[string]any `json:"inputSchema"`
}

// CallResult は tools/call の実行結果
type CallResult struct {
	// Content はレスポンスのコンテンツブロック群
	Content []ContentBlock `json:"content"`
	// IsError はオペレーションが失敗 Envelope を返したかどうか
	IsError bool `json:"isError,omitempty"`
}

// Text は text ブロックを連結して返す。
func (r CallResult) Text() string {
	var s string
	for _, b := range r.Content {
		if b.Type == "text" {
			s += b.Text
		}
	}
	return s
}

// ContentBlock はレスポンス内の単一コンテンツブロック
type ContentBlock struct {
	// Type はコンテンツの種類（このサーバーは "text" のみ返す）
	Type string `json:"type"`
	// Text はテキストコンテンツ
	Text string `json:"text,omitempty"`
}

// JSON-RPC 2.0 メッセージ型。id は数値・文字列どちらも来るので生のまま持つ。

type jsonRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// isNotification は id を持たない（レスポンス不要の）メッセージか判定する。
func (r jsonRPCRequest) isNotification() bool {
	return len(r.ID) == 0
}

type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonRPCError   `json:"error,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *jsonRPCError) Error() string {
	return fmt.Sprintf("JSON-RPC error %d: %s", e.Code, e.Message)
}
