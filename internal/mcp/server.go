package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/0x6d61/secops-mcp/internal/ops"
)

// maxLineBytes は1メッセージ（1行）の上限。
const maxLineBytes = 16 << 20

// Server は ops.Registry を MCP ツールとして公開する stdio サーバー。
// リクエストは1つずつ順番に処理する。
type Server struct {
	reg     *ops.Registry
	log     logrus.FieldLogger
	name    string
	version string
}

// NewServer は Server を返す。log が nil なら標準ロガーを使う。
func NewServer(reg *ops.Registry, log logrus.FieldLogger, version string) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{reg: reg, log: log, name: "secops-mcp", version: version}
}

// Serve は in から改行区切りの JSON-RPC メッセージを読み、応答を out に書く。
// in が EOF に達するか ctx がキャンセルされると戻る。
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	type scanResult struct {
		line []byte
		err  error
	}
	lines := make(chan scanResult)
	done := make(chan struct{})
	defer close(done)

	// 読み取りはブロックするので別 goroutine で行い、ctx と select する
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- scanResult{line: line}:
			case <-done:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case lines <- scanResult{err: err}:
			case <-done:
			}
		}
	}()

	s.log.WithField("version", s.version).Info("mcp server listening on stdio")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sr, ok := <-lines:
			if !ok {
				s.log.Info("stdin closed, shutting down")
				return nil
			}
			if sr.err != nil {
				return fmt.Errorf("mcp: read request: %w", sr.err)
			}
			if len(sr.line) == 0 {
				continue
			}
			resp := s.handle(ctx, sr.line)
			if resp == nil {
				continue
			}
			data, err := json.Marshal(resp)
			if err != nil {
				return fmt.Errorf("mcp: marshal response: %w", err)
			}
			if _, err := out.Write(append(data, '\n')); err != nil {
				return fmt.Errorf("mcp: write response: %w", err)
			}
		}
	}
}

// handle は1メッセージを処理する。通知には nil を返す。
func (s *Server) handle(ctx context.Context, line []byte) *jsonRPCResponse {
	var req jsonRPCRequest
	if err := json.Unmarshal(line, &req); err != nil {
		s.log.WithError(err).Warn("unparseable message")
		return errorResponse(nil, codeParseError, "parse error: "+err.Error())
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		if req.isNotification() {
			return nil
		}
		return errorResponse(req.ID, codeInvalidRequest, "invalid request")
	}

	log := s.log.WithField("method", req.Method)
	log.Debug("request")

	result, rpcErr := s.dispatch(ctx, req)
	if req.isNotification() {
		return nil
	}
	if rpcErr != nil {
		log.WithField("code", rpcErr.Code).Warn(rpcErr.Message)
		return errorResponse(req.ID, rpcErr.Code, rpcErr.Message)
	}
	data, err := json.Marshal(result)
	if err != nil {
		return errorResponse(req.ID, codeInternalError, err.Error())
	}
	return &jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: data}
}

func (s *Server) dispatch(ctx context.Context, req jsonRPCRequest) (any, *jsonRPCError) {
	switch req.Method {
	case "initialize":
		return map[string]any{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    s.name,
				"version": s.version,
			},
		}, nil
	case "notifications/initialized", "notifications/cancelled":
		return nil, nil
	case "ping":
		return map[string]any{}, nil
	case "tools/list":
		return map[string]any{"tools": s.tools()}, nil
	case "tools/call":
		return s.call(ctx, req.Params)
	}
	return nil, &jsonRPCError{Code: codeMethodNotFound, Message: "method not found: " + req.Method}
}

func (s *Server) tools() []ToolSchema {
	infos := s.reg.List()
	out := make([]ToolSchema, 0, len(infos))
	for _, info := range infos {
		out = append(out, ToolSchema{
			Name:        info.Name,
			Description: info.Description,
			InputSchema: info.InputSchema,
		})
	}
	return out
}

// call は tools/call を ops.Registry に渡す。
// オペレーションの失敗は isError=true の結果で返し、未知のツール名だけを
// プロトコルエラーにする。
func (s *Server) call(ctx context.Context, raw json.RawMessage) (any, *jsonRPCError) {
	var params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if len(raw) == 0 {
		return nil, &jsonRPCError{Code: codeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &jsonRPCError{Code: codeInvalidParams, Message: "invalid params: " + err.Error()}
	}

	resp, err := s.reg.Call(ctx, params.Name, params.Arguments)
	if err != nil {
		if errors.Is(err, ops.ErrUnknownOperation) {
			return nil, &jsonRPCError{Code: codeInvalidParams, Message: err.Error()}
		}
		return nil, &jsonRPCError{Code: codeInternalError, Message: err.Error()}
	}

	text, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return nil, &jsonRPCError{Code: codeInternalError, Message: "marshal result: " + err.Error()}
	}
	return CallResult{
		Content: []ContentBlock{{Type: "text", Text: string(text)}},
		IsError: !resp.Succeeded(),
	}, nil
}

func errorResponse(id json.RawMessage, code int, msg string) *jsonRPCResponse {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return &jsonRPCResponse{JSONRPC: "2.0", ID: id, Error: &jsonRPCError{Code: code, Message: msg}}
}
