package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
)

// ErrClientClosed はクローズ後、またはサーバー側ストリーム終了後の呼び出しで返る。
var ErrClientClosed = errors.New("mcp: client is closed")

// Client は secops-mcp の stdio サーバーに JSON-RPC 2.0 で話しかける。
// doctor の自己診断とテストで使う。
//
// 読み取りは readLoop ゴルーチン 1 本が担い、id ごとの待ち受けチャネルへ配る。
// そのため複数ゴルーチンから同時に呼び出してよい。
type Client struct {
	w  io.WriteCloser
	r  io.ReadCloser
	wm sync.Mutex // 書き込みの排他

	mu      sync.Mutex
	seq     int64
	pending map[string]chan jsonRPCResponse
	done    chan struct{}
	readErr error
	once    sync.Once
}

// NewClient はサーバーの stdin（w）と stdout（r）からクライアントを作り、読み取りを開始する。
func NewClient(w io.WriteCloser, r io.ReadCloser) *Client {
	c := &Client{
		w:       w,
		r:       r,
		pending: make(map[string]chan jsonRPCResponse),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Initialize はハンドシェイクを行い serverInfo などを返す。
// 応答を受けてから notifications/initialized を送る。
func (c *Client) Initialize(ctx context.Context) (map[string]any, error) {
	var info map[string]any
	err := c.call(ctx, "initialize", map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "secops-mcp-doctor", "version": "0"},
	}, &info)
	if err != nil {
		return nil, err
	}
	if err := c.write(map[string]any{"jsonrpc": "2.0", "method": "notifications/initialized"}); err != nil {
		return nil, fmt.Errorf("mcp: initialized notification: %w", err)
	}
	return info, nil
}

// Ping は生存確認。
func (c *Client) Ping(ctx context.Context) error {
	return c.call(ctx, "ping", nil, nil)
}

// ListTools は公開中のオペレーション一覧を取る。
func (c *Client) ListTools(ctx context.Context) ([]ToolSchema, error) {
	var resp struct {
		Tools []ToolSchema `json:"tools"`
	}
	if err := c.call(ctx, "tools/list", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tools, nil
}

// CallTool は name を args で呼び出す。
// オペレーション側の失敗は isError=true の結果として返り、error にはならない。
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*CallResult, error) {
	params := map[string]any{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	var res CallResult
	if err := c.call(ctx, "tools/call", params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Close は両方のストリームを閉じる。サーバーは stdin の EOF で Serve を抜ける。
func (c *Client) Close() error {
	c.shutdown(ErrClientClosed)
	werr := c.w.Close()
	rerr := c.r.Close()
	return errors.Join(werr, rerr)
}

// call は 1 往復を行い、result を out にデコードする（out が nil なら捨てる）。
// サーバーのエラー応答は *jsonRPCError として返す。
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	id, ch, err := c.register()
	if err != nil {
		return err
	}
	defer c.unregister(id)

	req := jsonRPCRequest{JSONRPC: "2.0", ID: json.RawMessage(id), Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("mcp: %s: marshal params: %w", method, err)
		}
		req.Params = raw
	}
	if err := c.write(req); err != nil {
		return fmt.Errorf("mcp: %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return fmt.Errorf("mcp: %s: %w", method, c.err())
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("mcp: %s: decode result: %w", method, err)
		}
		return nil
	}
}

func (c *Client) register() (string, chan jsonRPCResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		return "", nil, c.readErr
	default:
	}
	c.seq++
	id := strconv.FormatInt(c.seq, 10)
	ch := make(chan jsonRPCResponse, 1)
	c.pending[id] = ch
	return id, ch, nil
}

func (c *Client) unregister(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) write(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	c.wm.Lock()
	defer c.wm.Unlock()
	if _, err := c.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// readLoop はストリーム終了まで応答を読み、id が一致する待ち手に渡す。
// JSON でない行と、待ち手のいない id は読み飛ばす。
func (c *Client) readLoop() {
	sc := bufio.NewScanner(c.r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var resp jsonRPCResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[string(resp.ID)]
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
	err := sc.Err()
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	c.shutdown(err)
}

func (c *Client) shutdown(err error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.readErr = err
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *Client) err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}
