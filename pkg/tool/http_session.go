package tool

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/raven-ai/assistant/pkg/httpclient"
)

// jsonRPCRequest/Response mirror the streamable tool-server wire protocol
// (spec.md §6): JSON-RPC 2.0 framed over a single HTTP session that may
// reply with a plain JSON body or a text/event-stream.
type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonRPCError   `json:"error,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type httpSession struct {
	cfg       Config
	client    *httpclient.Client
	sessionID string
	mu        sync.Mutex
	nextID    atomic.Int64
}

func openHTTPSession(ctx context.Context, cfg Config) (Session, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, &ConfigError{Message: "tool: http transport requires a URL"}
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s := &httpSession{
		cfg:    cfg,
		client: httpclient.New(httpclient.WithHTTPClient(&http.Client{Timeout: timeout})),
	}
	s.sessionID = cfg.SessionID

	if _, err := s.call(ctx, "initialize", map[string]any{}); err != nil {
		return nil, fmt.Errorf("tool: initialize: %w", err)
	}
	return s, nil
}

func (s *httpSession) ListTools(ctx context.Context) ([]Tool, error) {
	raw, err := s.call(ctx, "list_tools", map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("tool: list_tools: %w", err)
	}
	var payload struct {
		Tools []struct {
			Name        string         `json:"name"`
			Description string         `json:"description"`
			InputSchema map[string]any `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("tool: decode list_tools result: %w", err)
	}
	tools := make([]Tool, 0, len(payload.Tools))
	for _, t := range payload.Tools {
		tools = append(tools, Tool{
			Name:        t.Name,
			Description: t.Description,
			Schema:      NormalizeSchema(t.InputSchema),
		})
	}
	return FilterAllowed(tools, s.cfg.AllowedTools), nil
}

func (s *httpSession) CallTool(ctx context.Context, name string, args map[string]any) (CallResult, error) {
	raw, err := s.call(ctx, "call_tool", map[string]any{"name": name, "arguments": args})
	if err != nil {
		return CallResult{}, fmt.Errorf("tool: call_tool %s: %w", name, err)
	}
	var payload struct {
		IsError           bool            `json:"isError"`
		StructuredContent json.RawMessage `json:"structuredContent"`
		Content           json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return CallResult{}, fmt.Errorf("tool: decode call_tool result: %w", err)
	}
	// structuredContent preferred over content blocks, per spec.md §6.
	var content any
	switch {
	case len(payload.StructuredContent) > 0:
		_ = json.Unmarshal(payload.StructuredContent, &content)
	case len(payload.Content) > 0:
		_ = json.Unmarshal(payload.Content, &content)
	}
	return CallResult{IsError: payload.IsError, Content: content}, nil
}

func (s *httpSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = ""
	return nil
}

func (s *httpSession) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	req := jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      s.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{
		"Accept": "application/json, text/event-stream",
	}
	if s.cfg.Token != "" {
		headers["Authorization"] = "Bearer " + s.cfg.Token
	}
	if s.cfg.UserID != "" {
		headers["x-user-id"] = s.cfg.UserID
	}
	s.mu.Lock()
	sid := s.sessionID
	s.mu.Unlock()
	if sid != "" {
		headers["mcp-session-id"] = sid
	}

	resp, err := s.client.PostJSON(ctx, s.cfg.URL, body, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if newSid := resp.Header.Get("mcp-session-id"); newSid != "" {
		s.mu.Lock()
		s.sessionID = newSid
		s.mu.Unlock()
	}

	contentType := resp.Header.Get("Content-Type")
	var rpcResp jsonRPCResponse
	if strings.Contains(contentType, "text/event-stream") {
		rpcResp, err = readSSEResponse(ctx, resp.Body)
	} else {
		err = json.NewDecoder(resp.Body).Decode(&rpcResp)
	}
	if err != nil {
		return nil, err
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("jsonrpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

// readSSEResponse reads "data:" lines until a blank-line-delimited event is
// complete and decodes the accumulated payload as one JSON-RPC response.
func readSSEResponse(ctx context.Context, body io.Reader) (jsonRPCResponse, error) {
	scanner := bufio.NewScanner(body)
	var data bytes.Buffer
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return jsonRPCResponse{}, ctx.Err()
		default:
		}
		line := scanner.Text()
		if line == "" {
			if data.Len() > 0 {
				break
			}
			continue
		}
		if after, ok := strings.CutPrefix(line, "data:"); ok {
			data.WriteString(strings.TrimPrefix(after, " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return jsonRPCResponse{}, err
	}
	var resp jsonRPCResponse
	if err := json.Unmarshal(data.Bytes(), &resp); err != nil {
		return jsonRPCResponse{}, fmt.Errorf("tool: decode sse event: %w", err)
	}
	return resp, nil
}
