package tool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFilterAllowed(t *testing.T) {
	tools := []Tool{{Name: "node"}, {Name: "edge"}, {Name: "search"}}

	if got := FilterAllowed(tools, nil); len(got) != 3 {
		t.Fatalf("nil allowlist should pass everything, got %d", len(got))
	}
	if got := FilterAllowed(tools, []string{"  ", ""}); len(got) != 3 {
		t.Fatalf("whitespace-only allowlist should pass everything, got %d", len(got))
	}
	got := FilterAllowed(tools, []string{"node"})
	if len(got) != 1 || got[0].Name != "node" {
		t.Fatalf("expected only node, got %+v", got)
	}
}

func newFakeToolServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonRPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("mcp-session-id", "sess-1")
		w.Header().Set("Content-Type", "application/json")

		var result any
		switch req.Method {
		case "initialize":
			result = map[string]any{}
		case "list_tools":
			result = map[string]any{
				"tools": []map[string]any{
					{"name": "node", "description": "create a node", "inputSchema": map[string]any{}},
				},
			}
		case "call_tool":
			result = map[string]any{"isError": false, "structuredContent": map[string]any{"ok": true}}
		}
		raw, _ := json.Marshal(result)
		resp := jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: raw}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestHTTPSessionListAndCallTool(t *testing.T) {
	srv := newFakeToolServer(t)
	defer srv.Close()

	sess, err := Open(context.Background(), Config{Transport: "http", URL: srv.URL})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sess.Close()

	tools, err := sess.ListTools(context.Background())
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "node" {
		t.Fatalf("tools = %+v", tools)
	}
	if tools[0].Schema["type"] != "object" {
		t.Fatalf("expected normalized schema, got %+v", tools[0].Schema)
	}

	result, err := sess.CallTool(context.Background(), "node", map[string]any{"title": "Test"})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error result")
	}
}
