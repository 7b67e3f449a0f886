package agentcore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/raven-ai/assistant/pkg/model"
)

type fakeModelClient struct {
	calls     int
	responses []*model.Response
}

func (f *fakeModelClient) Parse(ctx context.Context, req model.Request) (*model.Response, error) {
	resp := f.responses[f.calls]
	f.calls++
	return resp, nil
}

func assistantResponseParsed(t *testing.T, message string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(model.AssistantResponse{Message: message})
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestRunHappyPathNoTools(t *testing.T) {
	fake := &fakeModelClient{responses: []*model.Response{
		{ID: "resp_1", OutputParsed: assistantResponseParsed(t, "hi")},
	}}
	orch := New(fake, NewPromptCache("/nonexistent/prompt.txt"))

	result, err := orch.Run(context.Background(), Request{Model: "gpt-5.2", Input: "hello"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Output != "hi" {
		t.Fatalf("output = %q", result.Output)
	}
	if result.LastResponseID != "resp_1" {
		t.Fatalf("last response id = %q", result.LastResponseID)
	}
	if fake.calls != 1 {
		t.Fatalf("expected exactly one model call, got %d", fake.calls)
	}
}

func TestRunToolLoop(t *testing.T) {
	var toolCalls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			ID     int64  `json:"id"`
			Params struct {
				Name string `json:"name"`
			} `json:"params"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Method == "call_tool" {
			toolCalls = append(toolCalls, req.Params.Name)
		}
		w.Header().Set("Content-Type", "application/json")
		var result any
		switch req.Method {
		case "call_tool":
			result = map[string]any{"isError": false, "structuredContent": map[string]any{"ok": true}}
		default:
			result = map[string]any{"tools": []map[string]any{
				{"name": "node", "description": "create node", "inputSchema": map[string]any{}},
			}}
		}
		raw, _ := json.Marshal(result)
		json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": json.RawMessage(raw)})
	}))
	defer srv.Close()

	callArgs, _ := json.Marshal(map[string]any{"title": "Test", "x": 1, "y": 2})
	fake := &fakeModelClient{responses: []*model.Response{
		{ID: "resp_1", Output: []model.OutputItem{
			{Type: "function_call", FunctionCall: &model.FunctionCall{CallID: "call_1", Name: "node", Arguments: string(callArgs)}},
		}},
		{ID: "resp_2", OutputParsed: assistantResponseParsed(t, "done")},
	}}
	orch := New(fake, NewPromptCache("/nonexistent/prompt.txt"))

	result, err := orch.Run(context.Background(), Request{
		Model:       "gpt-5.2",
		Input:       "build a node",
		ToolSession: &ToolSessionConfig{Transport: "http", URL: srv.URL},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Output != "done" {
		t.Fatalf("output = %q", result.Output)
	}
	if len(toolCalls) != 1 || toolCalls[0] != "node" {
		t.Fatalf("tool calls = %v, want exactly one call to node", toolCalls)
	}
}

func TestBuildInstructions(t *testing.T) {
	got := BuildInstructions("be helpful", "Ada", "extra context")
	want := "be helpful\nThe user name is \"Ada\".\nextra context"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestBuildInstructionsOmitsEmptyParts(t *testing.T) {
	got := BuildInstructions("be helpful", "", "  ")
	if got != "be helpful" {
		t.Fatalf("got %q", got)
	}
}
