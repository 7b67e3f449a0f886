package model

import (
	"encoding/json"
	"testing"
)

func TestExtractFinalTextPrefersParsed(t *testing.T) {
	parsed, _ := json.Marshal(AssistantResponse{Message: "hi"})
	resp := &Response{OutputParsed: parsed, OutputText: "fallback"}
	if got := ExtractFinalText(resp); got != "hi" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractFinalTextFallsBackToOutputText(t *testing.T) {
	resp := &Response{OutputText: " done "}
	if got := ExtractFinalText(resp); got != "done" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractFinalTextFallsBackToContentBlock(t *testing.T) {
	resp := &Response{
		Output: []OutputItem{
			{Type: "message", ContentTextBlocks: []string{"block answer"}},
		},
	}
	if got := ExtractFinalText(resp); got != "block answer" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractFinalTextEmptyResponse(t *testing.T) {
	if got := ExtractFinalText(&Response{}); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
	if got := ExtractFinalText(nil); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestFunctionCallsPreservesOrder(t *testing.T) {
	resp := &Response{
		Output: []OutputItem{
			{FunctionCall: &FunctionCall{Name: "a"}},
			{Type: "message"},
			{FunctionCall: &FunctionCall{Name: "b"}},
		},
	}
	calls := FunctionCalls(resp)
	if len(calls) != 2 || calls[0].Name != "a" || calls[1].Name != "b" {
		t.Fatalf("calls = %+v", calls)
	}
}
