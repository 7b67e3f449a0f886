package agentcore

import (
	"testing"

	"github.com/raven-ai/assistant/pkg/model"
)

func TestPrioritizeToolCallsDefersEdgeCreate(t *testing.T) {
	calls := []model.FunctionCall{
		{Name: "edge", Arguments: `{"action":"create"}`},
		{Name: "node", Arguments: `{"action":"create"}`},
	}
	got := PrioritizeToolCalls(calls)
	if got[0].Name != "node" || got[1].Name != "edge" {
		t.Fatalf("order = %+v, want [node, edge]", got)
	}
}

func TestPrioritizeToolCallsStableForEqualPriority(t *testing.T) {
	calls := []model.FunctionCall{
		{Name: "search", CallID: "1"},
		{Name: "node", CallID: "2"},
		{Name: "edge", Arguments: `{"action":"update"}`, CallID: "3"},
	}
	got := PrioritizeToolCalls(calls)
	for i, c := range calls {
		if got[i].CallID != c.CallID {
			t.Fatalf("order changed for equal-priority calls: got %+v", got)
		}
	}
}

func TestPrioritizeToolCallsMalformedArgumentsTreatedAsNonCreate(t *testing.T) {
	calls := []model.FunctionCall{
		{Name: "edge", Arguments: "not json", CallID: "1"},
		{Name: "node", CallID: "2"},
	}
	got := PrioritizeToolCalls(calls)
	if got[0].CallID != "1" || got[1].CallID != "2" {
		t.Fatalf("malformed args should get priority 0: got %+v", got)
	}
}
