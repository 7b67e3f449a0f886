package agentcore

import (
	"encoding/json"
	"sort"

	"github.com/raven-ai/assistant/pkg/model"
)

// PrioritizeToolCalls stably sorts calls so that any "edge" call whose
// arguments carry action=="create" runs after everything else: entities
// that reference ids (edges) must run after the entities that mint those
// ids (nodes) (spec.md §4.3 step c, §8 testable property 2).
//
// The sort is stable: for calls of equal priority, output order equals
// input order.
func PrioritizeToolCalls(calls []model.FunctionCall) []model.FunctionCall {
	out := make([]model.FunctionCall, len(calls))
	copy(out, calls)

	sort.SliceStable(out, func(i, j int) bool {
		return callPriority(out[i]) < callPriority(out[j])
	})
	return out
}

func callPriority(call model.FunctionCall) int {
	if call.Name != "edge" {
		return 0
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return 0
	}
	if action, _ := args["action"].(string); action == "create" {
		return 10
	}
	return 0
}
