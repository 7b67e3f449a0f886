// Package agentcore implements the Agent Orchestrator (spec.md §4.3, C3):
// one LLM turn that discovers tools from a remote tool server, resolves
// tool-call rounds, and returns a final answer.
package agentcore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/raven-ai/assistant/pkg/metrics"
	"github.com/raven-ai/assistant/pkg/model"
	"github.com/raven-ai/assistant/pkg/tool"
)

// ToolSessionConfig carries everything needed to open a Tool Adapter scope
// for one run (spec.md §6 "mcp" request field).
type ToolSessionConfig = tool.Config

// Request is one agent turn's input (spec.md §6 POST /run body, core subset).
type Request struct {
	Model               string
	Input               any // string or []model.InputItem
	ExtraInstructions    string
	UserName            string
	Temperature         float64
	PreviousResponseID  string
	ToolSession         *ToolSessionConfig

	// MaxTurns optionally caps tool-call resolution rounds. The source
	// system accepts this on the wire without enforcing it (spec.md §9 open
	// question); this implementation treats a positive value as a hard cap
	// and leaves 0/negative as unbounded, see DESIGN.md.
	MaxTurns int
}

// Result is the Agent Orchestrator's return shape (spec.md §4.3 step 6).
type Result struct {
	Output         string
	LastResponseID string
	Context        map[string]any
}

// Orchestrator executes single agent turns against a Model Client, and
// optionally a Tool Adapter session.
type Orchestrator struct {
	Model        model.Client
	PromptCache  *PromptCache

	// Metrics is nil-safe: a zero-value Orchestrator (or one built by tests)
	// runs without recording anything.
	Metrics *metrics.Recorder
}

func New(client model.Client, promptCache *PromptCache) *Orchestrator {
	return &Orchestrator{Model: client, PromptCache: promptCache}
}

// Run executes one full agent turn, implementing the state machine
// Init -> ToolsListed -> ModelCall <-> ToolResolve -> Finalise (spec.md §4.3).
func (o *Orchestrator) Run(ctx context.Context, req Request) (result *Result, err error) {
	start := time.Now()
	defer func() {
		o.Metrics.RecordAgentCall(ctx, req.Model, time.Since(start), err)
	}()

	instructions := BuildInstructions(o.PromptCache.Load(), req.UserName, req.ExtraInstructions)

	var tools []tool.Tool
	var session tool.Session
	if req.ToolSession != nil {
		s, err := tool.Open(ctx, *req.ToolSession)
		if err != nil {
			return nil, fmt.Errorf("agentcore: open tool session: %w", err)
		}
		// Scoped resource: guaranteed release on every exit path below.
		session = s
		defer session.Close()

		listed, err := session.ListTools(ctx)
		if err != nil {
			return nil, fmt.Errorf("agentcore: list tools: %w", err)
		}
		tools = listed
	}

	modelTools := make([]model.ToolDef, len(tools))
	for i, t := range tools {
		modelTools[i] = model.ToolDef{
			Type:        "function",
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Schema,
			// MCP tool schemas aren't guaranteed to mark every property
			// required, and OpenAI strict mode rejects a schema where they
			// aren't — so tool defs stay non-strict, same as the source.
			Strict: false,
		}
	}

	resp, err := o.Model.Parse(ctx, model.Request{
		Model:              req.Model,
		Instructions:       instructions,
		Input:              req.Input,
		Temperature:        req.Temperature,
		Tools:              modelTools,
		ParallelToolCalls:  len(modelTools) > 0,
		PreviousResponseID: req.PreviousResponseID,
		TextFormat:         model.AssistantResponseTextFormat(),
	})
	if err != nil {
		return nil, err
	}

	turns := 0
	for {
		calls := model.FunctionCalls(resp)
		if len(calls) == 0 {
			break
		}
		if req.MaxTurns > 0 && turns >= req.MaxTurns {
			slog.Warn("agentcore: max turns reached, stopping tool resolution", "max_turns", req.MaxTurns)
			break
		}
		turns++

		prioritized := PrioritizeToolCalls(calls)
		var outputs []model.InputItem
		for _, call := range prioritized {
			if call.CallID == "" || call.Name == "" {
				continue // skipped, not fatal (spec.md §4.3 step d)
			}
			args := parseArguments(call.Arguments)
			result, err := session.CallTool(ctx, call.Name, args)
			if err != nil {
				// Tool call failure is non-fatal: surfaced as isError in the
				// output, the model decides how to recover (spec.md §7).
				result = tool.CallResult{IsError: true, Content: map[string]any{"error": err.Error()}}
			}
			payload, _ := json.Marshal(map[string]any{"isError": result.IsError, "content": result.Content})
			outputs = append(outputs, model.FunctionCallOutputItem(call.CallID, string(payload)))
		}

		if len(outputs) == 0 {
			break
		}

		resp, err = o.Model.Parse(ctx, model.Request{
			Model:              req.Model,
			Instructions:       instructions,
			Input:              outputs,
			Temperature:        req.Temperature,
			Tools:              modelTools,
			ParallelToolCalls:  len(modelTools) > 0,
			PreviousResponseID: resp.ID,
			TextFormat:         model.AssistantResponseTextFormat(),
		})
		if err != nil {
			return nil, err
		}
	}

	return &Result{
		Output:         model.ExtractFinalText(resp),
		LastResponseID: resp.ID,
		Context: map[string]any{
			"toolRounds": turns,
			"elapsedAt":  time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}

func parseArguments(raw string) map[string]any {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{} // malformed JSON tolerated (spec.md §7)
	}
	return args
}
