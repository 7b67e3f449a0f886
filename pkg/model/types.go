// Package model implements the Model Client (spec.md §4.2, C2): a single
// parse() operation against an LLM's structured-output API.
package model

import "encoding/json"

// ToolDef is one tool schema exposed to the model, built from a normalized
// pkg/tool.Tool.
type ToolDef struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Strict      bool           `json:"strict,omitempty"`
}

// InputItem is one element of a parse() call's input list: either a plain
// message, or a function_call_output fed back after resolving tool calls.
type InputItem struct {
	Type      string `json:"type,omitempty"`
	Role      string `json:"role,omitempty"`
	Content   string `json:"content,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	Output    string `json:"output,omitempty"`
}

// TextFormat requests a JSON-Schema-constrained structured response.
type TextFormat struct {
	Name   string
	Schema map[string]any
	Strict bool
}

// Request is the single Model Client operation's input (spec.md §4.2).
type Request struct {
	Model               string
	Instructions        string
	Input               any // string or []InputItem
	Temperature         float64
	Tools               []ToolDef
	ParallelToolCalls   bool
	PreviousResponseID  string
	TextFormat          *TextFormat
}

// FunctionCall is an LLM-requested tool invocation.
type FunctionCall struct {
	CallID    string
	Name      string
	Arguments string // raw JSON object text; spec.md §4.3 tolerates malformed JSON here
}

// OutputItem is one element of a Response's output list, mirroring the
// tagged-variant approach Design Notes call for (spec.md §9). OpenAIClient
// sets FunctionCall for function_call items and fills ContentTextBlocks for
// other items; it does not set OutputText.
type OutputItem struct {
	Type         string
	FunctionCall *FunctionCall
	OutputText   string
	// ContentTextBlocks holds output_text blocks nested inside a message's
	// content array, the fallback source for final-text extraction.
	ContentTextBlocks []string
}

// Response is the Model Client's single return shape.
type Response struct {
	ID           string
	OutputParsed json.RawMessage
	OutputText   string
	Output       []OutputItem
}

// AssistantResponse is the structured-output shape requested via
// TextFormat for plain (non-tool) turns; Message is the final answer.
type AssistantResponse struct {
	Message string `json:"message"`
}

// UpstreamError carries a transport-layer failure from the LLM vendor,
// propagated with its original status (spec.md §4.2, §7).
type UpstreamError struct {
	Status  int
	Code    string
	Message string
}

func (e *UpstreamError) Error() string {
	return "model: upstream error " + e.Code + ": " + e.Message
}
