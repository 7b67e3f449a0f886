package model

import (
	"context"
	"encoding/json"
	"strings"
)

// Client is the Model Client contract the Agent Orchestrator calls against.
// Parse issues one structured-output request and returns the raw Response;
// callers inspect Output for function calls or extract final text.
type Client interface {
	Parse(ctx context.Context, req Request) (*Response, error)
}

// ExtractFinalText is the total function over Response spec.md §4.3 step 5
// and §8 testable property 4 describe: prefer the parsed
// AssistantResponse.message, else OutputText, else the first output_text
// block nested in the output items, else "".
func ExtractFinalText(resp *Response) string {
	if resp == nil {
		return ""
	}
	if len(resp.OutputParsed) > 0 {
		var parsed AssistantResponse
		if err := json.Unmarshal(resp.OutputParsed, &parsed); err == nil && parsed.Message != "" {
			return strings.TrimSpace(parsed.Message)
		}
	}
	if resp.OutputText != "" {
		return strings.TrimSpace(resp.OutputText)
	}
	for _, item := range resp.Output {
		for _, block := range item.ContentTextBlocks {
			if block != "" {
				return strings.TrimSpace(block)
			}
		}
	}
	return ""
}

// FunctionCalls returns the function_call items present in resp.Output, in
// their original order (spec.md §4.3 step 4a).
func FunctionCalls(resp *Response) []FunctionCall {
	if resp == nil {
		return nil
	}
	var calls []FunctionCall
	for _, item := range resp.Output {
		if item.FunctionCall != nil {
			calls = append(calls, *item.FunctionCall)
		}
	}
	return calls
}
