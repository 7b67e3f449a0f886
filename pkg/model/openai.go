package model

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/raven-ai/assistant/pkg/httpclient"
)

// openAIResponsesRequest mirrors the Responses API "parse" request shape
// (grounded on the teacher's pkg/llms/openai.go request type).
type openAIResponsesRequest struct {
	Model               string                 `json:"model"`
	Input               any                    `json:"input"`
	Instructions        string                 `json:"instructions,omitempty"`
	Temperature         *float64               `json:"temperature,omitempty"`
	Tools               []openAIResponsesTool  `json:"tools,omitempty"`
	ParallelToolCalls   *bool                  `json:"parallel_tool_calls,omitempty"`
	PreviousResponseID  string                 `json:"previous_response_id,omitempty"`
	Store               bool                   `json:"store"`
	Text                *openAITextFormat      `json:"text,omitempty"`
}

type openAIResponsesTool struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Strict      bool           `json:"strict,omitempty"`
}

type openAITextFormat struct {
	Format *openAIJSONSchemaFormat `json:"format"`
}

type openAIJSONSchemaFormat struct {
	Type   string         `json:"type"`
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type openAIContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type openAIOutputItem struct {
	Type      string                `json:"type"`
	ID        string                `json:"id,omitempty"`
	Role      string                `json:"role,omitempty"`
	CallID    string                `json:"call_id,omitempty"`
	Name      string                `json:"name,omitempty"`
	Arguments string                `json:"arguments,omitempty"`
	Content   []openAIContentBlock  `json:"content,omitempty"`
}

type openAIResponse struct {
	ID           string             `json:"id"`
	OutputParsed json.RawMessage    `json:"output_parsed,omitempty"`
	OutputText   string             `json:"output_text,omitempty"`
	Output       []openAIOutputItem `json:"output"`
}

type openAIErrorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// OpenAIClient implements Client against the OpenAI Responses API.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	http    *httpclient.Client
}

// NewOpenAIClient builds a Client. timeout bounds each parse() call
// (spec.md §5 "LLM call uses a configurable timeout").
func NewOpenAIClient(apiKey, baseURL string, timeout time.Duration, maxRetries int) *OpenAIClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		http: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: timeout}),
			httpclient.WithMaxRetries(maxRetries),
		),
	}
}

func (c *OpenAIClient) Parse(ctx context.Context, req Request) (*Response, error) {
	body := openAIResponsesRequest{
		Model:              req.Model,
		Input:              req.Input,
		Instructions:       req.Instructions,
		PreviousResponseID: req.PreviousResponseID,
		Store:              true,
	}
	if req.Temperature != 0 {
		t := req.Temperature
		body.Temperature = &t
	}
	if len(req.Tools) > 0 {
		body.Tools = make([]openAIResponsesTool, len(req.Tools))
		for i, t := range req.Tools {
			body.Tools[i] = openAIResponsesTool{
				Type:        "function",
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
				Strict:      t.Strict,
			}
		}
		parallel := req.ParallelToolCalls
		body.ParallelToolCalls = &parallel
	}
	if req.TextFormat != nil {
		body.Text = &openAITextFormat{Format: &openAIJSONSchemaFormat{
			Type:   "json_schema",
			Name:   req.TextFormat.Name,
			Strict: req.TextFormat.Strict,
			Schema: req.TextFormat.Schema,
		}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("model: marshal request: %w", err)
	}

	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	resp, err := c.http.PostJSON(ctx, c.baseURL+"/responses", payload, headers)
	if err != nil {
		return nil, fmt.Errorf("model: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope openAIErrorEnvelope
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		return nil, &UpstreamError{
			Status:  resp.StatusCode,
			Code:    envelope.Error.Code,
			Message: envelope.Error.Message,
		}
	}

	var raw openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("model: decode response: %w", err)
	}
	return translateResponse(raw), nil
}

func translateResponse(raw openAIResponse) *Response {
	out := &Response{
		ID:           raw.ID,
		OutputParsed: raw.OutputParsed,
		OutputText:   raw.OutputText,
	}
	for _, item := range raw.Output {
		switch item.Type {
		case "function_call":
			out.Output = append(out.Output, OutputItem{
				Type: item.Type,
				FunctionCall: &FunctionCall{
					CallID:    item.CallID,
					Name:      item.Name,
					Arguments: item.Arguments,
				},
			})
		default:
			o := OutputItem{Type: item.Type}
			for _, block := range item.Content {
				if block.Type == "output_text" {
					o.ContentTextBlocks = append(o.ContentTextBlocks, block.Text)
				}
			}
			out.Output = append(out.Output, o)
		}
	}
	return out
}

// FunctionCallOutputItem builds the function_call_output input item the
// Agent Orchestrator feeds back after resolving a tool call (spec.md §4.3
// step 4d).
func FunctionCallOutputItem(callID, output string) InputItem {
	return InputItem{Type: "function_call_output", CallID: callID, Output: output}
}
