package tool

import (
	"context"
	"encoding/json"
	"fmt"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// stdioSession wraps an mcp-go client talking to a locally launched tool
// server subprocess, used for local/dev tool servers per SPEC_FULL.md §11.
type stdioSession struct {
	cfg    Config
	client *mcpclient.Client
}

func openStdioSession(ctx context.Context, cfg Config) (Session, error) {
	if cfg.Command == "" {
		return nil, &ConfigError{Message: "tool: stdio transport requires a command"}
	}
	c, err := mcpclient.NewStdioMCPClient(cfg.Command, cfg.Env, cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("tool: start stdio server: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "assistant", Version: "0.1.0"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return nil, fmt.Errorf("tool: initialize stdio server: %w", err)
	}
	return &stdioSession{cfg: cfg, client: c}, nil
}

func (s *stdioSession) ListTools(ctx context.Context) ([]Tool, error) {
	res, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("tool: list_tools: %w", err)
	}
	tools := make([]Tool, 0, len(res.Tools))
	for _, t := range res.Tools {
		schema := convertInputSchema(t.InputSchema)
		tools = append(tools, Tool{
			Name:        t.Name,
			Description: t.Description,
			Schema:      NormalizeSchema(schema),
		})
	}
	return FilterAllowed(tools, s.cfg.AllowedTools), nil
}

func (s *stdioSession) CallTool(ctx context.Context, name string, args map[string]any) (CallResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := s.client.CallTool(ctx, req)
	if err != nil {
		return CallResult{}, fmt.Errorf("tool: call_tool %s: %w", name, err)
	}

	if res.StructuredContent != nil {
		return CallResult{IsError: res.IsError, Content: res.StructuredContent}, nil
	}
	var texts []string
	for _, block := range res.Content {
		if tc, ok := mcp.AsTextContent(block); ok {
			texts = append(texts, tc.Text)
		}
	}
	var content any = texts
	if len(texts) == 1 {
		content = texts[0]
	}
	return CallResult{IsError: res.IsError, Content: content}, nil
}

func (s *stdioSession) Close() error {
	return s.client.Close()
}

// convertInputSchema round-trips mcp.ToolInputSchema through JSON to get a
// plain map[string]any, the way mcptoolset.go's convertSchema does.
func convertInputSchema(schema mcp.ToolInputSchema) map[string]any {
	raw, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}
