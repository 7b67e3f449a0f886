package server

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkoukk/tiktoken-go"

	"github.com/raven-ai/assistant/pkg/agentcore"
	"github.com/raven-ai/assistant/pkg/metrics"
	"github.com/raven-ai/assistant/pkg/model"
	"github.com/raven-ai/assistant/pkg/tool"
)

// runRequestBody is the wire shape of POST /run (spec.md §6).
type runRequestBody struct {
	APIKey          string          `json:"apiKey"`
	Model           string          `json:"model"`
	Input           json.RawMessage `json:"input"`
	Instructions    string          `json:"instructions,omitempty"`
	UserName        string          `json:"userName,omitempty"`
	Temperature     float64         `json:"temperature,omitempty"`
	OpenAIBaseURL   string          `json:"openaiBaseUrl,omitempty"`
	OpenAITimeoutMs int             `json:"openaiTimeoutMs,omitempty"`
	MaxTurns        int             `json:"maxTurns,omitempty"`
	MCP             *mcpRequest     `json:"mcp,omitempty"`
}

type mcpRequest struct {
	URL          string   `json:"url"`
	Token        string   `json:"token,omitempty"`
	SessionID    string   `json:"sessionId,omitempty"`
	UserID       string   `json:"userId,omitempty"`
	AllowedTools []string `json:"allowedTools,omitempty"`
}

type runResponseBody struct {
	Output         string         `json:"output"`
	LastResponseID string         `json:"lastResponseId,omitempty"`
	Context        map[string]any `json:"context,omitempty"`
}

// ModelClientFactory builds a Model Client for one request, given the
// caller-supplied API key/base URL (spec.md §6: these are per-request, not
// process-wide configuration).
type ModelClientFactory func(apiKey, baseURL string, timeoutMs int) model.Client

// AgentServer implements the Agent HTTP surface (spec.md §6).
type AgentServer struct {
	NewModelClient ModelClientFactory
	PromptCache    *agentcore.PromptCache
	PromptFilePath string
	Metrics        *metrics.Recorder
}

func NewAgentServer(factory ModelClientFactory, promptCache *agentcore.PromptCache, promptFilePath string) *AgentServer {
	return &AgentServer{NewModelClient: factory, PromptCache: promptCache, PromptFilePath: promptFilePath}
}

func (s *AgentServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, instrumentation)
	r.Post("/run", s.handleRun)
	r.Post("/context", s.handleContext)
	r.Get("/prompt", s.handleGetPrompt)
	r.Post("/prompt", s.handleSetPrompt)
	r.Get("/prompt/ui", s.handlePromptUI)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metricsHandler())
	return r
}

func (s *AgentServer) handleRun(w http.ResponseWriter, r *http.Request) {
	var body runRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body", "message": err.Error()})
		return
	}
	if strings.TrimSpace(body.APIKey) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "detail": "openai_key_required"})
		return
	}

	input, err := decodeInput(body.Input)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_input", "message": err.Error()})
		return
	}

	client := s.NewModelClient(body.APIKey, body.OpenAIBaseURL, body.OpenAITimeoutMs)
	orch := agentcore.New(client, s.PromptCache)
	orch.Metrics = s.Metrics

	req := agentcore.Request{
		Model: body.Model, Input: input, ExtraInstructions: body.Instructions,
		UserName: body.UserName, Temperature: body.Temperature, MaxTurns: body.MaxTurns,
	}
	if body.MCP != nil {
		req.ToolSession = &tool.Config{
			Transport: "http", URL: body.MCP.URL, Token: body.MCP.Token,
			SessionID: body.MCP.SessionID, UserID: body.MCP.UserID, AllowedTools: body.MCP.AllowedTools,
		}
	}

	result, err := orch.Run(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, runResponseBody{
		Output: result.Output, LastResponseID: result.LastResponseID, Context: result.Context,
	})
}

func decodeInput(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var items []model.InputItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// handleContext is a token-accounting advisory (non-core, spec.md §6).
func (s *AgentServer) handleContext(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Model string `json:"model"`
		Text  string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body", "message": err.Error()})
		return
	}
	enc, err := tiktoken.EncodingForModel(body.Model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	count := 0
	if err == nil {
		count = len(enc.Encode(body.Text, nil, nil))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokenCount": count, "model": body.Model})
}

func (s *AgentServer) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"prompt": s.PromptCache.Load()})
}

func (s *AgentServer) handleSetPrompt(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body", "message": err.Error()})
		return
	}
	if s.PromptFilePath == "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "prompt_file_not_configured"})
		return
	}
	if err := os.WriteFile(s.PromptFilePath, []byte(body.Prompt), 0o644); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "write_failed", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

// handlePromptUI serves a minimal editor page for the prompt file, grounded
// on the teacher's embedded static/index.html pattern.
func (s *AgentServer) handlePromptUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(promptEditorHTML)
}

func (s *AgentServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
