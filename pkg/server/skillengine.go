package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/raven-ai/assistant/pkg/agentcore"
	"github.com/raven-ai/assistant/pkg/config"
	"github.com/raven-ai/assistant/pkg/embedder"
	"github.com/raven-ai/assistant/pkg/executor"
	"github.com/raven-ai/assistant/pkg/feedback"
	"github.com/raven-ai/assistant/pkg/learner"
	"github.com/raven-ai/assistant/pkg/metrics"
	"github.com/raven-ai/assistant/pkg/model"
	"github.com/raven-ai/assistant/pkg/retriever"
	"github.com/raven-ai/assistant/pkg/skill"
	"github.com/raven-ai/assistant/pkg/skillstore"
	"github.com/raven-ai/assistant/pkg/tool"
)

// skillRunRequestBody is POST /run's wire shape for the Skill Engine: the
// Agent's shape plus userId/threadId/sessionId (spec.md §6).
type skillRunRequestBody struct {
	runRequestBody
	UserID    string `json:"userId"`
	ThreadID  string `json:"threadId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

type skillRunResponseBody struct {
	runResponseBody
	Skill skillResultBody `json:"skill"`
}

type skillResultBody struct {
	RunID          string  `json:"runId"`
	SkillID        *string `json:"skillId,omitempty"`
	SkillVersionID *string `json:"skillVersionId,omitempty"`
	Found          bool    `json:"found"`
}

type feedbackRequestBody struct {
	APIKey        string `json:"apiKey"`
	Model         string `json:"model"`
	UserID        string `json:"userId"`
	RunID         string `json:"runId"`
	Rating        string `json:"rating"`
	Feedback      string `json:"feedback,omitempty"`
	OpenAIBaseURL string `json:"openaiBaseUrl,omitempty"`
}

type feedbackResponseBody struct {
	RunID        string `json:"runId"`
	Updated      bool   `json:"updated"`
	SkillID      string `json:"skillId,omitempty"`
	SkillVersion string `json:"skillVersionId,omitempty"`
	NewVersionID string `json:"newVersionId,omitempty"`
}

// SkillEngineServer implements the Skill Engine HTTP surface (spec.md §6):
// retrieval-gated execution, the async Learner, and Feedback Repair.
//
// RootCtx roots the Learner's detached goroutine so a disconnecting caller
// does not cancel an in-flight learn attempt (spec.md §5, §9); it must
// outlive any individual request, so the caller wires in the process's
// background context, not a per-request one.
type SkillEngineServer struct {
	NewModelClient ModelClientFactory
	PromptCache    *agentcore.PromptCache
	Store          skillstore.Store
	Embedder       embedder.Provider
	Thresholds     config.Thresholds
	Caps           config.Caps
	RootCtx        context.Context
	Metrics        *metrics.Recorder
}

func NewSkillEngineServer(factory ModelClientFactory, promptCache *agentcore.PromptCache, store skillstore.Store, e embedder.Provider, thresholds config.Thresholds, caps config.Caps, rootCtx context.Context) *SkillEngineServer {
	return &SkillEngineServer{
		NewModelClient: factory, PromptCache: promptCache, Store: store, Embedder: e,
		Thresholds: thresholds, Caps: caps, RootCtx: rootCtx,
	}
}

func (s *SkillEngineServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, instrumentation)
	r.Post("/run", s.handleRun)
	r.Post("/feedback", s.handleFeedback)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metricsHandler())
	return r
}

func (s *SkillEngineServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *SkillEngineServer) handleRun(w http.ResponseWriter, r *http.Request) {
	var body skillRunRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body", "message": err.Error()})
		return
	}
	if strings.TrimSpace(body.APIKey) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "detail": "openai_key_required"})
		return
	}
	if strings.TrimSpace(body.UserID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "detail": "user_id_required"})
		return
	}
	input, err := decodeInput(body.Input)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_input", "message": err.Error()})
		return
	}
	inputText, _ := input.(string)

	client := s.NewModelClient(body.APIKey, body.OpenAIBaseURL, body.OpenAITimeoutMs)
	orch := agentcore.New(client, s.PromptCache)
	orch.Metrics = s.Metrics

	var toolCfg *tool.Config
	if body.MCP != nil {
		toolCfg = &tool.Config{
			Transport: "http", URL: body.MCP.URL, Token: body.MCP.Token,
			SessionID: body.MCP.SessionID, UserID: body.MCP.UserID, AllowedTools: body.MCP.AllowedTools,
		}
	}

	ret := retriever.New(s.Embedder, s.Store, s.Thresholds)
	match, found, err := ret.Find(r.Context(), body.UserID, inputText)
	if err != nil {
		writeError(w, err)
		return
	}

	if found {
		s.runSkillHit(w, r, orch, match, body, inputText, toolCfg)
		return
	}
	s.runBaseSolution(w, r, orch, client, body, input, inputText, toolCfg)
}

func (s *SkillEngineServer) runSkillHit(w http.ResponseWriter, r *http.Request, orch *agentcore.Orchestrator, match retriever.Match, body skillRunRequestBody, inputText string, toolCfg *tool.Config) {
	version, err := s.Store.LoadVersion(r.Context(), match.Skill.ActiveVersionID)
	if err != nil {
		writeError(w, err)
		return
	}

	ex := executor.New(orch)
	result, err := ex.Run(r.Context(), executor.Request{
		Model: body.Model, Skill: match.Skill, Version: version,
		UserName: body.UserName, Input: inputText, ToolSession: toolCfg,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	run := &skill.Run{
		UserID: body.UserID, ThreadID: body.ThreadID, SessionID: body.SessionID,
		Input: inputText, StepResults: result.StepResults,
		SkillID: &match.Skill.ID, SkillVersionID: &version.ID,
	}
	if err := s.Store.InsertRun(r.Context(), run); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, skillRunResponseBody{
		runResponseBody: runResponseBody{Output: result.FinalOutput},
		Skill: skillResultBody{
			RunID: run.ID, SkillID: &match.Skill.ID, SkillVersionID: &version.ID, Found: true,
		},
	})
}

// runBaseSolution handles a retrieval miss: one Agent Orchestrator call,
// persisted as an unlinked run, followed by a detached Learner attempt
// (spec.md §4.8 intro, §6).
func (s *SkillEngineServer) runBaseSolution(w http.ResponseWriter, r *http.Request, orch *agentcore.Orchestrator, client model.Client, body skillRunRequestBody, input any, inputText string, toolCfg *tool.Config) {
	result, err := orch.Run(r.Context(), agentcore.Request{
		Model: body.Model, Input: input, ExtraInstructions: body.Instructions,
		UserName: body.UserName, Temperature: body.Temperature, MaxTurns: body.MaxTurns,
		ToolSession: toolCfg,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	run := &skill.Run{
		UserID: body.UserID, ThreadID: body.ThreadID, SessionID: body.SessionID,
		Input: inputText,
		StepResults: []skill.StepResult{
			{Index: 0, Title: "base", Output: result.Output},
		},
	}
	if err := s.Store.InsertRun(r.Context(), run); err != nil {
		writeError(w, err)
		return
	}

	toolTrace := ""
	if rounds, ok := result.Context["toolRounds"]; ok {
		toolTrace = fmt.Sprintf("tool rounds: %v", rounds)
	}

	l := learner.New(client, s.Embedder, s.Store, s.Thresholds, s.Caps)
	l.Metrics = s.Metrics
	l.Dispatch(s.RootCtx, learner.Request{
		UserID: body.UserID, RunID: run.ID, ModelName: body.Model,
		UserQuery: inputText, BaseOutput: result.Output, ToolTraceSummary: toolTrace,
	})

	writeJSON(w, http.StatusOK, skillRunResponseBody{
		runResponseBody: runResponseBody{Output: result.Output, LastResponseID: result.LastResponseID, Context: result.Context},
		Skill:           skillResultBody{RunID: run.ID, Found: false},
	})
}

func (s *SkillEngineServer) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var body feedbackRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body", "message": err.Error()})
		return
	}
	if strings.TrimSpace(body.APIKey) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "detail": "openai_key_required"})
		return
	}

	client := s.NewModelClient(body.APIKey, body.OpenAIBaseURL, 0)
	repair := feedback.New(client, s.Store, s.Caps)

	result, err := repair.Run(r.Context(), feedback.Request{
		RunID: body.RunID, UserID: body.UserID, ModelName: body.Model,
		Rating: skill.FeedbackRating(body.Rating), Text: body.Feedback,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, feedbackResponseBody{
		RunID: body.RunID, Updated: result.Updated, SkillID: result.SkillID,
		SkillVersion: result.VersionID, NewVersionID: result.NewVersionID,
	})
}
