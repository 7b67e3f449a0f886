package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/raven-ai/assistant/pkg/agentcore"
	"github.com/raven-ai/assistant/pkg/model"
)

// fakeModelClient returns its responses in order, one per Parse call,
// the same fixture shape pkg/agentcore's own tests use.
type fakeModelClient struct {
	responses []*model.Response
	calls     int
}

func (f *fakeModelClient) Parse(ctx context.Context, req model.Request) (*model.Response, error) {
	resp := f.responses[f.calls]
	f.calls++
	return resp, nil
}

func assistantResponseParsed(t *testing.T, message string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(model.AssistantResponse{Message: message})
	require.NoError(t, err)
	return raw
}

func newTestAgentServer(client model.Client) *AgentServer {
	factory := func(apiKey, baseURL string, timeoutMs int) model.Client { return client }
	return NewAgentServer(factory, agentcore.NewPromptCache("/nonexistent/prompt.txt"), "")
}

func TestHandleRunHappyPath(t *testing.T) {
	fake := &fakeModelClient{responses: []*model.Response{
		{ID: "resp_1", OutputParsed: assistantResponseParsed(t, "hi there")},
	}}
	srv := newTestAgentServer(fake)

	body := `{"apiKey":"sk-test","model":"gpt-5.2","input":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/run", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp runResponseBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "hi there", resp.Output)
	require.Equal(t, "resp_1", resp.LastResponseID)
}

func TestHandleRunMissingAPIKeyReturnsBadRequest(t *testing.T) {
	srv := newTestAgentServer(&fakeModelClient{})

	body := `{"model":"gpt-5.2","input":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/run", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRunInvalidBodyReturnsBadRequest(t *testing.T) {
	srv := newTestAgentServer(&fakeModelClient{})

	req := httptest.NewRequest(http.MethodPost, "/run", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()

	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	srv := newTestAgentServer(&fakeModelClient{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleGetAndSetPrompt(t *testing.T) {
	srv := newTestAgentServer(&fakeModelClient{})

	getReq := httptest.NewRequest(http.MethodGet, "/prompt", nil)
	getRec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)

	// PromptFilePath is empty in this fixture, so writes are rejected rather
	// than silently succeeding against a file nobody configured.
	setReq := httptest.NewRequest(http.MethodPost, "/prompt", bytes.NewBufferString(`{"prompt":"new prompt"}`))
	setRec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(setRec, setReq)
	require.Equal(t, http.StatusServiceUnavailable, setRec.Code)
}
