package server

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/raven-ai/assistant/pkg/agentcore"
	"github.com/raven-ai/assistant/pkg/config"
	"github.com/raven-ai/assistant/pkg/model"
	"github.com/raven-ai/assistant/pkg/skillstore"
)

func newTestSkillEngineServer(t *testing.T, client model.Client) *SkillEngineServer {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := skillstore.Open(context.Background(), db, "sqlite", skillstore.NoopIndex{})
	require.NoError(t, err)

	factory := func(apiKey, baseURL string, timeoutMs int) model.Client { return client }

	// A nil Embedder makes retriever.Find report a miss unconditionally, so
	// these tests exercise runBaseSolution without needing a populated
	// catalogue or a real embedding backend.
	return NewSkillEngineServer(factory, agentcore.NewPromptCache("/nonexistent/prompt.txt"), store, nil, config.Thresholds{}, config.Caps{}, context.Background())
}

func TestSkillEngineHandleRunMissFallsBackToBaseSolution(t *testing.T) {
	fake := &fakeModelClient{responses: []*model.Response{
		{ID: "resp_1", OutputParsed: assistantResponseParsed(t, "base output")},
	}}
	srv := newTestSkillEngineServer(t, fake)

	body := `{"apiKey":"sk-test","model":"gpt-5.2","input":"do a thing","userId":"user-1"}`
	req := httptest.NewRequest(http.MethodPost, "/run", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	// The Learner runs in a detached goroutine rooted on srv.RootCtx; give
	// it a moment to finish before the store closes, since its errors are
	// only logged and the handler response has already returned by then.
	time.Sleep(50 * time.Millisecond)
}

func TestSkillEngineHandleRunMissingUserIDReturnsBadRequest(t *testing.T) {
	srv := newTestSkillEngineServer(t, &fakeModelClient{})

	body := `{"apiKey":"sk-test","model":"gpt-5.2","input":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/run", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSkillEngineHandleHealth(t *testing.T) {
	srv := newTestSkillEngineServer(t, &fakeModelClient{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
