package learner

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/raven-ai/assistant/pkg/config"
	"github.com/raven-ai/assistant/pkg/model"
	"github.com/raven-ai/assistant/pkg/skill"
)

type scriptedModelClient struct {
	responses []*model.Response
	calls     int
}

func (s *scriptedModelClient) Parse(ctx context.Context, req model.Request) (*model.Response, error) {
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

func structuredResponse(id string, payload any) *model.Response {
	raw, _ := json.Marshal(payload)
	return &model.Response{ID: id, OutputParsed: raw}
}

type fakeEmbedder struct{ vector []float32 }

func (f fakeEmbedder) Embed(ctx context.Context, text string) []float32 { return f.vector }
func (f fakeEmbedder) Dimension() int                                   { return len(f.vector) }
func (f fakeEmbedder) ModelName() string                                { return "fake" }

type recordingStore struct {
	inserted       *skill.Definition
	insertedEmbedding []float32
	patchedRunID   string
	patchedSkillID string
	nearestSkill   *skill.Skill
	nearestDistance float64
	nearestFound   bool
}

func (r *recordingStore) FindNearest(ctx context.Context, userID string, embedding []float32) (*skill.Skill, float64, bool, error) {
	return r.nearestSkill, r.nearestDistance, r.nearestFound, nil
}
func (r *recordingStore) LoadSkill(ctx context.Context, id, userID string) (*skill.Skill, error) { return nil, nil }
func (r *recordingStore) LoadVersion(ctx context.Context, versionID string) (*skill.Version, error) {
	return nil, nil
}
func (r *recordingStore) InsertSkill(ctx context.Context, userID string, def skill.Definition, embedding []float32) (*skill.Skill, *skill.Version, error) {
	r.inserted = &def
	r.insertedEmbedding = embedding
	return &skill.Skill{ID: "new-skill", ActiveVersionID: "v1"}, &skill.Version{ID: "v1", Version: 1}, nil
}
func (r *recordingStore) SaveMerge(ctx context.Context, skillID string, def skill.Definition, embedding []float32) (*skill.Skill, *skill.Version, error) {
	return &skill.Skill{ID: skillID, ActiveVersionID: "v2"}, &skill.Version{ID: "v2", Version: 2}, nil
}
func (r *recordingStore) SaveFix(ctx context.Context, skillID string, steps []skill.Step) (*skill.Version, error) {
	return nil, nil
}
func (r *recordingStore) InsertRun(ctx context.Context, run *skill.Run) error { return nil }
func (r *recordingStore) PatchRunSkill(ctx context.Context, runID, userID, skillID, versionID string) error {
	r.patchedRunID = runID
	r.patchedSkillID = skillID
	return nil
}
func (r *recordingStore) GetRun(ctx context.Context, runID, userID string) (*skill.Run, error) {
	return nil, nil
}
func (r *recordingStore) UpdateRunFeedback(ctx context.Context, runID, userID string, rating skill.FeedbackRating, text string) error {
	return nil
}
func (r *recordingStore) ListSkills(ctx context.Context, userID string) ([]*skill.Skill, error) {
	return nil, nil
}
func (r *recordingStore) DeleteSkill(ctx context.Context, skillID string) error { return nil }
func (r *recordingStore) RepointRuns(ctx context.Context, fromSkillIDs []string, toSkillID, toVersionID string) error {
	return nil
}

// TestLearnerMissThenInsert is spec.md's S5 scenario: no matching skill
// exists, decomposition + generalisation succeed with a score above
// threshold, so a new v1 skill is inserted and the run is patched.
func TestLearnerMissThenInsert(t *testing.T) {
	draft := draftResult{
		Name: "summarise-document", Description: "Summarise a document", Entrypoint: "summarise doc {doc_id}",
		Steps: []draftStep{{Title: "Read document", Instructions: "Read {doc_id}"}, {Title: "Summarise", Instructions: "Summarise the contents"}},
	}
	generalized := generalizedResult{
		Name: draft.Name, Description: draft.Description, Entrypoint: draft.Entrypoint, Steps: draft.Steps,
		Parameters:          []draftParameter{{Name: "doc_id"}},
		Preconditions:       []string{"document is accessible"},
		SuccessCriteria:     []string{"summary covers key points"},
		GeneralizationScore: 0.82,
	}

	modelClient := &scriptedModelClient{responses: []*model.Response{
		structuredResponse("resp-1", draft),
		structuredResponse("resp-2", generalized),
	}}
	store := &recordingStore{nearestFound: false}
	l := New(modelClient, fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}}, store, config.Defaults().Thresholds, config.Defaults().Caps)

	err := l.Run(context.Background(), Request{UserID: "U", RunID: "run-1", UserQuery: "Summarise doc X", BaseOutput: "Here is the summary..."})
	require.NoError(t, err)
	require.NotNil(t, store.inserted)
	require.InDelta(t, 0.82, store.inserted.GeneralizationScore, 0.0001)
	require.Equal(t, "run-1", store.patchedRunID)
	require.Equal(t, "new-skill", store.patchedSkillID)
}

func TestLearnerDropsBelowGeneralizationThreshold(t *testing.T) {
	draft := draftResult{Name: "one-off-task", Entrypoint: "do the specific thing", Steps: []draftStep{{Title: "x", Instructions: "do it"}}}
	generalized := generalizedResult{Name: draft.Name, Entrypoint: draft.Entrypoint, Steps: draft.Steps, GeneralizationScore: 0.3}

	modelClient := &scriptedModelClient{responses: []*model.Response{
		structuredResponse("resp-1", draft),
		structuredResponse("resp-2", generalized),
	}}
	store := &recordingStore{}
	l := New(modelClient, fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}}, store, config.Defaults().Thresholds, config.Defaults().Caps)

	err := l.Run(context.Background(), Request{UserID: "U", RunID: "run-2", UserQuery: "do something one-off"})
	require.NoError(t, err)
	require.Nil(t, store.inserted)
	require.Empty(t, store.patchedRunID)
}

func TestLearnerMergesWhenCandidateIsCloseEnough(t *testing.T) {
	draft := draftResult{
		Name: "send-report", Entrypoint: "send {team} report",
		Steps: []draftStep{{Title: "Gather metrics", Instructions: "Pull metrics for the team"}, {Title: "Send", Instructions: "Send the report"}},
	}
	generalized := generalizedResult{
		Name: draft.Name, Entrypoint: draft.Entrypoint, Steps: draft.Steps,
		Parameters: []draftParameter{{Name: "team"}}, GeneralizationScore: 0.8,
	}
	modelClient := &scriptedModelClient{responses: []*model.Response{
		structuredResponse("resp-1", draft),
		structuredResponse("resp-2", generalized),
	}}

	existing := &skill.Skill{
		ID: "existing-skill", ActiveVersionID: "v1", Embedding: []float32{1, 0, 0},
		GeneralizationScore: 0.75, Parameters: []skill.Parameter{{Name: "team"}},
	}
	store := &recordingStore{nearestFound: true, nearestSkill: existing, nearestDistance: 0.05}
	l := New(modelClient, fakeEmbedder{vector: []float32{1, 0, 0}}, store, config.Defaults().Thresholds, config.Defaults().Caps)

	err := l.Run(context.Background(), Request{UserID: "U", RunID: "run-3", UserQuery: "send the infra team report"})
	require.NoError(t, err)
	require.Equal(t, "run-3", store.patchedRunID)
	require.Equal(t, "existing-skill", store.patchedSkillID)
}
