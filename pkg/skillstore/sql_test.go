package skillstore

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/raven-ai/assistant/pkg/skill"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := Open(context.Background(), db, "sqlite", NoopIndex{})
	require.NoError(t, err)
	return store
}

func testDefinition() skill.Definition {
	return skill.Definition{
		Name:        "send-weekly-report",
		Description: "Compile and send the weekly status report",
		Entrypoint:  "send my weekly report",
		Steps: []skill.Step{
			{Title: "Gather metrics", Instructions: "Pull metrics for {team}"},
			{Title: "Send email", Instructions: "Email the summary to {recipient}"},
		},
		Parameters:      []skill.Parameter{{Name: "team"}, {Name: "recipient"}},
		Preconditions:   []string{"user has access to metrics dashboard"},
		SuccessCriteria: []string{"email sent without error"},
	}
}

func TestInsertAndLoadSkill(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sk, v, err := store.InsertSkill(ctx, "user-1", testDefinition(), []float32{0.1, 0.2, 0.3})
	require.NoError(t, err)
	require.Equal(t, 1, v.Version)
	require.Equal(t, sk.ActiveVersionID, v.ID)

	loaded, err := store.LoadSkill(ctx, sk.ID, "user-1")
	require.NoError(t, err)
	require.Equal(t, "send-weekly-report", loaded.Name)
	require.Len(t, loaded.Parameters, 2)
	require.Len(t, loaded.Preconditions, 1)
	// The embedding must round-trip through LoadSkill: retriever.Find relies
	// on it to take the cosine-similarity path instead of the distance-only
	// fallback.
	require.Equal(t, []float32{0.1, 0.2, 0.3}, loaded.Embedding)

	loadedVersion, err := store.LoadVersion(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, loadedVersion.Steps, 2)
	require.Equal(t, "Gather metrics", loadedVersion.Steps[0].Title)
}

func TestLoadSkillMissingReturnsNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.LoadSkill(context.Background(), "does-not-exist", "user-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSaveMergeBumpsVersionAndUpdatesMetadata(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sk, _, err := store.InsertSkill(ctx, "user-1", testDefinition(), nil)
	require.NoError(t, err)

	merged := testDefinition()
	merged.Description = "Compile and send the weekly status report, now covering two teams"
	merged.GeneralizationScore = 0.82

	updatedSkill, v2, err := store.SaveMerge(ctx, sk.ID, merged, []float32{0.2, 0.3, 0.4})
	require.NoError(t, err)
	require.Equal(t, 2, v2.Version)
	require.Equal(t, v2.ID, updatedSkill.ActiveVersionID)
	require.InDelta(t, 0.82, updatedSkill.GeneralizationScore, 0.0001)
	require.Equal(t, []float32{0.2, 0.3, 0.4}, updatedSkill.Embedding)

	v1, err := store.LoadVersion(ctx, sk.ActiveVersionID)
	require.NoError(t, err)
	require.Equal(t, 1, v1.Version)
}

func TestSaveFixInsertsVersionAndRepointsActive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sk, _, err := store.InsertSkill(ctx, "user-1", testDefinition(), nil)
	require.NoError(t, err)

	fixedSteps := []skill.Step{
		{Title: "Gather metrics", Instructions: "Pull metrics for {team} from the corrected dashboard"},
		{Title: "Send email", Instructions: "Email the summary to {recipient}"},
	}
	v2, err := store.SaveFix(ctx, sk.ID, fixedSteps)
	require.NoError(t, err)
	require.Equal(t, 2, v2.Version)

	updated, err := store.LoadSkill(ctx, sk.ID, "user-1")
	require.NoError(t, err)
	require.Equal(t, v2.ID, updated.ActiveVersionID)
}

func TestRunLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := &skill.Run{UserID: "user-1", Input: "send my weekly report for infra"}
	require.NoError(t, store.InsertRun(ctx, run))
	require.NotEmpty(t, run.ID)

	sk, v, err := store.InsertSkill(ctx, "user-1", testDefinition(), nil)
	require.NoError(t, err)
	require.NoError(t, store.PatchRunSkill(ctx, run.ID, "user-1", sk.ID, v.ID))

	loaded, err := store.GetRun(ctx, run.ID, "user-1")
	require.NoError(t, err)
	require.NotNil(t, loaded.SkillID)
	require.Equal(t, sk.ID, *loaded.SkillID)

	require.NoError(t, store.UpdateRunFeedback(ctx, run.ID, "user-1", skill.FeedbackNegative, "step 2 used the wrong recipient"))
	loaded, err = store.GetRun(ctx, run.ID, "user-1")
	require.NoError(t, err)
	require.Equal(t, skill.FeedbackNegative, loaded.FeedbackRating)
	require.NotNil(t, loaded.FeedbackAt)
}

func TestGetRunMissingReturnsNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetRun(context.Background(), "nope", "user-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListSkillsScopedToUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.InsertSkill(ctx, "user-1", testDefinition(), nil)
	require.NoError(t, err)
	_, _, err = store.InsertSkill(ctx, "user-2", testDefinition(), nil)
	require.NoError(t, err)

	skills, err := store.ListSkills(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, skills, 1)
	require.Equal(t, "user-1", skills[0].UserID)
}

func TestDeleteSkillRemovesRowAndVersions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sk, _, err := store.InsertSkill(ctx, "user-1", testDefinition(), nil)
	require.NoError(t, err)

	require.NoError(t, store.DeleteSkill(ctx, sk.ID))

	_, err = store.LoadSkill(ctx, sk.ID, "user-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRepointRunsRewritesSkillReferences(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	from, fromV, err := store.InsertSkill(ctx, "user-1", testDefinition(), nil)
	require.NoError(t, err)
	to, toV, err := store.InsertSkill(ctx, "user-1", testDefinition(), nil)
	require.NoError(t, err)

	run := &skill.Run{UserID: "user-1", Input: "send my weekly report", SkillID: &from.ID, SkillVersionID: &fromV.ID}
	require.NoError(t, store.InsertRun(ctx, run))

	require.NoError(t, store.RepointRuns(ctx, []string{from.ID}, to.ID, toV.ID))

	loaded, err := store.GetRun(ctx, run.ID, "user-1")
	require.NoError(t, err)
	require.NotNil(t, loaded.SkillID)
	require.Equal(t, to.ID, *loaded.SkillID)
}
