package main

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/raven-ai/assistant/pkg/config"
	"github.com/raven-ai/assistant/pkg/embedder"
	"github.com/raven-ai/assistant/pkg/skill"
	"github.com/raven-ai/assistant/pkg/skillstore"
)

func vec(values ...float32) []float32 {
	return values
}

// newCandidate builds a reprocessed skill whose single step differs from
// another candidate's only in the id, so two candidates share 4 of 6 tokens
// and StepSimilarity is about 0.67. With eps 0.05 and threshold 0.75 that
// never decides a merge on its own: a pair merges exactly when its embedding
// cosine similarity is at least 0.70, so clustering decisions in these tests
// are driven by the cosine similarity.
func newCandidate(id string, score float64, createdAt time.Time, embedding []float32) *reprocessed {
	return &reprocessed{
		sk: &skill.Skill{
			ID:                  id,
			GeneralizationScore: score,
			CreatedAt:           createdAt,
		},
		steps: []skill.Step{
			{Title: id, Instructions: "step unique to candidate " + id},
		},
		embedding: embedding,
	}
}

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.Thresholds.MergeSimilarity = 0.75
	cfg.Thresholds.MergeSimilarityEps = 0.05
	return cfg
}

func TestClusterGroupsNearDuplicatesTogether(t *testing.T) {
	now := time.Now()
	a := newCandidate("a", 0.8, now, vec(1, 0, 0))
	b := newCandidate("b", 0.8, now, vec(0.99, 0.01, 0))
	c := newCandidate("c", 0.8, now, vec(0, 1, 0))

	groups := cluster([]*reprocessed{a, b, c}, testConfig())

	require.Len(t, groups, 2)
	sizes := map[int]int{}
	for _, g := range groups {
		sizes[len(g)]++
	}
	require.Equal(t, 1, sizes[2], "expected one cluster of size 2 (a, b)")
	require.Equal(t, 1, sizes[1], "expected one singleton cluster (c)")
}

func TestClusterIsTransitiveAcrossSharedMembers(t *testing.T) {
	// a sits 40 degrees from b, and b sits 40 degrees from c, so each
	// adjacent pair clears the merge threshold — but a and c are 80 degrees
	// apart and would not merge directly. Union-find must still fold all
	// three into one cluster through the shared member b.
	now := time.Now()
	a := newCandidate("a", 0.8, now, vec(1, 0))
	b := newCandidate("b", 0.8, now, vec(0.766, 0.643))
	c := newCandidate("c", 0.8, now, vec(0.174, 0.985))

	require.Less(t, dot(a.embedding, c.embedding), float32(0.70), "a-c must not clear the threshold directly")

	groups := cluster([]*reprocessed{a, b, c}, testConfig())

	require.Len(t, groups, 1)
	require.Len(t, groups[0], 3)
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func TestClusterLeavesDissimilarSkillsUngrouped(t *testing.T) {
	now := time.Now()
	a := newCandidate("a", 0.8, now, vec(1, 0, 0))
	b := newCandidate("b", 0.8, now, vec(0, 1, 0))

	groups := cluster([]*reprocessed{a, b}, testConfig())

	require.Len(t, groups, 2)
	for _, g := range groups {
		require.Len(t, g, 1)
	}
}

func TestPickBasePrefersHighestGeneralizationScore(t *testing.T) {
	now := time.Now()
	low := newCandidate("low", 0.5, now, nil)
	high := newCandidate("high", 0.9, now, nil)

	base, others := pickBase([]*reprocessed{low, high})

	require.Equal(t, "high", base.sk.ID)
	require.Len(t, others, 1)
	require.Equal(t, "low", others[0].sk.ID)
}

func newTestStore(t *testing.T) skillstore.Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := skillstore.Open(context.Background(), db, "sqlite", skillstore.NoopIndex{})
	require.NoError(t, err)
	return store
}

func testDefinitionFor(name string) skill.Definition {
	return skill.Definition{
		Name:        name,
		Description: "Compile and send the weekly status report",
		Entrypoint:  "send my weekly report",
		Steps: []skill.Step{
			{Title: "Gather metrics", Instructions: "Pull metrics for {team}"},
			{Title: "Send email", Instructions: "Email the summary to {recipient}"},
		},
		Parameters:      []skill.Parameter{{Name: "team"}},
		SuccessCriteria: []string{"email sent without error"},
	}
}

func TestMergeClusterFoldsOthersIntoBaseAndRepointsRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	emb := embedder.NewStubEmbedder(16)

	baseSk, baseVersion, err := store.InsertSkill(ctx, "user-1", testDefinitionFor("weekly-report-a"), []float32{0.1})
	require.NoError(t, err)
	otherSk, otherVersion, err := store.InsertSkill(ctx, "user-1", testDefinitionFor("weekly-report-b"), []float32{0.2})
	require.NoError(t, err)

	run := &skill.Run{
		UserID: "user-1", Input: "send my weekly report",
		SkillID: &otherSk.ID, SkillVersionID: &otherVersion.ID,
	}
	require.NoError(t, store.InsertRun(ctx, run))

	base := &reprocessed{sk: baseSk, steps: baseVersion.Steps, embedding: []float32{0.1}}
	other := &reprocessed{sk: otherSk, steps: otherVersion.Steps, embedding: []float32{0.2}}

	err = mergeCluster(ctx, store, base, []*reprocessed{other}, emb, config.Defaults().Caps)
	require.NoError(t, err)

	_, err = store.LoadSkill(ctx, otherSk.ID, "user-1")
	require.ErrorIs(t, err, skillstore.ErrNotFound, "merged skill should be deleted")

	reloadedBase, err := store.LoadSkill(ctx, baseSk.ID, "user-1")
	require.NoError(t, err)
	require.NotEqual(t, baseSk.ActiveVersionID, reloadedBase.ActiveVersionID, "merge should bump the base's active version")
}

func TestMergeClusterSingletonStillRefreshesEmbedding(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	emb := embedder.NewStubEmbedder(16)

	sk, version, err := store.InsertSkill(ctx, "user-1", testDefinitionFor("solo-skill"), []float32{0.1})
	require.NoError(t, err)

	base := &reprocessed{sk: sk, steps: version.Steps, embedding: []float32{0.1}}

	err = mergeCluster(ctx, store, base, nil, emb, config.Defaults().Caps)
	require.NoError(t, err)

	reloaded, err := store.LoadSkill(ctx, sk.ID, "user-1")
	require.NoError(t, err)
	require.NotEqual(t, sk.ActiveVersionID, reloaded.ActiveVersionID, "even a singleton cluster should bump to a re-embedded version")
}

func TestPickBaseTiebreaksOnEarliestCreatedAt(t *testing.T) {
	earlier := time.Now().Add(-time.Hour)
	later := time.Now()
	a := newCandidate("a", 0.8, later, nil)
	b := newCandidate("b", 0.8, earlier, nil)

	base, others := pickBase([]*reprocessed{a, b})

	require.Equal(t, "b", base.sk.ID)
	require.Len(t, others, 1)
	require.Equal(t, "a", others[0].sk.ID)
}
