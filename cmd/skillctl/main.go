// Command skillctl is the operator CLI for the Skill Engine's catalogue:
// today, one subcommand, reprocess, which re-embeds and re-clusters a
// user's skills offline, folding near-duplicates together the same way the
// Learner would have at insert time (spec.md §4.8 step 8-9), grounded on
// the reference reprocessing script's union-find clustering pass.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"

	"github.com/raven-ai/assistant/pkg/config"
	"github.com/raven-ai/assistant/pkg/embedder"
	"github.com/raven-ai/assistant/pkg/learner"
	"github.com/raven-ai/assistant/pkg/logger"
	"github.com/raven-ai/assistant/pkg/skill"
	"github.com/raven-ai/assistant/pkg/skillstore"
	"github.com/raven-ai/assistant/pkg/wiring"
)

// CLI defines the skillctl command-line interface.
type CLI struct {
	Reprocess ReprocessCmd `cmd:"" help:"Re-embed and re-cluster one user's skill catalogue."`

	Config string `short:"c" help:"Path to YAML config file." type:"path"`
}

// ReprocessCmd re-embeds every skill a user owns and merges clusters of
// near-duplicates, the offline counterpart to the Learner's online
// merge-or-insert decision (spec.md §4.8).
type ReprocessCmd struct {
	UserID string `required:"" help:"User whose skills should be reprocessed."`
	DryRun bool   `help:"Report the clusters that would be merged without writing anything."`
}

// reprocessed is one skill's recomputed embedding/steps, held in memory
// only long enough to cluster and merge (mirrors ReprocessedSkill in the
// reference script).
type reprocessed struct {
	sk        *skill.Skill
	steps     []skill.Step
	embedding []float32
}

func (c *ReprocessCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("skillctl: load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("skillctl: invalid config: %w", err)
	}
	logger.Init(logger.ParseLevel(cfg.LogLevel), os.Stderr)

	ctx := context.Background()
	store, closeStore, _, err := wiring.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	emb := wiring.NewEmbedder(cfg)

	skills, err := store.ListSkills(ctx, c.UserID)
	if err != nil {
		return fmt.Errorf("skillctl: list skills: %w", err)
	}
	if len(skills) == 0 {
		fmt.Println("No skills found.")
		return nil
	}

	// Re-embedding a catalogue's worth of skills is one independent I/O call
	// per skill, so it fans out on an errgroup the same way the reference
	// parallel-agent pattern runs independent branches concurrently: each
	// slot is written by exactly one goroutine, so no mutex is needed.
	slots := make([]*reprocessed, len(skills))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, sk := range skills {
		i, sk := i, sk
		group.Go(func() error {
			steps, err := loadSteps(groupCtx, store, sk)
			if err != nil {
				return fmt.Errorf("load steps for %s: %w", sk.ID, err)
			}
			def := definitionOf(sk, steps)
			vec := emb.Embed(groupCtx, learner.CanonicalText(def))
			if vec == nil {
				fmt.Printf("skipping %s: embedding unavailable\n", sk.ID)
				return nil
			}
			slots[i] = &reprocessed{sk: sk, steps: steps, embedding: vec}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return fmt.Errorf("skillctl: reprocess embeddings: %w", err)
	}

	candidates := make([]*reprocessed, 0, len(skills))
	for _, c := range slots {
		if c != nil {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		fmt.Println("No skills reprocessed (embedding failed).")
		return nil
	}

	clusters := cluster(candidates, cfg)

	merged := 0
	for _, group := range clusters {
		base, others := pickBase(group)
		if c.DryRun {
			fmt.Printf("cluster base=%s members=%d\n", base.sk.ID, len(group))
			continue
		}
		if err := mergeCluster(ctx, store, base, others, emb, cfg.Caps); err != nil {
			return fmt.Errorf("skillctl: merge cluster (base %s): %w", base.sk.ID, err)
		}
		merged += len(others)
	}

	fmt.Printf("Reprocessed skills: %d clusters=%d merged=%d\n", len(candidates), len(clusters), merged)
	return nil
}

func loadSteps(ctx context.Context, store skillstore.Store, sk *skill.Skill) ([]skill.Step, error) {
	if sk.ActiveVersionID == "" {
		return nil, nil
	}
	v, err := store.LoadVersion(ctx, sk.ActiveVersionID)
	if err != nil {
		if err == skillstore.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return v.Steps, nil
}

func definitionOf(sk *skill.Skill, steps []skill.Step) skill.Definition {
	return skill.Definition{
		Name:                sk.Name,
		Description:         sk.Description,
		Entrypoint:          sk.EntrypointText,
		Steps:               steps,
		Parameters:          sk.Parameters,
		Preconditions:       sk.Preconditions,
		SuccessCriteria:     sk.SuccessCriteria,
		Examples:            sk.Examples,
		GeneralizationScore: sk.GeneralizationScore,
	}
}

// cluster groups candidates with a union-find over pairwise merge scores,
// the same CombinedMergeScore/StepSimilarity math the Learner applies at
// insert time (spec.md §4.8 step 8).
func cluster(items []*reprocessed, cfg config.Config) [][]*reprocessed {
	n := len(items)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	eps := cfg.Thresholds.MergeSimilarityEps
	if eps == 0 {
		eps = 0.05
	}
	threshold := cfg.Thresholds.MergeSimilarity
	if threshold <= 0 {
		threshold = 0.75
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			similarity := embedder.CosineSimilarity(items[i].embedding, items[j].embedding)
			stepSim := learner.StepSimilarity(items[i].steps, items[j].steps)
			score := learner.CombinedMergeScore(similarity, stepSim, eps)
			if score >= threshold {
				union(i, j)
			}
		}
	}

	groups := map[int][]*reprocessed{}
	for i, item := range items {
		root := find(i)
		groups[root] = append(groups[root], item)
	}

	out := make([][]*reprocessed, 0, len(groups))
	for _, g := range groups {
		out = append(out, g)
	}
	return out
}

// pickBase chooses the cluster member with the highest generalisation
// score, earliest created_at as tiebreak, matching the reference script's
// merge-target selection so reprocessing is idempotent run to run.
func pickBase(group []*reprocessed) (*reprocessed, []*reprocessed) {
	sorted := append([]*reprocessed{}, group...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].sk.GeneralizationScore != sorted[j].sk.GeneralizationScore {
			return sorted[i].sk.GeneralizationScore > sorted[j].sk.GeneralizationScore
		}
		return sorted[i].sk.CreatedAt.Before(sorted[j].sk.CreatedAt)
	})
	base := sorted[0]
	others := make([]*reprocessed, 0, len(sorted)-1)
	for _, item := range sorted[1:] {
		others = append(others, item)
	}
	return base, others
}

// mergeCluster folds every non-base member's metadata into the base's
// definition (keeping the base's own steps as the canonical procedure),
// re-embeds the merged definition, saves it as a new version of the base
// skill, repoints the merged skills' runs, and deletes them — always
// running even for a singleton cluster, so a reprocess refreshes every
// skill's embedding against the current canonical-text format.
func mergeCluster(ctx context.Context, store skillstore.Store, base *reprocessed, others []*reprocessed, emb embedder.Provider, caps config.Caps) error {
	merged := definitionOf(base.sk, base.steps)

	for _, item := range others {
		folded := learner.MergeDefinition(base.sk, base.steps, definitionOf(item.sk, item.steps), caps)
		merged.Parameters = folded.Parameters
		merged.Preconditions = folded.Preconditions
		merged.SuccessCriteria = folded.SuccessCriteria
		merged.Examples = folded.Examples
		if folded.GeneralizationScore > merged.GeneralizationScore {
			merged.GeneralizationScore = folded.GeneralizationScore
		}
		base.sk.Parameters = merged.Parameters
		base.sk.Preconditions = merged.Preconditions
		base.sk.SuccessCriteria = merged.SuccessCriteria
		base.sk.Examples = merged.Examples
		base.sk.GeneralizationScore = merged.GeneralizationScore
	}
	merged.Steps = base.steps // the base's procedure stays canonical; only metadata unions

	newEmbedding := emb.Embed(ctx, learner.CanonicalText(merged))
	if newEmbedding == nil {
		newEmbedding = base.embedding
	}

	_, newVersion, err := store.SaveMerge(ctx, base.sk.ID, merged, newEmbedding)
	if err != nil {
		return fmt.Errorf("save merge: %w", err)
	}

	if len(others) == 0 {
		return nil
	}

	mergedIDs := make([]string, len(others))
	for i, item := range others {
		mergedIDs[i] = item.sk.ID
	}
	if err := store.RepointRuns(ctx, mergedIDs, base.sk.ID, newVersion.ID); err != nil {
		return fmt.Errorf("repoint runs: %w", err)
	}
	for _, id := range mergedIDs {
		if err := store.DeleteSkill(ctx, id); err != nil {
			return fmt.Errorf("delete merged skill %s: %w", id, err)
		}
	}
	return nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("skillctl"),
		kong.Description("Operator tooling for the Skill Engine's catalogue."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
