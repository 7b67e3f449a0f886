// Package learner implements the Skill Learner (spec.md §4.8, C8): the
// asynchronous decompose -> generalise -> normalise -> gate -> embed ->
// merge-or-insert pipeline that turns a successful base run into a
// reusable, persisted skill.
package learner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/raven-ai/assistant/pkg/config"
	"github.com/raven-ai/assistant/pkg/embedder"
	"github.com/raven-ai/assistant/pkg/metrics"
	"github.com/raven-ai/assistant/pkg/model"
	"github.com/raven-ai/assistant/pkg/skill"
	"github.com/raven-ai/assistant/pkg/skillnorm"
	"github.com/raven-ai/assistant/pkg/skillstore"
)

// Request is everything one learn attempt needs: the base run's inputs and
// output plus identity to link back to the run (spec.md §4.8 intro).
type Request struct {
	UserID           string
	RunID            string
	ModelName        string
	UserQuery        string
	BaseOutput       string
	ToolTraceSummary string
}

// Learner runs the full decompose/generalise/merge-or-insert pipeline.
// Dispatch is the detached entry point; Run executes it synchronously and
// is what Dispatch's goroutine (and tests) call directly.
type Learner struct {
	Model      model.Client
	Embedder   embedder.Provider
	Store      skillstore.Store
	Thresholds config.Thresholds
	Caps       config.Caps
	Metrics    *metrics.Recorder
}

func New(client model.Client, e embedder.Provider, store skillstore.Store, thresholds config.Thresholds, caps config.Caps) *Learner {
	return &Learner{Model: client, Embedder: e, Store: store, Thresholds: thresholds, Caps: caps}
}

// Dispatch spawns Run on a detached goroutine rooted at ctx (the caller
// passes the process's root context, not the request's, so client
// disconnect does not cancel the attempt — spec.md §5, §9). All failures
// are caught and logged; none propagate to the caller (spec.md §4.8
// "Failure policy").
func (l *Learner) Dispatch(ctx context.Context, req Request) {
	l.Metrics.RecordLearnAttempt(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("learner: panic recovered", "userId", req.UserID, "runId", req.RunID, "panic", r)
				l.Metrics.RecordLearnOutcome(ctx, "failed")
			}
		}()
		if err := l.Run(ctx, req); err != nil {
			slog.Warn("learner: attempt failed", "userId", req.UserID, "runId", req.RunID, "error", err)
			l.Metrics.RecordLearnOutcome(ctx, "failed")
		}
	}()
}

// Run executes one learn attempt to completion. Every stage is logged at
// debug so a crashed or failed attempt is diagnosable from logs even though
// no reconciliation job exists (spec.md §9 open question).
func (l *Learner) Run(ctx context.Context, req Request) error {
	slog.Debug("learner: started", "userId", req.UserID, "runId", req.RunID)

	draft, err := l.decompose(ctx, req)
	if err != nil {
		return fmt.Errorf("learner: decompose: %w", err)
	}
	slog.Debug("learner: decomposed", "userId", req.UserID, "runId", req.RunID, "name", draft.Name)

	generalized, err := l.generalize(ctx, req, draft)
	if err != nil {
		return fmt.Errorf("learner: generalize: %w", err)
	}
	slog.Debug("learner: generalised", "userId", req.UserID, "runId", req.RunID)

	normalized := skillnorm.Definition(generalized, l.Caps)
	if normalized.GeneralizationScore == 0 {
		normalized.GeneralizationScore = skillnorm.ComputeGeneralizationScore(normalized)
	}

	threshold := l.Thresholds.Generalization
	if threshold <= 0 {
		threshold = 0.75
	}
	if normalized.GeneralizationScore < threshold {
		slog.Debug("learner: dropped, below generalisation threshold", "userId", req.UserID, "runId", req.RunID,
			"score", normalized.GeneralizationScore, "threshold", threshold)
		l.Metrics.RecordLearnOutcome(ctx, "rejected")
		return nil
	}

	queryEmbedding := l.Embedder.Embed(ctx, CanonicalText(normalized))
	if queryEmbedding == nil {
		return fmt.Errorf("learner: embedding unavailable")
	}

	candidate, distance, found, err := l.Store.FindNearest(ctx, req.UserID, queryEmbedding)
	if err != nil {
		return fmt.Errorf("learner: candidate lookup: %w", err)
	}

	if found && candidate != nil {
		merged, shouldMerge, err := l.tryMerge(ctx, candidate, distance, queryEmbedding, normalized)
		if err != nil {
			return err
		}
		if shouldMerge {
			sk, v, err := l.Store.SaveMerge(ctx, candidate.ID, merged, queryEmbedding)
			if err != nil {
				return fmt.Errorf("learner: save merge: %w", err)
			}
			slog.Debug("learner: merged-inserted", "userId", req.UserID, "runId", req.RunID, "skillId", sk.ID, "version", v.Version)
			l.Metrics.RecordLearnOutcome(ctx, "merged")
			return l.Store.PatchRunSkill(ctx, req.RunID, req.UserID, sk.ID, v.ID)
		}
	}

	sk, v, err := l.Store.InsertSkill(ctx, req.UserID, normalized, queryEmbedding)
	if err != nil {
		return fmt.Errorf("learner: insert skill: %w", err)
	}
	slog.Debug("learner: merged-inserted", "userId", req.UserID, "runId", req.RunID, "skillId", sk.ID, "version", v.Version)
	l.Metrics.RecordLearnOutcome(ctx, "inserted")
	return l.Store.PatchRunSkill(ctx, req.RunID, req.UserID, sk.ID, v.ID)
}

// tryMerge computes spec.md §4.8 step 8's combined merge score and, if it
// clears MergeSimilarity, returns the merged definition ready for
// SaveMerge.
func (l *Learner) tryMerge(ctx context.Context, candidate *skill.Skill, distance float64, queryEmbedding []float32, incoming skill.Definition) (skill.Definition, bool, error) {
	var similarity float64
	if len(candidate.Embedding) > 0 {
		similarity = embedder.CosineSimilarity(queryEmbedding, candidate.Embedding)
	} else {
		similarity = embedder.SimilarityFromDistance(distance)
	}

	var candidateSteps []skill.Step
	if candidate.ActiveVersionID != "" {
		v, err := l.Store.LoadVersion(ctx, candidate.ActiveVersionID)
		if err == nil && v != nil {
			candidateSteps = v.Steps
		}
	}
	stepSim := StepSimilarity(incoming.Steps, candidateSteps)

	eps := 0.05
	if l.Thresholds.MergeSimilarityEps != 0 {
		eps = l.Thresholds.MergeSimilarityEps
	}
	combined := CombinedMergeScore(similarity, stepSim, eps)

	threshold := l.Thresholds.MergeSimilarity
	if threshold <= 0 {
		threshold = 0.75
	}
	if combined < threshold {
		return skill.Definition{}, false, nil
	}

	return MergeDefinition(candidate, candidateSteps, incoming, l.Caps), true, nil
}

func (l *Learner) decompose(ctx context.Context, req Request) (skill.Definition, error) {
	instructions := "You turn a successful assistant answer into a reusable, named step-by-step procedure. " +
		"Produce a concise name, description, the canonical trigger phrase (entrypoint), and an ordered list of steps."
	input := fmt.Sprintf("User request:\n%s\n\nAnswer produced:\n%s\n\nTool trace summary:\n%s",
		req.UserQuery, req.BaseOutput, req.ToolTraceSummary)

	resp, err := l.Model.Parse(ctx, model.Request{
		Model:        req.ModelName,
		Instructions: instructions,
		Input:        input,
		TextFormat:   draftTextFormat(),
	})
	if err != nil {
		return skill.Definition{}, err
	}

	var draft draftResult
	if err := json.Unmarshal(resp.OutputParsed, &draft); err != nil {
		return skill.Definition{}, fmt.Errorf("unmarshal draft: %w", err)
	}

	return skill.Definition{
		Name:        draft.Name,
		Description: draft.Description,
		Entrypoint:  draft.Entrypoint,
		Steps:       toSkillSteps(draft.Steps),
	}, nil
}

func (l *Learner) generalize(ctx context.Context, req Request, draft skill.Definition) (skill.Definition, error) {
	instructions := "Rewrite the draft procedure to generalise it: replace specific values with {identifier}-style " +
		"placeholders, list parameters, preconditions, success criteria, one or more examples, and a generalizationScore in [0,1]."
	raw, _ := json.Marshal(draft)

	resp, err := l.Model.Parse(ctx, model.Request{
		Model:        req.ModelName,
		Instructions: instructions,
		Input:        string(raw),
		TextFormat:   generalizedTextFormat(),
	})
	if err != nil {
		return skill.Definition{}, err
	}

	var g generalizedResult
	if err := json.Unmarshal(resp.OutputParsed, &g); err != nil {
		return skill.Definition{}, fmt.Errorf("unmarshal generalized: %w", err)
	}

	return skill.Definition{
		Name:                g.Name,
		Description:         g.Description,
		Entrypoint:           g.Entrypoint,
		Steps:               toSkillSteps(g.Steps),
		Parameters:          toSkillParameters(g.Parameters),
		Preconditions:       g.Preconditions,
		SuccessCriteria:     g.SuccessCriteria,
		Examples:            toSkillExamples(g.Examples),
		GeneralizationScore: g.GeneralizationScore,
	}, nil
}

func toSkillSteps(steps []draftStep) []skill.Step {
	out := make([]skill.Step, len(steps))
	for i, s := range steps {
		out[i] = skill.Step{Title: s.Title, Instructions: s.Instructions, Notes: s.Notes}
	}
	return out
}

func toSkillParameters(params []draftParameter) []skill.Parameter {
	out := make([]skill.Parameter, len(params))
	for i, p := range params {
		out[i] = skill.Parameter{Name: p.Name, Description: p.Description, Example: p.Example}
	}
	return out
}

func toSkillExamples(examples []draftExample) []skill.Example {
	out := make([]skill.Example, len(examples))
	for i, e := range examples {
		out[i] = skill.Example{UserInput: e.UserInput, OutputSummary: e.OutputSummary, Notes: e.Notes}
	}
	return out
}
