// Package feedback implements Feedback Repair (spec.md §4.9, C9): turning
// negative feedback on a run into a rewritten, promoted skill version.
package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/raven-ai/assistant/pkg/config"
	"github.com/raven-ai/assistant/pkg/model"
	"github.com/raven-ai/assistant/pkg/skill"
	"github.com/raven-ai/assistant/pkg/skillnorm"
	"github.com/raven-ai/assistant/pkg/skillstore"
)

// draftStep and fixResult mirror the learner's structured-output shape for
// the rewritten step list; duplicated rather than imported to avoid a
// feedback->learner dependency (both depend on skillnorm instead).
type draftStep struct {
	Title        string `json:"title"`
	Instructions string `json:"instructions"`
	Notes        string `json:"notes,omitempty"`
}

type fixResult struct {
	Steps []draftStep `json:"steps"`
}

func fixTextFormat() *model.TextFormat {
	return &model.TextFormat{Name: "skill_fix", Schema: model.SchemaFor(&fixResult{}), Strict: true}
}

// Request is one /feedback call (spec.md §6).
type Request struct {
	RunID     string
	UserID    string
	ModelName string
	Rating    skill.FeedbackRating
	Text      string
}

// Result is /feedback's response shape (spec.md §6).
type Result struct {
	Updated      bool
	SkillID      string
	VersionID    string
	NewVersionID string
}

// Repair applies spec.md §4.9's full algorithm.
type Repair struct {
	Model model.Client
	Store skillstore.Store
	Caps  config.Caps
}

func New(client model.Client, store skillstore.Store, caps config.Caps) *Repair {
	return &Repair{Model: client, Store: store, Caps: caps}
}

// Run looks up the run (returning skillstore.ErrNotFound if absent, mapped
// by the caller to a 404), persists the feedback, and — only on negative
// feedback for a skill-linked run — asks the LLM to rewrite the step list
// and atomically promotes a new version.
func (r *Repair) Run(ctx context.Context, req Request) (*Result, error) {
	run, err := r.Store.GetRun(ctx, req.RunID, req.UserID)
	if err != nil {
		return nil, err
	}

	if err := r.Store.UpdateRunFeedback(ctx, req.RunID, req.UserID, req.Rating, req.Text); err != nil {
		return nil, fmt.Errorf("feedback: persist: %w", err)
	}

	if req.Rating != skill.FeedbackNegative || run.SkillID == nil || run.SkillVersionID == nil {
		return &Result{Updated: false}, nil
	}

	sk, err := r.Store.LoadSkill(ctx, *run.SkillID, req.UserID)
	if err != nil {
		// Feedback repair failures downgrade to updated:false rather than an
		// error (spec.md §7).
		return &Result{Updated: false}, nil
	}
	version, err := r.Store.LoadVersion(ctx, *run.SkillVersionID)
	if err != nil {
		return &Result{Updated: false}, nil
	}

	newSteps, err := r.rewriteSteps(ctx, req, sk, version, run)
	if err != nil {
		return &Result{Updated: false}, nil
	}

	normalized := skillnorm.Definition(skill.Definition{
		Name: sk.Name, Description: sk.Description, Entrypoint: sk.EntrypointText,
		Steps: newSteps, Parameters: sk.Parameters, Preconditions: sk.Preconditions,
		SuccessCriteria: sk.SuccessCriteria, GeneralizationScore: sk.GeneralizationScore,
	}, r.Caps)

	newVersion, err := r.Store.SaveFix(ctx, sk.ID, normalized.Steps)
	if err != nil {
		return &Result{Updated: false}, nil
	}

	return &Result{Updated: true, SkillID: sk.ID, VersionID: version.ID, NewVersionID: newVersion.ID}, nil
}

func (r *Repair) rewriteSteps(ctx context.Context, req Request, sk *skill.Skill, version *skill.Version, run *skill.Run) ([]skill.Step, error) {
	instructions := "Rewrite this skill's step list to address the user's feedback. " +
		"Keep the steps ordered and as few as needed; preserve {identifier} placeholders where they still apply."

	var b strings.Builder
	fmt.Fprintf(&b, "Skill: %s\n%s\nEntrypoint: %s\n\nCurrent steps:\n", sk.Name, sk.Description, sk.EntrypointText)
	for i, s := range version.Steps {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, s.Title, s.Instructions)
	}
	b.WriteString("\nLast step results:\n")
	for _, res := range run.StepResults {
		fmt.Fprintf(&b, "- %s: %s\n", res.Title, res.Output)
	}
	fmt.Fprintf(&b, "\nFeedback: %s\n", req.Text)

	resp, err := r.Model.Parse(ctx, model.Request{
		Model:        req.ModelName,
		Instructions: instructions,
		Input:        b.String(),
		TextFormat:   fixTextFormat(),
	})
	if err != nil {
		return nil, err
	}

	var fix fixResult
	if err := json.Unmarshal(resp.OutputParsed, &fix); err != nil {
		return nil, fmt.Errorf("feedback: unmarshal fix: %w", err)
	}

	steps := make([]skill.Step, len(fix.Steps))
	for i, s := range fix.Steps {
		steps[i] = skill.Step{Title: s.Title, Instructions: s.Instructions, Notes: s.Notes}
	}
	return steps, nil
}
