// Package executor implements the Executor (spec.md §4.7, C7): sequential
// execution of a skill's versioned steps through the Agent Orchestrator.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/raven-ai/assistant/pkg/agentcore"
	"github.com/raven-ai/assistant/pkg/skill"
)

// recapWindow bounds how many prior step results are folded into the next
// step's instructions (spec.md §4.7: "recap of the last few results").
const recapWindow = 3

// Request is one skill run (spec.md §6 POST /run when a skill matched).
type Request struct {
	Model       string
	Skill       *skill.Skill
	Version     *skill.Version
	UserName    string
	Input       string
	ToolSession *agentcore.ToolSessionConfig
}

// Result carries the step-by-step trace plus the final step's output as the
// run's overall response (spec.md §4.7 step 5).
type Result struct {
	StepResults []skill.StepResult
	FinalOutput string
}

// Executor drives a skill's steps through an Orchestrator one at a time,
// aborting on the first step failure — no partial success (spec.md §4.7
// invariant).
type Executor struct {
	Orchestrator *agentcore.Orchestrator
}

func New(o *agentcore.Orchestrator) *Executor {
	return &Executor{Orchestrator: o}
}

func (e *Executor) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Version == nil || len(req.Version.Steps) == 0 {
		return nil, fmt.Errorf("executor: skill %s has no steps", req.Skill.ID)
	}

	result := &Result{}
	var lastResponseID string

	for i, step := range req.Version.Steps {
		instructions := stepInstructions(req.Skill, step, i, len(req.Version.Steps), result.StepResults)

		runReq := agentcore.Request{
			Model:              req.Model,
			Input:              req.Input,
			ExtraInstructions:  instructions,
			UserName:           req.UserName,
			PreviousResponseID: lastResponseID,
			ToolSession:        req.ToolSession,
		}
		res, err := e.Orchestrator.Run(ctx, runReq)
		if err != nil {
			return result, fmt.Errorf("executor: step %d (%s) failed: %w", i, step.Title, err)
		}

		stepResult := skill.StepResult{
			Index:     i,
			Title:     step.Title,
			Output:    res.Output,
			Timestamp: time.Now().UTC(),
		}
		result.StepResults = append(result.StepResults, stepResult)
		lastResponseID = res.LastResponseID
		result.FinalOutput = res.Output
	}

	return result, nil
}

// stepInstructions builds the step-scoped instructions: skill name, the
// step's position, its own instructions and notes, and a short recap of the
// most recent prior results so the model has continuity without replaying
// the full transcript (spec.md §4.7).
func stepInstructions(sk *skill.Skill, step skill.Step, index, total int, prior []skill.StepResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Executing skill %q, step %d of %d: %s\n", sk.Name, index+1, total, step.Title)
	b.WriteString(step.Instructions)
	if step.Notes != "" {
		b.WriteString("\nNotes: ")
		b.WriteString(step.Notes)
	}

	start := len(prior) - recapWindow
	if start < 0 {
		start = 0
	}
	if recap := prior[start:]; len(recap) > 0 {
		b.WriteString("\n\nRecap of recent steps:\n")
		for _, r := range recap {
			fmt.Fprintf(&b, "- %s: %s\n", r.Title, r.Output)
		}
	}
	return b.String()
}
