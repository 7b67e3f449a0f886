package learner

import "github.com/raven-ai/assistant/pkg/model"

// draftStep mirrors skill.Step for the decomposition LLM call's schema.
type draftStep struct {
	Title        string `json:"title"`
	Instructions string `json:"instructions"`
	Notes        string `json:"notes,omitempty"`
}

// draftResult is the decomposition LLM call's structured output (spec.md
// §4.8 step 1): name/description/entrypoint/steps, nothing generalised yet.
type draftResult struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Entrypoint  string      `json:"entrypoint"`
	Steps       []draftStep `json:"steps"`
}

// draftParameter mirrors skill.Parameter for the schema.
type draftParameter struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Example     string `json:"example,omitempty"`
}

// draftExample mirrors skill.Example for the schema.
type draftExample struct {
	UserInput     string `json:"userInput"`
	OutputSummary string `json:"outputSummary,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// generalizedResult is the generalisation LLM call's structured output
// (spec.md §4.8 step 2): the draft rewritten with placeholders, plus
// preconditions/success criteria/examples/score.
type generalizedResult struct {
	Name                string           `json:"name"`
	Description         string           `json:"description"`
	Entrypoint          string           `json:"entrypoint"`
	Steps               []draftStep      `json:"steps"`
	Parameters          []draftParameter `json:"parameters"`
	Preconditions       []string         `json:"preconditions"`
	SuccessCriteria     []string         `json:"successCriteria"`
	Examples            []draftExample   `json:"examples"`
	GeneralizationScore float64          `json:"generalizationScore"`
}

// fixResult is a replacement-step-list LLM call output in the same step
// shape (spec.md §4.9 step 5). pkg/feedback declares and uses its own
// fixResult and fixTextFormat; this copy is not used by Feedback Repair.
type fixResult struct {
	Steps []draftStep `json:"steps"`
}

func draftTextFormat() *model.TextFormat {
	return &model.TextFormat{Name: "skill_draft", Schema: model.SchemaFor(&draftResult{}), Strict: true}
}

func generalizedTextFormat() *model.TextFormat {
	return &model.TextFormat{Name: "skill_generalized", Schema: model.SchemaFor(&generalizedResult{}), Strict: true}
}

func fixTextFormat() *model.TextFormat {
	return &model.TextFormat{Name: "skill_fix", Schema: model.SchemaFor(&fixResult{}), Strict: true}
}
