// Package skill defines the data model shared by the Skill Store,
// Retriever, Executor, Learner, and Feedback Repair components (spec.md §3).
package skill

import "time"

// Parameter is a named input a skill's generalized steps reference via a
// {identifier}-style placeholder.
type Parameter struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Example     string `json:"example,omitempty"`
}

// Example pairs a past user input with how it was handled.
type Example struct {
	UserInput     string `json:"userInput"`
	OutputSummary string `json:"outputSummary,omitempty"`
	Notes         string `json:"notes,omitempty"`
	RunID         string `json:"runId,omitempty"`
}

// Step is a single ordered instruction executed as one Agent Orchestrator turn.
type Step struct {
	Title        string `json:"title"`
	Instructions string `json:"instructions"`
	Notes        string `json:"notes,omitempty"`
}

// Skill is a per-user named procedure with an embedding for retrieval.
//
// Invariants (spec.md §3): ActiveVersionID references a version whose
// SkillID is this skill's ID; Embedding is present iff the skill is
// searchable; cardinalities are capped (Caps in pkg/config).
type Skill struct {
	ID                  string      `json:"id"`
	UserID              string      `json:"userId"`
	Name                string      `json:"name"`
	Description         string      `json:"description"`
	EntrypointText      string      `json:"entrypointText"`
	ActiveVersionID      string     `json:"activeVersionId"`
	Parameters          []Parameter `json:"parameters"`
	Preconditions       []string    `json:"preconditions"`
	SuccessCriteria     []string    `json:"successCriteria"`
	Examples            []Example  `json:"examples"`
	GeneralizationScore float64     `json:"generalizationScore"`
	Embedding           []float32   `json:"embedding,omitempty"`
	CreatedAt           time.Time   `json:"createdAt"`
	UpdatedAt           time.Time   `json:"updatedAt"`
}

// Version is an immutable, monotonically numbered step list.
type Version struct {
	ID         string    `json:"id"`
	SkillID    string    `json:"skillId"`
	Version    int       `json:"version"`
	Steps      []Step    `json:"steps"`
	BasePrompt string    `json:"basePrompt,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// FeedbackRating is the caller's verdict on a run's output.
type FeedbackRating string

const (
	FeedbackPositive FeedbackRating = "positive"
	FeedbackNeutral  FeedbackRating = "neutral"
	FeedbackNegative FeedbackRating = "negative"
)

// StepResult records one executed step's outcome within a run.
type StepResult struct {
	Index     int       `json:"index"`
	Title     string    `json:"title"`
	Output    string    `json:"output"`
	Trace     string    `json:"trace,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Run records one user request handled by the engine, skill-linked or not.
type Run struct {
	ID              string         `json:"id"`
	SkillID         *string        `json:"skillId,omitempty"`
	SkillVersionID  *string        `json:"skillVersionId,omitempty"`
	UserID          string         `json:"userId"`
	ThreadID        string         `json:"threadId,omitempty"`
	SessionID       string         `json:"sessionId,omitempty"`
	Input           string         `json:"input"`
	StepResults     []StepResult   `json:"stepResults"`
	FeedbackRating  FeedbackRating `json:"feedbackRating,omitempty"`
	FeedbackText    string         `json:"feedbackText,omitempty"`
	FeedbackAt      *time.Time     `json:"feedbackAt,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// Definition is the shape produced by decomposition/generalisation before a
// skill exists in storage — not yet a Skill/Version pair, because it
// carries a flat step list rather than a versioned one.
type Definition struct {
	Name                string      `json:"name"`
	Description         string      `json:"description"`
	Entrypoint          string      `json:"entrypoint"`
	Steps               []Step      `json:"steps"`
	Parameters          []Parameter `json:"parameters"`
	Preconditions       []string    `json:"preconditions"`
	SuccessCriteria     []string    `json:"successCriteria"`
	Examples            []Example   `json:"examples"`
	GeneralizationScore float64     `json:"generalizationScore"`
}
