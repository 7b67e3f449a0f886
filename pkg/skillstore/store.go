// Package skillstore implements the Skill Store (spec.md §4.4, C4): the
// per-user persistent catalogue of skills, versions, and run history.
package skillstore

import (
	"context"
	"errors"

	"github.com/raven-ai/assistant/pkg/skill"
)

// ErrNotFound is returned when a skill, version, or run lookup misses.
var ErrNotFound = errors.New("skillstore: not found")

// Store is the persistence contract every other component (Retriever,
// Executor, Learner, Feedback Repair) depends on. All operations are
// scoped to a user except LoadVersion, which is looked up by its own id.
type Store interface {
	// FindNearest returns the closest skill for userID under the vector
	// index's distance metric, or found=false when no index is configured
	// or the catalogue is empty (spec.md §4.4, §9 "Nearest-neighbour
	// without vector index").
	FindNearest(ctx context.Context, userID string, embedding []float32) (s *skill.Skill, distance float64, found bool, err error)

	LoadSkill(ctx context.Context, id, userID string) (*skill.Skill, error)
	LoadVersion(ctx context.Context, versionID string) (*skill.Version, error)

	// InsertSkill atomically writes the Skill row and its v1 Version, then
	// sets the active pointer (spec.md §4.4).
	InsertSkill(ctx context.Context, userID string, def skill.Definition, embedding []float32) (*skill.Skill, *skill.Version, error)

	// SaveMerge inserts a new version (version = max+1), updates the
	// skill's catalogue columns and embedding, and repoints the active
	// version, all in one transaction (spec.md §4.4, §4.8 step 9).
	SaveMerge(ctx context.Context, skillID string, def skill.Definition, embedding []float32) (*skill.Skill, *skill.Version, error)

	// SaveFix is like SaveMerge but leaves catalogue metadata untouched
	// (spec.md §4.4, §4.9 step 6-7).
	SaveFix(ctx context.Context, skillID string, steps []skill.Step) (*skill.Version, error)

	InsertRun(ctx context.Context, run *skill.Run) error
	PatchRunSkill(ctx context.Context, runID, userID, skillID, versionID string) error
	GetRun(ctx context.Context, runID, userID string) (*skill.Run, error)
	UpdateRunFeedback(ctx context.Context, runID, userID string, rating skill.FeedbackRating, text string) error

	// ListSkills returns every skill owned by userID, used by offline
	// reprocessing to cluster and re-merge a user's catalogue in bulk.
	ListSkills(ctx context.Context, userID string) ([]*skill.Skill, error)

	// DeleteSkill removes a skill and its versions once reprocessing has
	// folded it into another skill (its runs must be repointed first via
	// RepointRuns, or they'd be left referencing a missing skill).
	DeleteSkill(ctx context.Context, skillID string) error

	// RepointRuns rewrites every run currently linked to one of fromSkillIDs
	// to reference toSkillID/toVersionID instead, used when reprocessing
	// merges several skills into one surviving skill.
	RepointRuns(ctx context.Context, fromSkillIDs []string, toSkillID, toVersionID string) error
}
