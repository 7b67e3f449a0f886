package learner

import (
	"strings"

	"github.com/raven-ai/assistant/pkg/config"
	"github.com/raven-ai/assistant/pkg/skill"
	"github.com/raven-ai/assistant/pkg/skillnorm"
)

// MergeDefinition implements spec.md §4.8 step 9: union parameters (by
// name), preconditions/success criteria (case-insensitive dedupe), examples
// (by userInput dedupe), generalisation score = max(existing, new), all
// capped — never shrinking the candidate's set membership (spec.md §8
// testable property 6). Exported so skillctl's reprocessing command can
// merge clusters with the same rules the Learner applies at insert time.
func MergeDefinition(candidate *skill.Skill, candidateSteps []skill.Step, incoming skill.Definition, caps config.Caps) skill.Definition {
	merged := skill.Definition{
		Name:        incoming.Name,
		Description: incoming.Description,
		Entrypoint:  incoming.Entrypoint,
		Steps:       incoming.Steps, // the new run's steps replace the step list; metadata unions
	}

	merged.Parameters = unionParameters(candidate.Parameters, incoming.Parameters)
	merged.Preconditions = unionStrings(candidate.Preconditions, incoming.Preconditions)
	merged.SuccessCriteria = unionStrings(candidate.SuccessCriteria, incoming.SuccessCriteria)
	merged.Examples = unionExamples(candidate.Examples, incoming.Examples)

	merged.GeneralizationScore = incoming.GeneralizationScore
	if candidate.GeneralizationScore > merged.GeneralizationScore {
		merged.GeneralizationScore = candidate.GeneralizationScore
	}

	return skillnorm.Definition(merged, caps)
}

func unionParameters(existing, incoming []skill.Parameter) []skill.Parameter {
	seen := map[string]bool{}
	out := make([]skill.Parameter, 0, len(existing)+len(incoming))
	for _, p := range append(append([]skill.Parameter{}, existing...), incoming...) {
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		out = append(out, p)
	}
	return out
}

func unionStrings(existing, incoming []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(existing)+len(incoming))
	for _, s := range append(append([]string{}, existing...), incoming...) {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func unionExamples(existing, incoming []skill.Example) []skill.Example {
	seen := map[string]bool{}
	out := make([]skill.Example, 0, len(existing)+len(incoming))
	for _, e := range append(append([]skill.Example{}, existing...), incoming...) {
		key := strings.ToLower(strings.TrimSpace(e.UserInput))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}
