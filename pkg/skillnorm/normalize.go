// Package skillnorm implements the normalisation step shared by the Skill
// Learner (spec.md §4.8 step 3) and Feedback Repair (spec.md §4.9 step 6):
// trimming, cardinality caps, identifier coercion, and example dedupe
// applied to an LLM-produced skill definition before it is persisted.
package skillnorm

import (
	"regexp"
	"strings"

	"github.com/raven-ai/assistant/pkg/config"
	"github.com/raven-ai/assistant/pkg/skill"
)

const (
	maxNameLen       = 120
	maxDescriptionLen = 360
	maxEntrypointLen = 800
	maxStepLen       = 2000
)

var placeholderPattern = regexp.MustCompile(`\{[a-zA-Z0-9_\-]+\}`)

var identifierSanitizer = regexp.MustCompile(`[^a-z0-9_]+`)

// Definition returns a normalised copy of def according to spec.md §4.8
// step 3, enforcing caps and guaranteeing at least one step.
func Definition(def skill.Definition, caps config.Caps) skill.Definition {
	def.Name = truncate(strings.TrimSpace(def.Name), maxNameLen)
	def.Description = truncate(strings.TrimSpace(def.Description), maxDescriptionLen)
	def.Entrypoint = truncate(strings.TrimSpace(def.Entrypoint), maxEntrypointLen)

	def.Steps = normalizeSteps(def.Steps, caps.MaxSteps)
	def.Parameters = normalizeParameters(def.Parameters, caps.MaxParameters)
	def.Preconditions = dedupeCaseInsensitive(def.Preconditions, caps.MaxPreconditions)
	def.SuccessCriteria = dedupeCaseInsensitive(def.SuccessCriteria, caps.MaxSuccessCriteria)
	def.Examples = dedupeExamples(def.Examples, caps.MaxExamples)

	if def.GeneralizationScore == 0 {
		def.GeneralizationScore = ComputeGeneralizationScore(def)
	}
	if def.GeneralizationScore < 0 {
		def.GeneralizationScore = 0
	}
	if def.GeneralizationScore > 1 {
		def.GeneralizationScore = 1
	}
	return def
}

func normalizeSteps(steps []skill.Step, cap int) []skill.Step {
	out := make([]skill.Step, 0, len(steps))
	for _, s := range steps {
		s.Title = strings.TrimSpace(s.Title)
		s.Instructions = truncate(strings.TrimSpace(s.Instructions), maxStepLen)
		s.Notes = strings.TrimSpace(s.Notes)
		if s.Title == "" && s.Instructions == "" {
			continue
		}
		out = append(out, s)
		if cap > 0 && len(out) >= cap {
			break
		}
	}
	if len(out) == 0 {
		out = append(out, skill.Step{Title: "Solve request", Instructions: "Solve the user's request directly."})
	}
	return out
}

func normalizeParameters(params []skill.Parameter, cap int) []skill.Parameter {
	seen := map[string]bool{}
	out := make([]skill.Parameter, 0, len(params))
	for _, p := range params {
		name := sanitizeIdentifier(p.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		p.Name = name
		p.Description = strings.TrimSpace(p.Description)
		p.Example = strings.TrimSpace(p.Example)
		out = append(out, p)
		if cap > 0 && len(out) >= cap {
			break
		}
	}
	return out
}

// sanitizeIdentifier coerces a free-form parameter name into snake_case
// identifier form (spec.md §4.8 step 3: "coerce parameter names to
// snake/identifier form").
func sanitizeIdentifier(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")
	name = identifierSanitizer.ReplaceAllString(name, "")
	name = strings.Trim(name, "_")
	return name
}

func dedupeCaseInsensitive(items []string, cap int) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
		if cap > 0 && len(out) >= cap {
			break
		}
	}
	return out
}

func dedupeExamples(examples []skill.Example, cap int) []skill.Example {
	seen := map[string]bool{}
	out := make([]skill.Example, 0, len(examples))
	for _, ex := range examples {
		ex.UserInput = strings.TrimSpace(ex.UserInput)
		if ex.UserInput == "" {
			continue
		}
		key := strings.ToLower(ex.UserInput)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ex)
		if cap > 0 && len(out) >= cap {
			break
		}
	}
	return out
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}

// ComputeGeneralizationScore implements spec.md §4.8 step 4's formula when
// the LLM omits a score: 0.35 + 0.05*min(placeholders,8) + 0.04*min(params,8),
// clamped to [0,1]. Placeholders are {identifier}-style tokens across the
// entrypoint and every step's instructions.
func ComputeGeneralizationScore(def skill.Definition) float64 {
	placeholders := countPlaceholders(def.Entrypoint)
	for _, step := range def.Steps {
		placeholders += countPlaceholders(step.Instructions)
	}
	if placeholders > 8 {
		placeholders = 8
	}
	params := len(def.Parameters)
	if params > 8 {
		params = 8
	}
	score := 0.35 + 0.05*float64(placeholders) + 0.04*float64(params)
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

func countPlaceholders(s string) int {
	return len(placeholderPattern.FindAllString(s, -1))
}
