package learner

import (
	"regexp"
	"strings"

	"github.com/raven-ai/assistant/pkg/skill"
)

var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

func tokenize(s string) map[string]bool {
	tokens := map[string]bool{}
	for _, t := range tokenPattern.FindAllString(strings.ToLower(s), -1) {
		tokens[t] = true
	}
	return tokens
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	union := map[string]bool{}
	for t := range a {
		union[t] = true
		if b[t] {
			intersection++
		}
	}
	for t := range b {
		union[t] = true
	}
	if len(union) == 0 {
		return 0
	}
	return float64(intersection) / float64(len(union))
}

// StepSimilarity implements spec.md §4.8 step 8's step_similarity: for each
// new step, the best Jaccard against any candidate step, averaged across
// new steps. Exported so skillctl's reprocessing command can cluster
// existing skills with the same metric the Learner uses at insert time.
func StepSimilarity(newSteps, candidateSteps []skill.Step) float64 {
	if len(newSteps) == 0 || len(candidateSteps) == 0 {
		return 0
	}
	candidateTokens := make([]map[string]bool, len(candidateSteps))
	for i, s := range candidateSteps {
		candidateTokens[i] = tokenize(s.Title + " " + s.Instructions)
	}

	var total float64
	for _, step := range newSteps {
		newTokens := tokenize(step.Title + " " + step.Instructions)
		best := 0.0
		for _, ct := range candidateTokens {
			if j := jaccard(newTokens, ct); j > best {
				best = j
			}
		}
		total += best
	}
	return total / float64(len(newSteps))
}

// CombinedMergeScore implements spec.md §4.8 step 8's weighted combination,
// biased toward "same intent, slightly different phrasing" (spec.md §9).
func CombinedMergeScore(similarity, stepSim, similarityEps float64) float64 {
	weighted := similarity*0.7 + stepSim*0.3
	boosted := similarity + similarityEps
	if boosted > 1 {
		boosted = 1
	}
	combined := weighted
	if boosted > combined {
		combined = boosted
	}
	if stepSim > combined {
		combined = stepSim
	}
	return combined
}
