package learner

import (
	"fmt"
	"strings"

	"github.com/raven-ai/assistant/pkg/skill"
)

// CanonicalText builds the embedding input for a skill definition (spec.md
// §4.8 step 6): name, description, entrypoint, parameters, preconditions,
// success criteria, and numbered steps. Exported so skillctl's reprocessing
// command can recompute the same embedding input outside a learn attempt.
func CanonicalText(def skill.Definition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n%s\n", def.Name, def.Description, def.Entrypoint)
	for _, p := range def.Parameters {
		fmt.Fprintf(&b, "param: %s %s\n", p.Name, p.Description)
	}
	for _, p := range def.Preconditions {
		fmt.Fprintf(&b, "precondition: %s\n", p)
	}
	for _, c := range def.SuccessCriteria {
		fmt.Fprintf(&b, "success: %s\n", c)
	}
	for i, s := range def.Steps {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, s.Title, s.Instructions)
	}
	return b.String()
}
