package agentcore

import (
	"fmt"
	"strings"
)

// BuildInstructions joins the system prompt, an optional personalised user
// name line, and caller-supplied extra instructions by newlines (spec.md
// §4.3 step 1).
func BuildInstructions(systemPrompt, userName, extra string) string {
	parts := []string{systemPrompt}
	if strings.TrimSpace(userName) != "" {
		parts = append(parts, fmt.Sprintf("The user name is %q.", userName))
	}
	if strings.TrimSpace(extra) != "" {
		parts = append(parts, extra)
	}
	return strings.Join(parts, "\n")
}
