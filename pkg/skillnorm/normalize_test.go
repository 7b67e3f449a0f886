package skillnorm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/raven-ai/assistant/pkg/config"
	"github.com/raven-ai/assistant/pkg/skill"
)

func TestDefinitionEnforcesCaps(t *testing.T) {
	caps := config.Caps{MaxSteps: 2, MaxParameters: 1, MaxPreconditions: 1, MaxSuccessCriteria: 1, MaxExamples: 1}
	def := skill.Definition{
		Name: "  Send Report  ",
		Steps: []skill.Step{
			{Title: "a", Instructions: "do a"},
			{Title: "b", Instructions: "do b"},
			{Title: "c", Instructions: "do c"},
		},
		Parameters:      []skill.Parameter{{Name: "Team Name"}, {Name: "recipient"}},
		Preconditions:   []string{"has access", "Has Access"},
		SuccessCriteria: []string{"done", "Done"},
		Examples:        []skill.Example{{UserInput: "hi"}, {UserInput: "HI"}},
	}

	out := Definition(def, caps)
	require.Equal(t, "Send Report", out.Name)
	require.Len(t, out.Steps, 2)
	require.Len(t, out.Parameters, 1)
	require.Equal(t, "team_name", out.Parameters[0].Name)
	require.Len(t, out.Preconditions, 1)
	require.Len(t, out.SuccessCriteria, 1)
	require.Len(t, out.Examples, 1)
}

func TestDefinitionEnsuresAtLeastOneStep(t *testing.T) {
	caps := config.Defaults().Caps
	out := Definition(skill.Definition{Name: "x"}, caps)
	require.Len(t, out.Steps, 1)
	require.Equal(t, "Solve request", out.Steps[0].Title)
}

func TestDefinitionTruncatesLongFields(t *testing.T) {
	caps := config.Defaults().Caps
	longName := strings.Repeat("a", 200)
	out := Definition(skill.Definition{Name: longName, Steps: []skill.Step{{Title: "x", Instructions: "y"}}}, caps)
	require.Len(t, out.Name, maxNameLen)
}

func TestComputeGeneralizationScoreClampedAndWeighted(t *testing.T) {
	def := skill.Definition{
		Entrypoint: "send report for {team}",
		Steps:      []skill.Step{{Instructions: "email {recipient} the {report_name}"}},
		Parameters: []skill.Parameter{{Name: "team"}, {Name: "recipient"}, {Name: "report_name"}},
	}
	score := ComputeGeneralizationScore(def)
	require.InDelta(t, 0.35+0.05*3+0.04*3, score, 0.0001)
}

func TestComputeGeneralizationScoreCapsAt8(t *testing.T) {
	var steps []skill.Step
	var params []skill.Parameter
	instructions := ""
	for i := 0; i < 12; i++ {
		instructions += " {p}"
		params = append(params, skill.Parameter{Name: "p"})
	}
	steps = append(steps, skill.Step{Instructions: instructions})
	score := ComputeGeneralizationScore(skill.Definition{Steps: steps, Parameters: params})
	// 0.35+0.05*8+0.04*8 = 1.07, which the score clamps to 1.
	require.InDelta(t, 1.0, score, 0.0001)
	require.LessOrEqual(t, score, 1.0)
}

func TestSanitizeIdentifierCoercesToSnakeCase(t *testing.T) {
	require.Equal(t, "team_name", sanitizeIdentifier("Team Name"))
	require.Equal(t, "report_id", sanitizeIdentifier("Report-ID!!"))
}
