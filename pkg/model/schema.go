package model

import "github.com/invopop/jsonschema"

// reflector produces closed (additionalProperties:false) schemas suitable
// for the Responses API's strict structured-output mode.
var reflector = &jsonschema.Reflector{
	DoNotReference:            true,
	AllowAdditionalProperties: false,
}

// SchemaFor generates a JSON-Schema map for a Go struct pointer, used to
// build TextFormat.Schema for AssistantResponse and the Learner's draft/
// generalisation/fix structs instead of hand-written maps.
func SchemaFor(v any) map[string]any {
	s := reflector.Reflect(v)
	out := map[string]any{
		"type":                 "object",
		"properties":            map[string]any{},
		"additionalProperties": false,
	}
	if s.Properties != nil {
		props := map[string]any{}
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			props[pair.Key] = pair.Value
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}

// AssistantResponseTextFormat is the TextFormat used for plain (non-tool)
// turns (spec.md §4.3 step 5's parsed-message source).
func AssistantResponseTextFormat() *TextFormat {
	return &TextFormat{
		Name:   "assistant_response",
		Schema: SchemaFor(&AssistantResponse{}),
		Strict: true,
	}
}
