package tool

// NormalizeSchema closes an advertised tool's parameter schema so the Model
// Client's structured-output contract accepts it (spec.md §4.1). It is
// idempotent: NormalizeSchema(NormalizeSchema(x)) == NormalizeSchema(x)
// (spec.md §8 testable property 3).
func NormalizeSchema(schema map[string]any) map[string]any {
	out := cloneObjectSchema(schema)
	out["type"] = "object"

	props, _ := out["properties"].(map[string]any)
	if props == nil {
		props = map[string]any{}
	}
	for name, def := range props {
		defMap, ok := def.(map[string]any)
		if !ok {
			defMap = map[string]any{"type": "string"}
		} else {
			defMap = normalizeProperty(defMap)
		}
		props[name] = defMap
	}
	out["properties"] = props
	out["additionalProperties"] = false
	return out
}

func normalizeProperty(def map[string]any) map[string]any {
	def = shallowCopy(def)
	if !hasTypeCarryingKey(def) {
		def["type"] = "object"
	}
	if t, _ := def["type"].(string); t == "object" {
		nested, _ := def["properties"].(map[string]any)
		if nested == nil {
			nested = map[string]any{}
		} else {
			nested = shallowCopy(nested)
		}
		def["properties"] = nested
		def["additionalProperties"] = false
	}
	return def
}

func hasTypeCarryingKey(def map[string]any) bool {
	for _, key := range []string{"type", "anyOf", "oneOf", "allOf"} {
		if _, ok := def[key]; ok {
			return true
		}
	}
	return false
}

func cloneObjectSchema(schema map[string]any) map[string]any {
	if schema == nil {
		return map[string]any{}
	}
	return shallowCopy(schema)
}

func shallowCopy(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
