package idea

// SchemaHint is appended to system prompts for providers that cannot enforce
// a response schema natively.
const SchemaHint = "Respond with valid JSON only, matching this schema: " +
	"ideas (array of {title, description, rationale?}), " +
	"step_plan (array of {order, action, details?}), " +
	"risks (array of {description, severity: low|medium|high, mitigation?}), " +
	"dependencies (array of strings), " +
	"effort ({time, cost?, complexity?: low|medium|high}), " +
	"next_actions (array of {action, priority: immediate|short|medium|long})."

// WithSchemaHint returns system with SchemaHint appended.
func WithSchemaHint(system string) string {
	if system == "" {
		return SchemaHint
	}
	return system + "\n\n" + SchemaHint
}

// JSONSchema returns the JSON Schema of a Response as a generic map.
func JSONSchema() map[string]any {
	str := map[string]any{"type": "string"}
	enum := func(vals ...string) map[string]any {
		return map[string]any{"type": "string", "enum": vals}
	}
	object := func(props map[string]any, required ...string) map[string]any {
		return map[string]any{
			"type":                 "object",
			"properties":           props,
			"required":             required,
			"additionalProperties": false,
		}
	}
	array := func(items map[string]any) map[string]any {
		return map[string]any{"type": "array", "items": items}
	}

	return object(map[string]any{
		"ideas": array(object(map[string]any{
			"title":       str,
			"description": str,
			"rationale":   str,
		}, "title", "description")),
		"step_plan": array(object(map[string]any{
			"order":   map[string]any{"type": "integer"},
			"action":  str,
			"details": str,
		}, "order", "action")),
		"risks": array(object(map[string]any{
			"description": str,
			"severity":    enum("low", "medium", "high"),
			"mitigation":  str,
		}, "description", "severity")),
		"dependencies": array(str),
		"effort": object(map[string]any{
			"time":       str,
			"cost":       str,
			"complexity": enum("low", "medium", "high"),
		}, "time"),
		"next_actions": array(object(map[string]any{
			"action":   str,
			"priority": enum("immediate", "short", "medium", "long"),
		}, "action", "priority")),
	}, requiredKeys...)
}
