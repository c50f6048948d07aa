package idea

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyResponse is returned when the provider produced no text at all.
var ErrEmptyResponse = errors.New("empty response")

// requiredKeys are the top-level members every Response must carry.
var requiredKeys = []string{"ideas", "step_plan", "risks", "dependencies", "effort", "next_actions"}

// ValidationError describes a single schema violation in a provider payload.
type ValidationError struct {
	// Field is the path to the offending field (e.g. "risks[2].severity").
	Field string `json:"field"`

	// Message describes what is wrong.
	Message string `json:"message"`

	// Value is the rejected value, nil for missing fields.
	Value any `json:"value,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s (got %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SchemaError collects every ValidationError found in one payload.
type SchemaError struct {
	Violations []ValidationError
}

func (e *SchemaError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Error()
	}
	return "schema violation: " + strings.Join(msgs, "; ")
}

// memberKeys lists the members each nested object must carry. Empty strings
// are accepted; absent or null members are not.
var memberKeys = []struct {
	section string
	keys    []string
}{
	{"ideas", []string{"title", "description"}},
	{"step_plan", []string{"order", "action"}},
	{"risks", []string{"description", "severity"}},
	{"next_actions", []string{"action", "priority"}},
}

// ExtractJSON strips a surrounding ```json or ``` fence from text and returns
// the outermost {...} span, dropping any prose before or after the object.
// Text without an object is returned trimmed.
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = strings.TrimPrefix(s, "```json")
	case strings.HasPrefix(s, "```"):
		s = strings.TrimPrefix(s, "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

// ParseResponse decodes provider text into a Response, recovering fenced
// JSON first. Enum fields are lower-cased before validation.
func ParseResponse(text string) (Response, error) {
	payload := ExtractJSON(text)
	if payload == "" {
		return Response{}, ErrEmptyResponse
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &keys); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	normalize(&resp)

	var violations []ValidationError
	for _, k := range requiredKeys {
		if _, ok := keys[k]; !ok {
			violations = append(violations, ValidationError{Field: k, Message: "required field is missing"})
		}
	}
	missing, err := missingMembers(keys)
	if err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	violations = append(violations, missing...)

	reported := make(map[string]bool, len(missing))
	for _, v := range missing {
		reported[v.Field] = true
	}
	for _, v := range Validate(resp) {
		if !reported[v.Field] {
			violations = append(violations, v)
		}
	}
	if len(violations) > 0 {
		return Response{}, &SchemaError{Violations: violations}
	}
	return resp, nil
}

// missingMembers reports required members absent from the nested objects of
// a decoded payload.
func missingMembers(keys map[string]json.RawMessage) ([]ValidationError, error) {
	var errs []ValidationError
	for _, m := range memberKeys {
		raw, ok := keys[m.section]
		if !ok || isNull(raw) {
			continue
		}
		var items []map[string]json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%s: %w", m.section, err)
		}
		for i, item := range items {
			for _, k := range m.keys {
				if v, ok := item[k]; !ok || isNull(v) {
					errs = append(errs, ValidationError{Field: fmt.Sprintf("%s[%d].%s", m.section, i, k), Message: "required field is missing"})
				}
			}
		}
	}

	if raw, ok := keys["effort"]; ok && !isNull(raw) {
		var effort map[string]json.RawMessage
		if err := json.Unmarshal(raw, &effort); err != nil {
			return nil, fmt.Errorf("effort: %w", err)
		}
		if v, ok := effort["time"]; !ok || isNull(v) {
			errs = append(errs, ValidationError{Field: "effort.time", Message: "required field is missing"})
		}
	}
	return errs, nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

// Validate checks the enum values of a decoded Response. Presence of
// required members is checked by ParseResponse against the raw payload.
func Validate(resp Response) []ValidationError {
	var errs []ValidationError

	for i, r := range resp.Risks {
		if !r.Severity.IsValid() {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("risks[%d].severity", i),
				Message: "must be one of low, medium, high",
				Value:   string(r.Severity),
			})
		}
	}
	if !resp.Effort.Complexity.IsValid() {
		errs = append(errs, ValidationError{
			Field:   "effort.complexity",
			Message: "must be one of low, medium, high",
			Value:   string(resp.Effort.Complexity),
		})
	}
	for i, na := range resp.NextActions {
		if !na.Priority.IsValid() {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("next_actions[%d].priority", i),
				Message: "must be one of immediate, short, medium, long",
				Value:   string(na.Priority),
			})
		}
	}
	return errs
}

func normalize(resp *Response) {
	for i := range resp.Risks {
		resp.Risks[i].Severity = Severity(strings.ToLower(strings.TrimSpace(string(resp.Risks[i].Severity))))
	}
	resp.Effort.Complexity = Complexity(strings.ToLower(strings.TrimSpace(string(resp.Effort.Complexity))))
	for i := range resp.NextActions {
		resp.NextActions[i].Priority = Priority(strings.ToLower(strings.TrimSpace(string(resp.NextActions[i].Priority))))
	}
	if resp.Ideas == nil {
		resp.Ideas = []Idea{}
	}
	if resp.StepPlan == nil {
		resp.StepPlan = []Step{}
	}
	if resp.Risks == nil {
		resp.Risks = []Risk{}
	}
	if resp.Dependencies == nil {
		resp.Dependencies = []string{}
	}
	if resp.NextActions == nil {
		resp.NextActions = []NextAction{}
	}
}
