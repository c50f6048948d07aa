// Package recipe defines reusable prompt recipes: a system prompt, a user
// prompt template with {{name}} placeholders, an optional scoring rubric and
// few-shot examples.
package recipe

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dusk-indust/ideaengine/internal/rank"
)

// Recipe is a named prompt configuration.
type Recipe struct {
	ID                 string             `toml:"id" json:"id"`
	Name               string             `toml:"name" json:"name"`
	SystemPrompt       string             `toml:"system_prompt" json:"systemPrompt"`
	UserPromptTemplate string             `toml:"user_prompt_template" json:"userPromptTemplate"`
	Rubric             map[string]float64 `toml:"rubric" json:"rubric,omitempty"`
	FewShotExamples    []string           `toml:"few_shot_examples" json:"fewShotExamples,omitempty"`
	CreatedAt          time.Time          `toml:"-" json:"createdAt"`
	Source             string             `toml:"-" json:"source,omitempty"`
}

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// MissingVariablesError lists template variables that had no value.
type MissingVariablesError struct {
	Names []string
}

func (e *MissingVariablesError) Error() string {
	return "missing template variables: " + strings.Join(e.Names, ", ")
}

// Validate checks required fields and the rubric weights.
func (r Recipe) Validate() error {
	var errs []error
	if strings.TrimSpace(r.ID) == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if strings.TrimSpace(r.SystemPrompt) == "" {
		errs = append(errs, errors.New("system_prompt is required"))
	}
	if _, err := r.Weights(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("recipe %q: %w", r.ID, errors.Join(errs...))
	}
	return nil
}

// Weights returns the recipe rubric merged over the default weights.
func (r Recipe) Weights() (rank.Rubric, error) {
	if len(r.Rubric) == 0 {
		return rank.DefaultRubric, nil
	}
	return rank.FromMap(r.Rubric)
}

// Variables returns the distinct placeholder names in the user template,
// sorted.
func (r Recipe) Variables() []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholder.FindAllStringSubmatch(r.UserPromptTemplate, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	sort.Strings(names)
	return names
}

// Render substitutes vars into the user template. Every placeholder must
// have a value; the error lists the ones that do not. Unused vars are
// ignored. A template without placeholders renders as-is.
func (r Recipe) Render(vars map[string]string) (string, error) {
	var missing []string
	for _, name := range r.Variables() {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", &MissingVariablesError{Names: missing}
	}

	out := placeholder.ReplaceAllStringFunc(r.UserPromptTemplate, func(m string) string {
		return vars[placeholder.FindStringSubmatch(m)[1]]
	})
	return strings.TrimSpace(out), nil
}

// SystemPromptWithExamples returns the system prompt followed by the
// few-shot examples, one per line.
func (r Recipe) SystemPromptWithExamples() string {
	sys := strings.TrimSpace(r.SystemPrompt)
	if len(r.FewShotExamples) == 0 {
		return sys
	}
	var b strings.Builder
	b.WriteString(sys)
	b.WriteString("\n\nExamples:")
	for _, ex := range r.FewShotExamples {
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(ex))
	}
	return b.String()
}
