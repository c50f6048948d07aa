// Package idea defines the idea bundle produced by a completion provider and
// the parsing rules that turn raw provider text into one.
package idea

import (
	"time"

	"github.com/google/uuid"
)

// Severity grades a Risk.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// IsValid reports whether s is a known severity.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	default:
		return false
	}
}

// Complexity grades an EffortEstimate. The empty value means "not given".
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// IsValid reports whether c is a known complexity or unset.
func (c Complexity) IsValid() bool {
	switch c {
	case "", ComplexityLow, ComplexityMedium, ComplexityHigh:
		return true
	default:
		return false
	}
}

// Priority is the urgency of a NextAction.
type Priority string

const (
	PriorityImmediate Priority = "immediate"
	PriorityShort     Priority = "short"
	PriorityMedium    Priority = "medium"
	PriorityLong      Priority = "long"
)

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityImmediate, PriorityShort, PriorityMedium, PriorityLong:
		return true
	default:
		return false
	}
}

// Idea is a single proposal. A nil Rationale means none was given; an empty
// one was given as empty.
type Idea struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Rationale   *string `json:"rationale,omitempty"`
}

// Step is one entry of the ordered step plan.
type Step struct {
	Order   int     `json:"order"`
	Action  string  `json:"action"`
	Details *string `json:"details,omitempty"`
}

// Risk is a known hazard of carrying out the plan.
type Risk struct {
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Mitigation  *string  `json:"mitigation,omitempty"`
}

// EffortEstimate is the provider's guess at what the plan costs.
type EffortEstimate struct {
	Time       string     `json:"time"`
	Cost       *string    `json:"cost,omitempty"`
	Complexity Complexity `json:"complexity,omitempty"`
}

// NextAction is a follow-up the user can take right away.
type NextAction struct {
	Action   string   `json:"action"`
	Priority Priority `json:"priority"`
}

// Response is the structured payload a provider is asked to return.
type Response struct {
	Ideas        []Idea         `json:"ideas"`
	StepPlan     []Step         `json:"step_plan"`
	Risks        []Risk         `json:"risks"`
	Dependencies []string       `json:"dependencies"`
	Effort       EffortEstimate `json:"effort"`
	NextActions  []NextAction   `json:"next_actions"`
}

// Bundle is the result of one successful provider completion. Bundles are
// treated as immutable once built; ranking computes scores beside them.
type Bundle struct {
	ID           string         `json:"id"`
	Provider     string         `json:"provider"`
	Model        string         `json:"model"`
	Ideas        []Idea         `json:"ideas"`
	StepPlan     []Step         `json:"step_plan"`
	Risks        []Risk         `json:"risks"`
	Dependencies []string       `json:"dependencies"`
	Effort       EffortEstimate `json:"effort"`
	NextActions  []NextAction   `json:"next_actions"`
	RawResponse  string         `json:"raw_response,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// NewBundle stamps a parsed Response with a fresh ID and creation time.
func NewBundle(provider, model string, resp Response, raw string) Bundle {
	return Bundle{
		ID:           uuid.New().String(),
		Provider:     provider,
		Model:        model,
		Ideas:        resp.Ideas,
		StepPlan:     resp.StepPlan,
		Risks:        resp.Risks,
		Dependencies: resp.Dependencies,
		Effort:       resp.Effort,
		NextActions:  resp.NextActions,
		RawResponse:  raw,
		CreatedAt:    time.Now().UTC(),
	}
}

// Text returns a pointer to s, for filling optional fields.
func Text(s string) *string { return &s }

// Value returns *s, or "" when s is nil.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Titles returns the idea titles in order.
func (b Bundle) Titles() []string {
	titles := make([]string, len(b.Ideas))
	for i, id := range b.Ideas {
		titles[i] = id.Title
	}
	return titles
}
