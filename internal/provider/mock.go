package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dusk-indust/ideaengine/internal/idea"
)

// Compile-time interface checks.
var (
	_ Provider = (*Func)(nil)
	_ Provider = (*Mock)(nil)
)

// Func adapts a plain function to the Provider interface.
type Func struct {
	ProviderID string
	ModelID    string
	Fn         func(ctx context.Context, system, user string) (idea.Bundle, error)
}

func (f *Func) ID() string    { return f.ProviderID }
func (f *Func) Model() string { return f.ModelID }

func (f *Func) Complete(ctx context.Context, system, user string) (idea.Bundle, error) {
	return f.Fn(ctx, system, user)
}

const (
	MockID    = "mock"
	mockModel = "mock-1"
)

// Mock is an offline provider that builds a small deterministic bundle from
// the user prompt. It needs no credential and is meant for local runs.
type Mock struct {
	model string
}

// NewMock creates a Mock provider.
func NewMock(s Settings) *Mock {
	return &Mock{model: s.modelOr(mockModel)}
}

func (m *Mock) ID() string    { return MockID }
func (m *Mock) Model() string { return m.model }

// Complete builds a canned response and runs its fenced JSON through the
// same parsing path as the hosted adapters.
func (m *Mock) Complete(ctx context.Context, _, user string) (idea.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return idea.Bundle{}, err
	}
	topic := []rune(strings.Join(strings.Fields(user), " "))
	if len(topic) > 60 {
		topic = topic[:60]
	}

	resp := idea.Response{
		Ideas: []idea.Idea{
			{
				Title:       "Start small: " + string(topic),
				Description: "Build the narrowest version that proves the idea works end to end.",
				Rationale:   idea.Text("Fast feedback"),
			},
			{
				Title:       "Reuse existing tools for " + string(topic),
				Description: "Assemble off-the-shelf services before writing custom code.",
			},
		},
		StepPlan: []idea.Step{
			{Order: 1, Action: "Write down the goal and success criteria", Details: idea.Text("One paragraph")},
			{Order: 2, Action: "Prototype the core flow"},
			{Order: 3, Action: "Review results and decide next iteration"},
		},
		Risks: []idea.Risk{
			{Description: "Scope creep", Severity: idea.SeverityMedium, Mitigation: idea.Text("Time-box the prototype")},
		},
		Dependencies: []string{"time", "a test environment"},
		Effort:       idea.EffortEstimate{Time: "1 week", Complexity: idea.ComplexityLow},
		NextActions: []idea.NextAction{
			{Action: "Block two hours to scope the prototype", Priority: idea.PriorityImmediate},
		},
	}
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return idea.Bundle{}, fmt.Errorf("mock: marshal: %w", err)
	}
	return toBundle(MockID, m.model, "```json\n"+string(data)+"\n```")
}
