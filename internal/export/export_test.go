package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/ideaengine/internal/idea"
	"github.com/dusk-indust/ideaengine/internal/rank"
	"github.com/dusk-indust/ideaengine/internal/store"
)

func sampleBundle(provider, title string) idea.Bundle {
	return idea.NewBundle(provider, provider+"-1", idea.Response{
		Ideas:        []idea.Idea{{Title: title, Description: "Use the official API", Rationale: idea.Text("quota friendly")}},
		StepPlan:     []idea.Step{{Order: 2, Action: "Translate captions"}, {Order: 1, Action: `List "playlist" items`, Details: idea.Text("playlistItems.list")}},
		Risks:        []idea.Risk{{Description: "Quota exhaustion", Severity: idea.SeverityHigh, Mitigation: idea.Text("Batch requests")}},
		Dependencies: []string{"YouTube Data API v3"},
		Effort:       idea.EffortEstimate{Time: "3 days", Complexity: idea.ComplexityMedium},
		NextActions:  []idea.NextAction{{Action: "Create API key", Priority: idea.PriorityImmediate}},
	}, "")
}

func TestStepPlanMermaid(t *testing.T) {
	got := StepPlanMermaid(sampleBundle("p", "t").StepPlan)
	want := "graph TD\n" +
		"  S0[\"1. List #quot;playlist#quot; items\"]\n" +
		"  S1[\"2. Translate captions\"]\n" +
		"  S0 --> S1\n"
	assert.Equal(t, want, got)
	assert.Empty(t, StepPlanMermaid(nil))
}

func TestFromRanked_ScoresWhenCardsMissing(t *testing.T) {
	b := sampleBundle("openai", "Cache ids")
	e := FromRanked("Playlist", "translate it", []idea.Bundle{b}, nil)

	require.Len(t, e.Bundles, 1)
	assert.Equal(t, 1, e.Bundles[0].Rank)
	assert.Equal(t, rank.Score(b, rank.DefaultRubric), e.Bundles[0].Score)
}

func TestWriteJSON(t *testing.T) {
	e := FromRanked("Playlist", "", []idea.Bundle{sampleBundle("openai", "Cache ids")}, nil)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, e))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	bundles := decoded["bundles"].([]any)
	first := bundles[0].(map[string]any)
	assert.Equal(t, "openai", first["provider"], "bundle fields are inlined")
	assert.Contains(t, first, "scoreCard")
	assert.Contains(t, first, "step_plan")
}

func TestMarkdown(t *testing.T) {
	e := FromRanked("Playlist plan", "line one\nline two", []idea.Bundle{sampleBundle("gemini", "Cache ids")}, nil)
	out := Markdown(e)

	assert.True(t, strings.HasPrefix(out, "# Playlist plan\n\n> line one\n> line two\n"))
	assert.Contains(t, out, "## 1. gemini (gemini-1): score ")
	assert.Contains(t, out, "| novelty | ")
	assert.Contains(t, out, "- **Cache ids**: Use the official API _(quota friendly)_")
	assert.Contains(t, out, "2. Translate captions")
	assert.Contains(t, out, "```mermaid\ngraph TD\n")
	assert.Contains(t, out, "- [high] Quota exhaustion. Mitigation: Batch requests")
	assert.Contains(t, out, "- Complexity: medium")
	assert.Contains(t, out, "- [immediate] Create API key")

	assert.Contains(t, Markdown(FromRanked("Empty", "", nil, nil)), "No idea bundles.")
}

func TestHTML(t *testing.T) {
	e := FromRanked("<Plan>", "", []idea.Bundle{sampleBundle("openai", "Cache ids")}, nil)
	out, err := HTML(e)
	require.NoError(t, err)

	assert.Contains(t, out, "<title>&lt;Plan&gt;</title>")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<strong>Cache ids</strong>")
}

func TestFromChat(t *testing.T) {
	low := sampleBundle("a", "Only idea")
	low.Ideas = nil
	high := sampleBundle("b", "Rich idea")

	chat := store.Chat{ID: "c1", Title: "Chat"}
	msgs := []store.Message{
		{Role: store.RoleUser, Content: "first"},
		{Role: store.RoleAssistant, Bundles: []idea.Bundle{sampleBundle("x", "old")}},
		{Role: store.RoleUser, Content: "second"},
		{Role: store.RoleAssistant, Bundles: []idea.Bundle{low, high}},
		{Role: store.RoleUser, Content: "unanswered"},
	}

	e, err := FromChat(chat, msgs, rank.DefaultRubric)
	require.NoError(t, err)
	assert.Equal(t, "second", e.Prompt)
	require.Len(t, e.Bundles, 2)
	assert.Equal(t, "b", e.Bundles[0].Provider)

	_, err = FromChat(chat, msgs[:1], rank.DefaultRubric)
	assert.ErrorContains(t, err, "has no idea bundles")
}
