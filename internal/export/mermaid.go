package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/ideaengine/internal/idea"
)

// StepPlanMermaid renders a step plan as a Mermaid graph TD diagram with
// steps chained in order. Returns "" for an empty plan.
func StepPlanMermaid(steps []idea.Step) string {
	if len(steps) == 0 {
		return ""
	}
	sorted := make([]idea.Step, len(steps))
	copy(sorted, steps)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	var sb strings.Builder
	sb.WriteString("graph TD\n")
	for i, s := range sorted {
		sb.WriteString(fmt.Sprintf("  S%d[\"%d. %.60s\"]\n", i, s.Order, mermaidLabel(s.Action)))
	}
	for i := 1; i < len(sorted); i++ {
		sb.WriteString(fmt.Sprintf("  S%d --> S%d\n", i-1, i))
	}
	return sb.String()
}

// mermaidLabel makes text safe inside a quoted node label.
func mermaidLabel(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, `"`, "#quot;")
}
