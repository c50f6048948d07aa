package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/dusk-indust/ideaengine/internal/idea"
	"github.com/dusk-indust/ideaengine/internal/rank"
)

// Markdown renders e as a Markdown report.
func Markdown(e *IdeasExport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", e.Title)
	if e.Prompt != "" {
		fmt.Fprintf(&sb, "> %s\n\n", strings.ReplaceAll(strings.TrimSpace(e.Prompt), "\n", "\n> "))
	}
	fmt.Fprintf(&sb, "_Exported %s_\n\n", e.ExportedAt)

	if len(e.Bundles) == 0 {
		sb.WriteString("No idea bundles.\n")
		return sb.String()
	}
	for _, b := range e.Bundles {
		writeBundle(&sb, b)
	}
	return sb.String()
}

func writeBundle(sb *strings.Builder, b BundleExport) {
	fmt.Fprintf(sb, "## %d. %s (%s): score %.2f\n\n", b.Rank, b.Provider, b.Model, b.Score.Total)

	sb.WriteString("| Dimension | Score |\n|---|---|\n")
	for _, d := range rank.Dimensions() {
		fmt.Fprintf(sb, "| %s | %.2f |\n", d, b.Score.Get(d))
	}
	sb.WriteString("\n")

	sb.WriteString("### Ideas\n\n")
	for _, i := range b.Ideas {
		fmt.Fprintf(sb, "- **%s**: %s", i.Title, i.Description)
		if r := idea.Value(i.Rationale); r != "" {
			fmt.Fprintf(sb, " _(%s)_", r)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if len(b.StepPlan) > 0 {
		sb.WriteString("### Step plan\n\n")
		for _, s := range b.StepPlan {
			fmt.Fprintf(sb, "%d. %s", s.Order, s.Action)
			if d := idea.Value(s.Details); d != "" {
				fmt.Fprintf(sb, ": %s", d)
			}
			sb.WriteString("\n")
		}
		fmt.Fprintf(sb, "\n```mermaid\n%s```\n\n", StepPlanMermaid(b.StepPlan))
	}

	if len(b.Risks) > 0 {
		sb.WriteString("### Risks\n\n")
		for _, r := range b.Risks {
			fmt.Fprintf(sb, "- [%s] %s", r.Severity, r.Description)
			if m := idea.Value(r.Mitigation); m != "" {
				fmt.Fprintf(sb, ". Mitigation: %s", m)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if len(b.Dependencies) > 0 {
		sb.WriteString("### Dependencies\n\n")
		for _, d := range b.Dependencies {
			fmt.Fprintf(sb, "- %s\n", d)
		}
		sb.WriteString("\n")
	}

	writeEffort(sb, b.Effort)

	if len(b.NextActions) > 0 {
		sb.WriteString("### Next actions\n\n")
		for _, a := range b.NextActions {
			fmt.Fprintf(sb, "- [%s] %s\n", a.Priority, a.Action)
		}
		sb.WriteString("\n")
	}
}

func writeEffort(sb *strings.Builder, e idea.EffortEstimate) {
	sb.WriteString("### Effort\n\n")
	fmt.Fprintf(sb, "- Time: %s\n", e.Time)
	if c := idea.Value(e.Cost); c != "" {
		fmt.Fprintf(sb, "- Cost: %s\n", c)
	}
	if e.Complexity != "" {
		fmt.Fprintf(sb, "- Complexity: %s\n", e.Complexity)
	}
	sb.WriteString("\n")
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML renders e as a standalone HTML page.
func HTML(e *IdeasExport) (string, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(e)), &body); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n", html.EscapeString(e.Title))
	buf.Write(body.Bytes())
	buf.WriteString("</body>\n</html>\n")
	return buf.String(), nil
}
