package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/dusk-indust/ideaengine/internal/export"
	"github.com/dusk-indust/ideaengine/internal/idea"
	"github.com/dusk-indust/ideaengine/internal/orchestrator"
	"github.com/dusk-indust/ideaengine/internal/rank"
	"github.com/dusk-indust/ideaengine/internal/store"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatMD    = "md"
	formatHTML  = "html"
)

func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(header))
	return t
}

// snippet collapses whitespace and cuts s to n runes.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if text.RuneWidthWithoutEscSequences(s) <= n {
		return s
	}
	return text.Trim(s, n-1) + "…"
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func renderBundles(w io.Writer, bundles []idea.Bundle, cards []rank.ScoreCard) {
	t := newTable(w, "#", "Provider", "Model", "Score", "Ideas", "Steps", "Risks", "Top idea")
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
	})
	for i, b := range bundles {
		var total float64
		if i < len(cards) {
			total = cards[i].Total
		}
		top := "-"
		if len(b.Ideas) > 0 {
			top = snippet(b.Ideas[0].Title, 48)
		}
		t.AppendRow(table.Row{i + 1, b.Provider, b.Model, fmt.Sprintf("%.2f", total), len(b.Ideas), len(b.StepPlan), len(b.Risks), top})
	}
	t.Render()
}

func renderProviderErrors(w io.Writer, errs []orchestrator.ProviderError) {
	if len(errs) == 0 {
		return
	}
	t := newTable(w, "Provider", "Kind", "Attempts", "Error")
	for _, pe := range errs {
		t.AppendRow(table.Row{pe.Provider, pe.Kind, pe.Attempts, snippet(pe.Message, 72)})
	}
	t.Render()
}

func renderChats(w io.Writer, chats []store.Chat) {
	t := newTable(w, "ID", "Title", "Recipe", "Updated")
	for _, c := range chats {
		r := c.RecipeID
		if r == "" {
			r = "-"
		}
		t.AppendRow(table.Row{c.ID, snippet(c.Title, 40), r, stamp(c.UpdatedAt)})
	}
	t.Render()
}

func renderMessages(w io.Writer, msgs []store.Message) {
	t := newTable(w, "ID", "Role", "Created", "Bundles", "Feedback", "Content")
	for _, m := range msgs {
		fb := string(m.Feedback)
		if fb == "" {
			fb = "-"
		}
		t.AppendRow(table.Row{m.ID, m.Role, stamp(m.CreatedAt), len(m.Bundles), fb, snippet(m.Content, 60)})
	}
	t.Render()
}

// writeIdeas renders a ranked export in one of the document formats.
func writeIdeas(w io.Writer, format string, e *export.IdeasExport) error {
	switch format {
	case formatJSON:
		return export.WriteJSON(w, e)
	case formatMD:
		_, err := io.WriteString(w, export.Markdown(e))
		return err
	case formatHTML:
		page, err := export.HTML(e)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, page)
		return err
	default:
		return fmt.Errorf("unknown format %q: want json, md or html", format)
	}
}
