package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dusk-indust/ideaengine/internal/idea"
	"github.com/dusk-indust/ideaengine/internal/rank"
	"github.com/dusk-indust/ideaengine/internal/store"
)

// IdeasExport is the top-level export structure.
type IdeasExport struct {
	Title      string         `json:"title"`
	Prompt     string         `json:"prompt,omitempty"`
	ExportedAt string         `json:"exportedAt"`
	Bundles    []BundleExport `json:"bundles"`
}

// BundleExport is one ranked bundle with its score card.
type BundleExport struct {
	Rank  int            `json:"rank"`
	Score rank.ScoreCard `json:"scoreCard"`
	idea.Bundle
}

// FromRanked builds an export from bundles already in rank order. cards may
// be nil, in which case each bundle is scored with the default rubric.
func FromRanked(title, prompt string, bundles []idea.Bundle, cards []rank.ScoreCard) *IdeasExport {
	out := &IdeasExport{
		Title:      title,
		Prompt:     prompt,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Bundles:    make([]BundleExport, 0, len(bundles)),
	}
	for i, b := range bundles {
		var card rank.ScoreCard
		if i < len(cards) {
			card = cards[i]
		} else {
			card = rank.Score(b, rank.DefaultRubric)
		}
		out.Bundles = append(out.Bundles, BundleExport{Rank: i + 1, Score: card, Bundle: b})
	}
	return out
}

// FromChat exports the bundles of the latest assistant reply in msgs,
// scored under rubric. The prompt is the user message right before it.
func FromChat(chat store.Chat, msgs []store.Message, rubric rank.Rubric) (*IdeasExport, error) {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Role != store.RoleAssistant || len(m.Bundles) == 0 {
			continue
		}
		var prompt string
		for j := i - 1; j >= 0; j-- {
			if msgs[j].Role == store.RoleUser {
				prompt = msgs[j].Content
				break
			}
		}
		scored := rank.NewRanker(&rubric).RankScored(m.Bundles)
		bundles := make([]idea.Bundle, len(scored))
		cards := make([]rank.ScoreCard, len(scored))
		for k, s := range scored {
			bundles[k], cards[k] = s.Bundle, s.Card
		}
		return FromRanked(chat.Title, prompt, bundles, cards), nil
	}
	return nil, fmt.Errorf("chat %s has no idea bundles", chat.ID)
}

// WriteJSON writes e as indented JSON.
func WriteJSON(w io.Writer, e *IdeasExport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}
