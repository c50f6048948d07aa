package rank

import (
	"slices"

	"github.com/dusk-indust/ideaengine/internal/idea"
)

// DuplicateThreshold is the title-set similarity above which a later bundle
// is dropped as a near-duplicate of an earlier one.
const DuplicateThreshold = 0.7

// Scored pairs a bundle with its score card.
type Scored struct {
	Bundle idea.Bundle `json:"bundle"`
	Card   ScoreCard   `json:"scoreCard"`
}

// Ranker applies a fixed rubric.
type Ranker struct {
	rubric Rubric
}

// NewRanker returns a Ranker for rubric, or DefaultRubric when rubric is nil.
func NewRanker(rubric *Rubric) *Ranker {
	if rubric == nil {
		return &Ranker{rubric: DefaultRubric}
	}
	return &Ranker{rubric: *rubric}
}

// Rubric returns the weights in effect.
func (rk *Ranker) Rubric() Rubric {
	return rk.rubric
}

// RankAndMerge scores bundles, removes near-duplicates keeping the first
// seen, and returns the survivors by descending total. Ties keep input order.
func (rk *Ranker) RankAndMerge(bundles []idea.Bundle) []idea.Bundle {
	scored := rk.RankScored(bundles)
	out := make([]idea.Bundle, len(scored))
	for i, s := range scored {
		out[i] = s.Bundle
	}
	return out
}

// RankScored is RankAndMerge but keeps each bundle's score card.
func (rk *Ranker) RankScored(bundles []idea.Bundle) []Scored {
	r := rk.Rubric()
	scored := make([]Scored, len(bundles))
	for i, b := range bundles {
		scored[i] = Scored{Bundle: b, Card: Score(b, r)}
	}

	kept := Dedupe(scored)
	slices.SortStableFunc(kept, func(a, b Scored) int {
		switch {
		case a.Card.Total > b.Card.Total:
			return -1
		case a.Card.Total < b.Card.Total:
			return 1
		default:
			// Equal or NaN.
			return 0
		}
	})
	return kept
}

// RankAndMerge ranks bundles with rubric, or DefaultRubric when rubric is nil.
func RankAndMerge(bundles []idea.Bundle, rubric *Rubric) []idea.Bundle {
	return NewRanker(rubric).RankAndMerge(bundles)
}

// Dedupe walks scored in order and keeps each entry unless its idea titles
// are more than DuplicateThreshold similar to an already kept entry.
func Dedupe(scored []Scored) []Scored {
	kept := make([]Scored, 0, len(scored))
	keptTitles := make([][]string, 0, len(scored))
	for _, s := range scored {
		titles := s.Bundle.Titles()
		dup := false
		for _, prev := range keptTitles {
			if Jaccard(prev, titles) > DuplicateThreshold {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, s)
			keptTitles = append(keptTitles, titles)
		}
	}
	return kept
}

// Jaccard returns |A∩B| / |A∪B| over the distinct elements of a and b.
// Two empty inputs are identical (1.0).
func Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	setA := make(map[string]struct{}, len(a))
	for _, s := range a {
		setA[s] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, s := range b {
		setB[s] = struct{}{}
	}

	var inter int
	for s := range setA {
		if _, ok := setB[s]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
