package rank

import (
	"math"
	"strings"

	"github.com/dusk-indust/ideaengine/internal/idea"
)

// ScoreCard holds the six sub-scores of a bundle, each in [0,10], and their
// rubric-weighted total.
type ScoreCard struct {
	Novelty     float64 `json:"novelty"`
	Feasibility float64 `json:"feasibility"`
	Cost        float64 `json:"cost"`
	Time        float64 `json:"time"`
	Risk        float64 `json:"risk"`
	Clarity     float64 `json:"clarity"`
	Total       float64 `json:"total"`
}

// Get returns the sub-score for d.
func (c ScoreCard) Get(d Dimension) float64 {
	switch d {
	case Novelty:
		return c.Novelty
	case Feasibility:
		return c.Feasibility
	case Cost:
		return c.Cost
	case Time:
		return c.Time
	case Risk:
		return c.Risk
	case Clarity:
		return c.Clarity
	default:
		return 0
	}
}

// Sub returns c minus other, dimension by dimension, including the total.
func (c ScoreCard) Sub(other ScoreCard) ScoreCard {
	return ScoreCard{
		Novelty:     c.Novelty - other.Novelty,
		Feasibility: c.Feasibility - other.Feasibility,
		Cost:        c.Cost - other.Cost,
		Time:        c.Time - other.Time,
		Risk:        c.Risk - other.Risk,
		Clarity:     c.Clarity - other.Clarity,
		Total:       c.Total - other.Total,
	}
}

// Score computes the score card of b under rubric r.
func Score(b idea.Bundle, r Rubric) ScoreCard {
	c := ScoreCard{
		Novelty:     NoveltyScore(b),
		Feasibility: FeasibilityScore(b),
		Cost:        CostScore(b),
		Time:        TimeScore(b),
		Risk:        RiskScore(b),
		Clarity:     ClarityScore(b),
	}
	c.Total = WeightedTotal(c, r)
	return c
}

// WeightedTotal sums each sub-score of c times its rubric weight.
func WeightedTotal(c ScoreCard, r Rubric) float64 {
	var total float64
	for _, d := range Dimensions() {
		total += c.Get(d) * r.Weight(d)
	}
	return total
}

// NoveltyScore rewards more ideas and ideas that carry a rationale. A
// rationale given as an empty string still counts.
func NoveltyScore(b idea.Bundle) float64 {
	var withRationale int
	for _, id := range b.Ideas {
		if id.Rationale != nil {
			withRationale++
		}
	}
	return math.Min(10, 0.5*float64(len(b.Ideas))+0.5*float64(withRationale))
}

// FeasibilityScore rewards up to five steps plus steps that carry details.
func FeasibilityScore(b idea.Bundle) float64 {
	var withDetails int
	for _, st := range b.StepPlan {
		if st.Details != nil {
			withDetails++
		}
	}
	steps := math.Min(5, float64(len(b.StepPlan)))
	return math.Min(10, steps+0.5*float64(withDetails))
}

// CostScore is 7 when a cost estimate is present, even an empty one, else 5.
func CostScore(b idea.Bundle) float64 {
	if b.Effort.Cost != nil {
		return 7
	}
	return 5
}

// TimeScore is 7 when the time estimate is non-empty, else 4.
func TimeScore(b idea.Bundle) float64 {
	if b.Effort.Time != "" {
		return 7
	}
	return 4
}

// RiskScore starts at 10, subtracts 2 per high and 0.5 per medium risk, adds
// 0.3 per mitigated risk, and clamps to [0,10].
func RiskScore(b idea.Bundle) float64 {
	var high, medium, mitigated int
	for _, r := range b.Risks {
		switch r.Severity {
		case idea.SeverityHigh:
			high++
		case idea.SeverityMedium:
			medium++
		}
		if r.Mitigation != nil {
			mitigated++
		}
	}
	s := 10 - 2*float64(high) - 0.5*float64(medium) + 0.3*float64(mitigated)
	return math.Max(0, math.Min(10, s))
}

// ClarityScore is a tenth of the words across idea descriptions and step
// actions, capped at 10.
func ClarityScore(b idea.Bundle) float64 {
	var words int
	for _, id := range b.Ideas {
		words += len(strings.Fields(id.Description))
	}
	for _, st := range b.StepPlan {
		words += len(strings.Fields(st.Action))
	}
	return math.Min(10, float64(words)/10)
}
