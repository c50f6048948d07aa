// Package rank scores idea bundles against a weighted rubric, removes
// near-duplicates and orders the survivors by total score.
package rank

import (
	"fmt"
	"math"
	"strings"
)

// Dimension indexes one of the six rubric weights.
type Dimension int

const (
	Novelty Dimension = iota
	Feasibility
	Cost
	Time
	Risk
	Clarity
)

var dimensionNames = [...]string{"novelty", "feasibility", "cost", "time", "risk", "clarity"}

func (d Dimension) String() string {
	if d >= 0 && int(d) < len(dimensionNames) {
		return dimensionNames[d]
	}
	return "unknown"
}

// Dimensions returns all dimensions in rubric order.
func Dimensions() []Dimension {
	return []Dimension{Novelty, Feasibility, Cost, Time, Risk, Clarity}
}

// Rubric holds one weight per Dimension, in Dimension order.
type Rubric [6]float64

// DefaultRubric is used when a caller supplies none.
var DefaultRubric = Rubric{1.5, 2.0, 1.0, 1.0, 1.5, 2.0}

// Weight returns the weight for d.
func (r Rubric) Weight(d Dimension) float64 {
	return r[d]
}

// Validate rejects negative or non-finite weights.
func (r Rubric) Validate() error {
	for _, d := range Dimensions() {
		w := r[d]
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("rubric: %s weight is not finite", d)
		}
		if w < 0 {
			return fmt.Errorf("rubric: %s weight must be non-negative, got %g", d, w)
		}
	}
	return nil
}

// Map returns the rubric keyed by dimension name.
func (r Rubric) Map() map[string]float64 {
	m := make(map[string]float64, len(r))
	for _, d := range Dimensions() {
		m[d.String()] = r[d]
	}
	return m
}

// FromMap builds a rubric from named weights. Dimensions absent from m keep
// their DefaultRubric weight; unknown names are an error.
func FromMap(m map[string]float64) (Rubric, error) {
	r := DefaultRubric
	for name, w := range m {
		d, ok := parseDimension(name)
		if !ok {
			return Rubric{}, fmt.Errorf("rubric: unknown dimension %q", name)
		}
		r[d] = w
	}
	if err := r.Validate(); err != nil {
		return Rubric{}, err
	}
	return r, nil
}

func parseDimension(name string) (Dimension, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range dimensionNames {
		if n == name {
			return Dimension(i), true
		}
	}
	return 0, false
}
