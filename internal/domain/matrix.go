package domain

import "fmt"

// Tolerance is the absolute tolerance used when checking that a distribution
// sums to 1.
const Tolerance = 1e-9

// Criterion is one dimension being weighted. Index is the 1-based position
// in the input and never changes within a run.
type Criterion struct {
	Index int    `json:"index" yaml:"index"`
	Name  string `json:"name" yaml:"name"`
}

// DecisionMaker is a participant who supplied one weight vector.
// Index is 1-based.
type DecisionMaker struct {
	Index int    `json:"index" yaml:"index"`
	Label string `json:"label" yaml:"label"`
}

// DefaultLabel returns the label used for the decision-maker at a 1-based
// index when the caller did not name it.
func DefaultLabel(index int) string { return fmt.Sprintf("D%d", index) }

// DefaultCriterionName returns the name used for the criterion at a 1-based
// index when the caller left it blank.
func DefaultCriterionName(index int) string { return fmt.Sprintf("C%d", index) }

// Vector is a plain numeric vector indexed by criterion or decision-maker
// ordinal, depending on the table it belongs to.
type Vector []float64

// Sum returns the sum of the entries.
func (v Vector) Sum() float64 {
	var total float64
	for _, x := range v {
		total += x
	}
	return total
}

// Clone returns an independent copy of v.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// WeightMatrix holds the raw, validated weights of one run. Values has one
// row per criterion and one column per decision-maker. Every value is finite
// and non-negative.
type WeightMatrix struct {
	Criteria       []Criterion     `json:"criteria" yaml:"criteria"`
	DecisionMakers []DecisionMaker `json:"decision_makers" yaml:"decision_makers"`
	Values         [][]float64     `json:"values" yaml:"values"`
}

// Rows returns the number of criteria.
func (w WeightMatrix) Rows() int { return len(w.Criteria) }

// Cols returns the number of decision-makers.
func (w WeightMatrix) Cols() int { return len(w.DecisionMakers) }

// Column returns a copy of decision-maker k's weight vector (0-based k).
func (w WeightMatrix) Column(k int) Vector { return column(w.Values, k) }

// NormalizedMatrix has the shape of the WeightMatrix it was derived from,
// with every column rescaled to sum to 1.
type NormalizedMatrix struct {
	Criteria       []Criterion     `json:"criteria" yaml:"criteria"`
	DecisionMakers []DecisionMaker `json:"decision_makers" yaml:"decision_makers"`
	Values         [][]float64     `json:"values" yaml:"values"`
}

// Rows returns the number of criteria.
func (n NormalizedMatrix) Rows() int { return len(n.Criteria) }

// Cols returns the number of decision-makers.
func (n NormalizedMatrix) Cols() int { return len(n.DecisionMakers) }

// Column returns a copy of decision-maker k's normalized vector (0-based k).
func (n NormalizedMatrix) Column(k int) Vector { return column(n.Values, k) }

// Row returns a copy of criterion l's entries across decision-makers (0-based l).
func (n NormalizedMatrix) Row(l int) Vector { return Vector(n.Values[l]).Clone() }

// CheckColumnSums verifies that every column sums to 1 within Tolerance.
func (n NormalizedMatrix) CheckColumnSums() error {
	return n.CheckColumnSumsWithin(Tolerance)
}

// CheckColumnSumsWithin verifies that every column sums to 1 within tol.
func (n NormalizedMatrix) CheckColumnSumsWithin(tol float64) error {
	for k := range n.DecisionMakers {
		sum := n.Column(k).Sum()
		if sum < 1-tol || sum > 1+tol {
			return fmt.Errorf("column %d sums to %.12f, want 1", k+1, sum)
		}
	}
	return nil
}

func column(values [][]float64, k int) Vector {
	out := make(Vector, len(values))
	for l, row := range values {
		out[l] = row[k]
	}
	return out
}

// AdjustedWeights carries the per-decision-maker influence factors derived
// from distances to the neutral vector.
type AdjustedWeights struct {
	// NormalizedDistances is distance[k] / Σ distance, or all zero when every
	// distance is zero.
	NormalizedDistances Vector `json:"normalized_distances" yaml:"normalized_distances"`

	// Raw is 1 - NormalizedDistances[k]. It sums to n-1, not 1.
	Raw Vector `json:"raw" yaml:"raw"`

	// Weights is Raw rescaled to sum to 1. These are the combination weights.
	Weights Vector `json:"weights" yaml:"weights"`

	// Fallback is true when the equal-weight policy was applied because
	// the distances gave no usable signal.
	Fallback bool `json:"fallback" yaml:"fallback"`
}
