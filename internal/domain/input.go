package domain

// Input is the raw snapshot a caller hands to the engine for one run.
// Weights has one row per criterion and one column per decision-maker.
// Labels is optional; when set it must have one entry per decision-maker.
type Input struct {
	Criteria []string    `json:"criteria" yaml:"criteria"`
	Weights  [][]float64 `json:"weights" yaml:"weights"`
	Labels   []string    `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// DecisionMakerCount returns the number of decision-makers implied by the
// first row, or 0 when there are no rows.
func (in Input) DecisionMakerCount() int {
	if len(in.Weights) == 0 {
		return 0
	}
	return len(in.Weights[0])
}

// InputFromVectors builds an Input from one weight vector per
// decision-maker, the layout forms usually collect. It transposes the
// vectors into the criteria × decision-makers layout. Vectors of the wrong
// length yield a ShapeMismatchError naming the decision-maker.
func InputFromVectors(criteria []string, vectors [][]float64, labels []string) (Input, error) {
	m := len(criteria)
	weights := make([][]float64, m)
	for l := range weights {
		weights[l] = make([]float64, len(vectors))
	}
	for k, vec := range vectors {
		if len(vec) != m {
			err := NewShapeMismatchError("weights", m, len(vec))
			err.DecisionMaker = k + 1
			return Input{}, err
		}
		for l, w := range vec {
			weights[l][k] = w
		}
	}
	return Input{Criteria: criteria, Weights: weights, Labels: labels}, nil
}
