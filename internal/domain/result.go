package domain

// Result holds every derived table of one consolidation run. It carries no
// identifiers or timestamps, so the same Input always yields an equal Result.
type Result struct {
	// Criteria lists the criteria in input order.
	Criteria []Criterion `json:"criteria" yaml:"criteria"`

	// DecisionMakers lists the decision-makers in input order.
	DecisionMakers []DecisionMaker `json:"decision_makers" yaml:"decision_makers"`

	// Normalized is the input matrix with every column summing to 1.
	Normalized NormalizedMatrix `json:"normalized" yaml:"normalized"`

	// Neutral is the uniform reference vector, 1/m per criterion.
	Neutral Vector `json:"neutral" yaml:"neutral"`

	// Distances holds each decision-maker's Euclidean distance to Neutral.
	Distances Vector `json:"distances" yaml:"distances"`

	// Adjusted holds the combination weights and their intermediate forms.
	Adjusted AdjustedWeights `json:"adjusted" yaml:"adjusted"`

	// Combined is the consolidated weight vector; it sums to 1.
	Combined Vector `json:"combined" yaml:"combined"`

	// Consensus holds the per-criterion agreement statistics.
	Consensus ConsensusReport `json:"consensus" yaml:"consensus"`
}

// CombinedWeight returns the combined weight of the named criterion.
func (r *Result) CombinedWeight(name string) (float64, bool) {
	for i, c := range r.Criteria {
		if c.Name == name {
			return r.Combined[i], true
		}
	}
	return 0, false
}
