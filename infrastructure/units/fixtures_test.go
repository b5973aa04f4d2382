package units

import "github.com/ahrav/go-concord/internal/domain"

// scenarioInput is the 3 criteria × 2 decision-makers case with
// D1=[.5,.3,.2] and D2=[.2,.3,.5].
func scenarioInput() domain.Input {
	return domain.Input{
		Criteria: []string{"C1", "C2", "C3"},
		Weights:  [][]float64{{0.5, 0.2}, {0.3, 0.3}, {0.2, 0.5}},
	}
}

// normalizedOf builds a NormalizedMatrix from already-normalized columns,
// one per decision-maker.
func normalizedOf(columns ...[]float64) domain.NormalizedMatrix {
	m := len(columns[0])
	n := domain.NormalizedMatrix{
		Criteria:       make([]domain.Criterion, m),
		DecisionMakers: make([]domain.DecisionMaker, len(columns)),
		Values:         make([][]float64, m),
	}
	for l := range m {
		n.Criteria[l] = domain.Criterion{Index: l + 1, Name: "C" + string(rune('1'+l))}
		n.Values[l] = make([]float64, len(columns))
		for k, col := range columns {
			n.Values[l][k] = col[l]
		}
	}
	for k := range columns {
		n.DecisionMakers[k] = domain.DecisionMaker{Index: k + 1, Label: domain.DefaultLabel(k + 1)}
	}
	return n
}
