// Package testutils provides reference scenarios and input generators for
// the project's test suites and load-testing tools. These components are
// intended for internal use and are not part of the public API.
package testutils

import (
	"github.com/ahrav/go-concord/internal/domain"
)

// Scenario is an input together with the values a correct consolidation
// produces for it. Expected values were computed independently.
type Scenario struct {
	// Name identifies the scenario in test output.
	Name string

	// Input is the raw submission.
	Input domain.Input

	// Distances holds each decision-maker's distance to the neutral vector.
	Distances []float64

	// Weights holds the decision-maker combination weights.
	Weights []float64

	// Combined is the consolidated weight vector.
	Combined []float64

	// SampleIndex and PopulationIndex hold the Consensus Index per
	// criterion under each estimator. Nil means not checked.
	SampleIndex     []float64
	PopulationIndex []float64
}

// Mirrored returns two decision-makers whose vectors mirror each other
// around the middle criterion. The middle criterion has perfect agreement.
func Mirrored() Scenario {
	return Scenario{
		Name: "mirrored",
		Input: domain.Input{
			Criteria: []string{"C1", "C2", "C3"},
			Weights:  [][]float64{{0.5, 0.2}, {0.3, 0.3}, {0.2, 0.5}},
		},
		Distances:       []float64{0.21602468994692867, 0.21602468994692867},
		Weights:         []float64{0.5, 0.5},
		Combined:        []float64{0.35, 0.3, 0.35},
		SampleIndex:     []float64{0.5552504100033393, 1, 0.5552504100033393},
		PopulationIndex: []float64{0.6855145489834245, 1, 0.6855145489834245},
	}
}

// ThreeMakers returns three decision-makers, one of whom sits exactly on
// the neutral vector and so receives the largest weight.
func ThreeMakers() Scenario {
	third := 1.0 / 3
	return Scenario{
		Name: "three makers",
		Input: domain.Input{
			Criteria: []string{"Cost", "Quality", "Delivery"},
			Weights: [][]float64{
				{0.6, third, 0.2},
				{0.3, third, 0.3},
				{0.1, third, 0.5},
			},
			Labels: []string{"Ana", "Bo", "Cy"},
		},
		Distances: []float64{0.3559026084010437, 0, 0.21602468994692867},
		Weights:   []float64{0.18885677477794982, 0.5, 0.3111432252220502},
		Combined:  []float64{0.3422093765778466, 0.31666666666666665, 0.34112395675548673},
	}
}

// Unanimous returns decision-makers who all submit the same vector.
func Unanimous() Scenario {
	return Scenario{
		Name: "unanimous",
		Input: domain.Input{
			Criteria: []string{"Cost", "Quality"},
			Weights:  [][]float64{{3, 3, 3}, {1, 1, 1}},
		},
		Distances:       []float64{0.3535533905932738, 0.3535533905932738, 0.3535533905932738},
		Weights:         []float64{1.0 / 3, 1.0 / 3, 1.0 / 3},
		Combined:        []float64{0.75, 0.25},
		SampleIndex:     []float64{1, 1},
		PopulationIndex: []float64{1, 1},
	}
}

// Scenarios returns every reference scenario.
func Scenarios() []Scenario {
	return []Scenario{Mirrored(), ThreeMakers(), Unanimous()}
}
