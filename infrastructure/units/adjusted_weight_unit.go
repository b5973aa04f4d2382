package units

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

var _ ports.Unit = (*AdjustedWeightUnit)(nil)

// AdjustedWeightUnit turns distances from the neutral vector into
// combination weights. A decision-maker further from neutral holds a more
// differentiated opinion and receives proportionally less influence:
//
//	nd[k]      = distance[k] / Σ distance
//	raw[k]     = 1 - nd[k]
//	weights[k] = raw[k] / Σ raw
//
// When every distance is zero, or when Σ raw is zero (a single
// decision-maker away from neutral), every decision-maker gets 1/n.
type AdjustedWeightUnit struct {
	name string
}

// NewAdjustedWeightUnit creates a new AdjustedWeightUnit.
func NewAdjustedWeightUnit(name string) (*AdjustedWeightUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	return &AdjustedWeightUnit{name: name}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *AdjustedWeightUnit) Name() string { return u.name }

// Execute reads the distance vector and writes the AdjustedWeights.
func (u *AdjustedWeightUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	if err := checkContext(ctx); err != nil {
		return state, err
	}
	distances, ok := domain.Get(state, domain.KeyDistances)
	if !ok {
		return state, domain.MissingKeyError(domain.KeyDistances, u.name)
	}

	adjusted, err := u.Adjust(distances)
	if err != nil {
		return state, err
	}
	return domain.With(state, domain.KeyAdjusted, adjusted), nil
}

// Adjust computes the combination weights for the given distances.
func (u *AdjustedWeightUnit) Adjust(distances domain.Vector) (domain.AdjustedWeights, error) {
	n := len(distances)
	if n == 0 {
		return domain.AdjustedWeights{}, domain.NewShapeMismatchError("decision_makers", 1, 0)
	}

	nd := make(domain.Vector, n)
	raw := make(domain.Vector, n)
	total := floats.Sum(distances)
	if total == 0 {
		for k := range raw {
			raw[k] = 1
		}
		return domain.AdjustedWeights{
			NormalizedDistances: nd,
			Raw:                 raw,
			Weights:             equalWeights(n),
			Fallback:            true,
		}, nil
	}

	for k, d := range distances {
		nd[k] = d / total
		raw[k] = 1 - nd[k]
	}
	rawSum := floats.Sum(raw)
	if rawSum == 0 {
		return domain.AdjustedWeights{
			NormalizedDistances: nd,
			Raw:                 raw,
			Weights:             equalWeights(n),
			Fallback:            true,
		}, nil
	}

	weights := make(domain.Vector, n)
	floats.ScaleTo(weights, 1/rawSum, raw)
	return domain.AdjustedWeights{
		NormalizedDistances: nd,
		Raw:                 raw,
		Weights:             weights,
	}, nil
}

func equalWeights(n int) domain.Vector {
	w := make(domain.Vector, n)
	for k := range w {
		w[k] = 1 / float64(n)
	}
	return w
}

// Validate checks if the unit is properly configured.
func (u *AdjustedWeightUnit) Validate() error {
	if u.name == "" {
		return ErrEmptyUnitName
	}
	return nil
}

// NewAdjustedWeightFromConfig creates an AdjustedWeightUnit. The stage
// takes no parameters.
func NewAdjustedWeightFromConfig(id string, config map[string]any) (ports.Unit, error) {
	if len(config) > 0 {
		return nil, fmt.Errorf("parse config: %s takes no parameters", TypeAdjustedWeight)
	}
	return NewAdjustedWeightUnit(id)
}
