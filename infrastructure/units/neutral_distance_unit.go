package units

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

var _ ports.Unit = (*NeutralDistanceUnit)(nil)

// NeutralDistanceUnit measures how far each decision-maker's normalized
// vector lies from the neutral vector, which gives every criterion 1/m.
// Distances are Euclidean and always non-negative; the stage cannot fail
// on a valid NormalizedMatrix.
type NeutralDistanceUnit struct {
	name string
}

// NewNeutralDistanceUnit creates a new NeutralDistanceUnit.
func NewNeutralDistanceUnit(name string) (*NeutralDistanceUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	return &NeutralDistanceUnit{name: name}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *NeutralDistanceUnit) Name() string { return u.name }

// Execute reads the NormalizedMatrix and writes the neutral vector and
// the distance vector.
func (u *NeutralDistanceUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	if err := checkContext(ctx); err != nil {
		return state, err
	}
	normalized, ok := domain.Get(state, domain.KeyNormalized)
	if !ok {
		return state, domain.MissingKeyError(domain.KeyNormalized, u.name)
	}

	neutral, distances := u.Distances(normalized)
	return state.WithMultiple(map[string]any{
		domain.KeyNeutral.Name():   neutral,
		domain.KeyDistances.Name(): distances,
	}), nil
}

// Distances returns the neutral vector and one distance per decision-maker.
func (u *NeutralDistanceUnit) Distances(n domain.NormalizedMatrix) (neutral, distances domain.Vector) {
	m := n.Rows()
	neutral = make(domain.Vector, m)
	for l := range neutral {
		neutral[l] = 1 / float64(m)
	}

	distances = make(domain.Vector, n.Cols())
	for k := range distances {
		distances[k] = floats.Distance(n.Column(k), neutral, 2)
	}
	return neutral, distances
}

// Validate checks if the unit is properly configured.
func (u *NeutralDistanceUnit) Validate() error {
	if u.name == "" {
		return ErrEmptyUnitName
	}
	return nil
}

// NewNeutralDistanceFromConfig creates a NeutralDistanceUnit. The stage
// takes no parameters.
func NewNeutralDistanceFromConfig(id string, config map[string]any) (ports.Unit, error) {
	if len(config) > 0 {
		return nil, fmt.Errorf("parse config: %s takes no parameters", TypeNeutralDistance)
	}
	return NewNeutralDistanceUnit(id)
}
