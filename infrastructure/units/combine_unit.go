package units

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

var _ ports.Unit = (*CombineUnit)(nil)

// CombineUnit forms the consolidated weight vector as the adjusted-weight
// mixture of the normalized columns, then divides by its own sum to absorb
// floating-point drift.
type CombineUnit struct {
	name string
}

// NewCombineUnit creates a new CombineUnit.
func NewCombineUnit(name string) (*CombineUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	return &CombineUnit{name: name}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *CombineUnit) Name() string { return u.name }

// Execute reads the NormalizedMatrix and AdjustedWeights and writes the
// combined vector.
func (u *CombineUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	if err := checkContext(ctx); err != nil {
		return state, err
	}
	normalized, ok := domain.Get(state, domain.KeyNormalized)
	if !ok {
		return state, domain.MissingKeyError(domain.KeyNormalized, u.name)
	}
	adjusted, ok := domain.Get(state, domain.KeyAdjusted)
	if !ok {
		return state, domain.MissingKeyError(domain.KeyAdjusted, u.name)
	}

	combined, err := u.Combine(normalized, adjusted.Weights)
	if err != nil {
		return state, err
	}
	return domain.With(state, domain.KeyCombined, combined), nil
}

// Combine returns Σ_k weights[k]·column_k, rescaled to sum to 1.
func (u *CombineUnit) Combine(n domain.NormalizedMatrix, weights domain.Vector) (domain.Vector, error) {
	if len(weights) != n.Cols() {
		return nil, domain.NewShapeMismatchError("adjusted_weights", n.Cols(), len(weights))
	}

	combined := make(domain.Vector, n.Rows())
	for l, row := range n.Values {
		combined[l] = floats.Dot(row, weights)
	}

	sum := floats.Sum(combined)
	if sum <= 0 {
		return nil, fmt.Errorf("combined vector sums to %v", sum)
	}
	floats.Scale(1/sum, combined)
	return combined, nil
}

// Validate checks if the unit is properly configured.
func (u *CombineUnit) Validate() error {
	if u.name == "" {
		return ErrEmptyUnitName
	}
	return nil
}

// NewCombineFromConfig creates a CombineUnit. The stage takes no parameters.
func NewCombineFromConfig(id string, config map[string]any) (ports.Unit, error) {
	if len(config) > 0 {
		return nil, fmt.Errorf("parse config: %s takes no parameters", TypeCombine)
	}
	return NewCombineUnit(id)
}
