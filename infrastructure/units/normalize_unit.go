package units

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

var _ ports.Unit = (*NormalizeUnit)(nil)

// NormalizeUnit rescales each decision-maker's weight column to sum to 1.
// Every column is divided by its own sum, including columns that already
// sum to 1, so the output never depends on how the input was scaled.
// A column that sums to zero is a DegenerateInputError.
type NormalizeUnit struct {
	name   string
	config NormalizeConfig
}

// NormalizeConfig defines the configuration parameters for the NormalizeUnit.
type NormalizeConfig struct {
	// Tolerance bounds the post-check on column sums.
	Tolerance float64 `yaml:"tolerance" json:"tolerance" validate:"gt=0,lte=0.000001"`
}

// DefaultNormalizeConfig returns a NormalizeConfig using domain.Tolerance.
func DefaultNormalizeConfig() NormalizeConfig {
	return NormalizeConfig{Tolerance: domain.Tolerance}
}

// NewNormalizeUnit creates a new NormalizeUnit with the specified configuration.
func NewNormalizeUnit(name string, config NormalizeConfig) (*NormalizeUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &NormalizeUnit{name: name, config: config}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *NormalizeUnit) Name() string { return u.name }

// Execute reads the WeightMatrix and writes the NormalizedMatrix.
func (u *NormalizeUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	if err := checkContext(ctx); err != nil {
		return state, err
	}
	weights, ok := domain.Get(state, domain.KeyWeights)
	if !ok {
		return state, domain.MissingKeyError(domain.KeyWeights, u.name)
	}

	normalized, err := u.Normalize(weights)
	if err != nil {
		return state, err
	}
	return domain.With(state, domain.KeyNormalized, normalized), nil
}

// Normalize returns a new matrix whose columns each sum to 1.
func (u *NormalizeUnit) Normalize(w domain.WeightMatrix) (domain.NormalizedMatrix, error) {
	values := make([][]float64, w.Rows())
	for l := range values {
		values[l] = make([]float64, w.Cols())
	}

	for k, dm := range w.DecisionMakers {
		col := w.Column(k)
		// Scale by the column maximum first so large finite weights cannot
		// overflow the sum.
		peak := floats.Max(col)
		if peak <= 0 {
			return domain.NormalizedMatrix{}, domain.NewDegenerateInputError(dm)
		}
		floats.Scale(1/peak, col)
		sum := floats.Sum(col)
		if sum == 0 {
			return domain.NormalizedMatrix{}, domain.NewDegenerateInputError(dm)
		}
		for l, x := range col {
			values[l][k] = x / sum
		}
	}

	out := domain.NormalizedMatrix{
		Criteria:       append([]domain.Criterion(nil), w.Criteria...),
		DecisionMakers: append([]domain.DecisionMaker(nil), w.DecisionMakers...),
		Values:         values,
	}
	if err := out.CheckColumnSumsWithin(u.config.Tolerance); err != nil {
		return domain.NormalizedMatrix{}, fmt.Errorf("normalize: %w", err)
	}
	return out, nil
}

// Validate checks if the unit is properly configured.
func (u *NormalizeUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// NewNormalizeFromConfig creates a NormalizeUnit from a configuration map.
func NewNormalizeFromConfig(id string, config map[string]any) (ports.Unit, error) {
	cfg := DefaultNormalizeConfig()
	if err := decodeParameters(config, &cfg); err != nil {
		return nil, err
	}
	return NewNormalizeUnit(id, cfg)
}
