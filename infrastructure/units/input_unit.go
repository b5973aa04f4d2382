package units

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

var _ ports.Unit = (*InputUnit)(nil)

// InputUnit is the Input Matrix Builder. It turns the caller's raw Input
// into a validated WeightMatrix: the matrix is rectangular, criterion names
// are present and unique, and every weight is finite and non-negative.
// Invalid weights are rejected, never clamped.
//
// Criterion names are compared after trimming whitespace and applying
// Unicode case folding, so "Cost" and " cost " collide. With
// NearDuplicateDistance set, names within that many edits of an earlier
// name are rejected too, which catches typos such as "Cost" and "Costs".
//
// The unit is stateless and thread-safe.
type InputUnit struct {
	name   string
	config InputConfig
}

// InputConfig defines the configuration parameters for the InputUnit.
type InputConfig struct {
	// MaxCriteria caps the number of criteria. Zero means no limit.
	MaxCriteria int `yaml:"max_criteria" json:"max_criteria" validate:"min=0"`

	// MaxDecisionMakers caps the number of decision-makers. Zero means no limit.
	MaxDecisionMakers int `yaml:"max_decision_makers" json:"max_decision_makers" validate:"min=0"`

	// NearDuplicateDistance is the largest Levenshtein distance between two
	// folded criterion names that still counts as a duplicate. Zero
	// disables the check.
	NearDuplicateDistance int `yaml:"near_duplicate_distance" json:"near_duplicate_distance" validate:"min=0,max=3"`
}

// NewInputUnit creates a new InputUnit with the specified configuration.
func NewInputUnit(name string, config InputConfig) (*InputUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &InputUnit{name: name, config: config}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *InputUnit) Name() string { return u.name }

// Execute reads the Input snapshot and writes the validated WeightMatrix.
func (u *InputUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	if err := checkContext(ctx); err != nil {
		return state, err
	}
	in, ok := domain.Get(state, domain.KeyInput)
	if !ok {
		return state, domain.MissingKeyError(domain.KeyInput, u.name)
	}

	matrix, err := u.Build(in)
	if err != nil {
		return state, err
	}
	return domain.With(state, domain.KeyWeights, matrix), nil
}

// Build validates in and returns a WeightMatrix that shares no memory with it.
func (u *InputUnit) Build(in domain.Input) (domain.WeightMatrix, error) {
	m := len(in.Criteria)
	if m == 0 {
		return domain.WeightMatrix{}, domain.NewShapeMismatchError("criteria", 1, 0)
	}
	if len(in.Weights) != m {
		return domain.WeightMatrix{}, domain.NewShapeMismatchError("rows", m, len(in.Weights))
	}
	n := in.DecisionMakerCount()
	if n == 0 {
		return domain.WeightMatrix{}, domain.NewShapeMismatchError("decision_makers", 1, 0)
	}
	if u.config.MaxCriteria > 0 && m > u.config.MaxCriteria {
		return domain.WeightMatrix{}, fmt.Errorf("%w: %d criteria, limit %d",
			ErrLimitExceeded, m, u.config.MaxCriteria)
	}
	if u.config.MaxDecisionMakers > 0 && n > u.config.MaxDecisionMakers {
		return domain.WeightMatrix{}, fmt.Errorf("%w: %d decision-makers, limit %d",
			ErrLimitExceeded, n, u.config.MaxDecisionMakers)
	}

	criteria, err := u.criteria(in.Criteria)
	if err != nil {
		return domain.WeightMatrix{}, err
	}
	for l, row := range in.Weights {
		if len(row) != n {
			return domain.WeightMatrix{}, &domain.ShapeMismatchError{
				Dimension: "weights",
				Criterion: criteria[l].Name,
				Expected:  n,
				Got:       len(row),
			}
		}
	}
	if len(in.Labels) > 0 && len(in.Labels) != n {
		return domain.WeightMatrix{}, domain.NewShapeMismatchError("labels", n, len(in.Labels))
	}

	// Report the first offending decision-maker, scanning column by column.
	values := make([][]float64, m)
	for l := range values {
		values[l] = make([]float64, n)
	}
	for k := range n {
		for l := range m {
			w := in.Weights[l][k]
			if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
				return domain.WeightMatrix{}, domain.NewInvalidWeightError(k+1, criteria[l].Name, w)
			}
			values[l][k] = w
		}
	}

	makers := make([]domain.DecisionMaker, n)
	for k := range makers {
		label := domain.DefaultLabel(k + 1)
		if len(in.Labels) > 0 {
			if trimmed := strings.TrimSpace(in.Labels[k]); trimmed != "" {
				label = trimmed
			}
		}
		makers[k] = domain.DecisionMaker{Index: k + 1, Label: label}
	}

	return domain.WeightMatrix{
		Criteria:       criteria,
		DecisionMakers: makers,
		Values:         values,
	}, nil
}

// criteria trims and de-duplicates the criterion names.
func (u *InputUnit) criteria(names []string) ([]domain.Criterion, error) {
	fold := cases.Fold()
	folded := make([]string, 0, len(names))
	out := make([]domain.Criterion, len(names))

	for i, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			return nil, &domain.DuplicateCriterionError{Name: raw, Position: i + 1}
		}
		key := fold.String(name)
		for j, prev := range folded {
			if prev == key {
				return nil, &domain.DuplicateCriterionError{Name: name, Position: i + 1, FirstPosition: j + 1}
			}
			if u.config.NearDuplicateDistance > 0 &&
				levenshtein.ComputeDistance(prev, key) <= u.config.NearDuplicateDistance {
				return nil, &domain.DuplicateCriterionError{
					Name:          name,
					Position:      i + 1,
					FirstPosition: j + 1,
					Suggestion:    out[j].Name,
				}
			}
		}
		folded = append(folded, key)
		out[i] = domain.Criterion{Index: i + 1, Name: name}
	}
	return out, nil
}

// Validate checks if the unit is properly configured.
func (u *InputUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// DefaultInputConfig returns an InputConfig with no limits and exact
// duplicate detection only.
func DefaultInputConfig() InputConfig { return InputConfig{} }

// NewInputFromConfig creates an InputUnit from a configuration map.
// This is the boundary adapter for YAML/JSON configuration.
func NewInputFromConfig(id string, config map[string]any) (ports.Unit, error) {
	cfg := DefaultInputConfig()
	if err := decodeParameters(config, &cfg); err != nil {
		return nil, err
	}
	return NewInputUnit(id, cfg)
}
