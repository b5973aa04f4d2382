package units

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

var _ ports.Unit = (*ConsensusUnit)(nil)

// ConsensusUnit computes the Consensus Index of every criterion from the
// normalized weights the decision-makers gave it.
//
// For a row with mean μ and standard deviation σ, the largest σ any sample
// bounded in [0,1] can reach is sqrt(μ(1-μ)). The index is
//
//	CI = 1 - min(σ / sqrt(μ(1-μ)), 1)
//
// so 1 is perfect agreement and 0 is maximal disagreement. A row whose
// maximum is zero (all zeros, or all ones) has CI = 1.
//
// The unit is stateless and thread-safe.
type ConsensusUnit struct {
	name   string
	config ConsensusConfig
}

// ConsensusConfig defines the configuration parameters for the ConsensusUnit.
// Thresholds are inclusive lower bounds and must be strictly descending.
type ConsensusConfig struct {
	// Estimator selects the standard deviation divisor: "sample" (n-1) or
	// "population" (n).
	Estimator domain.Estimator `yaml:"estimator" json:"estimator" validate:"required,oneof=sample population"`

	// HighThreshold is the lowest index labelled "High consensus".
	HighThreshold float64 `yaml:"high_threshold" json:"high_threshold" validate:"gt=0,lte=1,gtfield=ModerateThreshold"`

	// ModerateThreshold is the lowest index labelled "Moderate".
	ModerateThreshold float64 `yaml:"moderate_threshold" json:"moderate_threshold" validate:"gt=0,lte=1,gtfield=LowThreshold"`

	// LowThreshold is the lowest index labelled "Low". Anything below is
	// "Dissent".
	LowThreshold float64 `yaml:"low_threshold" json:"low_threshold" validate:"gt=0,lte=1"`
}

// DefaultConsensusConfig returns the sample estimator with thresholds
// 0.85, 0.70 and 0.50.
func DefaultConsensusConfig() ConsensusConfig {
	return ConsensusConfig{
		Estimator:         domain.EstimatorSample,
		HighThreshold:     0.85,
		ModerateThreshold: 0.70,
		LowThreshold:      0.50,
	}
}

// NewConsensusUnit creates a new ConsensusUnit with the specified configuration.
func NewConsensusUnit(name string, config ConsensusConfig) (*ConsensusUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &ConsensusUnit{name: name, config: config}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *ConsensusUnit) Name() string { return u.name }

// Execute reads the NormalizedMatrix and writes the ConsensusReport.
func (u *ConsensusUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	if err := checkContext(ctx); err != nil {
		return state, err
	}
	normalized, ok := domain.Get(state, domain.KeyNormalized)
	if !ok {
		return state, domain.MissingKeyError(domain.KeyNormalized, u.name)
	}
	return domain.With(state, domain.KeyConsensus, u.Assess(normalized)), nil
}

// Assess returns one ConsensusEntry per criterion, in criterion order.
func (u *ConsensusUnit) Assess(n domain.NormalizedMatrix) domain.ConsensusReport {
	entries := make([]domain.ConsensusEntry, n.Rows())
	for l, c := range n.Criteria {
		mean, std := u.meanStdDev(n.Row(l))

		maxStd := math.Sqrt(math.Max(mean*(1-mean), 0))
		index := 1.0
		if maxStd > 0 {
			index = 1 - math.Min(std/maxStd, 1)
		}

		entries[l] = domain.ConsensusEntry{
			Criterion:  c,
			Mean:       mean,
			StdDev:     std,
			MaxStdDev:  maxStd,
			Index:      index,
			Level:      u.Level(index),
			Dispersion: domain.BandForStdDev(std),
		}
	}
	return domain.ConsensusReport{Estimator: u.config.Estimator, Entries: entries}
}

// meanStdDev returns the mean and standard deviation of a row. A single
// observation has no spread.
func (u *ConsensusUnit) meanStdDev(row []float64) (mean, std float64) {
	if len(row) == 1 {
		return row[0], 0
	}
	if u.config.Estimator == domain.EstimatorPopulation {
		return stat.PopMeanStdDev(row, nil)
	}
	return stat.MeanStdDev(row, nil)
}

// Level maps a Consensus Index to its qualitative label.
func (u *ConsensusUnit) Level(index float64) domain.ConsensusLevel {
	switch {
	case index >= u.config.HighThreshold:
		return domain.LevelHigh
	case index >= u.config.ModerateThreshold:
		return domain.LevelModerate
	case index >= u.config.LowThreshold:
		return domain.LevelLow
	default:
		return domain.LevelDissent
	}
}

// Validate checks if the unit is properly configured.
func (u *ConsensusUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// NewConsensusFromConfig creates a ConsensusUnit from a configuration map.
// This is the boundary adapter for YAML/JSON configuration.
func NewConsensusFromConfig(id string, config map[string]any) (ports.Unit, error) {
	cfg := DefaultConsensusConfig()
	if err := decodeParameters(config, &cfg); err != nil {
		return nil, err
	}
	return NewConsensusUnit(id, cfg)
}
