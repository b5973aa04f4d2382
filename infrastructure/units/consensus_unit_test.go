package units

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-concord/internal/domain"
)

func TestNewConsensusUnit(t *testing.T) {
	tests := []struct {
		name     string
		config   ConsensusConfig
		errorMsg string
	}{
		{name: "defaults", config: DefaultConsensusConfig()},
		{
			name:   "population estimator",
			config: ConsensusConfig{Estimator: domain.EstimatorPopulation, HighThreshold: 0.9, ModerateThreshold: 0.6, LowThreshold: 0.3},
		},
		{
			name:     "unknown estimator",
			config:   ConsensusConfig{Estimator: "median", HighThreshold: 0.85, ModerateThreshold: 0.7, LowThreshold: 0.5},
			errorMsg: "oneof",
		},
		{
			name:     "thresholds not descending",
			config:   ConsensusConfig{Estimator: domain.EstimatorSample, HighThreshold: 0.7, ModerateThreshold: 0.7, LowThreshold: 0.5},
			errorMsg: "gtfield",
		},
		{
			name:     "threshold above one",
			config:   ConsensusConfig{Estimator: domain.EstimatorSample, HighThreshold: 1.2, ModerateThreshold: 0.7, LowThreshold: 0.5},
			errorMsg: "lte",
		},
		{
			name:     "zero low threshold",
			config:   ConsensusConfig{Estimator: domain.EstimatorSample, HighThreshold: 0.85, ModerateThreshold: 0.7, LowThreshold: 0},
			errorMsg: "gt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, err := NewConsensusUnit("consensus", tt.config)
			if tt.errorMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, unit.Validate())
		})
	}
}

func TestConsensusUnit_Assess(t *testing.T) {
	tests := []struct {
		name      string
		config    ConsensusConfig
		matrix    domain.NormalizedMatrix
		indexes   []float64
		levels    []domain.ConsensusLevel
		bands     []domain.DispersionBand
		estimator domain.Estimator
	}{
		{
			name:      "symmetric scenario with sample estimator",
			config:    DefaultConsensusConfig(),
			matrix:    normalizedOf([]float64{0.5, 0.3, 0.2}, []float64{0.2, 0.3, 0.5}),
			indexes:   []float64{0.5552504100033393, 1, 0.5552504100033393},
			levels:    []domain.ConsensusLevel{domain.LevelLow, domain.LevelHigh, domain.LevelLow},
			bands:     []domain.DispersionBand{domain.DispersionStrongDivergence, domain.DispersionStrongAgreement, domain.DispersionStrongDivergence},
			estimator: domain.EstimatorSample,
		},
		{
			name: "symmetric scenario with population estimator",
			config: ConsensusConfig{
				Estimator: domain.EstimatorPopulation, HighThreshold: 0.85, ModerateThreshold: 0.70, LowThreshold: 0.50,
			},
			matrix:    normalizedOf([]float64{0.5, 0.3, 0.2}, []float64{0.2, 0.3, 0.5}),
			indexes:   []float64{0.6855145489834245, 1, 0.6855145489834245},
			levels:    []domain.ConsensusLevel{domain.LevelLow, domain.LevelHigh, domain.LevelLow},
			estimator: domain.EstimatorPopulation,
		},
		{
			name:      "single decision-maker agrees with itself",
			config:    DefaultConsensusConfig(),
			matrix:    normalizedOf([]float64{0.7, 0.2, 0.1}),
			indexes:   []float64{1, 1, 1},
			levels:    []domain.ConsensusLevel{domain.LevelHigh, domain.LevelHigh, domain.LevelHigh},
			bands:     []domain.DispersionBand{domain.DispersionStrongAgreement, domain.DispersionStrongAgreement, domain.DispersionStrongAgreement},
			estimator: domain.EstimatorSample,
		},
		{
			name:      "all-zero row and maximal split",
			config:    DefaultConsensusConfig(),
			matrix:    normalizedOf([]float64{1, 0, 0}, []float64{0, 1, 0}),
			indexes:   []float64{0, 0, 1},
			levels:    []domain.ConsensusLevel{domain.LevelDissent, domain.LevelDissent, domain.LevelHigh},
			bands:     []domain.DispersionBand{domain.DispersionStrongDivergence, domain.DispersionStrongDivergence, domain.DispersionStrongAgreement},
			estimator: domain.EstimatorSample,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, err := NewConsensusUnit("consensus", tt.config)
			require.NoError(t, err)

			report := unit.Assess(tt.matrix)
			assert.Equal(t, tt.estimator, report.Estimator)
			require.Len(t, report.Entries, len(tt.indexes))
			for l, e := range report.Entries {
				assert.InDelta(t, tt.indexes[l], e.Index, 1e-9, "criterion %d", l+1)
				assert.Equal(t, tt.levels[l], e.Level, "criterion %d", l+1)
				if tt.bands != nil {
					assert.Equal(t, tt.bands[l], e.Dispersion, "criterion %d", l+1)
				}
				assert.GreaterOrEqual(t, e.Index, 0.0)
				assert.LessOrEqual(t, e.Index, 1.0)
				assert.Equal(t, tt.matrix.Criteria[l], e.Criterion)
			}
		})
	}
}

func TestConsensusUnit_Level(t *testing.T) {
	unit, err := NewConsensusUnit("consensus", DefaultConsensusConfig())
	require.NoError(t, err)

	tests := []struct {
		index float64
		want  domain.ConsensusLevel
	}{
		{1, domain.LevelHigh},
		{0.85, domain.LevelHigh},
		{0.8499, domain.LevelModerate},
		{0.70, domain.LevelModerate},
		{0.5, domain.LevelLow},
		{0.4999, domain.LevelDissent},
		{0, domain.LevelDissent},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, unit.Level(tt.index), "index=%v", tt.index)
	}
}

func TestConsensusUnit_Execute(t *testing.T) {
	unit, err := NewConsensusFromConfig("consensus", map[string]any{"estimator": "population"})
	require.NoError(t, err)

	state := domain.With(domain.NewState(), domain.KeyNormalized,
		normalizedOf([]float64{0.5, 0.5}, []float64{0.5, 0.5}))
	next, err := unit.Execute(context.Background(), state)
	require.NoError(t, err)

	report, ok := domain.Get(next, domain.KeyConsensus)
	require.True(t, ok)
	assert.Equal(t, domain.EstimatorPopulation, report.Estimator)

	entry, ok := report.Lookup("C2")
	require.True(t, ok)
	assert.Equal(t, 1.0, entry.Index)
	assert.Equal(t, 0.5, entry.Mean)

	_, err = unit.Execute(context.Background(), domain.NewState())
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestNewConsensusFromConfig_Errors(t *testing.T) {
	_, err := NewConsensusFromConfig("consensus", map[string]any{"high_threshold": 0.6})
	assert.ErrorContains(t, err, "gtfield", "0.6 is below the default moderate threshold")

	_, err = NewConsensusFromConfig("consensus", map[string]any{"estimatr": "sample"})
	assert.ErrorContains(t, err, "parse config")
}
