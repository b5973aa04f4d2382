package units

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-concord/internal/domain"
)

func TestCombineUnit_Combine(t *testing.T) {
	tests := []struct {
		name     string
		matrix   domain.NormalizedMatrix
		weights  domain.Vector
		expected domain.Vector
	}{
		{
			name:     "symmetric scenario",
			matrix:   normalizedOf([]float64{0.5, 0.3, 0.2}, []float64{0.2, 0.3, 0.5}),
			weights:  domain.Vector{0.5, 0.5},
			expected: domain.Vector{0.35, 0.3, 0.35},
		},
		{
			name: "three decision-makers",
			matrix: normalizedOf(
				[]float64{0.6, 0.3, 0.1},
				[]float64{1.0 / 3, 1.0 / 3, 1.0 / 3},
				[]float64{0.2, 0.3, 0.5},
			),
			weights:  domain.Vector{0.18885677477794982, 0.5, 0.3111432252220502},
			expected: domain.Vector{0.3422093765778466, 0.31666666666666665, 0.34112395675548673},
		},
		{
			name:     "single decision-maker returns its column",
			matrix:   normalizedOf([]float64{0.7, 0.2, 0.1}),
			weights:  domain.Vector{1},
			expected: domain.Vector{0.7, 0.2, 0.1},
		},
	}

	unit, err := NewCombineUnit("combine")
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := unit.Combine(tt.matrix, tt.weights)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.expected, got, 1e-12)
			assert.InDelta(t, 1.0, got.Sum(), domain.Tolerance)
		})
	}
}

func TestCombineUnit_ShapeMismatch(t *testing.T) {
	unit, err := NewCombineUnit("combine")
	require.NoError(t, err)

	_, err = unit.Combine(normalizedOf([]float64{1}, []float64{1}), domain.Vector{1})
	assert.ErrorIs(t, err, domain.ErrShapeMismatch)
}

func TestCombineUnit_Execute(t *testing.T) {
	unit, err := NewCombineFromConfig("combine", nil)
	require.NoError(t, err)

	base := domain.With(domain.NewState(), domain.KeyNormalized,
		normalizedOf([]float64{0.5, 0.3, 0.2}, []float64{0.2, 0.3, 0.5}))

	_, err = unit.Execute(context.Background(), base)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound, "adjusted weights are required")

	state := domain.With(base, domain.KeyAdjusted, domain.AdjustedWeights{Weights: domain.Vector{0.5, 0.5}})
	next, err := unit.Execute(context.Background(), state)
	require.NoError(t, err)

	combined, ok := domain.Get(next, domain.KeyCombined)
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{0.35, 0.3, 0.35}, combined, 1e-12)
}
