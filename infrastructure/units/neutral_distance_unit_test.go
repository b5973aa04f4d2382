package units

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-concord/internal/domain"
)

func TestNeutralDistanceUnit_Distances(t *testing.T) {
	tests := []struct {
		name      string
		matrix    domain.NormalizedMatrix
		neutral   domain.Vector
		distances domain.Vector
	}{
		{
			name:      "symmetric scenario",
			matrix:    normalizedOf([]float64{0.5, 0.3, 0.2}, []float64{0.2, 0.3, 0.5}),
			neutral:   domain.Vector{1.0 / 3, 1.0 / 3, 1.0 / 3},
			distances: domain.Vector{0.21602468994692867, 0.21602468994692867},
		},
		{
			name:      "neutral column has zero distance",
			matrix:    normalizedOf([]float64{0.5, 0.5}, []float64{1, 0}),
			neutral:   domain.Vector{0.5, 0.5},
			distances: domain.Vector{0, math.Sqrt(0.5)},
		},
		{
			name:      "single criterion",
			matrix:    normalizedOf([]float64{1}, []float64{1}),
			neutral:   domain.Vector{1},
			distances: domain.Vector{0, 0},
		},
	}

	unit, err := NewNeutralDistanceUnit("neutral_distance")
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			neutral, distances := unit.Distances(tt.matrix)
			assert.InDeltaSlice(t, tt.neutral, neutral, 1e-12)
			assert.InDeltaSlice(t, tt.distances, distances, 1e-12)
			for _, d := range distances {
				assert.GreaterOrEqual(t, d, 0.0)
			}
		})
	}
}

func TestNeutralDistanceUnit_Execute(t *testing.T) {
	unit, err := NewNeutralDistanceFromConfig("neutral_distance", nil)
	require.NoError(t, err)

	state := domain.With(domain.NewState(), domain.KeyNormalized,
		normalizedOf([]float64{0.5, 0.5}, []float64{1, 0}))
	next, err := unit.Execute(context.Background(), state)
	require.NoError(t, err)

	neutral, ok := domain.Get(next, domain.KeyNeutral)
	require.True(t, ok)
	assert.Equal(t, domain.Vector{0.5, 0.5}, neutral)

	distances, ok := domain.Get(next, domain.KeyDistances)
	require.True(t, ok)
	assert.Len(t, distances, 2)

	_, err = unit.Execute(context.Background(), domain.NewState())
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestNeutralDistanceFromConfig_RejectsParameters(t *testing.T) {
	_, err := NewNeutralDistanceFromConfig("neutral_distance", map[string]any{"norm": 1})
	assert.ErrorContains(t, err, "takes no parameters")

	_, err = NewNeutralDistanceFromConfig("", nil)
	assert.ErrorIs(t, err, ErrEmptyUnitName)
}
