package application

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-concord/infrastructure/units"
	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

// scenarioInput is three criteria rated by two decision-makers who mirror
// each other.
func scenarioInput() domain.Input {
	return domain.Input{
		Criteria: []string{"C1", "C2", "C3"},
		Weights: [][]float64{
			{0.5, 0.2},
			{0.3, 0.3},
			{0.2, 0.5},
		},
	}
}

// threeMakersInput has one decision-maker exactly at the neutral vector.
func threeMakersInput() domain.Input {
	third := 1.0 / 3
	return domain.Input{
		Criteria: []string{"Cost", "Quality", "Delivery"},
		Weights: [][]float64{
			{0.6, third, 0.2},
			{0.3, third, 0.3},
			{0.1, third, 0.5},
		},
		Labels: []string{"Ana", "Bo", "Cy"},
	}
}

// recordingMetrics captures calls to the MetricsCollector.
type recordingMetrics struct {
	mu         sync.Mutex
	counters   map[string][]map[string]string
	histograms map[string][]float64
	gauges     map[string]float64
	latencies  []string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		counters:   make(map[string][]map[string]string),
		histograms: make(map[string][]float64),
		gauges:     make(map[string]float64),
	}
}

func (r *recordingMetrics) RecordLatency(op string, _ time.Duration, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latencies = append(r.latencies, op)
}

func (r *recordingMetrics) RecordCounter(metric string, _ float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[metric] = append(r.counters[metric], labels)
}

func (r *recordingMetrics) RecordGauge(metric string, value float64, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges[metric] = value
}

func (r *recordingMetrics) RecordHistogram(metric string, value float64, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histograms[metric] = append(r.histograms[metric], value)
}

var _ ports.MetricsCollector = (*recordingMetrics)(nil)

func newConsolidator(t *testing.T, opts ...ConsolidatorOption) *Consolidator {
	t.Helper()
	c, err := NewDefaultConsolidator(context.Background(), opts...)
	require.NoError(t, err)
	return c
}

// TestConsolidate_MirroredScenario checks the published two-maker example.
func TestConsolidate_MirroredScenario(t *testing.T) {
	result, err := newConsolidator(t).Consolidate(context.Background(), scenarioInput())
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, result.Neutral, 1e-12)
	assert.InDelta(t, 0.21602468994692867, result.Distances[0], 1e-12)
	assert.InDelta(t, result.Distances[0], result.Distances[1], 1e-12)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, result.Adjusted.Weights, 1e-12)
	assert.InDeltaSlice(t, []float64{0.35, 0.3, 0.35}, result.Combined, 1e-12)

	c1, ok := result.Consensus.Lookup("C1")
	require.True(t, ok)
	assert.InDelta(t, 0.5552504100033393, c1.Index, 1e-9)
	assert.Equal(t, domain.LevelLow, c1.Level)

	c2, _ := result.Consensus.Lookup("C2")
	assert.Equal(t, 1.0, c2.Index)
	assert.Equal(t, domain.LevelHigh, c2.Level)
	assert.Equal(t, domain.DispersionStrongAgreement, c2.Dispersion)

	c3, _ := result.Consensus.Lookup("C3")
	assert.InDelta(t, c1.Index, c3.Index, 1e-12)

	assert.Equal(t, []domain.DecisionMaker{{Index: 1, Label: "D1"}, {Index: 2, Label: "D2"}}, result.DecisionMakers)
}

// TestConsolidate_NeutralMakerGetsMostWeight checks that the decision-maker
// at the neutral vector carries the largest adjusted weight.
func TestConsolidate_NeutralMakerGetsMostWeight(t *testing.T) {
	result, err := newConsolidator(t).Consolidate(context.Background(), threeMakersInput())
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{0.3559026084010437, 0, 0.21602468994692867}, result.Distances, 1e-12)
	assert.InDeltaSlice(t, []float64{0.6222864504441004, 0, 0.37771354955589964}, result.Adjusted.NormalizedDistances, 1e-12)
	assert.InDeltaSlice(t, []float64{0.18885677477794982, 0.5, 0.3111432252220502}, result.Adjusted.Weights, 1e-12)
	assert.InDeltaSlice(t, []float64{0.3422093765778466, 0.31666666666666665, 0.34112395675548673}, result.Combined, 1e-12)
	assert.False(t, result.Adjusted.Fallback)

	w, ok := result.CombinedWeight("Quality")
	require.True(t, ok)
	assert.InDelta(t, 0.31666666666666665, w, 1e-12)
	assert.Equal(t, "Bo", result.DecisionMakers[1].Label)
}

// TestConsolidate_EdgeCases covers the degenerate-but-valid shapes.
func TestConsolidate_EdgeCases(t *testing.T) {
	c := newConsolidator(t)
	ctx := context.Background()

	t.Run("single decision-maker", func(t *testing.T) {
		result, err := c.Consolidate(ctx, domain.Input{
			Criteria: []string{"A", "B"},
			Weights:  [][]float64{{3}, {1}},
		})
		require.NoError(t, err)

		assert.Equal(t, domain.Vector{1}, result.Adjusted.Weights)
		assert.InDeltaSlice(t, []float64{0.75, 0.25}, result.Combined, 1e-12)
		for _, e := range result.Consensus.Entries {
			assert.Equal(t, 1.0, e.Index, "one voice always agrees with itself")
		}
	})

	t.Run("identical vectors fall back to equal weights", func(t *testing.T) {
		result, err := c.Consolidate(ctx, domain.Input{
			Criteria: []string{"A", "B"},
			Weights:  [][]float64{{0.5, 0.5, 0.5}, {0.5, 0.5, 0.5}},
		})
		require.NoError(t, err)

		assert.True(t, result.Adjusted.Fallback)
		assert.InDeltaSlice(t, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, result.Adjusted.Weights, 1e-12)
		assert.Equal(t, domain.Vector{0, 0, 0}, result.Distances)
		for _, e := range result.Consensus.Entries {
			assert.Equal(t, 1.0, e.Index)
		}
	})

	t.Run("all-zero criterion row", func(t *testing.T) {
		result, err := c.Consolidate(ctx, domain.Input{
			Criteria: []string{"A", "B"},
			Weights:  [][]float64{{1, 2}, {0, 0}},
		})
		require.NoError(t, err)

		b, ok := result.Consensus.Lookup("B")
		require.True(t, ok)
		assert.Equal(t, 1.0, b.Index)
		assert.Zero(t, b.MaxStdDev)
		assert.Zero(t, result.Combined[1])
	})

	t.Run("weights near the float64 limit", func(t *testing.T) {
		result, err := c.Consolidate(ctx, domain.Input{
			Criteria: []string{"A", "B"},
			Weights:  [][]float64{{math.MaxFloat64, 1}, {math.MaxFloat64, 1}},
		})
		require.NoError(t, err)

		assert.InDeltaSlice(t, []float64{0.5, 0.5}, result.Combined, 1e-12)
		for _, e := range result.Consensus.Entries {
			assert.Equal(t, domain.LevelHigh, e.Level)
		}
	})
}

// TestConsolidate_InputErrors verifies the typed errors survive the stage
// wrapping.
func TestConsolidate_InputErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    domain.Input
		sentinel error
		check    func(t *testing.T, err error)
	}{
		{
			name: "negative weight",
			input: domain.Input{
				Criteria: []string{"A", "B"},
				Weights:  [][]float64{{0.5, 0.5}, {0.5, -0.1}},
			},
			sentinel: domain.ErrInvalidWeight,
			check: func(t *testing.T, err error) {
				var iw *domain.InvalidWeightError
				require.True(t, errors.As(err, &iw))
				assert.Equal(t, 2, iw.DecisionMaker)
				assert.Equal(t, "B", iw.Criterion)
			},
		},
		{
			name: "NaN weight",
			input: domain.Input{
				Criteria: []string{"A"},
				Weights:  [][]float64{{math.NaN()}},
			},
			sentinel: domain.ErrInvalidWeight,
		},
		{
			name: "ragged row",
			input: domain.Input{
				Criteria: []string{"A", "B"},
				Weights:  [][]float64{{0.5, 0.5}, {0.5}},
			},
			sentinel: domain.ErrShapeMismatch,
		},
		{
			name:     "no criteria",
			input:    domain.Input{},
			sentinel: domain.ErrShapeMismatch,
		},
		{
			name: "zero-sum decision-maker",
			input: domain.Input{
				Criteria: []string{"A", "B"},
				Weights:  [][]float64{{0.5, 0}, {0.5, 0}},
				Labels:   []string{"Ana", "Bo"},
			},
			sentinel: domain.ErrDegenerateInput,
			check: func(t *testing.T, err error) {
				var d *domain.DegenerateInputError
				require.True(t, errors.As(err, &d))
				assert.Equal(t, 2, d.DecisionMaker)
				assert.Equal(t, "Bo", d.Label)

				var stage *ports.StageError
				require.True(t, errors.As(err, &stage))
				assert.Equal(t, "normalize", stage.Stage)
				assert.Contains(t, err.Error(), "pipeline core: stage normalize: degenerate input")
			},
		},
		{
			name: "case-folded duplicate criterion",
			input: domain.Input{
				Criteria: []string{"Cost", " cost "},
				Weights:  [][]float64{{1}, {1}},
			},
			sentinel: domain.ErrInvalidInput,
		},
	}

	c := newConsolidator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := c.Consolidate(context.Background(), tt.input)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.True(t, IsInputError(err))
			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

// TestConsolidate_Idempotent runs the same input twice and concurrently.
func TestConsolidate_Idempotent(t *testing.T) {
	c := newConsolidator(t)
	ctx := context.Background()

	first, err := c.Consolidate(ctx, threeMakersInput())
	require.NoError(t, err)

	const workers = 8
	results := make([]*domain.Result, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := c.Consolidate(ctx, threeMakersInput())
			assert.NoError(t, err)
			results[i] = r
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.True(t, reflect.DeepEqual(first, r), "identical input must yield an identical result")
	}
}

// TestConsolidate_DoesNotAliasInput ensures the caller's slices are not
// retained.
func TestConsolidate_DoesNotAliasInput(t *testing.T) {
	in := scenarioInput()
	result, err := newConsolidator(t).Consolidate(context.Background(), in)
	require.NoError(t, err)

	in.Weights[0][0] = 100
	in.Criteria[0] = "changed"

	assert.Equal(t, "C1", result.Criteria[0].Name)
	assert.InDelta(t, 0.35, result.Combined[0], 1e-12)
}

// TestConsolidate_Properties checks the invariants on random inputs.
func TestConsolidate_Properties(t *testing.T) {
	c := newConsolidator(t)
	rng := rand.New(rand.NewPCG(7, 11))

	for trial := range 200 {
		m := 1 + rng.IntN(6)
		n := 1 + rng.IntN(6)
		in := domain.Input{Criteria: make([]string, m), Weights: make([][]float64, m)}
		for l := range m {
			in.Criteria[l] = string(rune('A' + l))
			in.Weights[l] = make([]float64, n)
			for k := range n {
				in.Weights[l][k] = rng.Float64()
			}
		}
		// Keep every column positive.
		for k := range n {
			in.Weights[0][k] += 0.01
		}

		result, err := c.Consolidate(context.Background(), in)
		require.NoError(t, err, "trial %d", trial)

		require.NoError(t, result.Normalized.CheckColumnSums(), "trial %d", trial)
		assert.InDelta(t, 1.0, result.Adjusted.Weights.Sum(), 1e-9, "trial %d", trial)
		assert.InDelta(t, 1.0, result.Combined.Sum(), 1e-9, "trial %d", trial)
		for _, w := range result.Combined {
			assert.GreaterOrEqual(t, w, 0.0)
		}
		for _, e := range result.Consensus.Entries {
			assert.GreaterOrEqual(t, e.Index, 0.0, "trial %d", trial)
			assert.LessOrEqual(t, e.Index, 1.0, "trial %d", trial)
			assert.False(t, math.IsNaN(e.Index))
		}
		if n == 1 {
			assert.Equal(t, domain.Vector{1}, result.Adjusted.Weights)
			assert.InDeltaSlice(t, []float64(result.Normalized.Column(0)), []float64(result.Combined), 1e-12)
		}
	}
}

// TestConsolidate_Cancelled verifies a cancelled context stops the run.
func TestConsolidate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newConsolidator(t).Consolidate(ctx, scenarioInput())
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsInputError(err))
}

// TestConsolidate_Observability checks the log entries and metrics a run
// produces.
func TestConsolidate_Observability(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	metrics := newRecordingMetrics()

	c := newConsolidator(t, WithLogger(logger), WithMetrics(metrics), WithSource("test"))
	ctx := context.Background()

	_, err := c.Consolidate(ctx, scenarioInput())
	require.NoError(t, err)
	_, err = c.Consolidate(ctx, domain.Input{Criteria: []string{"A"}, Weights: [][]float64{{-1}}})
	require.Error(t, err)

	runs := metrics.counters[MetricRuns]
	require.Len(t, runs, 2)
	assert.Equal(t, StatusOK, runs[0]["status"])
	assert.Equal(t, StatusRejected, runs[1]["status"])
	assert.Equal(t, "test", runs[0]["source"])
	assert.Len(t, metrics.histograms[MetricConsensusIndex], 3)
	assert.Equal(t, 3.0, metrics.gauges[MetricCriteria])
	assert.Equal(t, 2.0, metrics.gauges[MetricDecisionMakers])
	assert.Len(t, metrics.latencies, 2)

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.WarnLevel, last.Level)
	assert.Equal(t, StatusRejected, last.Data["status"])
	assert.NotEmpty(t, last.Data["execution_id"])
	assert.Equal(t, "default", last.Data["graph_id"])

	var finished int
	for _, e := range hook.AllEntries() {
		if e.Message == "consolidation finished" {
			finished++
		}
	}
	assert.Equal(t, 1, finished)
}

// TestConsolidator_Check validates without computing.
func TestConsolidator_Check(t *testing.T) {
	c := newConsolidator(t, WithInputChecks(units.InputConfig{MaxDecisionMakers: 2}))
	ctx := context.Background()

	assert.NoError(t, c.Check(ctx, scenarioInput()))

	err := c.Check(ctx, threeMakersInput())
	assert.ErrorIs(t, err, units.ErrLimitExceeded)
	assert.True(t, IsInputError(err))

	// A zero-sum column only fails during normalization.
	assert.NoError(t, c.Check(ctx, domain.Input{Criteria: []string{"A"}, Weights: [][]float64{{0}}}))

	_, err = NewDefaultConsolidator(ctx, WithInputChecks(units.InputConfig{NearDuplicateDistance: 9}))
	assert.ErrorContains(t, err, "input checks")
}
