package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ahrav/go-concord/infrastructure/units"
	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

// Metric names recorded by the Consolidator.
const (
	MetricRuns           = "consolidation_runs_total"
	MetricRunLatency     = "consolidation"
	MetricConsensusIndex = "consensus_index"
	MetricCriteria       = "criteria"
	MetricDecisionMakers = "decision_makers"
)

// Run status label values.
const (
	StatusOK       = "ok"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)

// Consolidator runs a compiled graph over one Input and assembles the
// Result from the tables the stages wrote. It holds no per-run state and
// is safe for concurrent use.
type Consolidator struct {
	graph   *Graph
	checks  units.InputConfig
	checker *units.InputUnit
	logger  logrus.FieldLogger
	metrics ports.MetricsCollector
	source  string
}

// ConsolidatorOption configures a Consolidator.
type ConsolidatorOption func(*Consolidator)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger logrus.FieldLogger) ConsolidatorOption {
	return func(c *Consolidator) { c.logger = logger }
}

// WithMetrics sets the metrics collector. The default records nothing.
func WithMetrics(metrics ports.MetricsCollector) ConsolidatorOption {
	return func(c *Consolidator) { c.metrics = metrics }
}

// WithSource names the caller ("cli", "http") in execution metadata.
func WithSource(source string) ConsolidatorOption {
	return func(c *Consolidator) { c.source = source }
}

// WithInputChecks sets the input rules Check applies.
func WithInputChecks(config units.InputConfig) ConsolidatorOption {
	return func(c *Consolidator) { c.checks = config }
}

// NewConsolidator wraps a compiled graph.
func NewConsolidator(graph *Graph, opts ...ConsolidatorOption) (*Consolidator, error) {
	if graph == nil {
		return nil, fmt.Errorf("consolidator requires a graph")
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Consolidator{
		graph:   graph,
		checks:  units.DefaultInputConfig(),
		logger:  discard,
		metrics: noopMetrics{},
		source:  "library",
	}
	for _, opt := range opts {
		opt(c)
	}

	checker, err := units.NewInputUnit(units.TypeInput, c.checks)
	if err != nil {
		return nil, fmt.Errorf("input checks: %w", err)
	}
	c.checker = checker
	return c, nil
}

// NewDefaultConsolidator compiles the embedded default graph with the
// built-in stages and wraps it.
func NewDefaultConsolidator(ctx context.Context, opts ...ConsolidatorOption) (*Consolidator, error) {
	loader, err := NewGraphLoader(NewDefaultUnitRegistry())
	if err != nil {
		return nil, err
	}
	graph, err := loader.LoadDefault(ctx)
	if err != nil {
		return nil, fmt.Errorf("load default graph: %w", err)
	}
	return NewConsolidator(graph, opts...)
}

// Consolidate runs every stage over in and returns the Result.
// Input errors surface as *domain.InvalidWeightError,
// *domain.ShapeMismatchError, *domain.DuplicateCriterionError, or
// *domain.DegenerateInputError, reachable with errors.As through the
// stage wrapping. Identical inputs yield equal Results.
func (c *Consolidator) Consolidate(ctx context.Context, in domain.Input) (*domain.Result, error) {
	execCtx := domain.ExecutionContext{
		GraphID:     c.graph.ID(),
		Source:      c.source,
		ExecutionID: uuid.NewString(),
	}
	log := c.logger.WithFields(logrus.Fields{
		"execution_id":    execCtx.ExecutionID,
		"graph_id":        execCtx.GraphID,
		"criteria":        len(in.Criteria),
		"decision_makers": in.DecisionMakerCount(),
	})

	start := time.Now()
	state := domain.With(domain.NewState(), domain.KeyInput, in).WithExecutionContext(execCtx)

	log.Debug("consolidation started")
	final, err := c.graph.Execute(ctx, state)
	if err == nil {
		var result *domain.Result
		result, err = assemble(final)
		if err == nil {
			c.record(StatusOK, time.Since(start), result)
			log.WithField("duration", time.Since(start)).Info("consolidation finished")
			if result.Adjusted.Fallback {
				log.Info("decision-makers equally weighted: every distance to the neutral vector is zero")
			}
			return result, nil
		}
	}

	status := StatusFailed
	if IsInputError(err) {
		status = StatusRejected
	}
	c.record(status, time.Since(start), nil)
	log.WithError(err).WithField("status", status).Warn("consolidation failed")
	return nil, err
}

// Check applies the input stage's rules to in without running the
// computation. It reports the first problem found.
func (c *Consolidator) Check(ctx context.Context, in domain.Input) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.checker.Build(in)
	return err
}

// Graph returns the compiled graph the consolidator runs.
func (c *Consolidator) Graph() *Graph { return c.graph }

// IsInputError reports whether err was caused by the caller's input
// rather than by the engine.
func IsInputError(err error) bool {
	return errors.Is(err, domain.ErrInvalidWeight) ||
		errors.Is(err, domain.ErrShapeMismatch) ||
		errors.Is(err, domain.ErrDegenerateInput) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, units.ErrLimitExceeded)
}

func (c *Consolidator) record(status string, elapsed time.Duration, result *domain.Result) {
	labels := map[string]string{"graph": c.graph.ID(), "source": c.source}

	c.metrics.RecordCounter(MetricRuns, 1, map[string]string{
		"graph": c.graph.ID(), "source": c.source, "status": status,
	})
	c.metrics.RecordLatency(MetricRunLatency, elapsed, labels)
	if result == nil {
		return
	}

	c.metrics.RecordGauge(MetricCriteria, float64(len(result.Criteria)), labels)
	c.metrics.RecordGauge(MetricDecisionMakers, float64(len(result.DecisionMakers)), labels)
	for _, e := range result.Consensus.Entries {
		c.metrics.RecordHistogram(MetricConsensusIndex, e.Index, map[string]string{
			"estimator": string(result.Consensus.Estimator),
		})
	}
}

// assemble reads the stage tables from the final state.
func assemble(state domain.State) (*domain.Result, error) {
	const op = "consolidate"

	normalized, ok := domain.Get(state, domain.KeyNormalized)
	if !ok {
		return nil, domain.MissingKeyError(domain.KeyNormalized, op)
	}
	neutral, ok := domain.Get(state, domain.KeyNeutral)
	if !ok {
		return nil, domain.MissingKeyError(domain.KeyNeutral, op)
	}
	distances, ok := domain.Get(state, domain.KeyDistances)
	if !ok {
		return nil, domain.MissingKeyError(domain.KeyDistances, op)
	}
	adjusted, ok := domain.Get(state, domain.KeyAdjusted)
	if !ok {
		return nil, domain.MissingKeyError(domain.KeyAdjusted, op)
	}
	combined, ok := domain.Get(state, domain.KeyCombined)
	if !ok {
		return nil, domain.MissingKeyError(domain.KeyCombined, op)
	}
	consensus, ok := domain.Get(state, domain.KeyConsensus)
	if !ok {
		return nil, domain.MissingKeyError(domain.KeyConsensus, op)
	}

	return &domain.Result{
		Criteria:       normalized.Criteria,
		DecisionMakers: normalized.DecisionMakers,
		Normalized:     normalized,
		Neutral:        neutral,
		Distances:      distances,
		Adjusted:       adjusted,
		Combined:       combined,
		Consensus:      consensus,
	}, nil
}

type noopMetrics struct{}

func (noopMetrics) RecordLatency(string, time.Duration, map[string]string) {}
func (noopMetrics) RecordCounter(string, float64, map[string]string)       {}
func (noopMetrics) RecordGauge(string, float64, map[string]string)         {}
func (noopMetrics) RecordHistogram(string, float64, map[string]string)     {}
