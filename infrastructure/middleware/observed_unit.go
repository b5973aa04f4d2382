// Package middleware provides cross-cutting concerns for the consolidation
// engine. It wraps stages in the decorator style so that the stages stay
// pure computations while logging, tracing, and metrics happen around them.
package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/ahrav/go-concord/internal/application"
	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

// StageInfo identifies one stage execution within a run.
type StageInfo struct {
	// Unit is the stage's configured ID.
	Unit string

	// ExecutionID, GraphID and Source come from the run's execution
	// context and are empty when the state carries none.
	ExecutionID string
	GraphID     string
	Source      string
}

// StageObserver provides observability hooks around stage execution.
// Implementations can add tracing, metrics, and logging without
// coupling those concerns to the stages.
type StageObserver interface {
	// BeforeStage is called before the stage runs. The returned context is
	// passed to the stage and to AfterStage.
	BeforeStage(ctx context.Context, info StageInfo) context.Context

	// AfterStage is called after the stage returns.
	AfterStage(ctx context.Context, info StageInfo, elapsed time.Duration, err error)
}

var _ ports.Unit = (*ObservedUnit)(nil)

// ObservedUnit runs a stage between its observers' hooks. It adds no
// state of its own and is safe for concurrent use.
type ObservedUnit struct {
	// next holds the wrapped stage.
	next ports.Unit

	// observers are notified in order before the stage and in reverse
	// order after it.
	observers []StageObserver
}

// NewObservedUnit wraps next with the given observers.
func NewObservedUnit(next ports.Unit, observers ...StageObserver) *ObservedUnit {
	if next == nil {
		panic("observed unit: next unit is required")
	}
	return &ObservedUnit{next: next, observers: observers}
}

// Observe returns a graph loader middleware that wraps every stage with the
// given observers.
func Observe(observers ...StageObserver) application.UnitMiddleware {
	return func(u ports.Unit) ports.Unit {
		return NewObservedUnit(u, observers...)
	}
}

// Name returns the wrapped stage's name.
func (o *ObservedUnit) Name() string { return o.next.Name() }

// Execute runs the wrapped stage, notifying the observers around it.
func (o *ObservedUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	info := StageInfo{Unit: o.next.Name()}
	if exec, ok := state.GetExecutionContext(); ok {
		info.ExecutionID = exec.ExecutionID
		info.GraphID = exec.GraphID
		info.Source = exec.Source
	}

	ctxs := make([]context.Context, len(o.observers))
	for i, obs := range o.observers {
		ctx = obs.BeforeStage(ctx, info)
		ctxs[i] = ctx
	}

	start := time.Now()
	newState, err := o.next.Execute(ctx, state)
	elapsed := time.Since(start)

	for i := len(o.observers) - 1; i >= 0; i-- {
		o.observers[i].AfterStage(ctxs[i], info, elapsed, err)
	}
	return newState, err
}

// Validate checks that the wrapped stage is valid.
func (o *ObservedUnit) Validate() error {
	if o.next == nil {
		return fmt.Errorf("observed unit: next unit is required")
	}
	return o.next.Validate()
}

// Unwrap returns the wrapped stage.
func (o *ObservedUnit) Unwrap() ports.Unit { return o.next }

// MetricsObserver records stage latency and outcome counts.
type MetricsObserver struct {
	metrics ports.MetricsCollector
}

var _ StageObserver = (*MetricsObserver)(nil)

// NewMetricsObserver creates an observer that reports to metrics.
func NewMetricsObserver(metrics ports.MetricsCollector) *MetricsObserver {
	return &MetricsObserver{metrics: metrics}
}

// BeforeStage implements StageObserver.
func (m *MetricsObserver) BeforeStage(ctx context.Context, _ StageInfo) context.Context { return ctx }

// AfterStage implements StageObserver.
func (m *MetricsObserver) AfterStage(_ context.Context, info StageInfo, elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.metrics.RecordLatency("stage", elapsed, map[string]string{"unit": info.Unit})
	m.metrics.RecordCounter("stage_executions", 1, map[string]string{"unit": info.Unit, "status": status})
}
