package middleware

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-concord/internal/domain"
)

// TracerName is the instrumentation name used when no tracer is supplied.
const TracerName = "github.com/ahrav/go-concord/stage"

var _ StageObserver = (*OTelStageObserver)(nil)

// OTelStageObserver wraps every stage in an OpenTelemetry span. Input
// errors are recorded as span events with the offending decision-maker or
// criterion so that a rejected run can be traced to its cause.
type OTelStageObserver struct {
	tracer trace.Tracer
}

// NewOTelStageObserver creates an observer using tracer, or the global
// tracer provider when tracer is nil.
func NewOTelStageObserver(tracer trace.Tracer) *OTelStageObserver {
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	return &OTelStageObserver{tracer: tracer}
}

// BeforeStage implements StageObserver by starting a span.
func (o *OTelStageObserver) BeforeStage(ctx context.Context, info StageInfo) context.Context {
	ctx, _ = o.tracer.Start(ctx, "stage "+info.Unit, trace.WithAttributes(
		attribute.String("concord.unit", info.Unit),
		attribute.String("concord.graph_id", info.GraphID),
		attribute.String("concord.execution_id", info.ExecutionID),
	))
	return ctx
}

// AfterStage implements StageObserver by finishing the span started in
// BeforeStage.
func (o *OTelStageObserver) AfterStage(ctx context.Context, info StageInfo, elapsed time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.SetAttributes(attribute.Int64("concord.duration_us", elapsed.Microseconds()))
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var (
		weight     *domain.InvalidWeightError
		degenerate *domain.DegenerateInputError
		shape      *domain.ShapeMismatchError
	)
	switch {
	case errors.As(err, &weight):
		span.AddEvent("input.invalid_weight", trace.WithAttributes(
			attribute.Int("decision_maker", weight.DecisionMaker),
			attribute.String("criterion", weight.Criterion),
			attribute.Float64("value", weight.Value),
		))
	case errors.As(err, &degenerate):
		span.AddEvent("input.degenerate", trace.WithAttributes(
			attribute.Int("decision_maker", degenerate.DecisionMaker),
			attribute.String("label", degenerate.Label),
		))
	case errors.As(err, &shape):
		span.AddEvent("input.shape_mismatch", trace.WithAttributes(
			attribute.String("dimension", shape.Dimension),
			attribute.Int("expected", shape.Expected),
			attribute.Int("got", shape.Got),
		))
	}
}
