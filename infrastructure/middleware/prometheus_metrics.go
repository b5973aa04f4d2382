package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-concord/internal/application"
	"github.com/ahrav/go-concord/internal/ports"
)

const namespace = "concord"

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// It tracks run outcomes, stage and run latency, problem sizes, and the
// distribution of Consensus Index values.
type PrometheusMetrics struct {
	runs             *prometheus.CounterVec
	operationCounter *prometheus.CounterVec
	executionLatency *prometheus.HistogramVec
	consensusIndex   *prometheus.HistogramVec
	problemSize      *prometheus.GaugeVec
	systemGauges     *prometheus.GaugeVec
}

// NewPrometheusMetrics creates the collectors and registers them with reg.
// A nil reg uses the default Prometheus registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "consolidation_runs_total",
				Help:      "Consolidation runs by outcome.",
			},
			[]string{"graph", "source", "status"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Operations performed, by unit and status.",
			},
			[]string{"operation", "status", "unit"},
		),
		executionLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "execution_duration_seconds",
				Help:      "Execution time of runs and individual stages.",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"operation", "unit"},
		),
		consensusIndex: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "consensus_index",
				Help:      "Consensus Index of each criterion across runs.",
				Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
			},
			[]string{"estimator"},
		),
		problemSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "problem_size",
				Help:      "Size of the most recent consolidation problem.",
			},
			[]string{"dimension"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "system_state",
				Help:      "Other gauge values reported by the engine.",
			},
			[]string{"metric", "unit"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.executionLatency.WithLabelValues(operation, unitLabel(labels)).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case application.MetricRuns:
		pm.runs.WithLabelValues(labels["graph"], labels["source"], labels["status"]).Add(value)
	default:
		status := labels["status"]
		if status == "" {
			status = "success"
		}
		pm.operationCounter.WithLabelValues(metric, status, unitLabel(labels)).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case application.MetricCriteria, application.MetricDecisionMakers:
		pm.problemSize.WithLabelValues(metric).Set(value)
	default:
		pm.systemGauges.WithLabelValues(metric, unitLabel(labels)).Set(value)
	}
}

// RecordHistogram implements the MetricsCollector interface. Consensus
// Index values get their own histogram; anything else is recorded as a
// latency in seconds.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case application.MetricConsensusIndex:
		pm.consensusIndex.WithLabelValues(labels["estimator"]).Observe(value)
	default:
		pm.executionLatency.WithLabelValues(metric, unitLabel(labels)).Observe(value)
	}
}

func unitLabel(labels map[string]string) string {
	if unit := labels["unit"]; unit != "" {
		return unit
	}
	return "unknown"
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
